package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// runRecognizer executes the image moderation DAG: upload, three parallel
// analyzers over the image, two parallel text passes over the extracted
// text, then a conditional mosaic when any verdict is illegal.
func runRecognizer(ctx context.Context, o *Orchestrator, wlog zerolog.Logger, payload json.RawMessage) error {
	var p types.RecognizerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("bad recognizer payload: %w", err)
	}
	if p.ImageFilename == "" {
		return fmt.Errorf("image_filename required")
	}

	wlog.Info().Str("image", p.ImageFilename).Msg("dispatching upload")
	uploadResult, _, err := o.invoker.DispatchWithDenoising(ctx, "recognizer_upload", map[string]any{
		"image_filename": p.ImageFilename,
	})
	if err != nil {
		return fmt.Errorf("recognizer_upload: %w", err)
	}
	uploadMap, err := asMap(uploadResult)
	if err != nil {
		return fmt.Errorf("recognizer_upload: %w", err)
	}
	imagePath, err := stringField(uploadMap, "image_path")
	if err != nil {
		return fmt.Errorf("recognizer_upload: %w", err)
	}

	// Stage 2: adult, violence and extract all see the uploaded image
	wlog.Info().Str("image_path", imagePath).Msg("analyzing image in parallel")
	imagePayload := map[string]any{"image_path": imagePath}
	analyses := make(map[string]map[string]any, 3)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range []string{"recognizer_adult", "recognizer_violence", "recognizer_extract"} {
		g.Go(func() error {
			result, _, err := o.invoker.DispatchWithDenoising(gctx, fn, imagePayload)
			if err != nil {
				return fmt.Errorf("%s: %w", fn, err)
			}
			m, err := asMap(result)
			if err != nil {
				return fmt.Errorf("%s: %w", fn, err)
			}
			mu.Lock()
			analyses[fn] = m
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	text, _ := stringField(analyses["recognizer_extract"], "text")

	// Stage 3: censor and translate both see the extracted text
	wlog.Info().Msg("analyzing extracted text in parallel")
	textPayload := map[string]any{"text": text}
	g, gctx = errgroup.WithContext(ctx)
	for _, fn := range []string{"recognizer_censor", "recognizer_translate"} {
		g.Go(func() error {
			result, _, err := o.invoker.DispatchWithDenoising(gctx, fn, textPayload)
			if err != nil {
				return fmt.Errorf("%s: %w", fn, err)
			}
			m, err := asMap(result)
			if err != nil {
				return fmt.Errorf("%s: %w", fn, err)
			}
			mu.Lock()
			analyses[fn] = m
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Verdict: any single illegal flag condemns the image
	illegal := boolField(analyses["recognizer_adult"], "illegal") ||
		boolField(analyses["recognizer_violence"], "illegal") ||
		boolField(analyses["recognizer_censor"], "illegal")

	finalPath := imagePath
	if illegal {
		wlog.Info().Msg("image flagged illegal, dispatching mosaic")
		mosaicResult, _, err := o.invoker.DispatchWithDenoising(ctx, "recognizer_mosaic", map[string]any{
			"image_path": imagePath,
		})
		if err != nil {
			return fmt.Errorf("recognizer_mosaic: %w", err)
		}
		m, err := asMap(mosaicResult)
		if err != nil {
			return fmt.Errorf("recognizer_mosaic: %w", err)
		}
		finalPath, err = stringField(m, "mosaic_image_path")
		if err != nil {
			return fmt.Errorf("recognizer_mosaic: %w", err)
		}
	} else {
		wlog.Info().Msg("image clean, skipping mosaic")
	}

	translated, _ := stringField(analyses["recognizer_translate"], "translated_text")
	final := types.RecognizerResult{
		Illegal:        illegal,
		FinalImagePath: finalPath,
		TranslatedText: translated,
		Details: map[string]any{
			"adult_check":    analyses["recognizer_adult"],
			"violence_check": analyses["recognizer_violence"],
			"censor_check":   analyses["recognizer_censor"],
		},
	}

	wlog.Info().
		Bool("illegal", final.Illegal).
		Str("final_image_path", final.FinalImagePath).
		Msg("recognizer workflow result")
	return nil
}
