package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// runWordcount executes the map/reduce word count: slice the input file,
// count each chunk in parallel, merge the partial counts.
func runWordcount(ctx context.Context, o *Orchestrator, wlog zerolog.Logger, payload json.RawMessage) error {
	p := types.WordcountPayload{SliceNum: 4}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("bad wordcount payload: %w", err)
	}
	if p.InputFilename == "" {
		return fmt.Errorf("input_filename required")
	}

	wlog.Info().
		Str("input", p.InputFilename).
		Int("slices", p.SliceNum).
		Msg("dispatching wordcount_start")
	startResult, _, err := o.invoker.DispatchWithDenoising(ctx, "wordcount_start", map[string]any{
		"input_filename": p.InputFilename,
		"slice_num":      p.SliceNum,
	})
	if err != nil {
		return fmt.Errorf("wordcount_start: %w", err)
	}
	startMap, err := asMap(startResult)
	if err != nil {
		return fmt.Errorf("wordcount_start: %w", err)
	}
	chunkPaths, err := stringSliceField(startMap, "chunk_paths")
	if err != nil {
		return fmt.Errorf("wordcount_start: %w", err)
	}
	wlog.Info().Int("chunks", len(chunkPaths)).Msg("input sliced, counting in parallel")

	// Fan-out map stage, barrier before the reduce
	resultPaths := make([]string, len(chunkPaths))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunkPath := range chunkPaths {
		g.Go(func() error {
			result, _, err := o.invoker.DispatchWithDenoising(gctx, "wordcount_count", map[string]any{
				"chunk_path": chunkPath,
			})
			if err != nil {
				return fmt.Errorf("wordcount_count %s: %w", chunkPath, err)
			}
			m, err := asMap(result)
			if err != nil {
				return fmt.Errorf("wordcount_count %s: %w", chunkPath, err)
			}
			resultPaths[i], err = stringField(m, "result_path")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	wlog.Info().Msg("count complete, merging")

	mergeResult, _, err := o.invoker.DispatchWithDenoising(ctx, "wordcount_merge", map[string]any{
		"result_paths": resultPaths,
	})
	if err != nil {
		return fmt.Errorf("wordcount_merge: %w", err)
	}
	mergeMap, err := asMap(mergeResult)
	if err != nil {
		return fmt.Errorf("wordcount_merge: %w", err)
	}
	counts, ok := mergeMap["final_word_count"].(map[string]any)
	if !ok {
		return fmt.Errorf("wordcount_merge: result field %q missing or not an object", "final_word_count")
	}

	wlog.Info().Int("unique_words", len(counts)).Msg("wordcount merge complete")
	return nil
}
