package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// runVideo executes split -> transcode (fan-out) -> merge
func runVideo(ctx context.Context, o *Orchestrator, wlog zerolog.Logger, payload json.RawMessage) error {
	var p types.VideoPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("bad video payload: %w", err)
	}
	if p.VideoName == "" {
		return fmt.Errorf("video_name required")
	}
	if p.SegmentTime <= 0 {
		p.SegmentTime = 10
	}
	if p.TargetType == "" {
		p.TargetType = "avi"
	}
	if p.OutputPrefix == "" {
		p.OutputPrefix = "final_video"
	}

	wlog.Info().Str("video", p.VideoName).Msg("dispatching split")
	splitResult, _, err := o.invoker.DispatchWithDenoising(ctx, "video_split", map[string]any{
		"video_name":   p.VideoName,
		"segment_time": p.SegmentTime,
	})
	if err != nil {
		return fmt.Errorf("video_split: %w", err)
	}

	splitMap, err := asMap(splitResult)
	if err != nil {
		return fmt.Errorf("video_split: %w", err)
	}
	splitKeys, err := stringSliceField(splitMap, "split_keys")
	if err != nil {
		return fmt.Errorf("video_split: %w", err)
	}
	wlog.Info().Int("segments", len(splitKeys)).Msg("split complete, transcoding in parallel")

	// Fan-out: one transcode per segment, barrier before merge
	transcoded := make([]string, len(splitKeys))
	g, gctx := errgroup.WithContext(ctx)
	for i, splitFile := range splitKeys {
		g.Go(func() error {
			result, _, err := o.invoker.DispatchWithDenoising(gctx, "video_transcode", map[string]any{
				"split_file":  splitFile,
				"target_type": p.TargetType,
			})
			if err != nil {
				return fmt.Errorf("video_transcode %s: %w", splitFile, err)
			}
			m, err := asMap(result)
			if err != nil {
				return fmt.Errorf("video_transcode %s: %w", splitFile, err)
			}
			transcoded[i], err = stringField(m, "transcoded_file")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	wlog.Info().Msg("transcode complete, merging")

	mergeResult, _, err := o.invoker.DispatchWithDenoising(ctx, "video_merge", map[string]any{
		"transcoded_files": transcoded,
		"target_type":      p.TargetType,
		"output_prefix":    p.OutputPrefix,
		"video_name":       p.VideoName,
	})
	if err != nil {
		return fmt.Errorf("video_merge: %w", err)
	}
	mergeMap, err := asMap(mergeResult)
	if err != nil {
		return fmt.Errorf("video_merge: %w", err)
	}
	finalVideo, err := stringField(mergeMap, "final_video")
	if err != nil {
		return fmt.Errorf("video_merge: %w", err)
	}

	wlog.Info().Str("final_video", finalVideo).Msg("merge complete")
	return nil
}
