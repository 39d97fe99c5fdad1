package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// runSVD executes the divide-and-conquer SVD: slice the matrix, decompose
// each slice in parallel, then merge the partial factors in index order.
func runSVD(ctx context.Context, o *Orchestrator, wlog zerolog.Logger, payload json.RawMessage) error {
	p := types.SVDPayload{RowNum: 2000, ColNum: 100, SliceNum: 2}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("bad svd payload: %w", err)
	}

	wlog.Info().
		Int("rows", p.RowNum).
		Int("cols", p.ColNum).
		Int("slices", p.SliceNum).
		Msg("dispatching svd_start")
	startResult, _, err := o.invoker.DispatchWithDenoising(ctx, "svd_start", map[string]any{
		"row_num":   p.RowNum,
		"col_num":   p.ColNum,
		"slice_num": p.SliceNum,
	})
	if err != nil {
		return fmt.Errorf("svd_start: %w", err)
	}
	startMap, err := asMap(startResult)
	if err != nil {
		return fmt.Errorf("svd_start: %w", err)
	}
	slicePaths, err := stringSliceField(startMap, "slice_paths")
	if err != nil {
		return fmt.Errorf("svd_start: %w", err)
	}
	wlog.Info().Int("slices", len(slicePaths)).Msg("matrix sliced, computing in parallel")

	// Fan-out: each slice carries its index so the merge can restore order
	partials := make([]types.SVDPartial, len(slicePaths))
	g, gctx := errgroup.WithContext(ctx)
	for i, slicePath := range slicePaths {
		g.Go(func() error {
			result, _, err := o.invoker.DispatchWithDenoising(gctx, "svd_compute", map[string]any{
				"slice_path": slicePath,
				"mat_index":  i,
			})
			if err != nil {
				return fmt.Errorf("svd_compute %d: %w", i, err)
			}
			var partial types.SVDPartial
			if err := decodeResult(result, &partial); err != nil {
				return fmt.Errorf("svd_compute %d: %w", i, err)
			}
			if partial.UPath == "" || partial.SPath == "" || partial.VPath == "" {
				return fmt.Errorf("svd_compute %d: factor paths missing from result", i)
			}
			partials[i] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	wlog.Info().Msg("compute complete, merging factors")

	mergeResult, _, err := o.invoker.DispatchWithDenoising(ctx, "svd_merge", map[string]any{
		"results": partials,
	})
	if err != nil {
		return fmt.Errorf("svd_merge: %w", err)
	}
	mergeMap, err := asMap(mergeResult)
	if err != nil {
		return fmt.Errorf("svd_merge: %w", err)
	}
	finalU, err := stringField(mergeMap, "final_u_path")
	if err != nil {
		return fmt.Errorf("svd_merge: %w", err)
	}

	wlog.Info().Str("final_u_path", finalU).Msg("svd merge complete")
	return nil
}
