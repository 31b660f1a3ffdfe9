package analysis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/membrane-tools-mcp/internal/imaging"
)

// BatchResult is the analysis of a stack of frames.
type BatchResult struct {
	// RunID identifies the batch in log lines.
	RunID string `json:"run_id"`

	// Frames holds one result per input frame, in input order.
	Frames []FrameResult `json:"frames"`

	// Failed counts the frames whose analysis failed.
	Failed int `json:"failed"`
}

// AnalyzeBatch analyses frames with at most workers concurrent frame
// analyses (workers <= 0 means one per frame).
//
// A frame that fails is reported as a FrameResult with Status "failed"; it
// never stops the other frames. Frames are independent, so the result equals
// analysing them one by one in order.
//
// # Errors
//
//   - ctx.Err() if ctx is cancelled before every frame completed; no partial
//     results are returned.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, frames []imaging.Frame, workers int) (*BatchResult, error) {
	runID := uuid.NewString()
	results := make([]FrameResult, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	p.logger.Printf("batch %s: analysing %d frames with %d workers", runID, len(frames), workers)

	for i := range frames {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.AnalyzeFrame(frames[i], nil)
			if err != nil {
				p.logger.Printf("batch %s: frame %d failed: %v", runID, frames[i].Index, err)
				results[i] = failedResult(frames[i].Index, err)
				return nil
			}
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch %s cancelled: %w", runID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch %s cancelled: %w", runID, err)
	}

	out := &BatchResult{RunID: runID, Frames: results}
	for _, r := range results {
		if r.Status == FrameFailed {
			out.Failed++
		}
	}
	p.logger.Printf("batch %s: done, %d of %d frames failed", runID, out.Failed, len(frames))
	return out, nil
}
