package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ngasync/internal/core/errors"
)

type Summary struct {
	RunID       string
	Files       []FileResult
	Rewritten   int
	Unchanged   int
	Skipped     int
	Removed     int
	Failed      int
	Cached      int
	Sites       int
	Diagnostics int
	Duration    time.Duration
}

func (s *Summary) add(r FileResult) {
	s.Files = append(s.Files, r)
	switch r.Outcome {
	case OutcomeRewritten:
		s.Rewritten++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeRemoved:
		s.Removed++
	case OutcomeFailed:
		s.Failed++
	}
	if r.Cached {
		s.Cached++
	}
	s.Sites += r.Sites
	s.Diagnostics += len(r.Diagnostics)
}

// Err reports a failed batch. Diagnostics fail it only when failOnDiagnostics
// is set.
func (s Summary) Err(failOnDiagnostics bool) error {
	if s.Failed > 0 {
		return errors.New(errors.CodeInternal, fmt.Sprintf("%d file(s) failed", s.Failed))
	}
	if s.Skipped > 0 && failOnDiagnostics {
		return errors.New(errors.CodeParse, fmt.Sprintf("%d file(s) could not be parsed", s.Skipped))
	}
	if s.Diagnostics > 0 && failOnDiagnostics {
		return errors.New(errors.CodeUnsupportedSyntax, fmt.Sprintf("%d async function(s) left untransformed", s.Diagnostics))
	}
	return nil
}

// Run processes every input under roots, or the configured inputs when
// roots is empty.
func (a *App) Run(ctx context.Context, roots []string) (Summary, error) {
	if len(roots) == 0 {
		roots = a.Paths.InputPaths
	}
	files, err := a.ScanInputs(roots)
	if err != nil {
		return Summary{}, err
	}
	return a.processBatch(ctx, files), nil
}

func (a *App) processBatch(ctx context.Context, files []string) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	summary := Summary{RunID: a.runID}
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		res := a.ProcessFile(ctx, path)
		logResult(res)
		summary.add(res)
	}
	summary.Duration = time.Since(start)
	a.publish(summary)
	return summary
}

func logResult(r FileResult) {
	switch r.Outcome {
	case OutcomeFailed:
		slog.Warn("failed to process file", "path", r.Path, "error", r.Err)
	case OutcomeSkipped:
		slog.Warn("skipping file", "path", r.Path, "error", r.Err)
	default:
		slog.Debug("processed file", "path", r.Path, "outcome", r.Outcome, "sites", r.Sites, "cached", r.Cached)
	}
	for _, d := range r.Diagnostics {
		slog.Warn("async function left untransformed",
			"path", r.Path,
			"line", d.Line,
			"column", d.Column,
			"kind", d.Kind,
			"message", d.Message,
		)
	}
}
