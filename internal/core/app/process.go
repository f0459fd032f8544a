package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ngasync/internal/core/errors"
	"ngasync/internal/data/cache"
	"ngasync/internal/engine/transform"
	"ngasync/internal/shared/observability"
	"ngasync/internal/shared/util"
	"ngasync/internal/shared/version"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Outcome string

const (
	OutcomeRewritten Outcome = "rewritten"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRemoved   Outcome = "removed"
	OutcomeFailed    Outcome = "failed"
)

type FileResult struct {
	Path string
	// Dest is where the output went; empty for dry runs and stdout.
	Dest        string
	Outcome     Outcome
	Cached      bool
	Sites       int
	Diagnostics []transform.Diagnostic
	Err         error
}

// ProcessFile lowers one source file and writes its output. Parse errors
// and unsupported languages are reported as skipped, not failed.
func (a *App) ProcessFile(ctx context.Context, path string) FileResult {
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	ctx, span := observability.Tracer.Start(ctx, "ngasync.ProcessFile")
	defer span.End()
	span.SetAttributes(attribute.String("path", a.relative(path)))

	res := a.processFile(ctx, path)
	span.SetAttributes(
		attribute.String("outcome", string(res.Outcome)),
		attribute.Bool("cached", res.Cached),
		attribute.Int("sites", res.Sites),
	)
	if res.Err != nil && res.Outcome == OutcomeFailed {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	observability.FilesProcessedTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

func (a *App) processFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return a.removeOutput(res)
	}
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	lang := a.Parser.GetLanguage(path)
	digest := a.digest(content, lang)
	if entry, ok := a.lookup(ctx, digest); ok {
		res.Cached = true
		res.Sites = entry.Sites
		if len(entry.Diagnostics) > 0 {
			if err := json.Unmarshal(entry.Diagnostics, &res.Diagnostics); err != nil {
				slog.Debug("discarding unreadable cached diagnostics", "path", path, "error", err)
			}
		}
		return a.emit(res, content, entry.Output)
	}

	start := time.Now()
	result, err := transform.Source(a.Parser, path, content, a.transformOptions())
	if err != nil {
		res.Err = err
		res.Outcome = OutcomeFailed
		if errors.IsCode(err, errors.CodeParse) || errors.IsCode(err, errors.CodeNotSupported) {
			res.Outcome = OutcomeSkipped
		}
		return res
	}
	observability.TransformDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	for kind, n := range result.Stats.Sites {
		observability.SitesTransformedTotal.WithLabelValues(kind.String()).Add(float64(n))
	}
	if result.Stats.Stripped > 0 {
		observability.SitesTransformedTotal.WithLabelValues("stripped").Add(float64(result.Stats.Stripped))
	}
	for _, d := range result.Diagnostics {
		observability.DiagnosticsTotal.WithLabelValues(string(d.Code), d.Kind).Inc()
	}

	res.Sites = result.Stats.Total()
	res.Diagnostics = result.Diagnostics
	a.remember(ctx, path, digest, result)
	return a.emit(res, content, result.Code)
}

func (a *App) digest(content []byte, lang string) string {
	opts := a.transformOptions()
	return cache.Digest(content,
		lang,
		opts.HelperName,
		strconv.FormatBool(opts.StripAwaitless),
		version.Version,
	)
}

func (a *App) lookup(ctx context.Context, digest string) (cache.Entry, bool) {
	if a.store == nil {
		return cache.Entry{}, false
	}
	entry, ok, err := a.store.Get(ctx, digest)
	if err != nil {
		slog.Warn("cache lookup failed", "error", err)
		observability.CacheLookupsTotal.WithLabelValues("error").Inc()
		return cache.Entry{}, false
	}
	if !ok {
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return cache.Entry{}, false
	}
	observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return entry, true
}

func (a *App) remember(ctx context.Context, path, digest string, result *transform.Result) {
	if a.store == nil {
		return
	}
	var diags []byte
	if len(result.Diagnostics) > 0 {
		encoded, err := json.Marshal(result.Diagnostics)
		if err != nil {
			slog.Warn("failed to encode diagnostics for cache", "path", path, "error", err)
			return
		}
		diags = encoded
	}
	rel := a.relative(path)
	entry := cache.Entry{
		Digest:      digest,
		Path:        rel,
		Output:      result.Code,
		Diagnostics: diags,
		Sites:       result.Stats.Total(),
		RunID:       a.runID,
	}
	if err := a.store.Put(ctx, entry); err != nil {
		slog.Warn("failed to write cache entry", "path", path, "error", err)
		return
	}
	if _, err := a.store.Prune(ctx, rel, digest); err != nil {
		slog.Debug("failed to prune stale cache entries", "path", path, "error", err)
	}
}

// emit writes output for res. In-place mode leaves unchanged files alone;
// the other modes always write so the output set is complete.
func (a *App) emit(res FileResult, input, output []byte) FileResult {
	res.Outcome = OutcomeRewritten
	if string(input) == string(output) {
		res.Outcome = OutcomeUnchanged
	}
	if a.opts.DryRun {
		return res
	}
	if a.opts.Stdout != nil {
		if _, err := a.opts.Stdout.Write(output); err != nil {
			res.Outcome, res.Err = OutcomeFailed, err
		}
		return res
	}

	dest, err := a.OutputPath(res.Path)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if dest == res.Path && res.Outcome == OutcomeUnchanged {
		return res
	}
	perm := os.FileMode(0o644)
	if info, err := os.Stat(res.Path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := util.WriteFileWithDirs(dest, output, perm); err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("write %s: %w", dest, err)
		return res
	}
	res.Dest = dest
	return res
}

// removeOutput deletes the output of a source file that no longer exists.
func (a *App) removeOutput(res FileResult) FileResult {
	res.Outcome = OutcomeRemoved
	if a.opts.DryRun || a.opts.Stdout != nil || a.Config().Output.InPlace {
		return res
	}
	dest, err := a.OutputPath(res.Path)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	res.Dest = dest
	return res
}

// OutputPath maps a source file to its output location.
func (a *App) OutputPath(src string) (string, error) {
	out := a.Config().Output
	switch {
	case out.InPlace:
		return src, nil
	case out.Suffix != "":
		ext := filepath.Ext(src)
		return strings.TrimSuffix(src, ext) + out.Suffix + ext, nil
	}
	rel, err := filepath.Rel(a.Paths.ProjectRoot, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.AddContext(
			errors.New(errors.CodeValidationError, "input is outside the project root"),
			errors.CtxPath, src,
		)
	}
	return filepath.Join(a.Paths.OutputDir, rel), nil
}
