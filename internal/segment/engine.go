// Package segment plans and executes batches of time-range extractions
// against a single cached full-source artifact.
package segment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/famomatic/clipget/internal/media"
	"github.com/famomatic/clipget/internal/subtitle"
)

// Range is one caller-requested [StartSec, EndSec) window.
type Range struct {
	StartSec   int
	EndSec     int
	OutputPath string // optional override for the derived name
}

// Duration returns EndSec - StartSec.
func (r Range) Duration() int { return r.EndSec - r.StartSec }

// RangeError reports a validation failure indexed to the offending range.
type RangeError struct {
	Index  int
	Range  Range
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("segment %d (%d-%d): %s", e.Index, e.Range.StartSec, e.Range.EndSec, e.Reason)
}

// SourceFetcher obtains the full source artifact exactly once per batch. It
// is asked to write to dst and reports where the artifact actually landed,
// which may differ when the underlying tool adjusts the name.
type SourceFetcher interface {
	FetchFull(ctx context.Context, dst string) (string, error)
}

// Cutter produces one bounded sub-range artifact from the cached source.
type Cutter interface {
	Cut(ctx context.Context, src, dst string, startSec, durationSec int, mode media.Mode) error
}

// SubtitleTrack is raw timed-text content to trim per range.
type SubtitleTrack struct {
	LanguageCode string
	Content      string
}

// Logger is the minimal logging surface the engine needs.
type Logger interface {
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

// Config wires an Engine for one source video.
type Config struct {
	WorkDir     string // cache artifact directory; empty means OutputDir
	OutputDir   string
	BaseName    string // sanitized title+id stem for derived output names
	Ext         string // output extension including the dot
	MinDuration int
	MaxDuration int
	Mode        media.Mode
	KeepCache   bool
	Subtitles   []SubtitleTrack
	SubtitleFmt string
	Logger      Logger
}

// Engine executes one batch per call. A single engine must not run two
// batches concurrently; callers serialize externally.
type Engine struct {
	fetcher SourceFetcher
	cutter  Cutter
	cfg     Config
}

// New builds an Engine.
func New(fetcher SourceFetcher, cutter Cutter, cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = cfg.OutputDir
	}
	if cfg.Ext == "" {
		cfg.Ext = ".mp4"
	}
	return &Engine{fetcher: fetcher, cutter: cutter, cfg: cfg}
}

// Validate checks every range before any I/O happens. The first violation is
// returned indexed to its range.
func (e *Engine) Validate(ranges []Range) error {
	if len(ranges) == 0 {
		return &RangeError{Index: 0, Reason: "no segments requested"}
	}
	for i, r := range ranges {
		if r.StartSec < 0 {
			return &RangeError{Index: i, Range: r, Reason: "start must be non-negative"}
		}
		if r.EndSec <= r.StartSec {
			return &RangeError{Index: i, Range: r, Reason: "end must be greater than start"}
		}
		if d := r.Duration(); d < e.cfg.MinDuration || d > e.cfg.MaxDuration {
			return &RangeError{Index: i, Range: r, Reason: fmt.Sprintf(
				"duration %ds outside bounds [%d, %d]", d, e.cfg.MinDuration, e.cfg.MaxDuration)}
		}
	}
	return nil
}

// Run fetches the full source once, cuts every range from the cached
// artifact in input order, and returns the produced paths in that order. The
// cache artifact is removed on every exit path unless retention was
// configured.
func (e *Engine) Run(ctx context.Context, ranges []Range) (outputs []string, err error) {
	if err := e.Validate(ranges); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}
	if e.cfg.WorkDir != e.cfg.OutputDir {
		if err := os.MkdirAll(e.cfg.WorkDir, 0o755); err != nil {
			return nil, err
		}
	}

	cachePath := filepath.Join(e.cfg.WorkDir, cacheName(e.cfg.Ext))
	defer func() {
		if e.cfg.KeepCache {
			return
		}
		if rmErr := os.Remove(cachePath); rmErr != nil && !os.IsNotExist(rmErr) {
			e.cfg.Logger.Warnf("cache cleanup failed for %s: %v", cachePath, rmErr)
		}
	}()

	produced, err := e.fetcher.FetchFull(ctx, cachePath)
	if err != nil {
		return nil, fmt.Errorf("full source fetch failed: %w", err)
	}
	if produced != "" && produced != cachePath {
		// The fetch tool placed the artifact elsewhere (merge step,
		// extension adjustment). Track the real path so the cuts read it
		// and the cleanup removes it.
		cachePath = produced
	}

	outputs = make([]string, 0, len(ranges))
	for i, r := range ranges {
		dst := r.OutputPath
		if dst == "" {
			dst = filepath.Join(e.cfg.OutputDir,
				fmt.Sprintf("%s_%d-%d%s", e.cfg.BaseName, r.StartSec, r.EndSec, e.cfg.Ext))
		}
		if err := e.cutter.Cut(ctx, cachePath, dst, r.StartSec, r.Duration(), e.cfg.Mode); err != nil {
			return nil, fmt.Errorf("cut failed for segment %d (%d-%d): %w", i, r.StartSec, r.EndSec, err)
		}
		if err := e.writeSubtitles(dst, r); err != nil {
			return nil, err
		}
		outputs = append(outputs, dst)
	}
	return outputs, nil
}

// writeSubtitles trims each configured track to the range window and writes
// it next to the segment artifact.
func (e *Engine) writeSubtitles(segmentPath string, r Range) error {
	if len(e.cfg.Subtitles) == 0 {
		return nil
	}
	format := e.cfg.SubtitleFmt
	if format == "" {
		format = "vtt"
	}
	stem := segmentPath[:len(segmentPath)-len(filepath.Ext(segmentPath))]
	for _, track := range e.cfg.Subtitles {
		trimmed := subtitle.Trim(track.Content, float64(r.StartSec), float64(r.EndSec))
		path := fmt.Sprintf("%s.%s.%s", stem, track.LanguageCode, format)
		if err := os.WriteFile(path, []byte(trimmed), 0o644); err != nil {
			return fmt.Errorf("subtitle write failed for %s: %w", path, err)
		}
	}
	return nil
}

// cacheName builds a collision-resistant cache artifact name so concurrent
// engines sharing one directory never clash.
func cacheName(ext string) string {
	stamp := time.Now().UTC().Format("20060102T150405")
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("clipget-cache-%s-%d%s", stamp, time.Now().UnixNano(), ext)
	}
	return fmt.Sprintf("clipget-cache-%s-%s%s", stamp, id.String(), ext)
}
