// Package media wraps ffmpeg for sub-range cuts and audio extraction.
package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Mode selects the cut strategy.
type Mode string

const (
	// ModeFast is a keyframe-aligned stream copy, roughly an order of
	// magnitude faster than re-encoding at the cost of frame-exact bounds.
	ModeFast Mode = "fast"
	// ModePrecise re-encodes for exact boundaries.
	ModePrecise Mode = "precise"
)

// ValidMode reports whether raw names a known cut mode.
func ValidMode(raw string) bool {
	switch Mode(raw) {
	case ModeFast, ModePrecise, "":
		return true
	}
	return false
}

// Cutter runs ffmpeg as an external process.
type Cutter struct {
	Path string
}

// NewCutter returns a Cutter. An empty path means "ffmpeg" from PATH.
func NewCutter(path string) *Cutter {
	if path == "" {
		path = "ffmpeg"
	}
	return &Cutter{Path: path}
}

// Available checks that the ffmpeg binary is executable.
func (c *Cutter) Available() bool {
	_, err := exec.LookPath(c.Path)
	return err == nil
}

// Cut extracts [startSec, startSec+durationSec) from src into dst.
func (c *Cutter) Cut(ctx context.Context, src, dst string, startSec, durationSec int, mode Mode) error {
	cmd := exec.CommandContext(ctx, c.Path, cutArgs(src, dst, startSec, durationSec, mode)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg cut failed: %w: %s", err, tail(string(out)))
	}
	return nil
}

func cutArgs(src, dst string, startSec, durationSec int, mode Mode) []string {
	args := []string{
		"-y",
		"-ss", strconv.Itoa(startSec),
		"-i", src,
		"-t", strconv.Itoa(durationSec),
	}
	if mode == ModePrecise {
		args = append(args,
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "23",
			"-c:a", "aac",
			"-movflags", "+faststart",
		)
	} else {
		args = append(args,
			"-c", "copy",
			"-avoid_negative_ts", "make_zero",
		)
	}
	return append(args, dst)
}

// ExtractAudio re-encodes src into an audio-only artifact at dst.
func (c *Cutter) ExtractAudio(ctx context.Context, src, dst, format, quality string) error {
	cmd := exec.CommandContext(ctx, c.Path, extractAudioArgs(src, dst, format, quality)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg audio extract failed: %w: %s", err, tail(string(out)))
	}
	return nil
}

func extractAudioArgs(src, dst, format, quality string) []string {
	if format == "" {
		format = "mp3"
	}
	if quality == "" {
		quality = "192k"
	}
	return []string{
		"-y",
		"-i", src,
		"-vn",
		"-f", format,
		"-ab", quality,
		dst,
	}
}

func tail(out string) string {
	out = strings.TrimSpace(out)
	const keep = 400
	if len(out) > keep {
		return "..." + out[len(out)-keep:]
	}
	return out
}
