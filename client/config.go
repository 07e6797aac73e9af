package client

import (
	"fmt"
	"net/http"
	"time"

	"github.com/famomatic/clipget/internal/media"
)

// SegmentMode selects the cut strategy for segment operations.
type SegmentMode string

const (
	// SegmentModeFast is a keyframe-aligned stream copy.
	SegmentModeFast SegmentMode = "fast"
	// SegmentModePrecise re-encodes for exact boundaries.
	SegmentModePrecise SegmentMode = "precise"
)

// Default segment duration bounds in seconds.
const (
	DefaultMinSegmentDuration = 10
	DefaultMaxSegmentDuration = 60
)

// Config holds configuration for a Downloader. It is validated once at
// construction and treated as immutable afterwards.
type Config struct {
	// HTTPClient is used for page, caption and direct media requests.
	// If nil, a default client with a request timeout is used.
	HTTPClient *http.Client

	// Logger receives progress notes and non-fatal warnings.
	Logger Logger

	// OutputPath is the destination directory. Empty means the current
	// directory.
	OutputPath string

	// OutputTemplate is the filename pattern. Recognized tokens:
	// %(title)s, %(id)s, %(ext)s, %(uploader)s.
	OutputTemplate string

	// MinSegmentDuration and MaxSegmentDuration bound accepted segment
	// durations inclusively. Zero values take the package defaults.
	MinSegmentDuration int
	MaxSegmentDuration int

	// SegmentMode selects fast (stream copy) or precise (re-encode) cuts.
	SegmentMode SegmentMode

	// CacheFullVideo retains the cached full-source artifact after a batch.
	CacheFullVideo bool

	// WriteSubtitles enables caption retrieval and per-segment trimming.
	WriteSubtitles bool
	// SubtitleLangs lists requested language codes. Empty means every
	// available track.
	SubtitleLangs []string
	// SubtitleFormat is the caption output format, "vtt" by default.
	SubtitleFormat string

	// WriteInfoJSON, WriteDescription and WriteThumbnail emit metadata
	// sidecar files next to the media artifact.
	WriteInfoJSON    bool
	WriteDescription bool
	WriteThumbnail   bool

	// ExtractAudio post-processes downloads into audio-only artifacts.
	ExtractAudio bool
	AudioFormat  string // default "mp3"
	AudioQuality string // default "192k"

	// CookiesFile is a Netscape cookies.txt passed to both retrieval paths.
	CookiesFile string
	UserAgent   string
	Referer     string

	// ForceDirect makes the direct network path preferred even when the
	// subprocess backend is installed.
	ForceDirect bool
	// DisableFallback turns off the one-shot fallback to the alternate
	// retrieval path.
	DisableFallback bool

	// Retries is the retry count for the active retrieval path. Zero takes
	// the default; -1 disables retries.
	Retries int
	// RateLimit is passed through to the active retrieval path.
	RateLimit string // yt-dlp style, e.g. "1M"

	// YtdlpPath and FFmpegPath override binary discovery via PATH.
	YtdlpPath  string
	FFmpegPath string

	// RequestTimeout bounds individual page/caption requests, not media
	// transfers. Zero keeps the HTTP client's own behavior.
	RequestTimeout time.Duration
}

// withDefaults returns a copy with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
	if c.OutputTemplate == "" {
		c.OutputTemplate = "%(title)s-%(id)s.%(ext)s"
	}
	if c.MinSegmentDuration == 0 {
		c.MinSegmentDuration = DefaultMinSegmentDuration
	}
	if c.MaxSegmentDuration == 0 {
		c.MaxSegmentDuration = DefaultMaxSegmentDuration
	}
	if c.SegmentMode == "" {
		c.SegmentMode = SegmentModeFast
	}
	if c.SubtitleFormat == "" {
		c.SubtitleFormat = "vtt"
	}
	if c.AudioFormat == "" {
		c.AudioFormat = "mp3"
	}
	if c.AudioQuality == "" {
		c.AudioQuality = "192k"
	}
	switch {
	case c.Retries == 0:
		c.Retries = 3
	case c.Retries == -1:
		c.Retries = 0
	}
	return c
}

// validate rejects inconsistent configuration before any Downloader is
// built.
func (c Config) validate() error {
	if c.MinSegmentDuration < 1 {
		return &ValidationError{Field: "minSegmentDuration", Index: -1,
			Reason: "must be at least 1"}
	}
	if c.MaxSegmentDuration < c.MinSegmentDuration {
		return &ValidationError{Field: "maxSegmentDuration", Index: -1,
			Reason: fmt.Sprintf("must be >= minSegmentDuration (%d)", c.MinSegmentDuration)}
	}
	if !media.ValidMode(string(c.SegmentMode)) {
		return &ValidationError{Field: "segmentMode", Index: -1,
			Reason: fmt.Sprintf("unknown mode %q", c.SegmentMode)}
	}
	switch c.SubtitleFormat {
	case "vtt", "srt":
	default:
		return &ValidationError{Field: "subtitleFormat", Index: -1,
			Reason: fmt.Sprintf("unknown format %q", c.SubtitleFormat)}
	}
	if c.Retries < 0 {
		return &ValidationError{Field: "retries", Index: -1,
			Reason: "must be non-negative, or -1 to disable"}
	}
	return nil
}
