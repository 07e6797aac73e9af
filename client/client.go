// Package client is the public facade for clip retrieval: metadata
// extraction, whole-source downloads, segment batches and subtitle handling.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/famomatic/clipget/internal/backend"
	"github.com/famomatic/clipget/internal/cookies"
	"github.com/famomatic/clipget/internal/extractor"
	"github.com/famomatic/clipget/internal/formats"
	"github.com/famomatic/clipget/internal/media"
	"github.com/famomatic/clipget/internal/segment"
)

// Downloader is the entry point for all operations. It is safe for
// concurrent use; each operation carries its own state.
type Downloader struct {
	cfg        Config
	httpClient *http.Client
	extractor  *extractor.Extractor
	orch       *backend.Orchestrator
	cutter     *media.Cutter
	logger     Logger

	mu        sync.Mutex
	infoCache map[string]*VideoInfo
}

// New validates cfg and builds a Downloader.
func New(cfg Config) (*Downloader, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if cfg.CookiesFile != "" && httpClient.Jar == nil {
		jar, err := cookies.NewJar(cfg.CookiesFile)
		if err != nil {
			return nil, fmt.Errorf("cookies file: %w", err)
		}
		clone := *httpClient
		clone.Jar = jar
		httpClient = &clone
	}

	return &Downloader{
		cfg:        cfg,
		httpClient: httpClient,
		extractor:  extractor.New(httpClient, cfg.UserAgent, cfg.Referer),
		orch: backend.New(backend.Config{
			HTTPClient:      httpClient,
			YtdlpPath:       cfg.YtdlpPath,
			ForceDirect:     cfg.ForceDirect,
			DisableFallback: cfg.DisableFallback,
			Logger:          cfg.Logger,
		}),
		cutter:    media.NewCutter(cfg.FFmpegPath),
		logger:    cfg.Logger,
		infoCache: make(map[string]*VideoInfo),
	}, nil
}

// GetVideo extracts and returns metadata for address. Results are memoized
// per Downloader, so repeated calls for the same address hit the network at
// most once.
func (d *Downloader) GetVideo(ctx context.Context, address string) (*VideoInfo, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if cached, ok := d.infoCache[address]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	raw, err := d.extractor.Extract(ctx, address)
	if err != nil {
		return nil, &ExtractionError{Address: address, Err: err}
	}
	info := convertVideoInfo(raw)

	d.mu.Lock()
	d.infoCache[address] = info
	d.mu.Unlock()
	return info, nil
}

// Download retrieves the whole source as a single artifact and returns its
// path. Format selection picks the highest-priority muxed format.
func (d *Downloader) Download(ctx context.Context, address string) (string, error) {
	info, err := d.GetVideo(ctx, address)
	if err != nil {
		return "", err
	}
	best, ok := formats.Best(internalFormats(info.Formats))
	if !ok {
		return "", &DownloadError{Op: "download", Err: ErrNoFormats}
	}

	outPath := d.outputPath(info, best.Ext)
	req := d.baseRequest(address, outPath)
	req.StreamURL = best.URL
	req.FormatExpr = best.FormatID + "/best"

	produced, _, err := d.orch.Fetch(ctx, req)
	if err != nil {
		return "", &DownloadError{Op: "download", Err: err}
	}

	if err := d.writeSidecars(ctx, info, produced); err != nil {
		return "", err
	}
	if d.cfg.ExtractAudio {
		if _, err := d.extractAudio(ctx, produced); err != nil {
			return "", err
		}
	}
	return produced, nil
}

// DownloadSegment retrieves one validated time window directly via the
// subprocess path without caching the full source.
func (d *Downloader) DownloadSegment(ctx context.Context, address string, seg Segment) (string, error) {
	if err := d.checkSegment(seg, -1); err != nil {
		return "", err
	}
	if !d.orch.SubprocessAvailable() {
		return "", &DownloadError{Op: "segment download",
			Err: fmt.Errorf("%w: yt-dlp (required for segment retrieval)", ErrToolMissing)}
	}
	info, err := d.GetVideo(ctx, address)
	if err != nil {
		return "", err
	}

	outPath := seg.OutputPath
	if outPath == "" {
		stem := d.outputPath(info, "")
		outPath = fmt.Sprintf("%s_%d-%d.mp4", strings.TrimSuffix(stem, "."), seg.Start, seg.End)
	}
	req := d.baseRequest(address, outPath)
	req.Section = &backend.Section{StartSec: seg.Start, EndSec: seg.End}

	produced, _, err := d.orch.FetchSection(ctx, req)
	if err != nil {
		return "", &DownloadError{Op: "segment download", Err: err}
	}
	return produced, nil
}

// DownloadSegments retrieves the full source exactly once and cuts every
// requested window from the cached artifact, in input order. All windows are
// validated before any network or disk I/O happens.
func (d *Downloader) DownloadSegments(ctx context.Context, address string, segs []Segment) ([]string, error) {
	for i, seg := range segs {
		if err := d.checkSegment(seg, i); err != nil {
			return nil, err
		}
	}
	// Both tools are fatal preconditions, checked before any network or disk
	// I/O happens.
	if !d.orch.SubprocessAvailable() {
		return nil, &DownloadError{Op: "segment batch",
			Err: fmt.Errorf("%w: yt-dlp (required for segment retrieval)", ErrToolMissing)}
	}
	if !d.cutter.Available() {
		return nil, &DownloadError{Op: "segment batch",
			Err: fmt.Errorf("%w: ffmpeg", ErrToolMissing)}
	}

	info, err := d.GetVideo(ctx, address)
	if err != nil {
		return nil, err
	}

	var tracks []segment.SubtitleTrack
	if d.cfg.WriteSubtitles {
		tracks, err = d.fetchSubtitleTracks(ctx, info)
		if err != nil {
			return nil, err
		}
	}

	outputDir := d.cfg.OutputPath
	if outputDir == "" {
		outputDir = "."
	}
	eng := segment.New(
		&orchestratorSource{orch: d.orch, req: d.baseRequest(address, "")},
		d.cutter,
		segment.Config{
			OutputDir:   outputDir,
			BaseName:    d.baseName(info),
			Ext:         ".mp4",
			MinDuration: d.cfg.MinSegmentDuration,
			MaxDuration: d.cfg.MaxSegmentDuration,
			Mode:        media.Mode(d.cfg.SegmentMode),
			KeepCache:   d.cfg.CacheFullVideo,
			Subtitles:   tracks,
			SubtitleFmt: d.cfg.SubtitleFormat,
			Logger:      d.logger,
		})

	ranges := make([]segment.Range, len(segs))
	for i, seg := range segs {
		ranges[i] = segment.Range{StartSec: seg.Start, EndSec: seg.End, OutputPath: seg.OutputPath}
	}
	outputs, err := eng.Run(ctx, ranges)
	if err != nil {
		return nil, &DownloadError{Op: "segment batch", Err: err}
	}
	return outputs, nil
}

// DownloadSubtitles fetches the caption tracks matching the configured
// languages and writes each one whole, untrimmed, into the output directory.
func (d *Downloader) DownloadSubtitles(ctx context.Context, address string) ([]string, error) {
	info, err := d.GetVideo(ctx, address)
	if err != nil {
		return nil, err
	}
	tracks := selectTracks(info.Captions, d.cfg.SubtitleLangs)
	if len(tracks) == 0 {
		return nil, ErrNoSubtitles
	}

	stem := strings.TrimSuffix(d.outputPath(info, ""), ".")
	var written []string
	for _, track := range tracks {
		content, err := d.fetchCaption(ctx, track.URL)
		if err != nil {
			return nil, &DownloadError{Op: "subtitle download", Err: err}
		}
		path := fmt.Sprintf("%s.%s.%s", stem, track.LanguageCode, d.cfg.SubtitleFormat)
		if err := writeFileMkdir(path, content); err != nil {
			return nil, &DownloadError{Op: "subtitle download", Err: err}
		}
		written = append(written, path)
	}
	return written, nil
}

// ExtractAudio converts an already-downloaded media file into an audio-only
// artifact next to it and returns the new path.
func (d *Downloader) ExtractAudio(ctx context.Context, mediaPath string) (string, error) {
	return d.extractAudio(ctx, mediaPath)
}

func (d *Downloader) extractAudio(ctx context.Context, mediaPath string) (string, error) {
	if !d.cutter.Available() {
		return "", &DownloadError{Op: "audio extract",
			Err: fmt.Errorf("%w: ffmpeg", ErrToolMissing)}
	}
	dst := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + "." + d.cfg.AudioFormat
	if err := d.cutter.ExtractAudio(ctx, mediaPath, dst, d.cfg.AudioFormat, d.cfg.AudioQuality); err != nil {
		return "", &DownloadError{Op: "audio extract", Err: err}
	}
	return dst, nil
}

// baseRequest fills the retrieval options shared by every operation.
func (d *Downloader) baseRequest(address, outputPath string) backend.Request {
	headers := http.Header{}
	if d.cfg.UserAgent != "" {
		headers.Set("User-Agent", d.cfg.UserAgent)
	}
	if d.cfg.Referer != "" {
		headers.Set("Referer", d.cfg.Referer)
	}
	return backend.Request{
		PageURL:     address,
		OutputPath:  outputPath,
		Headers:     headers,
		CookiesFile: d.cfg.CookiesFile,
		RateLimit:   d.cfg.RateLimit,
		Retries:     d.cfg.Retries,
	}
}

// checkSegment enforces the configured duration bounds before any I/O.
func (d *Downloader) checkSegment(seg Segment, index int) error {
	switch {
	case seg.Start < 0:
		return &ValidationError{Field: "segment", Index: index,
			Reason: "start must be non-negative"}
	case seg.End <= seg.Start:
		return &ValidationError{Field: "segment", Index: index,
			Reason: "end must be greater than start"}
	}
	if dur := seg.Duration(); dur < d.cfg.MinSegmentDuration || dur > d.cfg.MaxSegmentDuration {
		return &ValidationError{Field: "segment", Index: index,
			Reason: fmt.Sprintf("duration %ds outside bounds [%d, %d]",
				dur, d.cfg.MinSegmentDuration, d.cfg.MaxSegmentDuration)}
	}
	return nil
}

// outputPath renders the filename template into the output directory. An
// empty ext produces a stem ending in "." for callers that append their own
// suffix.
func (d *Downloader) outputPath(info *VideoInfo, ext string) string {
	name := renderOutputPathTemplate(d.cfg.OutputTemplate, outputTemplateData{
		VideoID:  info.ID,
		Title:    info.Title,
		Uploader: info.Uploader,
		Ext:      ext,
	})
	if d.cfg.OutputPath == "" {
		return name
	}
	return filepath.Join(d.cfg.OutputPath, name)
}

// baseName is the sanitized title+id stem used for derived segment names.
func (d *Downloader) baseName(info *VideoInfo) string {
	return SanitizeFilename(info.Title) + "-" + SanitizeFilename(info.ID)
}

func (d *Downloader) fetchSubtitleTracks(ctx context.Context, info *VideoInfo) ([]segment.SubtitleTrack, error) {
	tracks := selectTracks(info.Captions, d.cfg.SubtitleLangs)
	if len(tracks) == 0 {
		if len(d.cfg.SubtitleLangs) > 0 {
			return nil, ErrNoSubtitles
		}
		return nil, nil
	}
	out := make([]segment.SubtitleTrack, 0, len(tracks))
	for _, track := range tracks {
		content, err := d.fetchCaption(ctx, track.URL)
		if err != nil {
			// A missing track degrades the batch, it does not abort it.
			d.logger.Warnf("caption fetch failed for %s: %v", track.LanguageCode, err)
			continue
		}
		out = append(out, segment.SubtitleTrack{
			LanguageCode: track.LanguageCode,
			Content:      string(content),
		})
	}
	return out, nil
}

func (d *Downloader) fetchCaption(ctx context.Context, trackURL string) ([]byte, error) {
	addr := trackURL
	if !strings.Contains(addr, "fmt=") {
		sep := "?"
		if strings.Contains(addr, "?") {
			sep = "&"
		}
		addr += sep + "fmt=" + d.cfg.SubtitleFormat
	}
	return fetchBody(ctx, d.httpClient, addr, d.cfg.UserAgent)
}

// selectTracks flattens the caption map, honoring an optional language
// filter. With no filter every available track is returned.
func selectTracks(captions map[string][]CaptionTrack, langs []string) []CaptionTrack {
	var out []CaptionTrack
	if len(langs) == 0 {
		for _, tracks := range captions {
			out = append(out, tracks...)
		}
		return out
	}
	for _, lang := range langs {
		out = append(out, captions[lang]...)
	}
	return out
}

// orchestratorSource adapts the backend orchestrator to the batch engine's
// single-full-fetch contract. Batch retrieval is mandatory-subprocess, so it
// never touches the fallback machinery.
type orchestratorSource struct {
	orch *backend.Orchestrator
	req  backend.Request
}

func (s *orchestratorSource) FetchFull(ctx context.Context, dst string) (string, error) {
	req := s.req
	req.OutputPath = dst
	req.FormatExpr = "best"
	out, _, err := s.orch.FetchSubprocess(ctx, req)
	return out, err
}

func checkAddress(address string) error {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidInput, address)
	}
	return nil
}

func convertVideoInfo(raw *extractor.VideoInfo) *VideoInfo {
	info := &VideoInfo{
		ID:           raw.ID,
		Title:        raw.Title,
		FullTitle:    raw.FullTitle,
		Description:  raw.Description,
		DurationSec:  raw.DurationSec,
		ViewCount:    raw.ViewCount,
		UploadDate:   raw.UploadDate,
		Uploader:     raw.Uploader,
		ThumbnailURL: raw.ThumbnailURL,
		Formats:      make([]Format, len(raw.Formats)),
		Captions:     make(map[string][]CaptionTrack, len(raw.Captions)),
	}
	for i, f := range raw.Formats {
		info.Formats[i] = Format(f)
	}
	for lang, tracks := range raw.Captions {
		converted := make([]CaptionTrack, len(tracks))
		for i, t := range tracks {
			converted[i] = CaptionTrack(t)
		}
		info.Captions[lang] = converted
	}
	return info
}

func internalFormats(list []Format) []formats.Format {
	out := make([]formats.Format, len(list))
	for i, f := range list {
		out[i] = formats.Format(f)
	}
	return out
}
