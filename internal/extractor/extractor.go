package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/famomatic/clipget/internal/formats"
)

const playerResponseMarker = "ytInitialPlayerResponse"

var (
	// ErrNoEmbeddedData indicates no balanced player-response object was
	// found in the page or its script tags.
	ErrNoEmbeddedData = errors.New("no embedded player data found")
	// ErrMissingVideoID indicates the payload parsed but lacks the minimum
	// required identity field.
	ErrMissingVideoID = errors.New("player data missing video id")
)

// VideoInfo is the normalized extraction result. It is rebuilt per call and
// never mutated after construction.
type VideoInfo struct {
	ID           string
	Title        string
	FullTitle    string
	Description  string
	DurationSec  int64 // 0 when unknown
	ViewCount    int64
	UploadDate   string // YYYYMMDD, empty when absent or unparsable
	Uploader     string
	ThumbnailURL string
	Formats      []formats.Format
	Captions     map[string][]CaptionTrack
}

// CaptionTrack is one timed-text track reference.
type CaptionTrack struct {
	LanguageCode string
	Ext          string
	URL          string
	Name         string
}

// Extractor fetches a watch page and maps its embedded player response.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
	referer    string
}

// New creates an Extractor. A nil httpClient falls back to a default client
// with a request timeout.
func New(httpClient *http.Client, userAgent, referer string) *Extractor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Extractor{httpClient: httpClient, userAgent: userAgent, referer: referer}
}

// Extract fetches address and returns the normalized VideoInfo.
func (e *Extractor) Extract(ctx context.Context, address string) (*VideoInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, err
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	if e.referer != "" {
		req.Header.Set("Referer", e.referer)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page request failed: status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	raw, ok := locatePlayerResponse(string(body))
	if !ok {
		return nil, ErrNoEmbeddedData
	}
	var parsed playerResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("player data parse failed: %w", err)
	}
	return mapPlayerResponse(&parsed)
}

// locatePlayerResponse tries the marker against the whole document first,
// then against each script tag body.
func locatePlayerResponse(doc string) (string, bool) {
	if obj, ok := findMarkedObject(doc, playerResponseMarker); ok {
		return obj, true
	}
	for _, script := range scriptContents(doc) {
		if obj, ok := findMarkedObject(script, playerResponseMarker); ok {
			return obj, true
		}
	}
	return "", false
}

func mapPlayerResponse(resp *playerResponse) (*VideoInfo, error) {
	details := resp.VideoDetails
	micro := resp.Microformat.Renderer
	if strings.TrimSpace(details.VideoID) == "" {
		return nil, ErrMissingVideoID
	}

	title := firstNonEmptyString(details.Title, micro.Title.text())
	info := &VideoInfo{
		ID:           details.VideoID,
		Title:        title,
		FullTitle:    title,
		Description:  firstNonEmptyString(details.ShortDescription, micro.Description.text()),
		DurationSec:  parseInt64String(firstNonEmptyString(details.LengthSeconds, micro.LengthSeconds)),
		ViewCount:    parseInt64String(firstNonEmptyString(details.ViewCount, micro.ViewCount)),
		UploadDate:   normalizeUploadDate(firstNonEmptyString(micro.UploadDate, micro.PublishDate)),
		Uploader:     firstNonEmptyString(details.Author, micro.OwnerChannelName),
		ThumbnailURL: bestThumbnail(details.VideoID, details.Thumbnail, micro.Thumbnail),
		Formats:      mapFormats(resp.StreamingData),
		Captions:     mapCaptions(resp.Captions.Tracklist.CaptionTracks),
	}
	return info, nil
}

func mapFormats(data streamingData) []formats.Format {
	merged := make([]rawFormat, 0, len(data.Formats)+len(data.AdaptiveFormats))
	merged = append(merged, data.Formats...)
	merged = append(merged, data.AdaptiveFormats...)

	out := make([]formats.Format, 0, len(merged))
	for _, raw := range merged {
		streamURL := raw.URL
		if streamURL == "" {
			// The cipher blob is only key=value decoded here to recover the
			// candidate URL. The signature transform is not applied, so the
			// server may still reject this URL.
			streamURL = cipherURL(firstNonEmptyString(raw.SignatureCipher, raw.Cipher))
		}
		if streamURL == "" {
			continue
		}
		ext, videoCodec, audioCodec := formats.ClassifyMimeType(raw.MimeType)
		bitrate := raw.AverageBitrate
		if bitrate == 0 {
			bitrate = raw.Bitrate
		}
		out = append(out, formats.Format{
			FormatID:      strconv.Itoa(raw.Itag),
			Ext:           ext,
			URL:           streamURL,
			Width:         raw.Width,
			Height:        raw.Height,
			FPS:           raw.FPS,
			VideoCodec:    videoCodec,
			AudioCodec:    audioCodec,
			BitrateKbps:   bitrate / 1000,
			FileSizeBytes: parseInt64String(raw.ContentLength),
		})
	}
	return out
}

func cipherURL(blob string) string {
	if blob == "" {
		return ""
	}
	params, err := url.ParseQuery(blob)
	if err != nil {
		return ""
	}
	return params.Get("url")
}

func mapCaptions(tracks []rawCaptionTrack) map[string][]CaptionTrack {
	out := make(map[string][]CaptionTrack, len(tracks))
	for _, t := range tracks {
		if strings.TrimSpace(t.BaseURL) == "" || t.LanguageCode == "" {
			continue
		}
		out[t.LanguageCode] = []CaptionTrack{{
			LanguageCode: t.LanguageCode,
			Ext:          "vtt",
			URL:          t.BaseURL,
			Name:         t.Name.text(),
		}}
	}
	return out
}

// normalizeUploadDate converts an ISO date string to the fixed YYYYMMDD form.
// Unparsable input yields the empty string, never an error.
func normalizeUploadDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("20060102")
		}
	}
	// RFC3339 with offsets occasionally arrives truncated; retry on the
	// date prefix alone.
	if len(raw) >= 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t.Format("20060102")
		}
	}
	return ""
}

func bestThumbnail(videoID string, candidates ...thumbnail) string {
	bestURL := ""
	bestArea := -1
	for _, set := range candidates {
		for _, c := range set.Thumbnails {
			if c.URL == "" {
				continue
			}
			area := c.Width * c.Height
			if area > bestArea {
				bestArea = area
				bestURL = c.URL
			}
		}
	}
	if bestURL != "" {
		return bestURL
	}
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parseInt64String(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
