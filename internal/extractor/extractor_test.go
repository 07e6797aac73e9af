package extractor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func pageClient(t *testing.T, body string, status int) *http.Client {
	t.Helper()
	return &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
			}, nil
		}),
	}
}

const watchPage = `<html><body><script>var ytInitialPlayerResponse = {
	"videoDetails": {
		"videoId": "jNQXAC9IVRw",
		"title": "Me at the {zoo}",
		"author": "jawed",
		"shortDescription": "The first video",
		"lengthSeconds": "19",
		"viewCount": "280000000",
		"thumbnail": {"thumbnails": [
			{"url": "https://i.example/small.jpg", "width": 120, "height": 90},
			{"url": "https://i.example/big.jpg", "width": 1280, "height": 720}
		]}
	},
	"microformat": {"playerMicroformatRenderer": {
		"uploadDate": "2005-04-23",
		"ownerChannelName": "jawed channel"
	}},
	"streamingData": {
		"formats": [
			{"itag": 18, "url": "https://media.example/v18.mp4",
			 "mimeType": "video/mp4; codecs=\"avc1.42001E, mp4a.40.2\"",
			 "bitrate": 500000, "width": 640, "height": 360, "fps": 30,
			 "contentLength": "3792299"}
		],
		"adaptiveFormats": [
			{"itag": 251, "mimeType": "audio/webm; codecs=\"opus\"",
			 "bitrate": 160000,
			 "signatureCipher": "s=ENCRYPTED&sp=sig&url=https%3A%2F%2Fmedia.example%2Fa251.webm"},
			{"itag": 999, "mimeType": "video/mp4; codecs=\"avc1\"", "bitrate": 1000}
		]
	},
	"captions": {"playerCaptionsTracklistRenderer": {"captionTracks": [
		{"baseUrl": "https://captions.example/en", "languageCode": "en",
		 "name": {"simpleText": "English"}},
		{"baseUrl": "", "languageCode": "de", "name": {"simpleText": "German"}}
	]}}
};</script></body></html>`

func TestExtract_MapsEmbeddedPlayerResponse(t *testing.T) {
	e := New(pageClient(t, watchPage, http.StatusOK), "test-agent", "")
	info, err := e.Extract(context.Background(), "https://www.youtube.com/watch?v=jNQXAC9IVRw")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if info.ID != "jNQXAC9IVRw" {
		t.Fatalf("id = %q", info.ID)
	}
	if info.Title != "Me at the {zoo}" {
		t.Fatalf("title = %q", info.Title)
	}
	if info.DurationSec != 19 {
		t.Fatalf("duration = %d", info.DurationSec)
	}
	if info.ViewCount != 280000000 {
		t.Fatalf("views = %d", info.ViewCount)
	}
	if info.UploadDate != "20050423" {
		t.Fatalf("upload date = %q", info.UploadDate)
	}
	if info.Uploader != "jawed" {
		t.Fatalf("uploader = %q", info.Uploader)
	}
	if info.ThumbnailURL != "https://i.example/big.jpg" {
		t.Fatalf("thumbnail = %q", info.ThumbnailURL)
	}

	// itag 999 has neither url nor cipher and contributes no usable format.
	if len(info.Formats) != 2 {
		t.Fatalf("formats = %d, want 2", len(info.Formats))
	}
	prog := info.Formats[0]
	if prog.FormatID != "18" || prog.Ext != "mp4" || prog.VideoCodec != "avc1" || prog.AudioCodec != "mp4a" {
		t.Fatalf("progressive format = %+v", prog)
	}
	if prog.BitrateKbps != 500 || prog.FileSizeBytes != 3792299 {
		t.Fatalf("progressive format numbers = %+v", prog)
	}
	audio := info.Formats[1]
	if audio.URL != "https://media.example/a251.webm" {
		t.Fatalf("cipher url not recovered: %+v", audio)
	}
	if audio.VideoCodec != "none" || audio.AudioCodec != "opus" {
		t.Fatalf("audio codecs = %+v", audio)
	}

	tracks, ok := info.Captions["en"]
	if !ok || len(tracks) != 1 {
		t.Fatalf("captions = %+v", info.Captions)
	}
	if tracks[0].Ext != "vtt" || tracks[0].URL != "https://captions.example/en" || tracks[0].Name != "English" {
		t.Fatalf("track = %+v", tracks[0])
	}
	if _, ok := info.Captions["de"]; ok {
		t.Fatal("track without url must be skipped")
	}
}

func TestExtract_MicroformatFallback(t *testing.T) {
	page := `<script>ytInitialPlayerResponse = {
		"videoDetails": {"videoId": "abc123def45"},
		"microformat": {"playerMicroformatRenderer": {
			"title": {"simpleText": "Fallback Title"},
			"description": {"runs": [{"text": "Fallback description"}]},
			"ownerChannelName": "fallback channel",
			"lengthSeconds": "42",
			"viewCount": "7"
		}}
	};</script>`
	e := New(pageClient(t, page, http.StatusOK), "", "")
	info, err := e.Extract(context.Background(), "https://example.test/watch")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if info.Title != "Fallback Title" || info.Description != "Fallback description" {
		t.Fatalf("fallback mapping: %+v", info)
	}
	if info.Uploader != "fallback channel" || info.DurationSec != 42 {
		t.Fatalf("fallback mapping: %+v", info)
	}
	if info.ThumbnailURL != "https://i.ytimg.com/vi/abc123def45/hqdefault.jpg" {
		t.Fatalf("default thumbnail = %q", info.ThumbnailURL)
	}
}

func TestExtract_PublishDateFallback(t *testing.T) {
	page := `<script>ytInitialPlayerResponse = {
		"videoDetails": {"videoId": "abc123def45"},
		"microformat": {"playerMicroformatRenderer": {
			"publishDate": "2019-11-05T08:00:00-08:00"
		}}
	};</script>`
	e := New(pageClient(t, page, http.StatusOK), "", "")
	info, err := e.Extract(context.Background(), "https://example.test/watch")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if info.UploadDate != "20191105" {
		t.Fatalf("upload date = %q, want publishDate fallback 20191105", info.UploadDate)
	}
}

func TestExtract_NoEmbeddedData(t *testing.T) {
	e := New(pageClient(t, "<html>nothing</html>", http.StatusOK), "", "")
	_, err := e.Extract(context.Background(), "https://example.test/watch")
	if !errors.Is(err, ErrNoEmbeddedData) {
		t.Fatalf("err = %v, want ErrNoEmbeddedData", err)
	}
}

func TestExtract_MissingVideoID(t *testing.T) {
	page := `<script>ytInitialPlayerResponse = {"videoDetails": {"title": "no id"}};</script>`
	e := New(pageClient(t, page, http.StatusOK), "", "")
	_, err := e.Extract(context.Background(), "https://example.test/watch")
	if !errors.Is(err, ErrMissingVideoID) {
		t.Fatalf("err = %v, want ErrMissingVideoID", err)
	}
}

func TestExtract_HTTPFailure(t *testing.T) {
	e := New(pageClient(t, "gone", http.StatusNotFound), "", "")
	if _, err := e.Extract(context.Background(), "https://example.test/watch"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestNormalizeUploadDate(t *testing.T) {
	cases := map[string]string{
		"2005-04-23":           "20050423",
		"2021-07-01T08:00:00Z": "20210701",
		"not a date":           "",
		"":                     "",
	}
	for in, want := range cases {
		if got := normalizeUploadDate(in); got != want {
			t.Fatalf("normalizeUploadDate(%q) = %q, want %q", in, got, want)
		}
	}
}
