package segment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/famomatic/clipget/internal/media"
)

type fakeFetcher struct {
	calls    int
	err      error
	path     string
	produced string // when set, write here and report it instead of dst
}

func (f *fakeFetcher) FetchFull(ctx context.Context, dst string) (string, error) {
	f.calls++
	f.path = dst
	if f.err != nil {
		return "", f.err
	}
	target := dst
	if f.produced != "" {
		target = f.produced
	}
	if err := os.WriteFile(target, []byte("full source"), 0o644); err != nil {
		return "", err
	}
	return target, nil
}

type fakeCutter struct {
	calls   int
	failAt  int // 1-based call index to fail at; 0 never fails
	lastSrc string
}

func (f *fakeCutter) Cut(ctx context.Context, src, dst string, startSec, durationSec int, mode media.Mode) error {
	f.calls++
	f.lastSrc = src
	if f.failAt > 0 && f.calls == f.failAt {
		return errors.New("cut exploded")
	}
	return os.WriteFile(dst, []byte("segment"), 0o644)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		OutputDir:   t.TempDir(),
		BaseName:    "My_Clip-abc123",
		Ext:         ".mp4",
		MinDuration: 10,
		MaxDuration: 60,
		Mode:        media.ModeFast,
	}
}

func cacheFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var caches []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "clipget-cache-") {
			caches = append(caches, e.Name())
		}
	}
	return caches
}

func TestRun_SingleFetchForManyRanges(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		fetcher := &fakeFetcher{}
		cutter := &fakeCutter{}
		cfg := testConfig(t)
		e := New(fetcher, cutter, cfg)

		ranges := make([]Range, 0, n)
		for i := 0; i < n; i++ {
			ranges = append(ranges, Range{StartSec: i * 100, EndSec: i*100 + 30})
		}
		outputs, err := e.Run(context.Background(), ranges)
		if err != nil {
			t.Fatalf("n=%d Run: %v", n, err)
		}
		if fetcher.calls != 1 {
			t.Fatalf("n=%d full fetches = %d, want exactly 1", n, fetcher.calls)
		}
		if len(outputs) != n || cutter.calls != n {
			t.Fatalf("n=%d outputs=%d cuts=%d", n, len(outputs), cutter.calls)
		}
	}
}

func TestRun_OutputsFollowInputOrderAndNaming(t *testing.T) {
	cfg := testConfig(t)
	e := New(&fakeFetcher{}, &fakeCutter{}, cfg)

	override := filepath.Join(cfg.OutputDir, "custom.mp4")
	outputs, err := e.Run(context.Background(), []Range{
		{StartSec: 60, EndSec: 90},
		{StartSec: 0, EndSec: 30, OutputPath: override},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want0 := filepath.Join(cfg.OutputDir, "My_Clip-abc123_60-90.mp4")
	if outputs[0] != want0 {
		t.Fatalf("outputs[0] = %q, want %q", outputs[0], want0)
	}
	if outputs[1] != override {
		t.Fatalf("outputs[1] = %q, want %q", outputs[1], override)
	}
}

func TestRun_CacheRemovedOnSuccess(t *testing.T) {
	cfg := testConfig(t)
	e := New(&fakeFetcher{}, &fakeCutter{}, cfg)
	if _, err := e.Run(context.Background(), []Range{{StartSec: 0, EndSec: 30}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if caches := cacheFiles(t, cfg.OutputDir); len(caches) != 0 {
		t.Fatalf("cache artifacts left behind: %v", caches)
	}
}

func TestRun_FollowsAdjustedProducedPath(t *testing.T) {
	cfg := testConfig(t)
	adjusted := filepath.Join(cfg.OutputDir, "clipget-cache-adjusted.webm")
	fetcher := &fakeFetcher{produced: adjusted}
	cutter := &fakeCutter{}
	e := New(fetcher, cutter, cfg)

	if _, err := e.Run(context.Background(), []Range{{StartSec: 0, EndSec: 30}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cutter.lastSrc != adjusted {
		t.Fatalf("cut read %q, want the produced path %q", cutter.lastSrc, adjusted)
	}
	if _, err := os.Stat(adjusted); !os.IsNotExist(err) {
		t.Fatalf("produced artifact not cleaned up: stat err = %v", err)
	}
}

func TestRun_CacheKeptWhenRetentionRequested(t *testing.T) {
	cfg := testConfig(t)
	cfg.KeepCache = true
	e := New(&fakeFetcher{}, &fakeCutter{}, cfg)
	if _, err := e.Run(context.Background(), []Range{{StartSec: 0, EndSec: 30}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if caches := cacheFiles(t, cfg.OutputDir); len(caches) != 1 {
		t.Fatalf("cache artifacts = %v, want one", caches)
	}
}

func TestRun_CacheRemovedWhenCutFailsMidBatch(t *testing.T) {
	cfg := testConfig(t)
	e := New(&fakeFetcher{}, &fakeCutter{failAt: 2}, cfg)
	_, err := e.Run(context.Background(), []Range{
		{StartSec: 0, EndSec: 30},
		{StartSec: 40, EndSec: 70},
		{StartSec: 80, EndSec: 110},
	})
	if err == nil || !strings.Contains(err.Error(), "segment 1") {
		t.Fatalf("err = %v, want indexed cut failure", err)
	}
	if caches := cacheFiles(t, cfg.OutputDir); len(caches) != 0 {
		t.Fatalf("cache artifacts left behind after failure: %v", caches)
	}
}

func TestValidate_IndexedViolations(t *testing.T) {
	e := New(&fakeFetcher{}, &fakeCutter{}, testConfig(t))

	cases := []struct {
		name   string
		ranges []Range
		index  int
	}{
		{"empty", nil, 0},
		{"inverted", []Range{{StartSec: 0, EndSec: 30}, {StartSec: 50, EndSec: 40}}, 1},
		{"too short", []Range{{StartSec: 0, EndSec: 9}}, 0},
		{"too long", []Range{{StartSec: 0, EndSec: 61}}, 0},
		{"negative start", []Range{{StartSec: -1, EndSec: 30}}, 0},
	}
	for _, tc := range cases {
		err := e.Validate(tc.ranges)
		var rangeErr *RangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("%s: err = %v", tc.name, err)
		}
		if rangeErr.Index != tc.index {
			t.Fatalf("%s: index = %d, want %d", tc.name, rangeErr.Index, tc.index)
		}
	}

	// Bound acceptance is inclusive and independent of absolute start.
	for _, ok := range []Range{{StartSec: 0, EndSec: 10}, {StartSec: 0, EndSec: 60}, {StartSec: 3600, EndSec: 3630}} {
		if err := e.Validate([]Range{ok}); err != nil {
			t.Fatalf("range %+v rejected: %v", ok, err)
		}
	}
}

func TestRun_ValidationFailureHasNoSideEffects(t *testing.T) {
	fetcher := &fakeFetcher{}
	cfg := testConfig(t)
	e := New(fetcher, &fakeCutter{}, cfg)
	if _, err := e.Run(context.Background(), []Range{{StartSec: 0, EndSec: 5}}); err == nil {
		t.Fatal("expected validation error")
	}
	if fetcher.calls != 0 {
		t.Fatal("fetch must not run after validation failure")
	}
}

func TestRun_WritesTrimmedSubtitlesPerSegment(t *testing.T) {
	cfg := testConfig(t)
	cfg.Subtitles = []SubtitleTrack{{
		LanguageCode: "en",
		Content:      "WEBVTT\n\n00:00:15.000 --> 00:00:18.000\nhello\n",
	}}
	cfg.SubtitleFmt = "vtt"
	e := New(&fakeFetcher{}, &fakeCutter{}, cfg)

	outputs, err := e.Run(context.Background(), []Range{{StartSec: 10, EndSec: 40}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	subPath := strings.TrimSuffix(outputs[0], ".mp4") + ".en.vtt"
	data, err := os.ReadFile(subPath)
	if err != nil {
		t.Fatalf("subtitle file: %v", err)
	}
	if !strings.Contains(string(data), "00:00:05.000 --> 00:00:08.000") {
		t.Fatalf("subtitle not retimed to segment window:\n%s", data)
	}
}
