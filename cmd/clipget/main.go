package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/famomatic/clipget/client"
)

func main() {
	var (
		address     = flag.String("url", "", "Watch page URL")
		output      = flag.String("o", "", "Output directory")
		template    = flag.String("output-template", "", "Filename template, e.g. %(title)s-%(id)s.%(ext)s")
		segments    = flag.String("segments", "", "Comma-separated start-end windows in seconds, e.g. 30-60,90-120")
		mode        = flag.String("mode", "fast", "Segment cut mode: fast or precise")
		minDur      = flag.Int("min-duration", 0, "Minimum accepted segment duration in seconds")
		maxDur      = flag.Int("max-duration", 0, "Maximum accepted segment duration in seconds")
		keepCache   = flag.Bool("keep-cache", false, "Retain the cached full video after a segment batch")
		listFormats = flag.Bool("list-formats", false, "Print available formats and exit")
		subtitles   = flag.Bool("subs", false, "Download subtitles")
		subLangs    = flag.String("sub-langs", "", "Comma-separated subtitle language codes")
		audio       = flag.Bool("extract-audio", false, "Extract an audio-only artifact")
		audioFormat = flag.String("audio-format", "", "Audio format for extraction (default mp3)")
		cookiesFile = flag.String("cookies", "", "Netscape cookies.txt file")
		userAgent   = flag.String("user-agent", "", "User-Agent header override")
		forceDirect = flag.Bool("force-direct", false, "Prefer the direct network path over yt-dlp")
		noFallback  = flag.Bool("no-fallback", false, "Disable fallback to the alternate retrieval path")
		retries     = flag.Int("retries", 0, "Retry count for the active retrieval path (0 = default, -1 = none)")
		rateLimit   = flag.String("rate-limit", "", "Transfer rate limit, e.g. 1M")
		ytdlpPath   = flag.String("ytdlp-path", "", "Explicit yt-dlp binary path")
		ffmpegPath  = flag.String("ffmpeg-path", "", "Explicit ffmpeg binary path")
		timeout     = flag.Duration("timeout", 10*time.Minute, "Overall operation timeout")
	)
	flag.Parse()

	if *address == "" {
		fmt.Println("Usage: clipget -url <watch-url> [-segments 30-60,90-120] [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var langs []string
	if *subLangs != "" {
		langs = strings.Split(*subLangs, ",")
	}

	dl, err := client.New(client.Config{
		Logger:             stderrLogger{},
		OutputPath:         *output,
		OutputTemplate:     *template,
		MinSegmentDuration: *minDur,
		MaxSegmentDuration: *maxDur,
		SegmentMode:        client.SegmentMode(*mode),
		CacheFullVideo:     *keepCache,
		WriteSubtitles:     *subtitles,
		SubtitleLangs:      langs,
		ExtractAudio:       *audio,
		AudioFormat:        *audioFormat,
		CookiesFile:        *cookiesFile,
		UserAgent:          *userAgent,
		ForceDirect:        *forceDirect,
		DisableFallback:    *noFallback,
		Retries:            *retries,
		RateLimit:          *rateLimit,
		YtdlpPath:          *ytdlpPath,
		FFmpegPath:         *ffmpegPath,
	})
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *listFormats {
		info, err := dl.GetVideo(ctx, *address)
		if err != nil {
			log.Fatalf("extraction failed: %v", err)
		}
		printFormats(info)
		return
	}

	if *segments != "" {
		segs, err := parseSegments(*segments)
		if err != nil {
			log.Fatalf("bad -segments value: %v", err)
		}
		paths, err := dl.DownloadSegments(ctx, *address, segs)
		if err != nil {
			log.Fatalf("segment download failed: %v", err)
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return
	}

	if *subtitles {
		if paths, err := dl.DownloadSubtitles(ctx, *address); err != nil {
			log.Printf("subtitle download failed: %v", err)
		} else {
			for _, p := range paths {
				fmt.Println(p)
			}
		}
	}

	path, err := dl.Download(ctx, *address)
	if err != nil {
		log.Fatalf("download failed: %v", err)
	}
	fmt.Println(path)
}

// parseSegments parses "30-60,90-120" into segment windows.
func parseSegments(raw string) ([]client.Segment, error) {
	var segs []client.Segment
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("window %q must be start-end", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("window %q: bad start: %v", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("window %q: bad end: %v", part, err)
		}
		segs = append(segs, client.Segment{Start: start, End: end})
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("no windows given")
	}
	return segs, nil
}

func printFormats(info *client.VideoInfo) {
	fmt.Printf("Title: %s\n", info.Title)
	fmt.Printf("Found %d formats:\n", len(info.Formats))
	for _, f := range info.Formats {
		fmt.Printf("[%s] %s (%dx%d) %d kbps video=%s audio=%s\n",
			f.FormatID, f.Ext, f.Width, f.Height, f.BitrateKbps, f.VideoCodec, f.AudioCodec)
	}
}

type stderrLogger struct{}

func (stderrLogger) Infof(format string, args ...any) { log.Printf(format, args...) }
func (stderrLogger) Warnf(format string, args ...any) { log.Printf("warning: "+format, args...) }
