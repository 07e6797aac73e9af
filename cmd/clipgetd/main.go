package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/rs/cors"

	"github.com/famomatic/clipget/client"
	"github.com/famomatic/clipget/internal/api"
)

func main() {
	var (
		listen      = flag.String("listen", ":8080", "Listen address")
		output      = flag.String("o", "downloads", "Output directory")
		cookiesFile = flag.String("cookies", "", "Netscape cookies.txt file")
		ytdlpPath   = flag.String("ytdlp-path", "", "Explicit yt-dlp binary path")
		ffmpegPath  = flag.String("ffmpeg-path", "", "Explicit ffmpeg binary path")
	)
	flag.Parse()

	logger := stderrLogger{}
	dl, err := client.New(client.Config{
		Logger:      logger,
		OutputPath:  *output,
		CookiesFile: *cookiesFile,
		YtdlpPath:   *ytdlpPath,
		FFmpegPath:  *ffmpegPath,
	})
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(api.New(dl, logger).Router())

	log.Printf("listening on %s", *listen)
	if err := http.ListenAndServe(*listen, handler); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

type stderrLogger struct{}

func (stderrLogger) Infof(format string, args ...any) { log.Printf(format, args...) }
func (stderrLogger) Warnf(format string, args ...any) { log.Printf("warning: "+format, args...) }
