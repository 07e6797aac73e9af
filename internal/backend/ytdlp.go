package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ytdlpRunner invokes the yt-dlp binary as a black box. Success is exit
// status zero; the produced file is the explicit output path when given, or
// otherwise recovered from the tool's own progress output.
type ytdlpRunner struct {
	path   string
	logger Logger
}

func newYtdlpRunner(path string, logger Logger) *ytdlpRunner {
	if path == "" {
		path = "yt-dlp"
	}
	return &ytdlpRunner{path: path, logger: logger}
}

func (r *ytdlpRunner) Name() Path { return PathYtdlp }

func (r *ytdlpRunner) Available() bool {
	_, err := exec.LookPath(r.path)
	return err == nil
}

func (r *ytdlpRunner) Fetch(ctx context.Context, req Request) (string, error) {
	args := buildYtdlpArgs(req)
	cmd := exec.CommandContext(ctx, r.path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, outputTail(string(out)))
	}
	return r.resolveDestination(req, string(out))
}

func buildYtdlpArgs(req Request) []string {
	args := []string{
		req.PageURL,
		"--no-playlist",
		"--no-warnings",
	}
	if req.OutputPath != "" {
		args = append(args, "-o", req.OutputPath)
	}
	if req.FormatExpr != "" {
		args = append(args, "-f", req.FormatExpr)
	}
	if req.Section != nil {
		args = append(args, "--download-sections",
			fmt.Sprintf("*%d-%d", req.Section.StartSec, req.Section.EndSec))
	}
	if req.CookiesFile != "" {
		args = append(args, "--cookies", req.CookiesFile)
	}
	if ua := req.Headers.Get("User-Agent"); ua != "" {
		args = append(args, "--user-agent", ua)
	}
	if ref := req.Headers.Get("Referer"); ref != "" {
		args = append(args, "--referer", ref)
	}
	if req.RateLimit != "" {
		args = append(args, "--limit-rate", req.RateLimit)
	}
	if req.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(req.Retries))
	}
	return args
}

func (r *ytdlpRunner) resolveDestination(req Request, output string) (string, error) {
	if req.OutputPath != "" {
		if _, err := os.Stat(req.OutputPath); err == nil {
			return req.OutputPath, nil
		}
	}
	if dest := parseDestinationLine(output); dest != "" {
		return dest, nil
	}
	dir := filepath.Dir(req.OutputPath)
	if dir == "" || dir == "." {
		dir, _ = os.Getwd()
	}
	if newest := newestFile(dir); newest != "" {
		r.logger.Warnf("yt-dlp destination not reported, using newest file in %s", dir)
		return newest, nil
	}
	return "", fmt.Errorf("yt-dlp produced no recoverable output file")
}

// parseDestinationLine scans yt-dlp progress output for the produced file.
func parseDestinationLine(output string) string {
	dest := ""
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if idx := strings.Index(line, "Destination: "); idx >= 0 {
			dest = strings.TrimSpace(line[idx+len("Destination: "):])
			continue
		}
		// A merge step supersedes the per-stream destinations.
		if idx := strings.Index(line, "Merging formats into \""); idx >= 0 {
			rest := line[idx+len("Merging formats into \""):]
			if end := strings.Index(rest, "\""); end >= 0 {
				dest = rest[:end]
			}
		}
	}
	return dest
}

// newestFile returns the most recently modified regular file in dir.
func newestFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	newest := ""
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = filepath.Join(dir, entry.Name())
			newestMod = mod
		}
	}
	return newest
}

func outputTail(out string) string {
	out = strings.TrimSpace(out)
	const keep = 400
	if len(out) > keep {
		return "..." + out[len(out)-keep:]
	}
	return out
}
