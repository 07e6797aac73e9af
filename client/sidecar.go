package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// writeSidecars emits the configured metadata files next to mediaPath.
func (d *Downloader) writeSidecars(ctx context.Context, info *VideoInfo, mediaPath string) error {
	stem := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))

	if d.cfg.WriteInfoJSON {
		payload, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return &DownloadError{Op: "info sidecar", Err: err}
		}
		if err := writeFileMkdir(stem+".info.json", payload); err != nil {
			return &DownloadError{Op: "info sidecar", Err: err}
		}
	}

	if d.cfg.WriteDescription {
		if err := writeFileMkdir(stem+".description", []byte(info.Description)); err != nil {
			return &DownloadError{Op: "description sidecar", Err: err}
		}
	}

	if d.cfg.WriteThumbnail && info.ThumbnailURL != "" {
		body, err := fetchBody(ctx, d.httpClient, info.ThumbnailURL, d.cfg.UserAgent)
		if err != nil {
			// Thumbnail loss is cosmetic, not fatal.
			d.logger.Warnf("thumbnail fetch failed: %v", err)
			return nil
		}
		if err := writeFileMkdir(stem+thumbnailExt(info.ThumbnailURL), body); err != nil {
			return &DownloadError{Op: "thumbnail sidecar", Err: err}
		}
	}
	return nil
}

func thumbnailExt(address string) string {
	switch strings.ToLower(path.Ext(strings.SplitN(path.Base(address), "?", 2)[0])) {
	case ".png":
		return ".png"
	case ".webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func writeFileMkdir(name string, data []byte) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(name, data, 0o644)
}

func fetchBody(ctx context.Context, client *http.Client, address, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed: status=%d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
