// Package subtitle filters and retimes WEBVTT cues against a segment window.
package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// cueTimingPattern matches a VTT timing line such as
// "00:00:01.234 --> 00:00:03.456", with optional cue settings after the pair.
var cueTimingPattern = regexp.MustCompile(
	`^(\d{2,}):(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})\.(\d{3})(.*)$`)

// Cue is one timestamped caption entry.
type Cue struct {
	ID       string
	StartSec float64
	EndSec   float64
	Settings string
	Lines    []string
}

// Trim keeps the cues of raw that overlap the window [start, end), shifted so
// the window start becomes time zero and clamped to the window length. Header
// lines before the first cue pass through unchanged; non-overlapping cues are
// dropped entirely.
func Trim(raw string, start, end float64) string {
	header, cues := parse(raw)
	var out strings.Builder
	for _, line := range header {
		out.WriteString(line)
		out.WriteString("\n")
	}
	if len(header) > 0 {
		out.WriteString("\n")
	}

	windowLen := end - start
	for _, cue := range cues {
		if cue.EndSec < start || cue.StartSec > end {
			continue
		}
		newStart := math.Max(cue.StartSec-start, 0)
		newEnd := math.Min(cue.EndSec-start, windowLen)
		if cue.ID != "" {
			out.WriteString(cue.ID)
			out.WriteString("\n")
		}
		out.WriteString(formatTimestamp(newStart))
		out.WriteString(" --> ")
		out.WriteString(formatTimestamp(newEnd))
		out.WriteString(cue.Settings)
		out.WriteString("\n")
		for _, line := range cue.Lines {
			out.WriteString(line)
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}
	return out.String()
}

// parse splits raw VTT content into pass-through header lines and cues.
func parse(raw string) (header []string, cues []Cue) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	inHeader := true
	var pending string // candidate cue identifier line
	i := 0
	for i < len(lines) {
		line := lines[i]
		m := cueTimingPattern.FindStringSubmatch(line)
		if m == nil {
			if inHeader {
				if strings.TrimSpace(line) == "" {
					// Blank line ends the header block but later blanks
					// before the first cue are insignificant.
					i++
					continue
				}
				// A bare identifier directly before the first timing line
				// belongs to the cue, not the header.
				if i+1 < len(lines) && cueTimingPattern.MatchString(lines[i+1]) {
					pending = line
					i++
					continue
				}
				header = append(header, line)
			} else if strings.TrimSpace(line) != "" &&
				i+1 < len(lines) && cueTimingPattern.MatchString(lines[i+1]) {
				pending = line
			}
			i++
			continue
		}

		inHeader = false
		cue := Cue{
			ID:       pending,
			StartSec: timestampSeconds(m[1], m[2], m[3], m[4]),
			EndSec:   timestampSeconds(m[5], m[6], m[7], m[8]),
			Settings: m[9],
		}
		pending = ""
		i++
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			cue.Lines = append(cue.Lines, lines[i])
			i++
		}
		cues = append(cues, cue)
	}
	return header, cues
}

func timestampSeconds(h, m, s, ms string) float64 {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(millis)/1000
}

func formatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	totalMs := int64(math.Round(sec * 1000))
	hours := totalMs / (60 * 60 * 1000)
	minutes := (totalMs / (60 * 1000)) % 60
	seconds := (totalMs / 1000) % 60
	millis := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}
