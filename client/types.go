package client

// VideoInfo is the public metadata result. It is rebuilt per extraction and
// owned by the caller; the package never mutates a returned value.
type VideoInfo struct {
	ID           string
	Title        string
	FullTitle    string
	Description  string
	DurationSec  int64 // 0 when unknown
	ViewCount    int64
	UploadDate   string // YYYYMMDD, empty when unknown
	Uploader     string
	ThumbnailURL string
	Formats      []Format
	Captions     map[string][]CaptionTrack
}

// Format is the normalized public format model.
type Format struct {
	FormatID      string
	Ext           string
	URL           string
	Width         int
	Height        int
	FPS           int
	VideoCodec    string // "none" when absent, "unknown" when unparsable
	AudioCodec    string
	BitrateKbps   int
	FileSizeBytes int64 // 0 when unknown
}

// CaptionTrack is one timed-text track reference.
type CaptionTrack struct {
	LanguageCode string
	Ext          string
	URL          string
	Name         string
}

// Segment is one caller-requested [Start, End) window in whole seconds.
type Segment struct {
	Start      int
	End        int
	OutputPath string // optional explicit destination
}

// Duration returns End - Start.
func (s Segment) Duration() int { return s.End - s.Start }
