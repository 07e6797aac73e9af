package formats

import "strings"

// Codec field values for streams a format does not carry or that could not
// be classified from the mime type.
const (
	CodecNone    = "none"
	CodecUnknown = "unknown"
)

// Format is the normalized media format model.
type Format struct {
	FormatID      string
	Ext           string
	URL           string
	Width         int
	Height        int
	FPS           int
	VideoCodec    string
	AudioCodec    string
	BitrateKbps   int
	FileSizeBytes int64 // 0 when unknown
}

// HasVideo reports whether the format carries a video track.
func (f Format) HasVideo() bool {
	return f.VideoCodec != CodecNone
}

// HasAudio reports whether the format carries an audio track.
func (f Format) HasAudio() bool {
	return f.AudioCodec != CodecNone
}

// ClassifyMimeType splits a mime type string such as
// `video/mp4; codecs="avc1.42001E, mp4a.40.2"` into container extension and
// per-track codec families.
func ClassifyMimeType(mimeType string) (ext, videoCodec, audioCodec string) {
	videoCodec = CodecNone
	audioCodec = CodecNone

	mediaType := mimeType
	var params string
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mediaType = mimeType[:idx]
		params = mimeType[idx+1:]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))

	isVideo := strings.HasPrefix(mediaType, "video/")
	isAudio := strings.HasPrefix(mediaType, "audio/")
	if idx := strings.Index(mediaType, "/"); idx >= 0 {
		ext = containerExt(mediaType[idx+1:], isAudio)
	}

	codecs := parseCodecsParam(params)
	switch {
	case isVideo && len(codecs) >= 2:
		videoCodec = classifyVideoCodec(codecs[0])
		audioCodec = classifyAudioCodec(codecs[1])
	case isVideo && len(codecs) == 1:
		videoCodec = classifyVideoCodec(codecs[0])
	case isVideo:
		videoCodec = CodecUnknown
	case isAudio && len(codecs) >= 1:
		audioCodec = classifyAudioCodec(codecs[0])
	case isAudio:
		audioCodec = CodecUnknown
	}
	return ext, videoCodec, audioCodec
}

func containerExt(subtype string, isAudio bool) string {
	switch subtype {
	case "mp4":
		if isAudio {
			return "m4a"
		}
		return "mp4"
	case "webm":
		return "webm"
	case "3gpp":
		return "3gp"
	default:
		return subtype
	}
}

func parseCodecsParam(params string) []string {
	idx := strings.Index(strings.ToLower(params), "codecs=")
	if idx < 0 {
		return nil
	}
	value := strings.TrimSpace(params[idx+len("codecs="):])
	value = strings.Trim(value, `"`)
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func classifyVideoCodec(codec string) string {
	c := strings.ToLower(codec)
	switch {
	case strings.Contains(c, "avc"), strings.Contains(c, "h264"):
		return "avc1"
	case strings.Contains(c, "vp9"), strings.Contains(c, "vp09"):
		return "vp9"
	case strings.Contains(c, "av01"):
		return "av01"
	case strings.Contains(c, "vp8"):
		return "vp8"
	case strings.Contains(c, "hev"), strings.Contains(c, "h265"):
		return "hevc"
	default:
		return CodecUnknown
	}
}

func classifyAudioCodec(codec string) string {
	c := strings.ToLower(codec)
	switch {
	case strings.Contains(c, "mp4a"), strings.Contains(c, "aac"):
		return "mp4a"
	case strings.Contains(c, "opus"):
		return "opus"
	case strings.Contains(c, "vorbis"):
		return "vorbis"
	case strings.Contains(c, "mp3"):
		return "mp3"
	default:
		return CodecUnknown
	}
}

// VideoFormats filters formats that carry a video track.
func VideoFormats(list []Format) []Format {
	out := make([]Format, 0, len(list))
	for _, f := range list {
		if f.HasVideo() {
			out = append(out, f)
		}
	}
	return out
}

// AudioFormats filters formats that carry an audio track.
func AudioFormats(list []Format) []Format {
	out := make([]Format, 0, len(list))
	for _, f := range list {
		if f.HasAudio() {
			out = append(out, f)
		}
	}
	return out
}
