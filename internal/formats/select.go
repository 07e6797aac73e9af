package formats

// codecBonus is added to the priority of the two preferred video codec
// families, which players handle most reliably.
const codecBonus = 50

// Priority ranks a format by resolution, then bitrate, plus a small bonus
// for preferred video codecs.
func Priority(f Format) int {
	p := 0
	if f.Height > 0 {
		p += f.Height * 100
	}
	if f.BitrateKbps > 0 {
		p += f.BitrateKbps
	}
	switch f.VideoCodec {
	case "avc1", "vp9":
		p += codecBonus
	}
	return p
}

// Best returns the highest-priority format. Ties keep the first format in
// source order (strict > comparison over a forward scan).
func Best(list []Format) (Format, bool) {
	if len(list) == 0 {
		return Format{}, false
	}
	best := list[0]
	for _, f := range list[1:] {
		if Priority(f) > Priority(best) {
			best = f
		}
	}
	return best, true
}

// Worst returns the lowest-priority format, first in source order on ties.
func Worst(list []Format) (Format, bool) {
	if len(list) == 0 {
		return Format{}, false
	}
	worst := list[0]
	for _, f := range list[1:] {
		if Priority(f) < Priority(worst) {
			worst = f
		}
	}
	return worst, true
}

// BestVideo returns the highest-priority format carrying a video track.
func BestVideo(list []Format) (Format, bool) {
	return Best(VideoFormats(list))
}

// BestAudio returns the highest-priority format carrying an audio track.
func BestAudio(list []Format) (Format, bool) {
	return Best(AudioFormats(list))
}
