package extractor

// JSON shapes of the player-response object embedded in the watch page. Only
// fields the mapping reads are declared.

type playerResponse struct {
	VideoDetails  videoDetails  `json:"videoDetails"`
	Microformat   microformat   `json:"microformat"`
	StreamingData streamingData `json:"streamingData"`
	Captions      captions      `json:"captions"`
}

type videoDetails struct {
	VideoID          string    `json:"videoId"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	ShortDescription string    `json:"shortDescription"`
	LengthSeconds    string    `json:"lengthSeconds"`
	ViewCount        string    `json:"viewCount"`
	Thumbnail        thumbnail `json:"thumbnail"`
}

type microformat struct {
	Renderer microformatRenderer `json:"playerMicroformatRenderer"`
}

type microformatRenderer struct {
	Title            textValue `json:"title"`
	Description      textValue `json:"description"`
	OwnerChannelName string    `json:"ownerChannelName"`
	LengthSeconds    string    `json:"lengthSeconds"`
	ViewCount        string    `json:"viewCount"`
	UploadDate       string    `json:"uploadDate"`
	PublishDate      string    `json:"publishDate"`
	Thumbnail        thumbnail `json:"thumbnail"`
}

type textValue struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (t textValue) text() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	if len(t.Runs) > 0 {
		return t.Runs[0].Text
	}
	return ""
}

type thumbnail struct {
	Thumbnails []thumbnailCandidate `json:"thumbnails"`
}

type thumbnailCandidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type streamingData struct {
	Formats         []rawFormat `json:"formats"`
	AdaptiveFormats []rawFormat `json:"adaptiveFormats"`
}

type rawFormat struct {
	Itag            int    `json:"itag"`
	URL             string `json:"url"`
	MimeType        string `json:"mimeType"`
	Bitrate         int    `json:"bitrate"`
	AverageBitrate  int    `json:"averageBitrate"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	FPS             int    `json:"fps"`
	ContentLength   string `json:"contentLength"`
	SignatureCipher string `json:"signatureCipher"`
	Cipher          string `json:"cipher"`
}

type captions struct {
	Tracklist captionTracklist `json:"playerCaptionsTracklistRenderer"`
}

type captionTracklist struct {
	CaptionTracks []rawCaptionTrack `json:"captionTracks"`
}

type rawCaptionTrack struct {
	BaseURL      string    `json:"baseUrl"`
	LanguageCode string    `json:"languageCode"`
	Name         textValue `json:"name"`
}
