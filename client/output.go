package client

import "strings"

// placeholderName substitutes for empty or unusable titles.
const placeholderName = "video"

type outputTemplateData struct {
	VideoID  string
	Title    string
	Uploader string
	Ext      string
}

// renderOutputPathTemplate expands the recognized substitution tokens and
// sanitizes each value so the result stays inside the output directory.
func renderOutputPathTemplate(template string, data outputTemplateData) string {
	title := SanitizeFilename(data.Title)
	replacer := strings.NewReplacer(
		"%(title)s", title,
		"%(id)s", SanitizeFilename(data.VideoID),
		"%(uploader)s", SanitizeFilename(data.Uploader),
		"%(ext)s", strings.TrimPrefix(data.Ext, "."),
	)
	return replacer.Replace(template)
}

// SanitizeFilename strips path-hostile characters and collapses internal
// whitespace. Empty input yields a fixed placeholder.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if cleaned == "" {
		return placeholderName
	}
	return cleaned
}
