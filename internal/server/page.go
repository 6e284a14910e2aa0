package server

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"podcaster/internal/feeds"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Typographer))

var pageTemplate = template.Must(template.New("episode").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<article>
{{.Body}}
</article>
{{if .HasAudio}}<audio controls src="{{.AudioURL}}"></audio>{{end}}
</body>
</html>
`))

type pageData struct {
	Title    string
	Body     template.HTML
	HasAudio bool
	AudioURL string
}

// episodeMarkdown lays out the episode segments: the title as a heading, the
// author line as a subheading, and each text segment as a paragraph.
func episodeMarkdown(record *feeds.EpisodeRecord) string {
	var b strings.Builder
	for _, seg := range record.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		switch seg.Kind {
		case feeds.DocTagTitle:
			b.WriteString("# " + singleLine(text))
		case feeds.DocTagH2:
			b.WriteString("## " + singleLine(text))
		default:
			b.WriteString(text)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func renderEpisodePage(record *feeds.EpisodeRecord) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(episodeMarkdown(record)), &body); err != nil {
		return nil, fmt.Errorf("render episode markdown: %w", err)
	}
	title := record.Episode.Title
	if title == "" {
		title = record.ID
	}
	var out bytes.Buffer
	err := pageTemplate.Execute(&out, pageData{
		Title:    title,
		Body:     template.HTML(body.String()),
		HasAudio: record.HasAudio,
		AudioURL: "/audio?id=" + record.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("render episode page: %w", err)
	}
	return out.Bytes(), nil
}
