// Package rss renders a feed and its episodes as a podcast RSS document.
package rss

import (
	"encoding/xml"
	"strings"

	"podcaster/internal/feeds"
)

// ContentType is the media type Render's output is served with.
const ContentType = "application/rss+xml; charset=utf-8"

const (
	header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<rss xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd" version="2.0">`
	footer        = "</rss>\n"
	enclosureType = "audio/mpeg"
)

// AudioURL returns the episode's audio URL, defaulting to
// {baseURL}audio?id={guid}.
func AudioURL(episode feeds.Episode, baseURL string) string {
	if episode.AudioURL != "" {
		return episode.AudioURL
	}
	return baseURL + "audio?id=" + episode.GUID
}

// Render produces the RSS document. Episodes are emitted in the order given.
// Empty optional values are omitted and every value is XML-escaped.
func Render(feed feeds.Feed, episodes []feeds.Episode, baseURL string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("<channel>")
	element(&b, "title", feed.Title)
	element(&b, "author", feed.Author)
	element(&b, "itunes:author", feed.Author)
	element(&b, "description", feed.Summary)
	element(&b, "itunes:summary", feed.Summary)
	empty(&b, "itunes:image", attr{"href", feed.ImageURL})
	element(&b, "link", feed.WebURL)
	element(&b, "language", feed.Language)
	element(&b, "copyright", feed.Copyright)
	element(&b, "itunes:explicit", explicit(feed.Explicit))
	element(&b, "itunes:category", feed.Category)
	for _, episode := range episodes {
		renderItem(&b, episode, baseURL)
	}
	b.WriteString("</channel>")
	b.WriteString(footer)
	return b.String()
}

func renderItem(b *strings.Builder, episode feeds.Episode, baseURL string) {
	b.WriteString("<item>")
	element(b, "title", episode.Title)
	element(b, "author", episode.Author)
	element(b, "itunes:author", episode.Author)
	element(b, "description", episode.Summary)
	element(b, "itunes:summary", episode.Summary)
	empty(b, "enclosure", attr{"url", AudioURL(episode, baseURL)}, attr{"type", enclosureType})
	element(b, "guid", episode.GUID)
	element(b, "itunes:explicit", explicit(episode.Explicit))
	element(b, "pubDate", episode.PubDate)
	b.WriteString("</item>")
}

type attr struct {
	name, value string
}

func element(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString("<" + name + ">")
	escape(b, value)
	b.WriteString("</" + name + ">")
}

// empty writes a self-closing element; it is skipped when the first
// attribute is empty.
func empty(b *strings.Builder, name string, attrs ...attr) {
	if len(attrs) == 0 || attrs[0].value == "" {
		return
	}
	b.WriteString("<" + name)
	for _, a := range attrs {
		b.WriteString(" " + a.name + `="`)
		escape(b, a.value)
		b.WriteString(`"`)
	}
	b.WriteString(" />")
}

func escape(b *strings.Builder, value string) {
	// strings.Builder writes never fail.
	_ = xml.EscapeText(b, []byte(value))
}

func explicit(v *bool) string {
	switch {
	case v == nil:
		return ""
	case *v:
		return "yes"
	default:
		return "no"
	}
}
