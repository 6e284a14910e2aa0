package feeds

import "time"

// Feed is the channel-level metadata of a podcast.
type Feed struct {
	GUID      string `json:"guid,omitempty"`
	Title     string `json:"title,omitempty"`
	WebURL    string `json:"webUrl,omitempty"`
	Language  string `json:"language,omitempty"`
	Copyright string `json:"copyright,omitempty"`
	Author    string `json:"author,omitempty"`
	Summary   string `json:"summary,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Category  string `json:"category,omitempty"`
	// Explicit is unset when the feed makes no claim either way.
	Explicit *bool `json:"isExplicit,omitempty"`
}

// Episode is one item of a feed. GUID always equals the backing document ID.
type Episode struct {
	GUID     string `json:"guid,omitempty"`
	Title    string `json:"title,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Author   string `json:"author,omitempty"`
	WebURL   string `json:"webUrl,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`
	Explicit *bool  `json:"isExplicit,omitempty"`
	PubDate  string `json:"pubDate,omitempty"`
}

// FeedRecord is a stored feed.
type FeedRecord struct {
	ID        string    `json:"id"`
	Feed      Feed      `json:"feed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Segment is one human-readable block of an episode document.
type Segment struct {
	// Kind is DocTagTitle, DocTagH2 or DocTagText.
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// EpisodeRecord is a stored episode.
type EpisodeRecord struct {
	ID        string    `json:"id"`
	Episode   Episode   `json:"episode"`
	HasAudio  bool      `json:"hasAudio"`
	Segments  []Segment `json:"segments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Bool returns a pointer to v for the tri-state explicit flags.
func Bool(v bool) *bool { return &v }
