package domain

// MediaPlaceholder substitutes for the post text when a post carries media
// but no extractable text.
const MediaPlaceholder = "[media]"

type MediaKind string

const (
	MediaImage      MediaKind = "image"
	MediaVideo      MediaKind = "video"
	MediaLink       MediaKind = "link"
	MediaQuotedPost MediaKind = "quote_tweet"
)

// MediaDescriptor is a tagged variant: Count is set for image/video,
// URL and Title for link, URL for quoted posts.
type MediaDescriptor struct {
	Kind  MediaKind
	Count int
	URL   string
	Title string
}

// PostRecord is the structured content derived from a rendered post.
// It is built fresh from live DOM state for each user action and discarded
// when the action completes. Empty string means the field was absent.
type PostRecord struct {
	Text         string
	AuthorName   string
	AuthorHandle string
	TimestampISO string
	Permalink    string
	Media        []MediaDescriptor
}

// Usable reports whether the record carries enough content to prompt on.
func (r *PostRecord) Usable() bool {
	if r == nil {
		return false
	}
	return r.Text != "" || len(r.Media) > 0
}
