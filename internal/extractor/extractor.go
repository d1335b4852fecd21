// Package extractor derives a structured PostRecord from the serialized
// markup of one timeline post. The host exposes no stable API, so every
// field degrades independently: a post with only media is still a valid
// generation input, and a record is usable as long as anything at all was
// recovered.
package extractor

import (
	"strings"

	"github.com/paul-minniti/XPoster/internal/domain"
	"golang.org/x/net/html"
)

// Extract parses postHTML and pulls out text, author, timestamp, permalink
// and media descriptors. It returns nil when the markup could not be parsed
// or when no field at all could be populated.
func Extract(postHTML string) *domain.PostRecord {
	root, err := html.Parse(strings.NewReader(postHTML))
	if err != nil {
		return nil
	}

	record := &domain.PostRecord{}

	extractAuthor(root, record)
	extractTimestamp(root, record)
	record.Text = extractText(root)
	record.Media = extractMedia(root)

	// A post can carry media with no text at all; generation still needs a
	// non-empty prompt fragment.
	if record.Text == "" && len(record.Media) > 0 {
		record.Text = domain.MediaPlaceholder
	}

	if record.AuthorName == "" || record.AuthorHandle == "" {
		extractAuthorFallback(root, record)
	}

	if record.Text == "" && record.AuthorName == "" && record.AuthorHandle == "" &&
		record.TimestampISO == "" && len(record.Media) == 0 {
		return nil
	}
	return record
}

// extractAuthor scans the author block's spans in document order: the first
// span that is not a timestamp and does not start with "@" is the display
// name, the first "@"-prefixed span is the handle.
func extractAuthor(root *html.Node, record *domain.PostRecord) {
	group := findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && testID(n) == "User-Name"
	})
	if group == nil {
		return
	}

	spans := findAll(group, func(n *html.Node) bool { return isElement(n, "span") })
	for _, span := range spans {
		text := textContent(span, nil)
		if text == "" {
			continue
		}
		if record.AuthorName == "" && !strings.HasPrefix(text, "@") &&
			!hasAncestor(span, group, func(p *html.Node) bool { return isElement(p, "time") }) {
			record.AuthorName = text
		}
		if record.AuthorHandle == "" && strings.HasPrefix(text, "@") {
			record.AuthorHandle = text
		}
		if record.AuthorName != "" && record.AuthorHandle != "" {
			break
		}
	}
}

// extractTimestamp picks the first machine-readable time element. When its
// containing element is a link, that link is the post permalink.
func extractTimestamp(root *html.Node, record *domain.PostRecord) {
	timeNode := findFirst(root, func(n *html.Node) bool {
		return isElement(n, "time") && attr(n, "datetime") != ""
	})
	if timeNode == nil {
		return
	}

	record.TimestampISO = attr(timeNode, "datetime")
	if timeNode.Parent != nil && isElement(timeNode.Parent, "a") {
		record.Permalink = attr(timeNode.Parent, "href")
	}
}

// extractText reads the primary text container while skipping embedded
// quote-post previews, link-preview cards and purely decorative nodes, the
// same subtrees the media scan reports separately.
func extractText(root *html.Node) string {
	container := findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && testID(n) == "tweetText"
	})
	if container == nil {
		return ""
	}

	return textContent(container, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		if isQuoteEmbed(n) {
			return true
		}
		if n.Data == "div" && testID(n) == "card.wrapper" {
			return true
		}
		if n.Data == "span" && attr(n, "aria-hidden") == "true" {
			return true
		}
		return false
	})
}

// isQuoteEmbed matches the quoted-post preview shape: a role=link div whose
// parent is a status link.
func isQuoteEmbed(n *html.Node) bool {
	if !isElement(n, "div") || attr(n, "role") != "link" {
		return false
	}
	p := n.Parent
	return p != nil && isElement(p, "a") && strings.Contains(attr(p, "href"), "/status/")
}

// extractMedia scans the whole post in fixed category order: images, video
// players, link cards, quote embeds. Within a category descriptors follow
// document order. Link cards and quote embeds are not deduplicated against
// each other.
func extractMedia(root *html.Node) []domain.MediaDescriptor {
	var media []domain.MediaDescriptor

	images := findAll(root, func(n *html.Node) bool {
		if !isElement(n, "img") || attr(n, "alt") == "" {
			return false
		}
		return hasAncestor(n, nil, func(p *html.Node) bool {
			return isElement(p, "div") && testID(p) == "tweetPhoto"
		})
	})
	if len(images) > 0 {
		media = append(media, domain.MediaDescriptor{Kind: domain.MediaImage, Count: len(images)})
	}

	// Videos and GIFs render through the same player widget; they are not
	// distinguished here.
	players := findAll(root, func(n *html.Node) bool {
		return isElement(n, "div") && testID(n) == "videoPlayer"
	})
	if len(players) > 0 {
		media = append(media, domain.MediaDescriptor{Kind: domain.MediaVideo, Count: len(players)})
	}

	cards := findAll(root, func(n *html.Node) bool {
		return isElement(n, "div") && testID(n) == "card.wrapper"
	})
	for _, card := range cards {
		if desc, ok := extractCard(card); ok {
			media = append(media, desc)
		}
	}

	quotes := findAll(root, isQuoteEmbed)
	for _, q := range quotes {
		if href := attr(q.Parent, "href"); href != "" {
			media = append(media, domain.MediaDescriptor{Kind: domain.MediaQuotedPost, URL: href})
		}
	}

	return media
}

// extractCard describes one link-preview card. The card href is often a
// shortened redirect; a rendered label that looks like a domain is
// preferred over it. Title extraction is best-effort against a layout that
// the host reshuffles regularly.
func extractCard(card *html.Node) (domain.MediaDescriptor, bool) {
	link := findFirst(card, func(n *html.Node) bool {
		return isElement(n, "a") && attr(n, "href") != ""
	})
	if link == nil {
		return domain.MediaDescriptor{}, false
	}

	url := attr(link, "href")
	if label := findFirst(link, func(n *html.Node) bool {
		return isElement(n, "span") && attr(n, "dir") == "ltr"
	}); label != nil {
		if text := textContent(label, nil); strings.Contains(text, ".") {
			url = text
		}
	}

	var title string
	mediaBlock := findFirst(card, func(n *html.Node) bool {
		if !isElement(n, "div") {
			return false
		}
		id := testID(n)
		return id == "card.layoutLarge.media" || id == "card.layoutSmall.media"
	})
	if mediaBlock != nil {
		if sibling := nextElementSibling(mediaBlock); sibling != nil {
			if span := findFirst(sibling, func(n *html.Node) bool { return isElement(n, "span") }); span != nil {
				title = textContent(span, nil)
			}
		}
	}

	return domain.MediaDescriptor{Kind: domain.MediaLink, URL: url, Title: title}, true
}

// extractAuthorFallback tries one alternate structural path for author
// fields when the primary block was missing. It is best-effort only and
// never overrides values the primary pass found.
func extractAuthorFallback(root *html.Node, record *domain.PostRecord) {
	photo := findFirst(root, func(n *html.Node) bool {
		return isElement(n, "div") && testID(n) == "tweetPhoto"
	})
	if photo == nil {
		return
	}
	header := nextElementSibling(photo)
	if header == nil {
		return
	}

	userLink := findFirst(header, func(n *html.Node) bool {
		return isElement(n, "a") && attr(n, "role") == "link" && strings.HasPrefix(attr(n, "href"), "/")
	})
	if userLink == nil {
		return
	}

	if record.AuthorName == "" {
		// Display name sits in a nested span pair under the profile link.
		if nested := findFirst(userLink, func(n *html.Node) bool {
			return isElement(n, "span") && n.Parent != nil && isElement(n.Parent, "span")
		}); nested != nil {
			record.AuthorName = textContent(nested, nil)
		}
	}
	if record.AuthorHandle == "" {
		if handle := findFirst(userLink, func(n *html.Node) bool {
			return isElement(n, "span") && strings.HasPrefix(textContent(n, nil), "@")
		}); handle != nil {
			record.AuthorHandle = textContent(handle, nil)
		}
	}
}
