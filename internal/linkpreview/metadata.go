package linkpreview

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// pageMetadata is everything extracted from a page's <head> in one pass:
// the title, the OGP tags docbox cares about, and every declared favicon.
type pageMetadata struct {
	Title         string
	Description   string
	OGTitle       string
	OGDescription string
	OGImage       string
	Favicons      []favicon
}

// favicon is one <link rel="icon"> declaration.
type favicon struct {
	Type  string
	Sizes string
	Href  string
}

// parseMetadata walks the document tree for the tags docbox consumes:
// <title>, <meta property|name="description|og:*">, and
// <link rel="icon"|"shortcut icon">.
func parseMetadata(body io.Reader) (*pageMetadata, error) {
	root, err := html.Parse(body)
	if err != nil {
		return nil, err
	}

	meta := &pageMetadata{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if meta.Title == "" {
					meta.Title = strings.TrimSpace(textContent(n))
				}
			case "meta":
				readMetaTag(meta, n)
			case "link":
				readLinkTag(meta, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	// Plain description is the fallback when no og:description exists.
	if meta.OGDescription == "" {
		meta.OGDescription = meta.Description
	}
	return meta, nil
}

func readMetaTag(meta *pageMetadata, n *html.Node) {
	property := attr(n, "property")
	if property == "" {
		property = attr(n, "name")
	}
	content := attr(n, "content")
	if content == "" {
		return
	}

	switch property {
	case "description":
		meta.Description = content
	case "og:title":
		meta.OGTitle = content
	case "og:description":
		meta.OGDescription = content
	case "og:image":
		meta.OGImage = content
	}
}

func readLinkTag(meta *pageMetadata, n *html.Node) {
	rel := strings.ToLower(attr(n, "rel"))
	if rel != "icon" && rel != "shortcut icon" {
		return
	}
	href := attr(n, "href")
	if href == "" {
		return
	}
	meta.Favicons = append(meta.Favicons, favicon{
		Type:  attr(n, "type"),
		Sizes: attr(n, "sizes"),
		Href:  href,
	})
}

// bestFavicon prefers an .ico declaration, falling back to the first
// declared icon.
func bestFavicon(favicons []favicon) *favicon {
	for i := range favicons {
		if favicons[i].Type == "image/x-icon" {
			return &favicons[i]
		}
	}
	if len(favicons) > 0 {
		return &favicons[0]
	}
	return nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
