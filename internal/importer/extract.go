package importer

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

const (
	// MaxCandidates caps how many code blocks one page can contribute.
	MaxCandidates = 50

	maxTitleLen  = 80
	minSourceLen = 8
)

var titlePolicy = bluemonday.StrictPolicy()

// Candidate is one code block lifted from a page, not yet validated.
type Candidate struct {
	Title  string
	Source string
}

// Extract pulls snippet candidates out of a fetched page.
func Extract(page *Page) ([]Candidate, error) {
	if page.Kind == PageScript {
		source := strings.TrimSpace(string(page.Body))
		if source == "" {
			return nil, fmt.Errorf("script body is empty")
		}
		return []Candidate{{Title: scriptTitle(page.URL), Source: source}}, nil
	}
	return extractHTML(page.Body)
}

func extractHTML(body []byte) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(decode(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []Candidate
	seen := make(map[string]bool)
	doc.Find("pre").Each(func(i int, pre *goquery.Selection) {
		if len(out) >= MaxCandidates {
			return
		}
		sel := pre
		if code := pre.Find("code").First(); code.Length() > 0 {
			sel = code
		}
		source := strings.Trim(sel.Text(), "\n")
		if len(strings.TrimSpace(source)) < minSourceLen || seen[source] {
			return
		}
		seen[source] = true
		out = append(out, Candidate{Title: headingFor(pre, len(out)+1), Source: source})
	})

	// Pages that skip <pre> markup still get an XPath pass over bare
	// <code> elements.
	if len(out) == 0 {
		return extractXPath(body)
	}
	return out, nil
}

func extractXPath(body []byte) ([]Candidate, error) {
	root, err := htmlquery.Parse(decode(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []Candidate
	seen := make(map[string]bool)
	for _, node := range htmlquery.Find(root, "//code") {
		if len(out) >= MaxCandidates {
			break
		}
		source := strings.Trim(htmlquery.InnerText(node), "\n")
		if len(strings.TrimSpace(source)) < minSourceLen || seen[source] {
			continue
		}
		seen[source] = true
		out = append(out, Candidate{Title: fmt.Sprintf("Snippet %d", len(out)+1), Source: source})
	}
	return out, nil
}

// headingFor finds the nearest heading before a code block, walking up
// through enclosing elements when the block has no heading sibling.
func headingFor(sel *goquery.Selection, ordinal int) string {
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		for prev := cur.Prev(); prev.Length() > 0; prev = prev.Prev() {
			if !prev.Is("h1, h2, h3, h4, h5") {
				continue
			}
			inner, err := prev.Html()
			if err != nil {
				break
			}
			if title := cleanTitle(inner); title != "" {
				return title
			}
		}
		if cur.Is("body, html") {
			break
		}
	}
	return fmt.Sprintf("Snippet %d", ordinal)
}

// cleanTitle strips markup from a heading and squeezes it into a title.
func cleanTitle(raw string) string {
	title := html.UnescapeString(titlePolicy.Sanitize(raw))
	title = strings.Join(strings.Fields(title), " ")
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen-3] + "..."
	}
	return title
}

func scriptTitle(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}
	name = strings.TrimSuffix(name, ".js")
	if name == "" || name == "." || name == "/" {
		return "Imported script"
	}
	return name
}

// decode wraps a body in a charset-converting reader, falling back to
// the raw bytes when detection or conversion fails.
func decode(data []byte) io.Reader {
	detected := "utf-8"
	if result, err := chardet.NewTextDetector().DetectBest(data); err == nil && result != nil {
		detected = strings.ToLower(result.Charset)
	}

	reader, err := charset.NewReader(bytes.NewReader(data), detected)
	if err != nil {
		return bytes.NewReader(data)
	}
	return reader
}
