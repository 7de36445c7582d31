// Package clip fetches a web page and extracts the pieces worth keeping
// with a bookmark: the document title, the meta description and the body
// converted to markdown.
package clip

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/emperorapp/emperor/internal/errors"
)

const (
	defaultTimeout = 20 * time.Second

	// Pages larger than this are truncated before conversion. Keeps a
	// runaway document from bloating the local snapshot.
	maxBodySize = 4 << 20 // 4 MiB

	userAgent = "Emperor/1.0"
)

// Result is what a clip extracted from a page. Any field may be empty.
type Result struct {
	Title       string
	Description string
	Content     string
}

// Clipper fetches and converts pages.
type Clipper struct {
	http   *http.Client
	logger *slog.Logger
}

// New creates a clipper.
func New(logger *slog.Logger) *Clipper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Clipper{
		http:   &http.Client{Timeout: defaultTimeout},
		logger: logger,
	}
}

// Clip fetches url and extracts title, description and markdown content.
// The caller decides what a failure means; creating a bookmark must never
// depend on a successful clip.
func (c *Clipper) Clip(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Transportf("fetch %s failed", url).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Transportf("fetch %s returned %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Transportf("read %s body", url).WithCause(err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	result := &Result{
		Title:       strings.TrimSpace(findTitle(doc)),
		Description: strings.TrimSpace(findDescription(doc)),
	}
	result.Content = c.convertBody(doc)
	c.logger.Debug("clipped page",
		"url", url,
		"title", result.Title,
		"content_bytes", len(result.Content),
	)
	return result, nil
}

// convertBody converts the document body to markdown. A conversion failure
// loses the content, not the clip.
func (c *Clipper) convertBody(doc *html.Node) string {
	node := findElement(doc, "body")
	if node == nil {
		node = doc
	}
	markdown, err := htmltomarkdown.ConvertNode(node)
	if err != nil {
		c.logger.Warn("markdown conversion failed", "error", err)
		return ""
	}
	return strings.TrimSpace(string(markdown))
}

func findTitle(doc *html.Node) string {
	if node := findElement(doc, "title"); node != nil && node.FirstChild != nil {
		return node.FirstChild.Data
	}
	return ""
}

// findDescription prefers the standard meta description and falls back to
// the Open Graph one.
func findDescription(doc *html.Node) string {
	var og string
	var desc string
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return
		}
		var name, property, content string
		for _, attr := range n.Attr {
			switch attr.Key {
			case "name":
				name = attr.Val
			case "property":
				property = attr.Val
			case "content":
				content = attr.Val
			}
		}
		if name == "description" && desc == "" {
			desc = content
		}
		if property == "og:description" && og == "" {
			og = content
		}
	})
	if desc != "" {
		return desc
	}
	return og
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, visit)
	}
}
