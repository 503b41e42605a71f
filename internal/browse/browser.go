// Package browse abstracts the shared browser context used by BROWSE
// and CLICK_BROWSER steps. The default driver fetches pages over HTTP
// and extracts readable text; element interaction needs a real
// automation driver injected at the composition root.
package browse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"
)

// ErrNotSupported is returned for interactions the driver cannot do.
var ErrNotSupported = errors.New("not supported by this browser driver")

const maxPageBytes = 10 << 20

// Browser is one shared browsing context. Access is serialized by the
// action dispatcher, so implementations may keep navigation state.
type Browser interface {
	// Open navigates to url and returns the page's readable body text.
	Open(ctx context.Context, url string) (string, error)
	// Click clicks the element matching a CSS selector.
	Click(ctx context.Context, selector string) error
}

// HTTPBrowser reads pages with plain GET requests. Article extraction
// goes through readability first; pages it cannot parse fall back to a
// markdown rendering of the raw HTML.
type HTTPBrowser struct {
	client    *http.Client
	converter *md.Converter
	log       *logrus.Logger
}

func NewHTTPBrowser(log *logrus.Logger) *HTTPBrowser {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &HTTPBrowser{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		converter: converter,
		log:       log,
	}
}

func (b *HTTPBrowser) Open(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "RemotePilot/1.0")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	if text := b.extract(body, parsed); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("no readable content at %s", pageURL)
}

// Click is unsupported over plain HTTP; the step fails and the planner
// pivots to a different approach.
func (b *HTTPBrowser) Click(ctx context.Context, selector string) error {
	return fmt.Errorf("click %q: %w", selector, ErrNotSupported)
}

func (b *HTTPBrowser) extract(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return text
		}
	} else {
		b.log.WithField("component", "browse").Debugf("readability failed for %s: %v", pageURL, err)
	}

	markdown, err := b.converter.ConvertString(string(body))
	if err != nil {
		b.log.WithField("component", "browse").Debugf("markdown fallback failed for %s: %v", pageURL, err)
		return ""
	}
	return strings.TrimSpace(markdown)
}
