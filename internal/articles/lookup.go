package articles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const maxPageSize = 2 << 20

// TitleFetcher resolves a page title from its URL.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, pageURL string) (string, error)
}

// PageTitleFetcher downloads the page and reads og:title, <title> or the first <h1>.
type PageTitleFetcher struct {
	Client    *http.Client
	UserAgent string
}

func NewPageTitleFetcher() *PageTitleFetcher {
	return &PageTitleFetcher{
		Client:    &http.Client{Timeout: 10 * time.Second},
		UserAgent: "content-dumper/1.0 (+title lookup)",
	}
}

func (f *PageTitleFetcher) FetchTitle(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return ExtractTitle(doc), nil
}

// ExtractTitle picks the best title candidate from a parsed page.
func ExtractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok {
		if t := cleanTitle(og); t != "" {
			return t
		}
	}
	if t := cleanTitle(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return cleanTitle(doc.Find("h1").First().Text())
}

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 256 {
		s = string(r[:256])
	}
	return s
}
