package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"content-dumper/internal/shared/telemetry"
)

const defaultGoogleBooksURL = "https://www.googleapis.com/books/v1"

// ErrNoVolume is returned when the lookup knows nothing about an ISBN.
var ErrNoVolume = errors.New("no volume found for isbn")

// Volume is the metadata a lookup can contribute to a book.
type Volume struct {
	Title        string
	Authors      []string
	Description  string
	ThumbnailURL string
	InfoURL      string
}

// Lookup resolves book metadata by ISBN.
type Lookup interface {
	LookupISBN(ctx context.Context, isbn string) (Volume, error)
}

// GoogleBooks queries the Google Books volumes API.
type GoogleBooks struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewGoogleBooks(apiKey string) *GoogleBooks {
	return &GoogleBooks{
		BaseURL: defaultGoogleBooksURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "google-books",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < 5 {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNoVolume)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				telemetry.Warn("breaker.state_change", map[string]any{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			},
		}),
	}
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title       string   `json:"title"`
			Subtitle    string   `json:"subtitle"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			InfoLink    string   `json:"infoLink"`
			ImageLinks  struct {
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (g *GoogleBooks) LookupISBN(ctx context.Context, isbn string) (Volume, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.fetch(ctx, isbn)
	})
	if err != nil {
		return Volume{}, err
	}
	return out.(Volume), nil
}

func (g *GoogleBooks) fetch(ctx context.Context, isbn string) (Volume, error) {
	q := url.Values{"q": {"isbn:" + isbn}}
	if g.APIKey != "" {
		q.Set("key", g.APIKey)
	}
	endpoint := strings.TrimRight(g.BaseURL, "/") + "/volumes?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Volume{}, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return Volume{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Volume{}, fmt.Errorf("google books: status %d", resp.StatusCode)
	}

	var body volumesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return Volume{}, fmt.Errorf("google books: decode: %w", err)
	}
	if body.TotalItems == 0 || len(body.Items) == 0 {
		return Volume{}, ErrNoVolume
	}
	info := body.Items[0].VolumeInfo
	title := info.Title
	if info.Subtitle != "" {
		title += ": " + info.Subtitle
	}
	thumb := info.ImageLinks.Thumbnail
	if thumb == "" {
		thumb = info.ImageLinks.SmallThumbnail
	}
	return Volume{
		Title:        title,
		Authors:      info.Authors,
		Description:  info.Description,
		ThumbnailURL: strings.Replace(thumb, "http://", "https://", 1),
		InfoURL:      info.InfoLink,
	}, nil
}
