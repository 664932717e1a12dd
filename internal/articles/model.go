package articles

import "content-dumper/internal/shared/content"

// Article is a bookmarked web page with an optional quote.
type Article struct {
	content.Meta
	URL        string `json:"url"`
	Title      string `json:"title"`
	Quote      string `json:"quote"`
	CategoryID string `json:"categoryId,omitempty"`
}

// Input is the create and update payload. An empty title is looked up from the page.
type Input struct {
	URL        string `json:"url" form:"url" validate:"required,web_url,max=2048"`
	Title      string `json:"title" form:"title" validate:"omitempty,title,max=256"`
	Quote      string `json:"quote" form:"quote" validate:"max=4096"`
	CategoryID string `json:"categoryId" form:"categoryId" validate:"omitempty,max=64"`
}

func metaOf(a *Article) *content.Meta { return &a.Meta }
