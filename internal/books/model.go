package books

import "content-dumper/internal/shared/content"

// Book is a read (or reading) book keyed by ISBN.
type Book struct {
	content.Meta
	ISBN         string `json:"isbn"`
	Title        string `json:"title"`
	Authors      string `json:"authors"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
	InfoURL      string `json:"infoUrl"`
	Markdown     string `json:"markdown"`
	Rating       int    `json:"rating"`
}

// View is a book with its review rendered to sanitized HTML.
type View struct {
	Book
	HTML string `json:"html"`
}

// Input is the create and update payload. Empty metadata is filled from the
// book lookup when possible.
type Input struct {
	ISBN     string `json:"isbn" form:"isbn" validate:"required,isbn"`
	Title    string `json:"title" form:"title" validate:"omitempty,title,max=256"`
	Markdown string `json:"markdown" form:"markdown" validate:"max=10000"`
	Rating   int    `json:"rating" form:"rating" validate:"gte=0,lte=5"`
}

func metaOf(b *Book) *content.Meta { return &b.Meta }
