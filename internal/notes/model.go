package notes

import "content-dumper/internal/shared/content"

// Note is a markdown memo.
type Note struct {
	content.Meta
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// View is a note with its rendered, sanitized HTML.
type View struct {
	Note
	HTML string `json:"html"`
}

// Input is the create and update payload.
type Input struct {
	Title    string `json:"title" form:"title" validate:"required,title,max=256"`
	Markdown string `json:"markdown" form:"markdown" validate:"required,max=20000"`
}

func metaOf(n *Note) *content.Meta { return &n.Meta }
