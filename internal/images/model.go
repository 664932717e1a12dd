package images

import (
	"io"

	"content-dumper/internal/shared/content"
)

// Stored variants of an image.
const (
	KindOriginal  = "original"
	KindThumbnail = "thumbnail"
)

// Image is an uploaded picture and its generated thumbnail.
type Image struct {
	content.Meta
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
	OriginKey    string `json:"originKey"`
	ThumbnailKey string `json:"thumbnailKey,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SizeBytes    int64  `json:"sizeBytes"`
}

// Blob is an open stored object ready to be streamed.
type Blob struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	FileName    string
}

func metaOf(i *Image) *content.Meta { return &i.Meta }

// keyFor returns the storage key for a variant.
func (i Image) keyFor(kind string) (string, string) {
	if kind == KindThumbnail && i.ThumbnailKey != "" {
		return i.ThumbnailKey, "image/jpeg"
	}
	return i.OriginKey, i.ContentType
}
