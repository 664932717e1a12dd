package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-dumper/internal/shared/apperr"
)

type bookInput struct {
	ISBN   string `json:"isbn" validate:"required,isbn"`
	Title  string `json:"title" validate:"required,max=256,title"`
	Rating int    `json:"rating" validate:"gte=0,lte=5"`
}

type articleInput struct {
	URL   string `json:"url" validate:"required,web_url"`
	Title string `json:"title" validate:"omitempty,max=256,title"`
}

func invalidField(t *testing.T, err error) string {
	t.Helper()
	var inv *apperr.InvalidFormatError
	require.True(t, errors.As(err, &inv), "expected InvalidFormatError, got %v", err)
	return inv.Field
}

func TestISBN(t *testing.T) {
	v := New()
	require.NoError(t, v.Struct(bookInput{ISBN: NormalizeISBN("978-0-306-40615-7"), Title: "Go"}))
	require.NoError(t, v.Struct(bookInput{ISBN: NormalizeISBN("0-8044-2957-x"), Title: "Go"}))

	err := v.Struct(bookInput{ISBN: "9780306406158", Title: "Go"})
	assert.Equal(t, "isbn", invalidField(t, err))
	assert.Contains(t, err.Error(), "valid ISBN")

	err = v.Struct(bookInput{ISBN: "abc", Title: "Go"})
	assert.Equal(t, "isbn", invalidField(t, err))
}

func TestTitle(t *testing.T) {
	v := New()
	isbn := "9780306406157"
	assert.Equal(t, "title", invalidField(t, v.Struct(bookInput{ISBN: isbn, Title: ""})))
	assert.Equal(t, "title", invalidField(t, v.Struct(bookInput{ISBN: isbn, Title: "   "})))
	assert.Equal(t, "title", invalidField(t, v.Struct(bookInput{ISBN: isbn, Title: "bad\x00title"})))

	long := make([]byte, 257)
	for i := range long {
		long[i] = 'a'
	}
	assert.Equal(t, "title", invalidField(t, v.Struct(bookInput{ISBN: isbn, Title: string(long)})))
	assert.Equal(t, "rating", invalidField(t, v.Struct(bookInput{ISBN: isbn, Title: "ok", Rating: 6})))
}

func TestURL(t *testing.T) {
	v := New()
	require.NoError(t, v.Struct(articleInput{URL: "https://go.dev/blog"}))
	for _, bad := range []string{"go.dev", "ftp://go.dev/x", "javascript:alert(1)", "https://", "not a url"} {
		assert.Equal(t, "url", invalidField(t, v.Struct(articleInput{URL: bad})), bad)
	}
}

func TestVar(t *testing.T) {
	v := New()
	require.NoError(t, v.Var("name", "Reading", "required,max=64,title"))
	err := v.Var("name", "", "required")
	assert.Equal(t, "name", invalidField(t, err))
}

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "9780306406157", NormalizeISBN(" 978-0 306 40615-7 "))
	assert.Equal(t, "080442957X", NormalizeISBN("0-8044-2957-x"))
}
