package articles

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/PuerkitoBio/goquery"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/cache"
	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/events"
)

type stubTitles struct {
	title string
	err   error
	calls int
}

func (s *stubTitles) FetchTitle(context.Context, string) (string, error) {
	s.calls++
	return s.title, s.err
}

type stubCategories map[string]bool

func (s stubCategories) Exists(_ context.Context, _ string, id string) (bool, error) {
	return s[id], nil
}

func newService(titles TitleFetcher) *Service {
	c := cache.New(16, time.Minute)
	d := events.NewDispatcher()
	d.Register("cache", cache.InvalidationHandler(c))
	svc := NewService(NewMemoryRepo(), d, c, titles, stubCategories{"cat-1": true})
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return svc
}

func TestCreateLooksUpMissingTitle(t *testing.T) {
	titles := &stubTitles{title: "Page Title"}
	svc := newService(titles)

	a, err := svc.Create(context.Background(), "u1", Input{URL: "https://example.com/post"})
	require.NoError(t, err)
	assert.Equal(t, "Page Title", a.Title)
	assert.Equal(t, 1, titles.calls)

	b, err := svc.Create(context.Background(), "u1", Input{URL: "https://example.com/other", Title: "Given"})
	require.NoError(t, err)
	assert.Equal(t, "Given", b.Title)
	assert.Equal(t, 1, titles.calls)
}

func TestCreateFallsBackToURLWhenLookupFails(t *testing.T) {
	svc := newService(&stubTitles{err: errors.New("offline")})
	a, err := svc.Create(context.Background(), "u1", Input{URL: "https://example.com/post"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/post", a.Title)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()
	var invalid *apperr.InvalidFormatError

	_, err := svc.Create(ctx, "u1", Input{URL: "ftp://example.com"})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "url", invalid.Field)

	_, err = svc.Create(ctx, "u1", Input{URL: "https://example.com", CategoryID: "nope"})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "categoryId", invalid.Field)

	_, err = svc.Create(ctx, "u1", Input{URL: "https://example.com", Title: "ok", Quote: strings.Repeat("q", 4097)})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "quote", invalid.Field)
}

func TestCreateRejectsDuplicateURLPerUser(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, "u1", Input{URL: "https://example.com/a", Title: "A", CategoryID: "cat-1"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "u1", Input{URL: "https://example.com/a", Title: "A again"})
	var dup *apperr.DuplicateError
	assert.ErrorAs(t, err, &dup)

	_, err = svc.Create(ctx, "u2", Input{URL: "https://example.com/a", Title: "A"})
	assert.NoError(t, err)
}

func TestRecordsRenderQuoteAsBlockquote(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, "u1", Input{URL: "https://example.com/a", Title: "A", Quote: "line one\nline two", CategoryID: "cat-1"})
	require.NoError(t, err)

	recs, err := svc.Records(ctx, "u1", content.PendingStatuses())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "[A](https://example.com/a)\n\n> line one\n> line two\n", recs[0].Body)
	assert.Equal(t, "https://example.com/a", recs[0].Fields["url"])
	assert.Equal(t, "cat-1", recs[0].Fields["categoryId"])
}

func TestPageTitleFetcherPrefersOpenGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/og":
			_, _ = w.Write([]byte(`<html><head><meta property="og:title" content="  OG   Title "><title>Doc</title></head></html>`))
		case "/title":
			_, _ = w.Write([]byte(`<html><head><title>Doc Title</title></head><body><h1>H</h1></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewPageTitleFetcher()
	title, err := f.FetchTitle(context.Background(), srv.URL+"/og")
	require.NoError(t, err)
	assert.Equal(t, "OG Title", title)

	title, err = f.FetchTitle(context.Background(), srv.URL+"/title")
	require.NoError(t, err)
	assert.Equal(t, "Doc Title", title)

	_, err = f.FetchTitle(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestExtractTitleFallsBackToHeading(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><h1>Only heading</h1></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Only heading", ExtractTitle(doc))
}

func TestPGRepoCreateMapsDuplicateURL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := &PGRepo{DB: db}
	err = repo.Create(context.Background(), Article{
		Meta: content.Meta{ID: "a1", UserID: "u1", Status: content.StatusUnexported},
		URL:  "https://example.com",
	})
	var dup *apperr.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "https://example.com", dup.Value)
}

func TestPGRepoResetLatestBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)
	now := at.Add(time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE articles SET status = $1, updated_at = $2, exported_at = NULL WHERE user_id = $3 AND status = $4 AND exported_at = $5")).
		WithArgs("unexported", now, "u1", "exported", at).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := &PGRepo{DB: db}
	n, err := repo.Transition(context.Background(), content.Transition{
		UserID: "u1", From: content.StatusExported, To: content.StatusUnexported, At: now, ExportedAt: &at,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
