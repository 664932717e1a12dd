package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-dumper/internal/shared/apperr"
)

func TestCanTransition(t *testing.T) {
	ok := [][2]Status{
		{StatusUnexported, StatusExported},
		{StatusReverted, StatusExported},
		{StatusExported, StatusReverted},
		{StatusExported, StatusUnexported},
		{StatusReverted, StatusUnexported},
	}
	for _, p := range ok {
		assert.True(t, CanTransition(p[0], p[1]), "%s -> %s", p[0], p[1])
	}
	bad := [][2]Status{
		{StatusUnexported, StatusReverted},
		{StatusUnexported, StatusUnexported},
		{StatusExported, StatusExported},
		{"bogus", StatusExported},
	}
	for _, p := range bad {
		assert.False(t, CanTransition(p[0], p[1]), "%s -> %s", p[0], p[1])
	}
}

func TestAfterEdit(t *testing.T) {
	assert.Equal(t, StatusReverted, AfterEdit(StatusExported))
	assert.Equal(t, StatusUnexported, AfterEdit(StatusUnexported))
	assert.Equal(t, StatusReverted, AfterEdit(StatusReverted))
}

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain(" Note ")
	require.NoError(t, err)
	assert.Equal(t, DomainNotes, d)

	d, err = ParseDomain("category")
	require.NoError(t, err)
	assert.Equal(t, DomainCategories, d)

	_, err = ParseDomain("videos")
	assert.Error(t, err)

	all, err := ParseExportDomains(nil)
	require.NoError(t, err)
	assert.Equal(t, ExportDomains(), all)

	_, err = ParseExportDomains([]string{"categories"})
	assert.Error(t, err)
}

func TestCacheTags(t *testing.T) {
	assert.Equal(t, "notes-exported-u1", CacheTag(DomainNotes, StatusExported, "u1"))
	tags := CacheTags(DomainBooks, "u1", StatusExported, "", StatusReverted, StatusExported)
	assert.Equal(t, []string{"books-exported-u1", "books-reverted-u1"}, tags)
}

type row struct {
	Meta
	Title string
	URL   string
}

func newRowStore() *MemStore[row] {
	return NewMemStore[row]("row",
		func(r *row) *Meta { return &r.Meta },
		func(r row, needle string) bool { return strings.Contains(strings.ToLower(r.Title), needle) },
		func(r row) string { return r.URL },
	)
}

func TestMemStoreUniquePerUser(t *testing.T) {
	ctx := context.Background()
	s := newRowStore()
	now := time.Now()
	require.NoError(t, s.Insert(ctx, row{Meta: NewMeta("1", "u1", now), URL: "https://a"}))
	require.NoError(t, s.Insert(ctx, row{Meta: NewMeta("2", "u2", now), URL: "https://a"}))

	err := s.Insert(ctx, row{Meta: NewMeta("3", "u1", now), URL: "https://a"})
	var dup *apperr.DuplicateError
	require.True(t, errors.As(err, &dup))

	_, err = s.Get(ctx, "u2", "1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemStoreListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := newRowStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"Go tips", "Rust notes", "go generics"} {
		m := NewMeta(string(rune('a'+i)), "u1", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.Insert(ctx, row{Meta: m, Title: title, URL: title}))
	}

	page, err := s.List(ctx, ListQuery{UserID: "u1", Search: "go", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "go generics", page.Items[0].Title)

	page, err = s.List(ctx, ListQuery{UserID: "u1", Statuses: []Status{StatusExported}})
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Total)
	assert.Empty(t, page.Items)
}

func TestMemStoreTransitionGuardsPriorStatus(t *testing.T) {
	ctx := context.Background()
	s := newRowStore()
	now := time.Now().UTC()
	require.NoError(t, s.Insert(ctx, row{Meta: NewMeta("1", "u1", now), URL: "1"}))
	exported := NewMeta("2", "u1", now)
	exported.Status = StatusExported
	require.NoError(t, s.Insert(ctx, row{Meta: exported, URL: "2"}))

	n, err := s.Transition(ctx, Transition{UserID: "u1", From: StatusExported, To: StatusReverted, IDs: []string{"1", "2"}, At: now})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	r1, _ := s.Get(ctx, "u1", "1")
	r2, _ := s.Get(ctx, "u1", "2")
	assert.Equal(t, StatusUnexported, r1.Status)
	assert.Equal(t, StatusReverted, r2.Status)

	_, err = s.Transition(ctx, Transition{UserID: "u1", From: StatusUnexported, To: StatusReverted, At: now})
	var inv *apperr.InvalidFormatError
	assert.True(t, errors.As(err, &inv))
}

func TestMemStoreModifyKeepsConcurrentTransition(t *testing.T) {
	ctx := context.Background()
	s := newRowStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, row{Meta: NewMeta("1", "u1", now), URL: "https://a"}))
	require.NoError(t, s.Insert(ctx, row{Meta: NewMeta("2", "u1", now), URL: "https://b"}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.Transition(ctx, Transition{UserID: "u1", From: StatusUnexported, To: StatusExported, IDs: []string{"1"}, At: now})
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := s.Modify(ctx, "u1", "1", func(r *row) {
			r.Title = "edited"
			r.Status = AfterEdit(r.Status)
		})
		assert.NoError(t, err)
	}()
	wg.Wait()

	// Either order is fine, but the edit must see the status it replaces:
	// exported then edited ends reverted, edited then exported ends exported.
	got, err := s.Get(ctx, "u1", "1")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Title)
	assert.Contains(t, []Status{StatusReverted, StatusExported}, got.Status)
	if got.Status == StatusReverted {
		assert.NotNil(t, got.ExportedAt)
	}

	_, err = s.Modify(ctx, "u1", "2", func(r *row) { r.URL = "https://a" })
	var dup *apperr.DuplicateError
	assert.True(t, errors.As(err, &dup))
	_, err = s.Modify(ctx, "u2", "1", func(*row) {})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemStoreLatestExportedAtAndReset(t *testing.T) {
	ctx := context.Background()
	s := newRowStore()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	require.NoError(t, s.Insert(ctx, row{Meta: NewMeta("1", "u1", t1), URL: "1"}))
	_, err := s.Transition(ctx, Transition{UserID: "u1", From: StatusUnexported, To: StatusExported, At: t1})
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, row{Meta: NewMeta("2", "u1", t2), URL: "2"}))
	_, err = s.Transition(ctx, Transition{UserID: "u1", From: StatusUnexported, To: StatusExported, At: t2})
	require.NoError(t, err)

	latest, err := s.LatestExportedAt(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(t2))

	n, err := s.Transition(ctx, Transition{UserID: "u1", From: StatusExported, To: StatusUnexported, At: t2, ExportedAt: latest})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	r2, _ := s.Get(ctx, "u1", "2")
	assert.Equal(t, StatusUnexported, r2.Status)
	assert.Nil(t, r2.ExportedAt)
	r1, _ := s.Get(ctx, "u1", "1")
	assert.Equal(t, StatusExported, r1.Status)
}

func TestTransitionSQL(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := TransitionSQL("notes", Transition{UserID: "u1", From: StatusExported, To: StatusReverted, IDs: []string{"a", "b"}, At: at})
	assert.Equal(t, "UPDATE notes SET status = $1, updated_at = $2 WHERE user_id = $3 AND status = $4 AND id IN ($5, $6)", query)
	assert.Equal(t, []any{"reverted", at, "u1", "exported", "a", "b"}, args)

	query, args = TransitionSQL("books", Transition{UserID: "u1", From: StatusExported, To: StatusUnexported, At: at, ExportedAt: &at})
	assert.Equal(t, "UPDATE books SET status = $1, updated_at = $2, exported_at = NULL WHERE user_id = $3 AND status = $4 AND exported_at = $5", query)
	assert.Len(t, args, 5)

	seen := at.Add(-time.Hour)
	query, args = TransitionSQL("notes", Transition{
		UserID: "u1", From: StatusUnexported, To: StatusExported, At: at,
		IDs:      []string{"b", "a"},
		Versions: map[string]time.Time{"b": seen, "a": seen},
	})
	assert.Equal(t, "UPDATE notes SET status = $1, updated_at = $2, exported_at = $2 WHERE user_id = $3 AND status = $4 AND id IN ($5, $6) AND (id, updated_at) IN (($7, $8), ($9, $10))", query)
	assert.Equal(t, []any{"exported", at, "u1", "unexported", "b", "a", "a", seen, "b", seen}, args)
}

func TestMemStoreTransitionSkipsRowsEditedSinceRead(t *testing.T) {
	ctx := context.Background()
	s := newRowStore()
	read := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, row{Meta: NewMeta("1", "u1", read), URL: "1"}))
	require.NoError(t, s.Insert(ctx, row{Meta: NewMeta("2", "u1", read), URL: "2"}))

	_, err := s.Modify(ctx, "u1", "2", func(r *row) { r.UpdatedAt = read.Add(time.Minute) })
	require.NoError(t, err)

	at := read.Add(2 * time.Minute)
	n, err := s.Transition(ctx, Transition{
		UserID: "u1", From: StatusUnexported, To: StatusExported, At: at,
		IDs:      []string{"1", "2"},
		Versions: map[string]time.Time{"1": read, "2": read},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	r1, _ := s.Get(ctx, "u1", "1")
	r2, _ := s.Get(ctx, "u1", "2")
	assert.Equal(t, StatusExported, r1.Status)
	assert.Equal(t, StatusUnexported, r2.Status)
}

func TestListWhere(t *testing.T) {
	where, args := ListWhere(ListQuery{UserID: "u1", Statuses: []Status{StatusExported}, Search: "50%"}, []string{"title", "markdown"})
	assert.Equal(t, "WHERE user_id = $1 AND status IN ($2) AND (title ILIKE $3 OR markdown ILIKE $3)", where)
	assert.Equal(t, []any{"u1", "exported", `%50\%%`}, args)

	limit, args := LimitOffset(ListQuery{Limit: 10, Offset: 20}, args)
	assert.Equal(t, "LIMIT $4 OFFSET $5", limit)
	assert.Equal(t, []any{"u1", "exported", `%50\%%`, 10, 20}, args)
}

func TestRecordFrontMatterKeepsCommonColumns(t *testing.T) {
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	r := Record{
		Domain: DomainNotes,
		Meta:   Meta{ID: "n1", Status: StatusExported, CreatedAt: at, UpdatedAt: at, ExportedAt: &at},
		Title:  "hello",
		Fields: map[string]any{"id": "override", "tags": []string{"a"}},
	}
	fm := r.FrontMatter()
	if fm["id"] != "n1" {
		t.Fatalf("expected id to win over fields, got %v", fm["id"])
	}
	if fm["domain"] != "notes" || fm["exportedAt"] != at {
		t.Fatalf("unexpected front matter %+v", fm)
	}
	if _, ok := fm["tags"]; !ok {
		t.Fatalf("expected extra field")
	}
}

func TestAllDrainsPages(t *testing.T) {
	rows := make([]int, 450)
	for i := range rows {
		rows[i] = i
	}
	calls := 0
	list := func(_ context.Context, q ListQuery) (Page[int], error) {
		calls++
		end := q.Offset + q.Limit
		if end > len(rows) {
			end = len(rows)
		}
		return Page[int]{Items: rows[q.Offset:end], Total: int64(len(rows))}, nil
	}
	out, err := All(context.Background(), ListQuery{UserID: "u"}, list)
	require.NoError(t, err)
	assert.Len(t, out, 450)
	assert.Equal(t, 3, calls)
}
