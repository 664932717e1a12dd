package books

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/cache"
	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/events"
	"content-dumper/internal/shared/markdown"
	"content-dumper/internal/shared/pagination"
	"content-dumper/internal/shared/telemetry"
	"content-dumper/internal/shared/validate"
)

const domain = content.DomainBooks

type Service struct {
	Repo      Repo
	Events    *events.Dispatcher
	Cache     *cache.Cache
	Lookup    Lookup
	Validator *validate.Validator
	Now       func() time.Time
}

func NewService(repo Repo, dispatcher *events.Dispatcher, c *cache.Cache, lookup Lookup) *Service {
	return &Service{
		Repo:      repo,
		Events:    dispatcher,
		Cache:     c,
		Lookup:    lookup,
		Validator: validate.New(),
		Now:       time.Now,
	}
}

func (s *Service) Domain() content.Domain { return domain }

func (s *Service) Create(ctx context.Context, userID string, in Input) (Book, error) {
	in, err := s.check(in)
	if err != nil {
		return Book{}, err
	}
	b := Book{
		Meta:     content.NewMeta(uuid.NewString(), userID, s.Now().UTC()),
		ISBN:     in.ISBN,
		Title:    in.Title,
		Markdown: in.Markdown,
		Rating:   in.Rating,
	}
	if err := s.enrich(ctx, &b); err != nil {
		return Book{}, err
	}
	if err := s.Repo.Create(ctx, b); err != nil {
		return Book{}, apperr.Unexpected("books.create", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain: domain,
		Kind:   events.KindCreated,
		ID:     b.ID,
		UserID: userID,
		Status: b.Status,
		Title:  b.Title,
	})
	return b, nil
}

// Update edits the review and rating. Changing the ISBN refreshes the
// looked-up metadata.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (Book, error) {
	in, err := s.check(in)
	if err != nil {
		return Book{}, err
	}
	prior, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Book{}, apperr.Unexpected("books.get", err)
	}
	next := prior
	next.UpdatedAt = s.Now().UTC()
	next.Markdown = in.Markdown
	next.Rating = in.Rating
	if in.ISBN != prior.ISBN {
		next.ISBN = in.ISBN
		next.Title = ""
		next.Authors, next.Description, next.ThumbnailURL, next.InfoURL = "", "", "", ""
	}
	if in.Title != "" {
		next.Title = in.Title
	}
	if err := s.enrich(ctx, &next); err != nil {
		return Book{}, err
	}
	b, err := s.Repo.Update(ctx, next)
	if err != nil {
		return Book{}, apperr.Unexpected("books.update", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain:      domain,
		Kind:        events.KindUpdated,
		ID:          b.ID,
		UserID:      userID,
		Status:      b.Status,
		PriorStatus: prior.Status,
		Title:       b.Title,
	})
	return b, nil
}

func (s *Service) check(in Input) (Input, error) {
	in.ISBN = validate.NormalizeISBN(in.ISBN)
	in.Title = strings.TrimSpace(in.Title)
	in.Markdown = strings.TrimSpace(in.Markdown)
	if err := s.Validator.Struct(in); err != nil {
		return in, err
	}
	return in, nil
}

// enrich fills missing metadata from the lookup. Lookup failures are logged
// and ignored; only a book that still has no title is rejected.
func (s *Service) enrich(ctx context.Context, b *Book) error {
	if s.Lookup != nil && (b.Title == "" || b.Authors == "") {
		v, err := s.Lookup.LookupISBN(ctx, b.ISBN)
		if err != nil {
			telemetry.Warn("books.lookup_failed", map[string]any{"isbn": b.ISBN, "err": err})
		} else {
			if b.Title == "" {
				b.Title = truncate(strings.TrimSpace(v.Title), 256)
			}
			if b.Authors == "" {
				b.Authors = strings.Join(v.Authors, ", ")
			}
			if b.Description == "" {
				b.Description = v.Description
			}
			if b.ThumbnailURL == "" {
				b.ThumbnailURL = v.ThumbnailURL
			}
			if b.InfoURL == "" {
				b.InfoURL = v.InfoURL
			}
		}
	}
	if !validate.IsTitle(b.Title) {
		return apperr.Invalid("title", "is required when the ISBN cannot be looked up")
	}
	return nil
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	b, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return apperr.Unexpected("books.delete", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain: domain,
		Kind:   events.KindDeleted,
		ID:     b.ID,
		UserID: userID,
		Status: b.Status,
		Title:  b.Title,
	})
	return nil
}

// Revert flags one exported book for re-export.
func (s *Service) Revert(ctx context.Context, userID, id string) error {
	n, err := s.Transition(ctx, content.Transition{
		UserID: userID,
		From:   content.StatusExported,
		To:     content.StatusReverted,
		IDs:    []string{id},
		At:     s.Now().UTC(),
	})
	if err != nil || n > 0 {
		return err
	}
	current, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return apperr.Unexpected("books.get", err)
	}
	return apperr.Invalid("status", "book is "+string(current.Status)+", only exported books can be reverted")
}

func (s *Service) ListPending(ctx context.Context, userID string, p pagination.Params) (content.Page[Book], error) {
	page, err := s.Repo.List(ctx, content.ListQuery{
		UserID:   userID,
		Statuses: content.PendingStatuses(),
		Search:   p.Search,
		Limit:    p.Limit,
		Offset:   p.Offset(),
	})
	if err != nil {
		return content.Page[Book]{}, apperr.Unexpected("books.list", err)
	}
	return page, nil
}

func (s *Service) ListExported(ctx context.Context, userID string, p pagination.Params) (content.Page[Book], error) {
	key := cache.Key(string(domain), "list", userID, strconv.Itoa(p.Page), strconv.Itoa(p.Limit), strings.ToLower(p.Search))
	tags := []string{content.CacheTag(domain, content.StatusExported, userID)}
	page, err := cache.Remember(s.Cache, key, tags, func() (content.Page[Book], error) {
		return s.Repo.List(ctx, content.ListQuery{
			UserID:   userID,
			Statuses: []content.Status{content.StatusExported},
			Search:   p.Search,
			Limit:    p.Limit,
			Offset:   p.Offset(),
		})
	})
	if err != nil {
		return content.Page[Book]{}, apperr.Unexpected("books.list_exported", err)
	}
	return page, nil
}

func (s *Service) GetExported(ctx context.Context, userID, id string) (View, error) {
	key := cache.Key(string(domain), "get", userID, id)
	tags := []string{content.CacheTag(domain, content.StatusExported, userID)}
	v, err := cache.Remember(s.Cache, key, tags, func() (View, error) {
		b, err := s.Repo.Get(ctx, userID, id)
		if err != nil {
			return View{}, err
		}
		if b.Status != content.StatusExported {
			return View{}, apperr.ErrNotFound
		}
		return View{Book: b, HTML: markdown.ToHTML(b.Markdown)}, nil
	})
	if err != nil {
		return View{}, apperr.Unexpected("books.get_exported", err)
	}
	return v, nil
}

func (s *Service) Records(ctx context.Context, userID string, statuses []content.Status) ([]content.Record, error) {
	rows, err := content.All(ctx, content.ListQuery{UserID: userID, Statuses: statuses}, s.Repo.List)
	if err != nil {
		return nil, apperr.Unexpected("books.records", err)
	}
	out := make([]content.Record, 0, len(rows))
	for _, b := range rows {
		fields := map[string]any{
			"isbn":   b.ISBN,
			"rating": b.Rating,
		}
		if b.Authors != "" {
			fields["authors"] = b.Authors
		}
		if b.ThumbnailURL != "" {
			fields["thumbnailUrl"] = b.ThumbnailURL
		}
		if b.InfoURL != "" {
			fields["infoUrl"] = b.InfoURL
		}
		body := b.Markdown
		if body == "" {
			body = b.Description
		}
		out = append(out, content.Record{
			Domain: domain,
			Meta:   b.Meta,
			Title:  b.Title,
			Fields: fields,
			Body:   body,
		})
	}
	return out, nil
}

func (s *Service) Transition(ctx context.Context, t content.Transition) (int64, error) {
	n, err := s.Repo.Transition(ctx, t)
	if err != nil {
		return 0, apperr.Unexpected("books.transition", err)
	}
	if n > 0 {
		s.Events.Publish(ctx, events.TransitionEvent(domain, t, n))
	}
	return n, nil
}

func (s *Service) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	at, err := s.Repo.LatestExportedAt(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected("books.latest_exported_at", err)
	}
	return at, nil
}

// Count reports how many of the caller's books are in status.
func (s *Service) Count(ctx context.Context, userID string, status content.Status) (int64, error) {
	n, err := s.Repo.Count(ctx, content.ListQuery{UserID: userID, Statuses: []content.Status{status}})
	if err != nil {
		return 0, apperr.Unexpected("books.count", err)
	}
	return n, nil
}
