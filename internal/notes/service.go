package notes

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
	"content-dumper/internal/shared/validate"
)

const domain = content.DomainNotes

type Service struct {
	Repo      Repo
	Events    *events.Dispatcher
	Cache     *cache.Cache
	Validator *validate.Validator
	Now       func() time.Time
}

func NewService(repo Repo, dispatcher *events.Dispatcher, c *cache.Cache) *Service {
	return &Service{
		Repo:      repo,
		Events:    dispatcher,
		Cache:     c,
		Validator: validate.New(),
		Now:       time.Now,
	}
}

func (s *Service) Domain() content.Domain { return domain }

func (s *Service) Create(ctx context.Context, userID string, in Input) (Note, error) {
	in = normalize(in)
	if err := s.Validator.Struct(in); err != nil {
		return Note{}, err
	}
	n := Note{
		Meta:     content.NewMeta(uuid.NewString(), userID, s.Now().UTC()),
		Title:    in.Title,
		Markdown: in.Markdown,
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return Note{}, apperr.Unexpected("notes.create", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain: domain,
		Kind:   events.KindCreated,
		ID:     n.ID,
		UserID: userID,
		Status: n.Status,
		Title:  n.Title,
	})
	return n, nil
}

// Update edits a note. Exported notes move to reverted so the next fetch
// writes them out again.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (Note, error) {
	in = normalize(in)
	if err := s.Validator.Struct(in); err != nil {
		return Note{}, err
	}
	prior, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Note{}, apperr.Unexpected("notes.get", err)
	}
	n, err := s.Repo.Update(ctx, Note{
		Meta:     content.Meta{ID: id, UserID: userID, UpdatedAt: s.Now().UTC()},
		Title:    in.Title,
		Markdown: in.Markdown,
	})
	if err != nil {
		return Note{}, apperr.Unexpected("notes.update", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain:      domain,
		Kind:        events.KindUpdated,
		ID:          n.ID,
		UserID:      userID,
		Status:      n.Status,
		PriorStatus: prior.Status,
		Title:       n.Title,
	})
	return n, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	n, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return apperr.Unexpected("notes.delete", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain: domain,
		Kind:   events.KindDeleted,
		ID:     n.ID,
		UserID: userID,
		Status: n.Status,
		Title:  n.Title,
	})
	return nil
}

// Revert flags one exported note for re-export.
func (s *Service) Revert(ctx context.Context, userID, id string) error {
	t := content.Transition{
		UserID: userID,
		From:   content.StatusExported,
		To:     content.StatusReverted,
		IDs:    []string{id},
		At:     s.Now().UTC(),
	}
	n, err := s.Transition(ctx, t)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	current, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return apperr.Unexpected("notes.get", err)
	}
	return apperr.Invalid("status", "note is "+string(current.Status)+", only exported notes can be reverted")
}

// ListPending lists the caller's unexported and reverted notes.
func (s *Service) ListPending(ctx context.Context, userID string, p pagination.Params) (content.Page[Note], error) {
	page, err := s.Repo.List(ctx, content.ListQuery{
		UserID:   userID,
		Statuses: content.PendingStatuses(),
		Search:   p.Search,
		Limit:    p.Limit,
		Offset:   p.Offset(),
	})
	if err != nil {
		return content.Page[Note]{}, apperr.Unexpected("notes.list", err)
	}
	return page, nil
}

// ListExported lists the caller's exported notes. Results are cached under
// the exported tag for the user.
func (s *Service) ListExported(ctx context.Context, userID string, p pagination.Params) (content.Page[Note], error) {
	key := cache.Key(string(domain), "list", userID, strconv.Itoa(p.Page), strconv.Itoa(p.Limit), strings.ToLower(p.Search))
	tags := []string{content.CacheTag(domain, content.StatusExported, userID)}
	page, err := cache.Remember(s.Cache, key, tags, func() (content.Page[Note], error) {
		return s.Repo.List(ctx, content.ListQuery{
			UserID:   userID,
			Statuses: []content.Status{content.StatusExported},
			Search:   p.Search,
			Limit:    p.Limit,
			Offset:   p.Offset(),
		})
	})
	if err != nil {
		return content.Page[Note]{}, apperr.Unexpected("notes.list_exported", err)
	}
	return page, nil
}

// GetExported returns one exported note with rendered HTML.
func (s *Service) GetExported(ctx context.Context, userID, id string) (View, error) {
	key := cache.Key(string(domain), "get", userID, id)
	tags := []string{content.CacheTag(domain, content.StatusExported, userID)}
	v, err := cache.Remember(s.Cache, key, tags, func() (View, error) {
		n, err := s.Repo.Get(ctx, userID, id)
		if err != nil {
			return View{}, err
		}
		if n.Status != content.StatusExported {
			return View{}, apperr.ErrNotFound
		}
		return View{Note: n, HTML: markdown.ToHTML(n.Markdown)}, nil
	})
	if err != nil {
		return View{}, apperr.Unexpected("notes.get_exported", err)
	}
	return v, nil
}

// Records renders the caller's notes in statuses for export.
func (s *Service) Records(ctx context.Context, userID string, statuses []content.Status) ([]content.Record, error) {
	rows, err := content.All(ctx, content.ListQuery{UserID: userID, Statuses: statuses}, s.Repo.List)
	if err != nil {
		return nil, apperr.Unexpected("notes.records", err)
	}
	out := make([]content.Record, 0, len(rows))
	for _, n := range rows {
		out = append(out, content.Record{
			Domain: domain,
			Meta:   n.Meta,
			Title:  n.Title,
			Body:   n.Markdown,
		})
	}
	return out, nil
}

// Transition applies a guarded bulk status change and publishes one event.
func (s *Service) Transition(ctx context.Context, t content.Transition) (int64, error) {
	n, err := s.Repo.Transition(ctx, t)
	if err != nil {
		return 0, apperr.Unexpected("notes.transition", err)
	}
	if n > 0 {
		s.Events.Publish(ctx, events.TransitionEvent(domain, t, n))
	}
	return n, nil
}

func (s *Service) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	at, err := s.Repo.LatestExportedAt(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected("notes.latest_exported_at", err)
	}
	return at, nil
}

func normalize(in Input) Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Markdown = strings.TrimSpace(in.Markdown)
	return in
}

// Count reports how many of the caller's notes are in status.
func (s *Service) Count(ctx context.Context, userID string, status content.Status) (int64, error) {
	n, err := s.Repo.Count(ctx, content.ListQuery{UserID: userID, Statuses: []content.Status{status}})
	if err != nil {
		return 0, apperr.Unexpected("notes.count", err)
	}
	return n, nil
}
