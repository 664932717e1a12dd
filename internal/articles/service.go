package articles

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
	"content-dumper/internal/shared/pagination"
	"content-dumper/internal/shared/telemetry"
	"content-dumper/internal/shared/validate"
)

const domain = content.DomainArticles

// CategoryChecker confirms a category belongs to the user.
type CategoryChecker interface {
	Exists(ctx context.Context, userID, id string) (bool, error)
}

type Service struct {
	Repo       Repo
	Events     *events.Dispatcher
	Cache      *cache.Cache
	Titles     TitleFetcher
	Categories CategoryChecker
	Validator  *validate.Validator
	Now        func() time.Time
}

func NewService(repo Repo, dispatcher *events.Dispatcher, c *cache.Cache, titles TitleFetcher, categories CategoryChecker) *Service {
	return &Service{
		Repo:       repo,
		Events:     dispatcher,
		Cache:      c,
		Titles:     titles,
		Categories: categories,
		Validator:  validate.New(),
		Now:        time.Now,
	}
}

func (s *Service) Domain() content.Domain { return domain }

func (s *Service) Create(ctx context.Context, userID string, in Input) (Article, error) {
	in, err := s.prepare(ctx, userID, in)
	if err != nil {
		return Article{}, err
	}
	a := Article{
		Meta:       content.NewMeta(uuid.NewString(), userID, s.Now().UTC()),
		URL:        in.URL,
		Title:      in.Title,
		Quote:      in.Quote,
		CategoryID: in.CategoryID,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return Article{}, apperr.Unexpected("articles.create", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain: domain,
		Kind:   events.KindCreated,
		ID:     a.ID,
		UserID: userID,
		Status: a.Status,
		Title:  a.Title,
	})
	return a, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in Input) (Article, error) {
	in, err := s.prepare(ctx, userID, in)
	if err != nil {
		return Article{}, err
	}
	prior, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Article{}, apperr.Unexpected("articles.get", err)
	}
	a, err := s.Repo.Update(ctx, Article{
		Meta:       content.Meta{ID: id, UserID: userID, UpdatedAt: s.Now().UTC()},
		URL:        in.URL,
		Title:      in.Title,
		Quote:      in.Quote,
		CategoryID: in.CategoryID,
	})
	if err != nil {
		return Article{}, apperr.Unexpected("articles.update", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain:      domain,
		Kind:        events.KindUpdated,
		ID:          a.ID,
		UserID:      userID,
		Status:      a.Status,
		PriorStatus: prior.Status,
		Title:       a.Title,
	})
	return a, nil
}

// prepare validates input, checks the category and fills a missing title
// from the page itself.
func (s *Service) prepare(ctx context.Context, userID string, in Input) (Input, error) {
	in.URL = strings.TrimSpace(in.URL)
	in.Title = strings.TrimSpace(in.Title)
	in.Quote = strings.TrimSpace(in.Quote)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if err := s.Validator.Struct(in); err != nil {
		return in, err
	}
	if in.CategoryID != "" && s.Categories != nil {
		ok, err := s.Categories.Exists(ctx, userID, in.CategoryID)
		if err != nil {
			return in, err
		}
		if !ok {
			return in, apperr.Invalid("categoryId", "unknown category")
		}
	}
	if in.Title == "" {
		in.Title = s.lookupTitle(ctx, in.URL)
	}
	return in, nil
}

func (s *Service) lookupTitle(ctx context.Context, pageURL string) string {
	if s.Titles != nil {
		title, err := s.Titles.FetchTitle(ctx, pageURL)
		if err == nil && validate.IsTitle(title) {
			return title
		}
		telemetry.Warn("articles.title_lookup_failed", map[string]any{
			"url": pageURL,
			"err": err,
		})
	}
	return cleanTitle(pageURL)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	a, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return apperr.Unexpected("articles.delete", err)
	}
	s.Events.Publish(ctx, events.Event{
		Domain: domain,
		Kind:   events.KindDeleted,
		ID:     a.ID,
		UserID: userID,
		Status: a.Status,
		Title:  a.Title,
	})
	return nil
}

// Revert flags one exported article for re-export.
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
		return apperr.Unexpected("articles.get", err)
	}
	return apperr.Invalid("status", "article is "+string(current.Status)+", only exported articles can be reverted")
}

func (s *Service) ListPending(ctx context.Context, userID string, p pagination.Params) (content.Page[Article], error) {
	page, err := s.Repo.List(ctx, content.ListQuery{
		UserID:   userID,
		Statuses: content.PendingStatuses(),
		Search:   p.Search,
		Limit:    p.Limit,
		Offset:   p.Offset(),
	})
	if err != nil {
		return content.Page[Article]{}, apperr.Unexpected("articles.list", err)
	}
	return page, nil
}

func (s *Service) ListExported(ctx context.Context, userID string, p pagination.Params) (content.Page[Article], error) {
	key := cache.Key(string(domain), "list", userID, strconv.Itoa(p.Page), strconv.Itoa(p.Limit), strings.ToLower(p.Search))
	tags := []string{content.CacheTag(domain, content.StatusExported, userID)}
	page, err := cache.Remember(s.Cache, key, tags, func() (content.Page[Article], error) {
		return s.Repo.List(ctx, content.ListQuery{
			UserID:   userID,
			Statuses: []content.Status{content.StatusExported},
			Search:   p.Search,
			Limit:    p.Limit,
			Offset:   p.Offset(),
		})
	})
	if err != nil {
		return content.Page[Article]{}, apperr.Unexpected("articles.list_exported", err)
	}
	return page, nil
}

func (s *Service) Records(ctx context.Context, userID string, statuses []content.Status) ([]content.Record, error) {
	rows, err := content.All(ctx, content.ListQuery{UserID: userID, Statuses: statuses}, s.Repo.List)
	if err != nil {
		return nil, apperr.Unexpected("articles.records", err)
	}
	out := make([]content.Record, 0, len(rows))
	for _, a := range rows {
		fields := map[string]any{"url": a.URL}
		if a.CategoryID != "" {
			fields["categoryId"] = a.CategoryID
		}
		out = append(out, content.Record{
			Domain: domain,
			Meta:   a.Meta,
			Title:  a.Title,
			Fields: fields,
			Body:   body(a),
		})
	}
	return out, nil
}

func body(a Article) string {
	var b strings.Builder
	b.WriteString("[" + a.Title + "](" + a.URL + ")\n")
	if a.Quote != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(a.Quote, "\n") {
			b.WriteString("> " + line + "\n")
		}
	}
	return b.String()
}

func (s *Service) Transition(ctx context.Context, t content.Transition) (int64, error) {
	n, err := s.Repo.Transition(ctx, t)
	if err != nil {
		return 0, apperr.Unexpected("articles.transition", err)
	}
	if n > 0 {
		s.Events.Publish(ctx, events.TransitionEvent(domain, t, n))
	}
	return n, nil
}

func (s *Service) LatestExportedAt(ctx context.Context, userID string) (*time.Time, error) {
	at, err := s.Repo.LatestExportedAt(ctx, userID)
	if err != nil {
		return nil, apperr.Unexpected("articles.latest_exported_at", err)
	}
	return at, nil
}

// Count reports how many of the caller's articles are in status.
func (s *Service) Count(ctx context.Context, userID string, status content.Status) (int64, error) {
	n, err := s.Repo.Count(ctx, content.ListQuery{UserID: userID, Statuses: []content.Status{status}})
	if err != nil {
		return 0, apperr.Unexpected("articles.count", err)
	}
	return n, nil
}
