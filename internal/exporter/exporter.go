// Package exporter moves content between the dumper and the exported tree on disk.
package exporter

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/markdown"
	"content-dumper/internal/shared/metrics"
	"content-dumper/internal/shared/storage/object"
	"content-dumper/internal/shared/telemetry"
)

// Source is one exportable domain.
type Source interface {
	Domain() content.Domain
	Records(ctx context.Context, userID string, statuses []content.Status) ([]content.Record, error)
	Transition(ctx context.Context, t content.Transition) (int64, error)
	LatestExportedAt(ctx context.Context, userID string) (*time.Time, error)
	Count(ctx context.Context, userID string, status content.Status) (int64, error)
}

type Exporter struct {
	Sources []Source
	Store   object.ObjectStore
	FS      afero.Fs
	Now     func() time.Time
}

func New(store object.ObjectStore, sources ...Source) *Exporter {
	return &Exporter{
		Sources: sources,
		Store:   store,
		FS:      afero.NewOsFs(),
		Now:     time.Now,
	}
}

// DomainReport counts what one run did to a domain.
type DomainReport struct {
	Domain  content.Domain `yaml:"domain"`
	Written int            `yaml:"written"`
	Moved   int64          `yaml:"moved"`
	Failed  int            `yaml:"failed"`
	// Stale counts written rows left pending because they changed mid-export.
	Stale int `yaml:"stale,omitempty"`
}

// Report summarises a run across domains.
type Report struct {
	At      time.Time
	Dir     string
	Domains []DomainReport
}

// Moved is the number of rows whose status changed.
func (r Report) Moved() int64 {
	var n int64
	for _, d := range r.Domains {
		n += d.Moved
	}
	return n
}

func (r Report) Failed() int {
	n := 0
	for _, d := range r.Domains {
		n += d.Failed
	}
	return n
}

// Summary renders "articles: 2, notes: 1" style counts.
func (r Report) Summary() string {
	if len(r.Domains) == 0 {
		return "nothing to do"
	}
	parts := make([]string, 0, len(r.Domains))
	for _, d := range r.Domains {
		part := fmt.Sprintf("%s: %d", d.Domain, d.Moved)
		if d.Failed > 0 {
			part += fmt.Sprintf(" (%d failed)", d.Failed)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func (e *Exporter) selectSources(domains []content.Domain) ([]Source, error) {
	if len(domains) == 0 {
		return e.Sources, nil
	}
	out := make([]Source, 0, len(domains))
	for _, d := range domains {
		src, err := e.source(d)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func (e *Exporter) source(d content.Domain) (Source, error) {
	for _, s := range e.Sources {
		if s.Domain() == d {
			return s, nil
		}
	}
	return nil, apperr.Invalid("domain", fmt.Sprintf("%q cannot be exported", d))
}

// batchTime truncates to the precision Postgres keeps so a batch can be
// matched again by equality.
func (e *Exporter) batchTime() time.Time {
	return e.Now().UTC().Truncate(time.Microsecond)
}

// Fetch writes every pending row as markdown under dir and marks the written
// rows exported with one shared timestamp.
func (e *Exporter) Fetch(ctx context.Context, userID, dir string, domains []content.Domain) (Report, error) {
	started := time.Now()
	sources, err := e.selectSources(domains)
	if err != nil {
		return Report{}, err
	}
	at := e.batchTime()
	report := Report{At: at, Dir: dir}
	for _, src := range sources {
		dr, err := e.fetchDomain(ctx, src, userID, dir, at)
		report.Domains = append(report.Domains, dr)
		if err != nil {
			return report, err
		}
	}
	metrics.ObserveExport(time.Since(started))
	telemetry.Info("export.fetch.complete", map[string]any{
		"user_id": userID,
		"dir":     dir,
		"moved":   report.Moved(),
		"failed":  report.Failed(),
		"summary": report.Summary(),
	})
	return report, nil
}

func (e *Exporter) fetchDomain(ctx context.Context, src Source, userID, dir string, at time.Time) (DomainReport, error) {
	d := src.Domain()
	dr := DomainReport{Domain: d}
	recs, err := src.Records(ctx, userID, content.PendingStatuses())
	if err != nil {
		return dr, err
	}
	written := map[content.Status][]string{}
	versions := map[content.Status]map[string]time.Time{}
	for _, rec := range recs {
		if err := e.writeRecord(ctx, dir, rec, at); err != nil {
			dr.Failed++
			telemetry.Warn("export.write_failed", map[string]any{
				"domain":     string(d),
				"content_id": rec.Meta.ID,
				"err":        err.Error(),
			})
			continue
		}
		dr.Written++
		st := rec.Meta.Status
		written[st] = append(written[st], rec.Meta.ID)
		if versions[st] == nil {
			versions[st] = map[string]time.Time{}
		}
		versions[st][rec.Meta.ID] = rec.Meta.UpdatedAt
	}
	for _, from := range content.PendingStatuses() {
		ids := written[from]
		if len(ids) == 0 {
			continue
		}
		// Rows edited after they were read keep their status; the next fetch
		// writes the new content.
		t := content.Transition{UserID: userID, From: from, To: content.StatusExported, IDs: ids, At: at, Versions: versions[from]}
		n, err := src.Transition(ctx, t)
		if err != nil {
			return dr, err
		}
		if skipped := int64(len(ids)) - n; skipped > 0 {
			dr.Stale += int(skipped)
			telemetry.Warn("export.rows_changed", map[string]any{"domain": string(d), "from": string(from), "skipped": skipped})
		}
		dr.Moved += n
		metrics.AddExported(string(d), string(t.To), n)
	}
	return dr, nil
}

func (e *Exporter) writeRecord(ctx context.Context, dir string, rec content.Record, at time.Time) error {
	fm := rec.FrontMatter()
	fm["status"] = string(content.StatusExported)
	fm["exportedAt"] = at
	doc, err := markdown.WithFrontMatter(fm, rec.Body)
	if err != nil {
		return err
	}
	domainDir := filepath.Join(dir, string(rec.Domain))
	if err := e.FS.MkdirAll(domainDir, 0o755); err != nil {
		return err
	}
	if rec.ObjectKey != "" {
		if err := e.copyObject(ctx, rec.ObjectKey, filepath.Join(dir, "images", rec.FileName)); err != nil {
			return err
		}
	}
	return afero.WriteFile(e.FS, filepath.Join(domainDir, rec.Meta.ID+".md"), doc, 0o644)
}

func (e *Exporter) copyObject(ctx context.Context, key, target string) error {
	if e.Store == nil {
		return fmt.Errorf("no object store for %s", key)
	}
	body, err := e.Store.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer body.Close()
	if err := e.FS.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := e.FS.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Reset moves the most recent export batch back to unexported. The batch is
// the latest exported_at across the selected domains.
func (e *Exporter) Reset(ctx context.Context, userID string, domains []content.Domain) (Report, error) {
	sources, err := e.selectSources(domains)
	if err != nil {
		return Report{}, err
	}
	var latest *time.Time
	for _, src := range sources {
		at, err := src.LatestExportedAt(ctx, userID)
		if err != nil {
			return Report{}, err
		}
		if at != nil && (latest == nil || at.After(*latest)) {
			latest = at
		}
	}
	if latest == nil {
		return Report{}, nil
	}
	report := Report{At: *latest}
	now := e.Now().UTC()
	for _, src := range sources {
		t := content.Transition{
			UserID:     userID,
			From:       content.StatusExported,
			To:         content.StatusUnexported,
			At:         now,
			ExportedAt: latest,
		}
		n, err := src.Transition(ctx, t)
		if err != nil {
			return report, err
		}
		report.Domains = append(report.Domains, DomainReport{Domain: src.Domain(), Moved: n})
		metrics.AddExported(string(src.Domain()), string(t.To), n)
	}
	return report, nil
}

// Revert flags exported rows of one domain for re-export.
func (e *Exporter) Revert(ctx context.Context, userID string, d content.Domain, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, apperr.Invalid("ids", "at least one id is required")
	}
	return e.Update(ctx, userID, d, content.StatusExported, content.StatusReverted, ids)
}

// Update applies a guarded bulk transition. Without ids every row in from moves.
func (e *Exporter) Update(ctx context.Context, userID string, d content.Domain, from, to content.Status, ids []string) (int64, error) {
	src, err := e.source(d)
	if err != nil {
		return 0, err
	}
	t := content.Transition{UserID: userID, From: from, To: to, IDs: ids, At: e.batchTime()}
	if err := t.Validate(); err != nil {
		return 0, apperr.Invalid("status", err.Error())
	}
	n, err := src.Transition(ctx, t)
	if err != nil {
		return 0, err
	}
	metrics.AddExported(string(d), string(to), n)
	return n, nil
}

// Stat is the number of rows of a domain in one status.
type Stat struct {
	Domain content.Domain
	Status content.Status
	Count  int64
}

func (e *Exporter) Stats(ctx context.Context, userID string) ([]Stat, error) {
	var out []Stat
	for _, src := range e.Sources {
		for _, st := range content.AllStatuses() {
			n, err := src.Count(ctx, userID, st)
			if err != nil {
				return nil, err
			}
			out = append(out, Stat{Domain: src.Domain(), Status: st, Count: n})
		}
	}
	return out, nil
}
