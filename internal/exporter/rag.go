package exporter

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/markdown"
	"content-dumper/internal/shared/telemetry"
)

// ManifestFile is written at the root of a rag tree.
const ManifestFile = "index.yaml"

// RAGDomains are the text domains included in a rag dump by default.
func RAGDomains() []content.Domain {
	return []content.Domain{content.DomainNotes, content.DomainBooks, content.DomainArticles}
}

type ManifestEntry struct {
	ID         string     `yaml:"id"`
	Domain     string     `yaml:"domain"`
	Title      string     `yaml:"title"`
	Path       string     `yaml:"path"`
	ExportedAt *time.Time `yaml:"exportedAt,omitempty"`
}

type Manifest struct {
	GeneratedAt time.Time       `yaml:"generatedAt"`
	UserID      string          `yaml:"userId"`
	Count       int             `yaml:"count"`
	Documents   []ManifestEntry `yaml:"documents"`
}

// RAG writes every exported text row as its own markdown document and an
// index.yaml listing them. Statuses are left untouched.
func (e *Exporter) RAG(ctx context.Context, userID, dir string, domains []content.Domain) (Manifest, error) {
	if len(domains) == 0 {
		domains = RAGDomains()
	}
	for _, d := range domains {
		if d == content.DomainImages {
			return Manifest{}, apperr.Invalid("domain", "images have no text to index")
		}
	}
	sources, err := e.selectSources(domains)
	if err != nil {
		return Manifest{}, err
	}

	m := Manifest{GeneratedAt: e.Now().UTC(), UserID: userID, Documents: []ManifestEntry{}}
	for _, src := range sources {
		recs, err := src.Records(ctx, userID, []content.Status{content.StatusExported})
		if err != nil {
			return Manifest{}, err
		}
		for _, rec := range recs {
			rel := filepath.Join(string(rec.Domain), rec.Meta.ID+".md")
			body := fmt.Sprintf("# %s\n\n%s", rec.Title, rec.Body)
			doc, err := markdown.WithFrontMatter(rec.FrontMatter(), body)
			if err != nil {
				return Manifest{}, err
			}
			if err := e.FS.MkdirAll(filepath.Join(dir, string(rec.Domain)), 0o755); err != nil {
				return Manifest{}, err
			}
			if err := afero.WriteFile(e.FS, filepath.Join(dir, rel), doc, 0o644); err != nil {
				return Manifest{}, err
			}
			m.Documents = append(m.Documents, ManifestEntry{
				ID:         rec.Meta.ID,
				Domain:     string(rec.Domain),
				Title:      rec.Title,
				Path:       filepath.ToSlash(rel),
				ExportedAt: rec.Meta.ExportedAt,
			})
		}
	}
	m.Count = len(m.Documents)

	out, err := yaml.Marshal(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: %w", err)
	}
	if err := e.FS.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, err
	}
	if err := afero.WriteFile(e.FS, filepath.Join(dir, ManifestFile), out, 0o644); err != nil {
		return Manifest{}, err
	}
	telemetry.Info("export.rag.complete", map[string]any{"user_id": userID, "dir": dir, "count": m.Count})
	return m, nil
}
