package content

import (
	"fmt"
	"strings"
)

// Domain names a content type. It doubles as the first segment of cache tags.
type Domain string

const (
	DomainArticles   Domain = "articles"
	DomainBooks      Domain = "books"
	DomainNotes      Domain = "notes"
	DomainImages     Domain = "images"
	DomainCategories Domain = "categories"
)

// ExportDomains are the domains that carry an export status.
func ExportDomains() []Domain {
	return []Domain{DomainArticles, DomainBooks, DomainNotes, DomainImages}
}

// ParseDomain accepts plural or singular names ("note", "notes").
func ParseDomain(raw string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "article", "articles":
		return DomainArticles, nil
	case "book", "books":
		return DomainBooks, nil
	case "note", "notes":
		return DomainNotes, nil
	case "image", "images":
		return DomainImages, nil
	case "category", "categories":
		return DomainCategories, nil
	}
	return "", fmt.Errorf("unknown domain %q", raw)
}

// ParseExportDomains parses a list of names; an empty list means every export domain.
func ParseExportDomains(raw []string) ([]Domain, error) {
	if len(raw) == 0 {
		return ExportDomains(), nil
	}
	out := make([]Domain, 0, len(raw))
	for _, r := range raw {
		d, err := ParseDomain(r)
		if err != nil {
			return nil, err
		}
		if d == DomainCategories {
			return nil, fmt.Errorf("domain %q has no export status", d)
		}
		out = append(out, d)
	}
	return out, nil
}

func (d Domain) String() string { return string(d) }

// CacheTag builds the invalidation tag for one (domain, status, user) triple.
func CacheTag(d Domain, s Status, userID string) string {
	return fmt.Sprintf("%s-%s-%s", d, s, userID)
}

// CacheTags builds one tag per status.
func CacheTags(d Domain, userID string, statuses ...Status) []string {
	tags := make([]string, 0, len(statuses))
	seen := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		tags = append(tags, CacheTag(d, s, userID))
	}
	return tags
}
