package content

// Record is one row rendered for export: front matter fields plus a markdown body.
type Record struct {
	Domain Domain
	Meta   Meta
	Title  string
	// Fields are merged into the YAML front matter after the common columns.
	Fields map[string]any
	Body   string
	// ObjectKey names a stored blob to copy next to the document (images only).
	ObjectKey string
	FileName  string
}

// FrontMatter returns the map written at the top of an
// exported document.
func (r Record) FrontMatter() map[string]any {
	fm := map[string]any{
		"id":        r.Meta.ID,
		"domain":    string(r.Domain),
		"title":     r.Title,
		"status":    string(r.Meta.Status),
		"createdAt": r.Meta.CreatedAt.UTC(),
		"updatedAt": r.Meta.UpdatedAt.UTC(),
	}
	if r.Meta.ExportedAt != nil {
		fm["exportedAt"] = r.Meta.ExportedAt.UTC()
	}
	for k, v := range r.Fields {
		if _, taken := fm[k]; taken {
			continue
		}
		fm[k] = v
	}
	return fm
}
