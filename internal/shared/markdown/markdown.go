// Package markdown renders stored markdown into sanitized HTML and writes
// front-matter documents for export.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
	"gopkg.in/yaml.v3"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// ToHTML renders md and strips anything unsafe.
func ToHTML(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	raw := blackfriday.Run([]byte(md), blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.AutoHeadingIDs))
	return string(policy.SanitizeBytes(raw))
}

// Sanitize strips unsafe markup from user supplied text.
func Sanitize(s string) string {
	return policy.Sanitize(s)
}

// StripTags removes every HTML tag from s.
func StripTags(s string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(s))
}

// WithFrontMatter prefixes body with meta serialized as a YAML block.
func WithFrontMatter(meta any, body string) ([]byte, error) {
	head, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimRight(body, "\n"))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// SplitFrontMatter decodes the YAML block at the head of doc into meta and
// returns the remaining body.
func SplitFrontMatter(doc []byte, meta any) (string, error) {
	s := string(doc)
	if !strings.HasPrefix(s, "---\n") {
		return s, nil
	}
	rest := s[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return "", fmt.Errorf("front matter: missing closing delimiter")
	}
	if err := yaml.Unmarshal([]byte(rest[:end+1]), meta); err != nil {
		return "", fmt.Errorf("front matter: %w", err)
	}
	return strings.TrimLeft(rest[end+len("\n---\n"):], "\n"), nil
}
