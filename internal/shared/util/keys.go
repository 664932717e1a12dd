// Package util holds helpers for building object storage keys.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameLength caps a sanitized file name in runes.
const MaxFileNameLength = 100

var ErrInvalidFileName = errors.New("invalid file name")

// UserNamespace returns the storage prefix for a user: the first 32 hex
// characters of sha256(userID). Raw ids contain ':' and may be emails.
func UserNamespace(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:16])
}

// SanitizeFileName keeps the base name of an uploaded file, replaces
// whitespace with '_', drops control characters and leading dots, and
// shortens it to MaxFileNameLength while keeping the extension.
func SanitizeFileName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	s := strings.TrimLeft(b.String(), ".")
	if s == "" {
		return "", ErrInvalidFileName
	}

	if utf8.RuneCountInString(s) > MaxFileNameLength {
		ext := filepath.Ext(s)
		if utf8.RuneCountInString(ext) > 10 {
			ext = ""
		}
		stem := []rune(strings.TrimSuffix(s, ext))
		s = string(stem[:MaxFileNameLength-utf8.RuneCountInString(ext)]) + ext
	}
	return s, nil
}
