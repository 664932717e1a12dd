package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"content-dumper/internal/shared/util"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Put(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// NewKey builds "<user hash>/<kind>/<random>_<file name>".
func NewKey(userID, kind, fileName string) (string, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.UserNamespace(userID), kind, fmt.Sprintf("%s_%s", randomID(), sanitizedName)), nil
}

// OwnedBy reports whether storageKey lives under userID's namespace.
func OwnedBy(storageKey, userID string) bool {
	prefix := util.UserNamespace(userID) + "/"
	return len(storageKey) > len(prefix) && storageKey[:len(prefix)] == prefix
}

func randomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
