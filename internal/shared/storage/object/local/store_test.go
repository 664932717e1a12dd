package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"content-dumper/internal/shared/storage/object"
)

func TestPutOpenDelete(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	key, err := object.NewKey("user-1", "original", "cat.png")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if !object.OwnedBy(key, "user-1") || object.OwnedBy(key, "user-2") {
		t.Fatalf("expected key %s to be owned by user-1 only", key)
	}

	n, err := s.Put(ctx, key, "image/png", bytes.NewReader([]byte("pngdata")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 bytes written, got %d", n)
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != "pngdata" {
		t.Fatalf("unexpected content %q", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestRejectsTraversal(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Open(context.Background(), "../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := s.Put(context.Background(), "/abs/key", "", bytes.NewReader(nil)); err == nil {
		t.Fatalf("expected absolute key to be rejected")
	}
}
