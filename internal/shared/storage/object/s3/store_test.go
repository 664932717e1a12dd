package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/original/cat.png", want: "user/original/cat.png"},
		{name: "simple prefix", prefix: "root", key: "user/original/cat.png", want: "root/user/original/cat.png"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/original/cat.png", want: "root/user/original/cat.png"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/original/cat.png", want: "root/user/original/cat.png"},
		{name: "nested prefix", prefix: "root/sub", key: "user/original/cat.png", want: "root/sub/user/original/cat.png"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestPutAgainstPathStyleEndpoint(t *testing.T) {
	var gotPath, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := New(context.Background(), Options{
		Endpoint:     srv.URL,
		Region:       "us-east-1",
		Bucket:       "media",
		Prefix:       "dumper",
		AccessKey:    "minio",
		SecretKey:    "minio-secret",
		UsePathStyle: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n, err := store.Put(context.Background(), "u/original/cat.png", "image/png", strings.NewReader("pngdata"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 bytes, got %d", n)
	}
	if gotPath != "/media/dumper/u/original/cat.png" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotType != "image/png" {
		t.Fatalf("unexpected content type %q", gotType)
	}
	if !strings.Contains(gotBody, "pngdata") {
		t.Fatalf("body not forwarded: %q", gotBody)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}
