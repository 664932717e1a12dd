package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/apperr"
)

func run(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, ActionResult) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	var res ActionResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w, res
}

func TestFailureMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.Invalid("url", "must be a valid http or https URL"), http.StatusBadRequest, "invalid format: url must be a valid http or https URL"},
		{&apperr.DuplicateError{Entity: "book", Value: "9780306406157"}, http.StatusConflict, `book "9780306406157" already exists`},
		{apperr.Unexpected("notes.create", errors.New("pq: connection reset")), http.StatusInternalServerError, "unexpected error occurred"},
	}
	for _, tc := range cases {
		w, res := run(t, func(c *gin.Context) { Failure(c, tc.err) })
		if w.Code != tc.status {
			t.Fatalf("expected %d, got %d", tc.status, w.Code)
		}
		if res.Success {
			t.Fatalf("expected success=false")
		}
		if res.Message != tc.msg {
			t.Fatalf("expected message %q, got %q", tc.msg, res.Message)
		}
	}
}

func TestSuccess(t *testing.T) {
	w, res := run(t, func(c *gin.Context) { Success(c, http.StatusCreated, "note created", gin.H{"id": "n1"}) })
	if w.Code != http.StatusCreated || !res.Success || res.Message != "note created" {
		t.Fatalf("unexpected result %d %+v", w.Code, res)
	}
}
