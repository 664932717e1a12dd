package categories

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/events"
	"content-dumper/internal/shared/server/respond"
)

func newTestService() (*Service, *[]events.Event) {
	d := events.NewDispatcher()
	seen := &[]events.Event{}
	d.Register("capture", events.HandlerFunc(func(_ context.Context, e events.Event) error {
		*seen = append(*seen, e)
		return nil
	}))
	svc := NewService(NewMemoryRepo(), d)
	svc.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc, seen
}

func TestCreateValidatesAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, seen := newTestService()

	c, err := svc.Create(ctx, "u1", Input{Name: "  Go  "})
	require.NoError(t, err)
	assert.Equal(t, "Go", c.Name)
	require.Len(t, *seen, 1)
	assert.Equal(t, "categories.created", (*seen)[0].Name())

	_, err = svc.Create(ctx, "u1", Input{Name: "go"})
	var dup *apperr.DuplicateError
	assert.ErrorAs(t, err, &dup)

	_, err = svc.Create(ctx, "u2", Input{Name: "go"})
	assert.NoError(t, err)

	_, err = svc.Create(ctx, "u1", Input{Name: ""})
	var invalid *apperr.InvalidFormatError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "name", invalid.Field)
}

func TestExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	c, err := svc.Create(ctx, "u1", Input{Name: "Reading"})
	require.NoError(t, err)

	ok, err := svc.Exists(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, "u2", c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Delete(ctx, "u1", c.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", c.ID), apperr.ErrNotFound)
}

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO categories")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := &PGRepo{DB: db}
	err = repo.Create(context.Background(), Category{ID: "c1", UserID: "u1", Name: "Go"})
	var dup *apperr.DuplicateError
	assert.ErrorAs(t, err, &dup)
}

func TestPGRepoDeleteNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM categories")).
		WithArgs("u1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "created_at"}))

	repo := &PGRepo{DB: db}
	_, err = repo.Delete(context.Background(), "u1", "c1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerCreateReturnsActionResult(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "u1")
		c.Set("userPermissions", []string{"dump"})
		c.Next()
	})
	NewHandler(svc).RegisterDumperRoutes(r.Group("/api/v1/dumper"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dumper/categories", bytes.NewBufferString(`{"name":"Go"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code)

	var res respond.ActionResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.True(t, res.Success)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/dumper/categories/whatever", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
