package document

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/securenotes/backend/internal/session"
	"gorm.io/gorm"
)

type staticURLProvider struct {
	urls  []string
	index int
}

func (p *staticURLProvider) NewURL() (string, error) {
	if p.index >= len(p.urls) {
		return "", errors.New("exhausted urls")
	}
	url := p.urls[p.index]
	p.index++
	return url, nil
}

func TestCreateThenGetRoundTripsBlobsVerbatim(t *testing.T) {
	service, _, env := newTestService(t, nil)
	owner := env.newSession(t, "addr-1")

	content := `{"iv":"abc","content":{"nested":[1,2,{"deep":true}]}}`
	title := `{"iv":"def","content":"dGl0bGU="}`

	created, err := service.Create(context.Background(), owner, content, title)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if created.DocumentURL == "" {
		t.Fatalf("expected a generated document url")
	}
	if !created.CreatedAt.Equal(created.LastModified) {
		t.Fatalf("expected both timestamps set to now at creation")
	}

	fetched, err := service.Get(context.Background(), owner, created.DocumentURL)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if fetched.EncryptedContent != content {
		t.Fatalf("content not round-tripped verbatim: %q", fetched.EncryptedContent)
	}
	if fetched.EncryptedTitle != title {
		t.Fatalf("title not round-tripped verbatim: %q", fetched.EncryptedTitle)
	}
}

func TestCreateRejectsMissingPayloads(t *testing.T) {
	service, _, env := newTestService(t, nil)
	owner := env.newSession(t, "addr-1")

	if _, err := service.Create(context.Background(), owner, "", `{"a":1}`); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing content, got %v", err)
	}
	if _, err := service.Create(context.Background(), owner, `{"a":1}`, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing title, got %v", err)
	}
}

func TestCreateRetriesOnURLCollision(t *testing.T) {
	provider := &staticURLProvider{urls: []string{"dup", "dup", "fresh"}}
	service, _, env := newTestService(t, provider)
	owner := env.newSession(t, "addr-1")

	first, err := service.Create(context.Background(), owner, `{"a":1}`, `{"b":2}`)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if first.DocumentURL != "dup" {
		t.Fatalf("unexpected first url: %q", first.DocumentURL)
	}

	second, err := service.Create(context.Background(), owner, `{"a":1}`, `{"b":2}`)
	if err != nil {
		t.Fatalf("expected collision to be retried, got %v", err)
	}
	if second.DocumentURL != "fresh" {
		t.Fatalf("expected regenerated url, got %q", second.DocumentURL)
	}
}

func TestGetScopedToOwningSession(t *testing.T) {
	service, _, env := newTestService(t, nil)
	owner := env.newSession(t, "addr-1")
	other := env.newSession(t, "addr-2")

	created, err := service.Create(context.Background(), owner, `{"a":1}`, `{"b":2}`)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if _, err := service.Get(context.Background(), other, created.DocumentURL); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cross-session get to report ErrNotFound, got %v", err)
	}
	if _, err := service.Update(context.Background(), other, created.DocumentURL, patchContent(`{"x":9}`)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cross-session update to report ErrNotFound, got %v", err)
	}
	if err := service.Delete(context.Background(), other, created.DocumentURL); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cross-session delete to report ErrNotFound, got %v", err)
	}
}

func TestListPaginatesMostRecentlyModifiedFirst(t *testing.T) {
	service, _, env := newTestService(t, nil)
	owner := env.newSession(t, "addr-1")

	var urls []string
	for i := 0; i < 15; i++ {
		created, err := service.Create(context.Background(), owner, fmt.Sprintf(`{"n":%d}`, i), `{"t":1}`)
		if err != nil {
			t.Fatalf("unexpected create error: %v", err)
		}
		urls = append(urls, created.DocumentURL)
		env.advance(time.Minute)
	}

	first, err := service.List(context.Background(), owner, 1)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(first.Items) != 10 || first.Total != 15 || first.Pages != 2 || first.CurrentPage != 1 {
		t.Fatalf("unexpected first page shape: %d items, total %d, pages %d, current %d",
			len(first.Items), first.Total, first.Pages, first.CurrentPage)
	}
	if first.Items[0].DocumentURL != urls[14] {
		t.Fatalf("expected most recently modified first, got %q", first.Items[0].DocumentURL)
	}

	second, err := service.List(context.Background(), owner, 2)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(second.Items) != 5 || second.Total != 15 || second.Pages != 2 {
		t.Fatalf("unexpected second page shape: %d items, total %d, pages %d",
			len(second.Items), second.Total, second.Pages)
	}

	past, err := service.List(context.Background(), owner, 5)
	if err != nil {
		t.Fatalf("expected page past the end to succeed, got %v", err)
	}
	if len(past.Items) != 0 || past.Total != 15 {
		t.Fatalf("expected empty slice with full totals, got %d items, total %d", len(past.Items), past.Total)
	}

	clamped, err := service.List(context.Background(), owner, 0)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if clamped.CurrentPage != 1 {
		t.Fatalf("expected page below 1 to clamp to 1, got %d", clamped.CurrentPage)
	}
}

func TestUpdateAppliesOnlyPresentFields(t *testing.T) {
	service, _, env := newTestService(t, nil)
	owner := env.newSession(t, "addr-1")

	created, err := service.Create(context.Background(), owner, `{"v":1}`, `{"t":1}`)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	env.advance(time.Minute)
	updated, err := service.Update(context.Background(), owner, created.DocumentURL, patchContent(`{"v":2}`))
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated.EncryptedContent != `{"v":2}` {
		t.Fatalf("expected content to update, got %q", updated.EncryptedContent)
	}
	if updated.EncryptedTitle != `{"t":1}` {
		t.Fatalf("expected title untouched, got %q", updated.EncryptedTitle)
	}
	if !updated.LastModified.After(created.LastModified) {
		t.Fatalf("expected last_modified to advance")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected created_at fixed, got %v", updated.CreatedAt)
	}

	if _, err := service.Update(context.Background(), owner, created.DocumentURL, Patch{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected empty patch to report ErrInvalidInput, got %v", err)
	}
}

func TestDeleteThenGetReportsNotFound(t *testing.T) {
	service, _, env := newTestService(t, nil)
	owner := env.newSession(t, "addr-1")

	created, err := service.Create(context.Background(), owner, `{"a":1}`, `{"b":2}`)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if err := service.Delete(context.Background(), owner, created.DocumentURL); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, err := service.Get(context.Background(), owner, created.DocumentURL); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := service.Delete(context.Background(), owner, created.DocumentURL); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func patchContent(value string) Patch {
	return Patch{EncryptedContent: &value}
}

type testEnv struct {
	db      *gorm.DB
	advance func(time.Duration)
}

func (e *testEnv) newSession(t *testing.T, address string) session.Session {
	t.Helper()
	record := session.Session{
		Address:      address,
		CreatedAt:    time.Unix(1700000000, 0).UTC(),
		LastAccessed: time.Unix(1700000000, 0).UTC(),
	}
	if err := e.db.Create(&record).Error; err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return record
}

func newTestService(t *testing.T, provider URLProvider) (*Service, *gorm.DB, *testEnv) {
	t.Helper()

	dsn := fmt.Sprintf("file:document_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&session.Session{}, &Document{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	if provider == nil {
		provider = NewRandomURLProvider()
	}

	current := time.Unix(1700000000, 0).UTC()
	env := &testEnv{db: db, advance: func(d time.Duration) { current = current.Add(d) }}
	clock := func() time.Time { return current }

	service, err := NewService(ServiceConfig{
		Database:    db,
		Clock:       clock,
		URLProvider: provider,
	})
	if err != nil {
		t.Fatalf("failed to construct document service: %v", err)
	}
	return service, db, env
}
