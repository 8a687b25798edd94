package annotation_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"pdfviewer/internal/annotation"
	"pdfviewer/internal/domain"
	"pdfviewer/internal/localstore"
)

// fakeBackend records saves and can be told to fail.
type fakeBackend struct {
	name    string
	loadErr error
	saveErr error
	initial []domain.Rectangle

	mu    sync.Mutex
	saved []domain.Rectangle
	last  []domain.Rectangle
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Load(context.Context) ([]domain.Rectangle, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]domain.Rectangle(nil), f.initial...), nil
}

func (f *fakeBackend) Save(_ context.Context, r domain.Rectangle, all []domain.Rectangle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, r)
	f.last = all
	return nil
}

func (f *fakeBackend) setSaveErr(err error) {
	f.mu.Lock()
	f.saveErr = err
	f.mu.Unlock()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func waitSaves(t *testing.T, s *annotation.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Wait(ctx)
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	s := annotation.New(quietLogger())
	ctx := context.Background()

	r1 := domain.Rectangle{Page: 2, X: 1, Y: 1, Width: 10, Height: 10}
	r2 := domain.Rectangle{Page: 2, X: 5, Y: 5, Width: -3, Height: 4}
	s.Append(ctx, r1)
	s.Append(ctx, domain.Rectangle{Page: 3, X: 9, Y: 9, Width: 1, Height: 1})
	s.Append(ctx, r2)

	got := s.ForPage(2)
	if len(got) != 2 {
		t.Fatalf("expected 2 rectangles on page 2, got %d", len(got))
	}
	if got[0] != r1 || got[1] != r2 {
		t.Errorf("expected [r1, r2] in insertion order, got %+v", got)
	}
}

func TestStore_ForPageNeverReturnsOtherPages(t *testing.T) {
	s := annotation.New(quietLogger())
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		s.Append(ctx, domain.Rectangle{Page: i%4 + 1, X: float64(i), Width: 1, Height: 1})
	}
	for page := 0; page <= 5; page++ {
		for _, r := range s.ForPage(page) {
			if r.Page != page {
				t.Errorf("ForPage(%d) returned rectangle on page %d", page, r.Page)
			}
		}
	}
	if n := len(s.ForPage(1)); n != 5 {
		t.Errorf("expected 5 rectangles on page 1, got %d", n)
	}
}

func TestStore_AppendDefaultsUnsetPage(t *testing.T) {
	s := annotation.New(quietLogger())
	s.Append(context.Background(), domain.Rectangle{X: 1, Y: 1, Width: 2, Height: 2})
	if len(s.ForPage(1)) != 1 {
		t.Error("expected rectangle without page to land on page 1")
	}
}

func TestStore_LoadFailureYieldsEmpty(t *testing.T) {
	b := &fakeBackend{name: "remote", loadErr: errors.New("HTTP 500")}
	s := annotation.New(quietLogger(), b)

	got := s.Load(context.Background())
	if len(got) != 0 {
		t.Fatalf("expected empty collection, got %d", len(got))
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestStore_LoadFallsBackToNextBackend(t *testing.T) {
	remote := &fakeBackend{name: "remote", loadErr: errors.New("unreachable")}
	local := &fakeBackend{name: "local", initial: []domain.Rectangle{
		{X: 1, Y: 2, Width: 3, Height: 4},
		{Page: 2, X: 5, Y: 6, Width: 7, Height: 8},
	}}
	s := annotation.New(quietLogger(), remote, local)

	got := s.Load(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 rectangles from local backend, got %d", len(got))
	}
	if got[0].Page != 1 {
		t.Errorf("expected unset page to load as page 1, got %d", got[0].Page)
	}
}

func TestStore_AppendSurvivesRejectedWrite(t *testing.T) {
	b := &fakeBackend{name: "remote", saveErr: errors.New("403")}
	s := annotation.New(quietLogger(), b)

	r := domain.Rectangle{Page: 1, X: 10, Y: 10, Width: 100, Height: 50}
	s.Append(context.Background(), r)
	waitSaves(t, s)

	got := s.ForPage(1)
	if len(got) != 1 || got[0] != r {
		t.Fatalf("expected rectangle to stay visible, got %+v", got)
	}
	if s.Pending()["remote"] != 1 {
		t.Errorf("expected 1 pending rectangle, got %v", s.Pending())
	}
}

func TestStore_AppendPersistsToEveryBackend(t *testing.T) {
	remote := &fakeBackend{name: "remote"}
	local := &fakeBackend{name: "local"}
	s := annotation.New(quietLogger(), remote, local)
	ctx := context.Background()

	s.Append(ctx, domain.Rectangle{Page: 1, Width: 1, Height: 1})
	s.Append(ctx, domain.Rectangle{Page: 1, X: 2, Width: 1, Height: 1})
	waitSaves(t, s)

	if len(remote.saved) != 2 {
		t.Errorf("expected 2 remote saves, got %d", len(remote.saved))
	}
	if len(local.saved) != 2 {
		t.Errorf("expected 2 local saves, got %d", len(local.saved))
	}
}

func TestStore_RetryPending(t *testing.T) {
	b := &fakeBackend{name: "remote", saveErr: errors.New("offline")}
	s := annotation.New(quietLogger(), b)
	ctx := context.Background()

	s.Append(ctx, domain.Rectangle{Page: 1, Width: 1, Height: 1})
	s.Append(ctx, domain.Rectangle{Page: 1, X: 4, Width: 1, Height: 1})
	waitSaves(t, s)

	if _, err := s.RetryPending(ctx); err == nil {
		t.Fatal("expected retry to fail while backend is offline")
	}
	if s.Pending()["remote"] != 2 {
		t.Fatalf("expected 2 pending after failed retry, got %v", s.Pending())
	}

	b.setSaveErr(nil)
	saved, err := s.RetryPending(ctx)
	if err != nil {
		t.Fatalf("unexpected retry error: %v", err)
	}
	if saved != 2 {
		t.Errorf("expected 2 saved, got %d", saved)
	}
	if len(s.Pending()) != 0 {
		t.Errorf("expected no pending rectangles, got %v", s.Pending())
	}
}

// slowFirstSave delays the save that carries a one-element collection, so
// it finishes after the save of the second append unless saves are
// serialised.
type slowFirstSave struct {
	annotation.Backend
}

func (b slowFirstSave) Save(ctx context.Context, r domain.Rectangle, all []domain.Rectangle) error {
	if len(all) == 1 {
		time.Sleep(100 * time.Millisecond)
	}
	return b.Backend.Save(ctx, r, all)
}

func TestStore_SlowSaveDoesNotOverwriteNewerCollection(t *testing.T) {
	st, err := localstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local storage: %v", err)
	}
	local := localstore.NewBackend(st)
	s := annotation.New(quietLogger(), slowFirstSave{local})
	ctx := context.Background()

	s.Append(ctx, domain.Rectangle{Page: 1, X: 1, Y: 1, Width: 5, Height: 5})
	s.Append(ctx, domain.Rectangle{Page: 1, X: 9, Y: 9, Width: 5, Height: 5})
	waitSaves(t, s)

	persisted, err := local.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("expected both rectangles on disk, got %d (pending %v)", len(persisted), s.Pending())
	}
	if persisted[0].X != 1 || persisted[1].X != 9 {
		t.Errorf("expected insertion order on disk, got %+v", persisted)
	}
}
