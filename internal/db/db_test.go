package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/balkashynov/clockin/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(Options{
		Path:      filepath.Join(t.TempDir(), "clockin.db"),
		TxRetries: 3,
		PinCost:   4,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestResolveTaxonomy(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	wrp, err := d.CreateCategory(ctx, "WRP", "wrp")
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	hensley, err := d.CreateJobCode(ctx, wrp.ID, "Hensley", "HEN")
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}

	code, err := d.ResolveCode(ctx, hensley.ID)
	if err != nil {
		t.Fatalf("resolve code failed: %v", err)
	}
	if code.CategoryID != wrp.ID {
		t.Fatalf("expected category %d, got %d", wrp.ID, code.CategoryID)
	}

	if _, err := d.ResolveCategory(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// An inactive category hides its codes from new sessions but stays readable.
	if err := d.SetCategoryActive(ctx, wrp.ID, false); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if _, err := d.ResolveCode(ctx, hensley.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for code of inactive category, got %v", err)
	}
	if _, err := d.GetCategory(ctx, wrp.ID); err != nil {
		t.Fatalf("inactive category should still load: %v", err)
	}
}

func TestFindJobByNames(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	wrp, _ := d.CreateCategory(ctx, "WRP", "")
	kitchen, _ := d.CreateCategory(ctx, "Kitchen", "K")
	hensley, _ := d.CreateJobCode(ctx, wrp.ID, "Hensley", "")

	req, err := d.FindJobByNames(ctx, "hensley", "wrp")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if req.CategoryID != wrp.ID || req.CodeID != hensley.ID {
		t.Fatalf("unexpected request %+v", req)
	}

	req, err = d.FindJobByNames(ctx, "", "k")
	if err != nil {
		t.Fatalf("find by alias failed: %v", err)
	}
	if req.CategoryID != kitchen.ID || req.CodeID != 0 {
		t.Fatalf("unexpected request %+v", req)
	}

	req, err = d.FindJobByNames(ctx, "Hensley", "")
	if err != nil {
		t.Fatalf("find code alone failed: %v", err)
	}
	if req.CodeID != hensley.ID {
		t.Fatalf("unexpected request %+v", req)
	}

	if _, err := d.FindJobByNames(ctx, "Nope", "WRP"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImportJobCodesCSV(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	data := "\ufeffJobcodeLevel_0,JobcodeLevel_0_Alias,JobcodeLevel_1,JobcodeLevel_1_Alias\n" +
		"WRP,W,Hensley,HEN\n" +
		"WRP,W,Maple,MAP\n" +
		"Kitchen,K,,\n" +
		",,Orphan,\n"

	result, err := d.ImportJobCodesCSV(ctx, strings.NewReader(data))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.CategoriesCreated != 2 || result.CategoriesUpdated != 1 {
		t.Fatalf("unexpected category counts %+v", result)
	}
	if result.CodesCreated != 2 || result.CodesUpdated != 0 {
		t.Fatalf("unexpected code counts %+v", result)
	}

	// Second import updates instead of duplicating.
	result, err = d.ImportJobCodesCSV(ctx, strings.NewReader(data))
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if result.CategoriesCreated != 0 || result.CodesUpdated != 2 {
		t.Fatalf("unexpected re-import counts %+v", result)
	}

	categories, err := d.ListCategories(ctx, false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	if categories[1].Name != "WRP" || len(categories[1].JobCodes) != 2 {
		t.Fatalf("unexpected WRP listing %+v", categories[1])
	}

	if _, err := d.ImportJobCodesCSV(ctx, strings.NewReader("Name,Alias\nX,Y\n")); err == nil {
		t.Fatal("expected error for missing column")
	}
}

func TestResolveTagsDropsUnknownAndInactive(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	kitchen, _ := d.CreateCategory(ctx, "Kitchen", "")
	global, _ := d.CreateTag(ctx, CreateTagRequest{Name: "urgent"})
	scoped, _ := d.CreateTag(ctx, CreateTagRequest{Name: "prep", CategoryID: &kitchen.ID})
	retired, _ := d.CreateTag(ctx, CreateTagRequest{Name: "old"})
	if err := d.SetTagActive(ctx, retired.ID, false); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	tags, err := d.ResolveTags(ctx, []uint{global.ID, scoped.ID, retired.ID, 404})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}

	listed, err := d.ListTags(ctx, kitchen.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected global+scoped tags, got %d", len(listed))
	}

	ids, err := d.FindTagIDsByName(ctx, []string{"PREP", "urgent", "missing"}, kitchen.ID)
	if err != nil {
		t.Fatalf("find by name failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != scoped.ID || ids[1] != global.ID {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestEmployeePin(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	emp, err := d.CreateEmployee(ctx, "Ana", "Lopez", "")
	if err != nil {
		t.Fatalf("create employee failed: %v", err)
	}

	ok, err := d.VerifyPin(ctx, emp.ID, "")
	if err != nil || !ok {
		t.Fatalf("employee without PIN should verify, got %v %v", ok, err)
	}

	if err := d.SetPin(ctx, emp.ID, "12ab"); !errors.Is(err, ErrInvalidPin) {
		t.Fatalf("expected ErrInvalidPin, got %v", err)
	}
	if err := d.SetPin(ctx, emp.ID, "4821"); err != nil {
		t.Fatalf("set PIN failed: %v", err)
	}

	if ok, _ := d.VerifyPin(ctx, emp.ID, "4821"); !ok {
		t.Fatal("expected PIN to verify")
	}
	if ok, _ := d.VerifyPin(ctx, emp.ID, "0000"); ok {
		t.Fatal("expected wrong PIN to fail")
	}

	if err := d.ClearPin(ctx, emp.ID); err != nil {
		t.Fatalf("clear PIN failed: %v", err)
	}
	if ok, _ := d.VerifyPin(ctx, emp.ID, "anything"); !ok {
		t.Fatal("expected cleared PIN to verify")
	}

	if err := d.SetEmployeeActive(ctx, emp.ID, false); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if _, err := d.ActiveEmployee(ctx, emp.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive employee, got %v", err)
	}
}

func TestInScopeRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	wrp, _ := d.CreateCategory(ctx, "WRP", "")
	scope := models.EmployeeScope(1)
	boom := errors.New("boom")

	err := d.InScope(ctx, scope, func(tx SessionTx) error {
		s := &models.Session{CategoryID: wrp.ID, StartedAt: time.Now()}
		if err := tx.Create(s); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	open, err := d.OpenSessions(ctx, scope)
	if err != nil {
		t.Fatalf("open sessions failed: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected rollback, found %d sessions", len(open))
	}
}

func TestUpdateNeverReopensClosedSession(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	wrp, _ := d.CreateCategory(ctx, "WRP", "")
	scope := models.RoleScope()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	var id uint
	err := d.InScope(ctx, scope, func(tx SessionTx) error {
		s := &models.Session{CategoryID: wrp.ID, StartedAt: start}
		if err := tx.Create(s); err != nil {
			return err
		}
		if s.ScopeKey != models.RoleScopeKey || s.Category.Name != "WRP" {
			t.Errorf("create did not hydrate session: %+v", s)
		}
		id = s.ID
		s.Close(start.Add(time.Hour))
		return tx.Update(s)
	})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	err = d.InScope(ctx, scope, func(tx SessionTx) error {
		s, err := tx.Get(id)
		if err != nil {
			return err
		}
		s.Status = models.StatusOpen
		s.EndedAt = nil
		return tx.Update(s)
	})
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}

	s, err := d.SessionByID(ctx, id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.EndedAt == nil || !s.EndedAt.Equal(start.Add(time.Hour)) {
		t.Fatalf("end time changed: %v", s.EndedAt)
	}
}

func TestListSessionsLimitKeepsNewest(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	wrp, _ := d.CreateCategory(ctx, "WRP", "")
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	err := d.InScope(ctx, models.RoleScope(), func(tx SessionTx) error {
		for i := 0; i < 3; i++ {
			s := &models.Session{CategoryID: wrp.ID, StartedAt: start.Add(time.Duration(i) * time.Hour)}
			if err := tx.Create(s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	all, err := d.ListSessions(ctx, SessionFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != 1 || all[2].ID != 3 {
		t.Fatalf("expected 3 sessions oldest first, got %d", len(all))
	}

	newest, err := d.ListSessions(ctx, SessionFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(newest) != 2 || newest[0].ID != 2 || newest[1].ID != 3 {
		t.Fatalf("expected sessions #2 and #3 oldest first, got %+v", newest)
	}
}

func TestGetIsScoped(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	wrp, _ := d.CreateCategory(ctx, "WRP", "")

	var id uint
	d.InScope(ctx, models.EmployeeScope(1), func(tx SessionTx) error {
		s := &models.Session{CategoryID: wrp.ID, StartedAt: time.Now()}
		err := tx.Create(s)
		id = s.ID
		return err
	})

	err := d.InScope(ctx, models.EmployeeScope(2), func(tx SessionTx) error {
		_, err := tx.Get(id)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across scopes, got %v", err)
	}
}

func TestScopeLocksSerialize(t *testing.T) {
	locks := newScopeLocks()
	ctx := context.Background()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.lock(ctx, "employee:1")
			if err != nil {
				t.Errorf("lock failed: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxInside)
	}
	if len(locks.locks) != 0 {
		t.Fatalf("expected lock table to drain, %d left", len(locks.locks))
	}
}

func TestScopeLockHonoursContext(t *testing.T) {
	locks := newScopeLocks()
	unlock, err := locks.lock(context.Background(), "role")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := locks.lock(ctx, "role"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
