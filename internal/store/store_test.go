package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/tasklist/internal/todo"
)

// backends opens a fresh store of every file-backed kind.
func backends(t *testing.T) map[string]todo.Store {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	jsonStore, err := Open(ctx, Options{Driver: DriverJSON, Path: filepath.Join(dir, "todo.json")})
	if err != nil {
		t.Fatalf("open json store: %v", err)
	}
	sqliteStore, err := Open(ctx, Options{Driver: DriverSQLite, Path: filepath.Join(dir, "todo.db")})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		jsonStore.Close()
		sqliteStore.Close()
	})

	return map[string]todo.Store{
		DriverJSON:   jsonStore,
		DriverSQLite: sqliteStore,
	}
}

func date(s string) todo.Date {
	d, err := todo.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustCreate(t *testing.T, s todo.Store, desc, deadline string) todo.Task {
	t.Helper()
	task, err := s.Create(context.Background(), desc, date(deadline))
	if err != nil {
		t.Fatalf("Create(%q, %s) failed: %v", desc, deadline, err)
	}
	return task
}

func descriptions(tasks []todo.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Description
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStoreCreateAndListOn(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created := mustCreate(t, s, "Buy milk", "2024-01-10")
			if created.ID == 0 {
				t.Fatal("expected a non-zero id")
			}
			mustCreate(t, s, "Other day", "2024-01-11")
			mustCreate(t, s, "Call mom", "2024-01-10")

			got, err := s.ListOn(ctx, date("2024-01-10"))
			if err != nil {
				t.Fatalf("ListOn failed: %v", err)
			}
			want := []string{"Buy milk", "Call mom"}
			if !equalStrings(descriptions(got), want) {
				t.Errorf("ListOn: got %v, want %v", descriptions(got), want)
			}
			if got[0].Deadline != date("2024-01-10") {
				t.Errorf("deadline: got %s, want 2024-01-10", got[0].Deadline)
			}

			empty, err := s.ListOn(ctx, date("1999-12-31"))
			if err != nil {
				t.Fatalf("ListOn empty failed: %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("expected no tasks, got %v", descriptions(empty))
			}
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			created := mustCreate(t, s, "  spaces and ünïcode ", "2024-02-29")

			got, ok, err := s.Get(context.Background(), created.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !ok {
				t.Fatal("expected task to be found")
			}
			if got != created {
				t.Errorf("Get: got %+v, want %+v", got, created)
			}

			if _, ok, err := s.Get(context.Background(), created.ID+100); err != nil || ok {
				t.Errorf("Get unknown id: got (%v, %v), want (false, nil)", ok, err)
			}
		})
	}
}

func TestStoreListAllOrdering(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			mustCreate(t, s, "c", "2024-03-01")
			mustCreate(t, s, "a", "2023-12-31")
			mustCreate(t, s, "d", "2024-03-01")
			mustCreate(t, s, "b", "2024-01-15")

			all, err := s.ListAll(context.Background())
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			want := []string{"a", "b", "c", "d"}
			if !equalStrings(descriptions(all), want) {
				t.Errorf("ListAll: got %v, want %v", descriptions(all), want)
			}
			for i := 1; i < len(all); i++ {
				if all[i].Deadline.Before(all[i-1].Deadline) {
					t.Errorf("ListAll not ordered at %d: %s before %s", i, all[i].Deadline, all[i-1].Deadline)
				}
			}
		})
	}
}

func TestStoreListOverdue(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			mustCreate(t, s, "due today", "2024-01-10")
			mustCreate(t, s, "yesterday", "2024-01-09")
			mustCreate(t, s, "last year", "2023-01-09")
			mustCreate(t, s, "tomorrow", "2024-01-11")

			asOf := date("2024-01-10")
			missed, err := s.ListOverdue(context.Background(), asOf)
			if err != nil {
				t.Fatalf("ListOverdue failed: %v", err)
			}
			want := []string{"last year", "yesterday"}
			if !equalStrings(descriptions(missed), want) {
				t.Errorf("ListOverdue: got %v, want %v", descriptions(missed), want)
			}
			for _, task := range missed {
				if !task.Deadline.Before(asOf) {
					t.Errorf("ListOverdue returned %s due %s", task.Description, task.Deadline)
				}
			}
		})
	}
}

func TestStoreListRange(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			mustCreate(t, s, "monday", "2024-01-08")
			mustCreate(t, s, "wednesday", "2024-01-10")
			mustCreate(t, s, "monday again", "2024-01-08")

			dates := []todo.Date{date("2024-01-10"), date("2024-01-09"), date("2024-01-08"), date("2024-01-10")}
			days, err := s.ListRange(context.Background(), dates)
			if err != nil {
				t.Fatalf("ListRange failed: %v", err)
			}
			if len(days) != len(dates) {
				t.Fatalf("ListRange: got %d days, want %d", len(days), len(dates))
			}
			for i, day := range days {
				if day.Date != dates[i] {
					t.Errorf("day %d: got %s, want %s", i, day.Date, dates[i])
				}
			}
			if !equalStrings(descriptions(days[0].Tasks), []string{"wednesday"}) {
				t.Errorf("day 0: got %v", descriptions(days[0].Tasks))
			}
			if len(days[1].Tasks) != 0 {
				t.Errorf("day 1: expected empty, got %v", descriptions(days[1].Tasks))
			}
			if !equalStrings(descriptions(days[2].Tasks), []string{"monday", "monday again"}) {
				t.Errorf("day 2: got %v", descriptions(days[2].Tasks))
			}
			if !equalStrings(descriptions(days[3].Tasks), []string{"wednesday"}) {
				t.Errorf("duplicate date: got %v", descriptions(days[3].Tasks))
			}

			none, err := s.ListRange(context.Background(), nil)
			if err != nil || len(none) != 0 {
				t.Errorf("ListRange(nil): got (%v, %v)", none, err)
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			keep := mustCreate(t, s, "keep", "2024-01-10")
			drop := mustCreate(t, s, "drop", "2024-01-10")

			if err := s.Delete(ctx, drop.ID); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			all, err := s.ListAll(ctx)
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			for _, task := range all {
				if task.ID == drop.ID {
					t.Errorf("deleted task %d still listed", drop.ID)
				}
			}
			if _, ok, _ := s.Get(ctx, drop.ID); ok {
				t.Error("deleted task still readable")
			}

			// Unknown ids are a no-op.
			if err := s.Delete(ctx, drop.ID); err != nil {
				t.Errorf("Delete of deleted id: %v", err)
			}
			if err := s.Delete(ctx, 9999); err != nil {
				t.Errorf("Delete of unknown id: %v", err)
			}
			after, err := s.ListAll(ctx)
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			if len(after) != 1 || after[0] != keep {
				t.Errorf("store changed by no-op delete: %+v", after)
			}
		})
	}
}

func TestStoreIDsNotReused(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := mustCreate(t, s, "first", "2024-01-10")
			second := mustCreate(t, s, "second", "2024-01-10")
			if second.ID <= first.ID {
				t.Fatalf("ids not increasing: %d then %d", first.ID, second.ID)
			}
			if err := s.Delete(ctx, second.ID); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			third := mustCreate(t, s, "third", "2024-01-10")
			if third.ID <= second.ID {
				t.Errorf("id %d reused or decreased after deleting %d", third.ID, second.ID)
			}
		})
	}
}

func TestStoreRejectsZeroDeadline(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(context.Background(), "no date", todo.Date{})
			var inputErr *todo.InvalidInputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected InvalidInputError, got %v", err)
			}
			all, _ := s.ListAll(context.Background())
			if len(all) != 0 {
				t.Errorf("store should be unchanged, has %d tasks", len(all))
			}
		})
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	for _, driver := range []string{DriverJSON, DriverSQLite} {
		for _, dir := range []string{"plain", "my#dir", "a?b"} {
			t.Run(driver+"/"+dir, func(t *testing.T) {
				if runtime.GOOS == "windows" && strings.Contains(dir, "?") {
					t.Skip("'?' is not allowed in Windows file names")
				}
				path := filepath.Join(t.TempDir(), dir, "todo."+driver)
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
				persistAcrossReopen(t, Options{Driver: driver, Path: path})
			})
		}
	}
}

func persistAcrossReopen(t *testing.T, opts Options) {
	t.Helper()
	ctx := context.Background()

	s, err := Open(ctx, opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	created := mustCreate(t, s, "persist me", "2024-01-10")
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(opts.Path); err != nil {
		t.Fatalf("store file not at configured path: %v", err)
	}

	reopened, err := Open(ctx, opts)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if got != created {
		t.Errorf("after reopen: got %+v, want %+v", got, created)
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
			defer cancel()
			<-ctx.Done()
			if _, err := s.ListAll(ctx); err == nil {
				t.Error("expected error with canceled context")
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle", Path: "x"})
	var storageErr *todo.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	for _, driver := range []string{DriverMySQL, DriverPostgres} {
		_, err := Open(context.Background(), Options{Driver: driver})
		var storageErr *todo.StorageError
		if !errors.As(err, &storageErr) {
			t.Errorf("%s: expected StorageError, got %v", driver, err)
		}
	}
}

func TestRebind(t *testing.T) {
	query := `SELECT id FROM task WHERE deadline IN (` + inList(3) + `) AND id = ?`

	if got := dialects[DriverSQLite].rebind(query); got != query {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	want := `SELECT id FROM task WHERE deadline IN ($1, $2, $3) AND id = $4`
	if got := dialects[DriverPostgres].rebind(query); got != want {
		t.Errorf("postgres rebind: got %s, want %s", got, want)
	}
	if inList(0) != "" {
		t.Errorf("inList(0): got %q", inList(0))
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/todo.db", "file:/tmp/todo.db?_pragma=busy_timeout%285000%29"},
		{"/tmp/my#dir/todo.db", "file:/tmp/my%23dir/todo.db?_pragma=busy_timeout%285000%29"},
		{"/tmp/a?b/todo.db", "file:/tmp/a%3Fb/todo.db?_pragma=busy_timeout%285000%29"},
		{"/tmp/with space/todo.db", "file:/tmp/with%20space/todo.db?_pragma=busy_timeout%285000%29"},
	}
	for _, tt := range tests {
		if got := SQLiteDSN(tt.path); got != tt.want {
			t.Errorf("SQLiteDSN(%q): got %q, want %q", tt.path, got, tt.want)
		}
	}
}
