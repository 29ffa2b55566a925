package save

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/research"
)

// fakeClock returns strictly increasing times, one second apart.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

var testPinned = map[string]int{"farming_1": 1, "construction_1": 3, "leadership_1": 5}

func testOptions() Options {
	return Options{Pinned: testPinned, Now: newFakeClock().Now}
}

// runStoreTests exercises the Store contract against s, which must be empty.
func runStoreTests(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("CreateAndLoad", func(t *testing.T) {
		sv, err := s.Create(ctx, "  Rome  ")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if !strings.HasPrefix(sv.ID, "save_") || sv.Name != "Rome" || sv.Meta.Version != FormatVersion {
			t.Errorf("Create = %+v", sv)
		}
		if !sv.Research.IsZero() {
			t.Errorf("new save has research %+v", sv.Research)
		}

		loaded, err := s.Load(ctx, sv.ID)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got := loaded.Research.UnlockedIDs(); !slices.Equal(got, []string{"construction_1", "farming_1", "leadership_1"}) {
			t.Errorf("seeded unlocked = %v", got)
		}
		if !loaded.Meta.LastPlayedAt.After(sv.Meta.LastPlayedAt) {
			t.Errorf("LastPlayedAt not bumped: %v -> %v", sv.Meta.LastPlayedAt, loaded.Meta.LastPlayedAt)
		}

		// The seed is persisted.
		again, err := s.Load(ctx, sv.ID)
		if err != nil {
			t.Fatalf("Load again: %v", err)
		}
		if len(again.Research.Unlocked) != 3 || !again.Meta.UpdatedAt.Equal(loaded.Meta.UpdatedAt) {
			t.Errorf("second load = %+v", again)
		}
		if err := s.Delete(ctx, sv.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	})

	t.Run("DefaultName", func(t *testing.T) {
		sv, err := s.Create(ctx, "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if sv.Name != DefaultName {
			t.Errorf("Name = %q", sv.Name)
		}
		if err := s.Delete(ctx, sv.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	})

	t.Run("Limit", func(t *testing.T) {
		var ids []string
		for i := range MaxSaves {
			sv, err := s.Create(ctx, string(rune('A'+i)))
			if err != nil {
				t.Fatalf("Create #%d: %v", i+1, err)
			}
			ids = append(ids, sv.ID)
		}
		if _, err := s.Create(ctx, "one too many"); !errors.Is(err, errors.ErrCodeSaveLimit) {
			t.Fatalf("Create beyond limit err = %v, want SAVE_LIMIT", err)
		}

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != MaxSaves || list[0].ID != ids[MaxSaves-1] {
			t.Errorf("List = %+v, want most recent first", list)
		}

		if _, err := s.Load(ctx, ids[0]); err != nil {
			t.Fatalf("Load: %v", err)
		}
		list, _ = s.List(ctx)
		if list[0].ID != ids[0] {
			t.Errorf("List[0] = %s, want last played %s", list[0].ID, ids[0])
		}

		if err := s.Delete(ctx, ids[1]); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		sv, err := s.Create(ctx, "after delete")
		if err != nil {
			t.Fatalf("Create after delete: %v", err)
		}
		for _, id := range []string{ids[0], ids[2], sv.ID} {
			if err := s.Delete(ctx, id); err != nil {
				t.Fatalf("Delete %s: %v", id, err)
			}
		}
	})

	t.Run("UpdateResearch", func(t *testing.T) {
		sv, err := s.Create(ctx, "Carthage")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		state := research.Default(testPinned)
		state.Researching["farming_2"] = true

		updated, err := s.UpdateResearch(ctx, sv.ID, state)
		if err != nil {
			t.Fatalf("UpdateResearch: %v", err)
		}
		if !updated.Research.IsResearching("farming_2") || !updated.Meta.UpdatedAt.After(sv.Meta.UpdatedAt) {
			t.Errorf("UpdateResearch = %+v", updated)
		}

		loaded, err := s.Load(ctx, sv.ID)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !loaded.Research.IsResearching("farming_2") || !loaded.Research.IsUnlocked("leadership_1") {
			t.Errorf("loaded research = %+v", loaded.Research)
		}
		if err := s.Delete(ctx, sv.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		id := NewID()
		if _, err := s.Load(ctx, id); !errors.Is(err, errors.ErrCodeSaveNotFound) {
			t.Errorf("Load err = %v", err)
		}
		if err := s.Delete(ctx, id); !errors.Is(err, errors.ErrCodeSaveNotFound) {
			t.Errorf("Delete err = %v", err)
		}
		if _, err := s.UpdateResearch(ctx, id, research.State{}); !errors.Is(err, errors.ErrCodeSaveNotFound) {
			t.Errorf("UpdateResearch err = %v", err)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		if _, err := s.Load(ctx, "../etc/passwd"); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Load err = %v", err)
		}
		if _, err := s.Create(ctx, "bad\x00name"); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Create err = %v", err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "saves.db"), testOptions())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	runStoreTests(t, s)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	ctx := context.Background()

	s, err := OpenSQLite(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	sv, err := s.Create(ctx, "Persisted")
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != sv.ID || list[0].Name != "Persisted" {
		t.Errorf("List after reopen = %+v", list)
	}
}

func TestSQLiteStoreConcurrentCreate(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "saves.db"), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Create(context.Background(), "racer"); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != MaxSaves {
		t.Errorf("created %d saves, want %d", created, MaxSaves)
	}
}
