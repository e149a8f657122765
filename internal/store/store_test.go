package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/cdcat/internal/cat"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cdcat.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() *cat.RunResult {
	cfg := cat.Default()
	cfg.Strategy = "JSD"
	cfg.MaxItems = 2
	return &cat.RunResult{
		Config: cfg,
		Results: []cat.Result{
			{
				Examinee: 0,
				Items:    []int{3, 1},
				Steps: []cat.TraceStep{
					{Step: 1, Item: 3, QRow: []int{1, 1}, Response: 1, MAPLabel: "11", MAPProb: 0.6, Mastery: []int{1, 1}},
					{Step: 2, Item: 1, QRow: []int{1, 0}, Response: 1, MAPLabel: "11", MAPProb: 0.9, Mastery: []int{1, 1}},
				},
			},
			{Examinee: 1, Err: "examinee 2: degenerate posterior"},
		},
	}
}

func TestRunRepo_SaveAndLoad(t *testing.T) {
	repo := openTestStore(t).RunRepo()
	ctx := context.Background()

	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	if err := repo.Save(ctx, "run-1", created, sampleRun()); err != nil {
		t.Fatal(err)
	}

	loaded, err := repo.Load(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Config.Strategy != "JSD" || loaded.Config.MaxItems != 2 {
		t.Errorf("loaded config %+v does not match saved config", loaded.Config)
	}
	if len(loaded.Results) != 2 {
		t.Fatalf("loaded %d results, want 2", len(loaded.Results))
	}
	if got := loaded.Results[0].Items; len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Errorf("loaded items %v, want [3 1]", got)
	}
	if loaded.Results[0].Steps[1].MAPProb != 0.9 {
		t.Errorf("trace round-trip lost MAP probability")
	}
	if !loaded.Results[1].Failed() {
		t.Error("failed result lost its error on round-trip")
	}
}

func TestRunRepo_List(t *testing.T) {
	repo := openTestStore(t).RunRepo()
	ctx := context.Background()

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Save(ctx, "run-a", early, sampleRun()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, "run-b", late, sampleRun()); err != nil {
		t.Fatal(err)
	}

	runs, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("listed %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-b" {
		t.Errorf("most recent run first: got %s", runs[0].ID)
	}
	if runs[0].Examinees != 2 || runs[0].Strategy != "JSD" {
		t.Errorf("summary %+v does not match saved run", runs[0])
	}
}

func TestRunRepo_LoadMissing(t *testing.T) {
	repo := openTestStore(t).RunRepo()
	if _, err := repo.Load(context.Background(), "nope"); err == nil {
		t.Error("loading a missing run should fail")
	}
}

func TestRunRepo_DuplicateID(t *testing.T) {
	repo := openTestStore(t).RunRepo()
	ctx := context.Background()
	now := time.Now()
	if err := repo.Save(ctx, "dup", now, sampleRun()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, "dup", now, sampleRun()); err == nil {
		t.Error("duplicate run ID should fail")
	}
}
