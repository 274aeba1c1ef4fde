package metastore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"timelens/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "data", "generated-videos.json"))
}

func sampleEntry() model.VideoMetadataEntry {
	return model.VideoMetadataEntry{
		SpotID:    "ferry-building",
		EraID:     "gold-rush",
		Prompt:    "a bustling 1850s waterfront",
		Status:    model.StatusGenerating,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func TestUpsertThenGetRoundTrip(t *testing.T) {
	store := testStore(t)

	entry := sampleEntry()
	if err := store.Upsert(entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := store.Get(entry.SpotID, entry.EraID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected entry to exist")
	}
	if got != entry {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, entry)
	}
}

func TestUpsertTwiceKeepsOneRecord(t *testing.T) {
	store := testStore(t)

	entry := sampleEntry()
	if err := store.Upsert(entry); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	entry.Status = model.StatusReady
	entry.LocalPath = "static/videos/ferry-building-gold-rush.mp4"
	entry.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	if err := store.Upsert(entry); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	all, err := store.GetAll()
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(all))
	}
	if all[0].Status != model.StatusReady {
		t.Fatalf("expected updated status, got %q", all[0].Status)
	}
}

func TestGetAllCreatesMissingDocument(t *testing.T) {
	store := testStore(t)

	all, err := store.GetAll()
	if err != nil {
		t.Fatalf("get all on fresh store: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d entries", len(all))
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Fatalf("expected backing document to be created: %v", err)
	}
}

func TestMarkFailedSynthesizesMinimalRecord(t *testing.T) {
	store := testStore(t)

	if err := store.MarkFailed("chinatown", "early-days", "submission refused"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	got, ok, err := store.Get("chinatown", "early-days")
	if err != nil || !ok {
		t.Fatalf("get after mark failed: ok=%v err=%v", ok, err)
	}
	if got.Status != model.StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.Error != "submission refused" {
		t.Fatalf("error = %q", got.Error)
	}
	if got.Prompt != "" || got.LocalPath != "" {
		t.Fatalf("expected empty prompt/path, got %+v", got)
	}
	if got.CreatedAt == "" || got.CompletedAt == "" {
		t.Fatalf("expected timestamps to be set, got %+v", got)
	}
}

func TestMarkFailedPreservesExistingFields(t *testing.T) {
	store := testStore(t)

	entry := sampleEntry()
	entry.TaskID = "task-123"
	if err := store.Upsert(entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.MarkFailed(entry.SpotID, entry.EraID, "poll timed out"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	got, _, err := store.Get(entry.SpotID, entry.EraID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Prompt != entry.Prompt {
		t.Fatalf("prompt not preserved: %q", got.Prompt)
	}
	if got.TaskID != "task-123" {
		t.Fatalf("taskId not preserved: %q", got.TaskID)
	}
	if got.Status != model.StatusFailed || got.Error != "poll timed out" {
		t.Fatalf("unexpected terminal state: %+v", got)
	}
}

func TestByStatusFilters(t *testing.T) {
	store := testStore(t)

	generating := sampleEntry()
	if err := store.Upsert(generating); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	ready := sampleEntry()
	ready.SpotID = "alcatraz"
	ready.Status = model.StatusReady
	ready.LocalPath = "static/videos/alcatraz-gold-rush.mp4"
	if err := store.Upsert(ready); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.ByStatus(model.StatusReady)
	if err != nil {
		t.Fatalf("by status: %v", err)
	}
	if len(got) != 1 || got[0].SpotID != "alcatraz" {
		t.Fatalf("ByStatus(ready) = %+v", got)
	}
	if empty, _ := store.ByStatus(model.StatusFailed); len(empty) != 0 {
		t.Fatalf("ByStatus(failed) = %+v", empty)
	}
}

func TestInvalidateCacheRereadsFromDisk(t *testing.T) {
	store := testStore(t)

	if err := store.Upsert(sampleEntry()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Simulate a sibling process rewriting the document.
	sibling := New(store.Path())
	other := sampleEntry()
	other.SpotID = "alcatraz"
	if err := sibling.Upsert(other); err != nil {
		t.Fatalf("sibling upsert: %v", err)
	}

	all, err := store.GetAll()
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected stale cache to hide sibling write, got %d entries", len(all))
	}

	store.InvalidateCache()
	all, err = store.GetAll()
	if err != nil {
		t.Fatalf("get all after invalidate: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected fresh read to see sibling write, got %d entries", len(all))
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store := testStore(t)
	if err := store.Upsert(sampleEntry()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".timelens-tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestUpsertRejectsInvalidEntries(t *testing.T) {
	store := testStore(t)

	bad := model.VideoMetadataEntry{SpotID: "a", EraID: "b", Status: model.StatusReady}
	if err := store.Upsert(bad); err == nil {
		t.Fatalf("expected ready entry without localPath to be rejected")
	}
}
