package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")

	store, err := Open(path)

	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2020, 9, 12, 14, 10, 0, 0, time.UTC)

	older := &Recording{
		ID:        uuid.New(),
		Path:      "captures/older.cap",
		StartedAt: start,
		StoppedAt: start.Add(time.Minute),
		Frames:    3600,
		Bytes:     3600 * 1289,
	}

	newer := &Recording{
		ID:        uuid.New(),
		Path:      "captures/newer.cap",
		StartedAt: start.Add(time.Hour),
	}

	for _, r := range []*Recording{older, newer} {
		if err := store.UpsertRecording(r); err != nil {
			t.Fatal(err)
		}
	}

	if !newer.InProgress() || older.InProgress() {
		t.Error("unexpected in progress state")
	}

	newer.StoppedAt = newer.StartedAt.Add(time.Second)
	newer.Frames = 60
	newer.Error = "disk full"

	if err := store.UpsertRecording(newer); err != nil {
		t.Fatal(err)
	}

	t.Run("Load", func(t *testing.T) {
		loaded, err := store.LoadRecording(newer.ID)

		if err != nil {
			t.Fatal(err)
		}

		if loaded.Frames != 60 || loaded.Error != "disk full" || !loaded.StoppedAt.Equal(newer.StoppedAt) {
			t.Errorf("unexpected recording %+v", loaded)
		}

		if _, err := store.LoadRecording(uuid.New()); !errors.Is(err, ErrRecordingNotFound) {
			t.Errorf("expected ErrRecordingNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		recordings, err := store.ListRecordings()

		if err != nil {
			t.Fatal(err)
		}

		if len(recordings) != 2 {
			t.Fatalf("expected 2 recordings, got %d", len(recordings))
		}

		if recordings[0].ID != newer.ID || recordings[1].ID != older.ID {
			t.Error("expected recordings most recent first")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.DeleteRecording(older.ID); err != nil {
			t.Fatal(err)
		}

		if err := store.DeleteRecording(older.ID); !errors.Is(err, ErrRecordingNotFound) {
			t.Errorf("expected ErrRecordingNotFound, got %v", err)
		}
	})

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)

	if err != nil {
		t.Fatal(err)
	}

	defer reopened.Close()

	recordings, err := reopened.ListRecordings()

	if err != nil {
		t.Fatal(err)
	}

	if len(recordings) != 1 || recordings[0].ID != newer.ID {
		t.Errorf("expected the catalog to persist, got %+v", recordings)
	}
}
