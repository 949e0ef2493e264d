package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestFilePersisterMissingFileIsEmpty(t *testing.T) {
	persister, err := NewFilePersister(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewFilePersister: %v", err)
	}

	snapshot, err := persister.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot.Records) != 0 || snapshot.Locale != "" || snapshot.Session != nil {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}
}

func TestFilePersisterCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	persister, err := NewFilePersister(path)
	if err != nil {
		t.Fatalf("NewFilePersister: %v", err)
	}

	if _, err := persister.Load(); err == nil {
		t.Fatal("expected decode error for corrupt snapshot")
	}
}

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	persister, err := NewFilePersister(path)
	if err != nil {
		t.Fatalf("NewFilePersister: %v", err)
	}

	saved := Snapshot{
		Records: []domain.ComplaintRecord{testRecord("r1")},
		Locale:  "hi",
		Session: &domain.Session{Email: "pm@example.com", Name: "PM", Role: domain.RoleOfficer},
	}
	if err := persister.Save(saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind after save")
	}

	loaded, err := persister.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Records) != 1 || loaded.Records[0].ID != "r1" {
		t.Fatalf("records did not survive round trip: %+v", loaded.Records)
	}
	if loaded.Locale != "hi" {
		t.Fatalf("locale = %q, want hi", loaded.Locale)
	}
	if loaded.Session == nil || loaded.Session.Role != domain.RoleOfficer {
		t.Fatalf("session did not survive round trip: %+v", loaded.Session)
	}
}
