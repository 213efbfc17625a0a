package ops

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "accounts", "acc-1.json"), `{"name":"Acme"}`)
	writeFile(t, filepath.Join(dataDir, "accounts", "acc-2.json"), `{"name":"Globex"}`)
	writeFile(t, filepath.Join(dataDir, "devices", "dev-1.json"), `{"name":"Sensor"}`)
	// non-record files must not travel through a backup
	writeFile(t, filepath.Join(dataDir, "accounts", "junk.txt"), "stray")

	archive := filepath.Join(t.TempDir(), "backups", "rbac.tar.gz")
	if err := BackupRecordDirs(dataDir, archive); err != nil {
		t.Fatalf("backup: %v", err)
	}

	restoreDir := t.TempDir()
	if err := RestoreRecordDirs(archive, restoreDir); err != nil {
		t.Fatalf("restore: %v", err)
	}

	for _, rel := range []string{
		filepath.Join("accounts", "acc-1.json"),
		filepath.Join("accounts", "acc-2.json"),
		filepath.Join("devices", "dev-1.json"),
	} {
		want, err := os.ReadFile(filepath.Join(dataDir, rel))
		if err != nil {
			t.Fatalf("read original %s: %v", rel, err)
		}
		got, err := os.ReadFile(filepath.Join(restoreDir, rel))
		if err != nil {
			t.Fatalf("read restored %s: %v", rel, err)
		}
		if string(got) != string(want) {
			t.Fatalf("restored %s differs: %q != %q", rel, got, want)
		}
	}

	if _, err := os.Stat(filepath.Join(restoreDir, "accounts", "junk.txt")); !os.IsNotExist(err) {
		t.Fatalf("stray file survived the round trip")
	}
}

func TestBackupMissingDataDir(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "out.tar.gz")
	if err := BackupRecordDirs(filepath.Join(t.TempDir(), "absent"), archive); err == nil {
		t.Fatalf("expected error for missing data dir")
	}
}

func TestInventoryCountsRecordsPerType(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "accounts", "a.json"), `{}`)
	writeFile(t, filepath.Join(dataDir, "accounts", "b.json"), `{}`)
	writeFile(t, filepath.Join(dataDir, "accounts", "notes.md"), "x")
	writeFile(t, filepath.Join(dataDir, "devices", "d.json"), `{}`)
	writeFile(t, filepath.Join(dataDir, "stray.json"), `{}`)

	counts, types, err := Inventory(dataDir)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(types) != 2 || types[0] != "accounts" || types[1] != "devices" {
		t.Fatalf("types = %v", types)
	}
	if counts["accounts"] != 2 {
		t.Fatalf("accounts count = %d", counts["accounts"])
	}
	if counts["devices"] != 1 {
		t.Fatalf("devices count = %d", counts["devices"])
	}
}

func TestRestoreRejectsEscapingPaths(t *testing.T) {
	if _, err := sanitizeArchiveRelPath("../escape.json"); err == nil {
		t.Fatalf("expected error for path traversal entry")
	}
	if _, err := sanitizeArchiveRelPath("/abs/path.json"); err == nil {
		t.Fatalf("expected error for absolute entry")
	}
}
