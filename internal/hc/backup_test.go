package hc

import (
	"strconv"
	"testing"
)

func TestBackupID(t *testing.T) {
	a := BackupID("/home/u/photos", "/mnt/disk/photos")
	if a != BackupID("/home/u/photos", "/mnt/disk/photos") {
		t.Error("BackupID is not deterministic")
	}
	if a == BackupID("/home/u/photos", "/mnt/other/photos") {
		t.Error("different destinations share an id")
	}
	// The separator keeps the boundary between the two paths significant.
	if BackupID("/a/b", "c") == BackupID("/a", "b/c") {
		t.Error("ids collide when the boundary moves")
	}
}

func TestParseBackupID(t *testing.T) {
	id := BackupID("/src", "/dst/src")

	got, err := ParseBackupID(strconv.FormatUint(id, 10))
	if err != nil {
		t.Fatalf("ParseBackupID() error = %v", err)
	}
	if got != id {
		t.Errorf("ParseBackupID() = %d, want %d", got, id)
	}

	for _, bad := range []string{"", "-1", "abc", "18446744073709551616"} {
		if _, err := ParseBackupID(bad); err == nil {
			t.Errorf("ParseBackupID(%q) expected error", bad)
		}
	}
}
