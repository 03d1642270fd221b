package fsstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadWriteTextAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "session.txt")
	const content = "opaque-session-token\n"

	if err := WriteTextAtomic(path, content, FileOptions{}); err != nil {
		t.Fatalf("WriteTextAtomic() error = %v", err)
	}
	got, found, err := ReadText(path)
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if !found {
		t.Fatalf("ReadText() found = false, want true")
	}
	if got != content {
		t.Fatalf("ReadText() = %q, want %q", got, content)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := st.Mode().Perm(); perm != 0o600 {
		t.Fatalf("file perm = %o, want 600", perm)
	}
}

func TestReadTextMissing(t *testing.T) {
	t.Parallel()

	_, found, err := ReadText(filepath.Join(t.TempDir(), "absent.txt"))
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if found {
		t.Fatalf("ReadText() found = true, want false")
	}
}

func TestReadWriteJSONAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	in := payload{Name: "alpha", Count: 3}

	if err := WriteJSONAtomic(path, in, FileOptions{}); err != nil {
		t.Fatalf("WriteJSONAtomic() error = %v", err)
	}
	var out payload
	found, err := ReadJSON(path, &out)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !found {
		t.Fatalf("ReadJSON() found = false, want true")
	}
	if out != in {
		t.Fatalf("ReadJSON() = %+v, want %+v", out, in)
	}
}

func TestReadJSONEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	var out map[string]any
	found, err := ReadJSON(path, &out)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if found {
		t.Fatalf("ReadJSON() found = true, want false for blank file")
	}
}

func TestWriteAtomicInvalidPath(t *testing.T) {
	t.Parallel()

	if err := WriteTextAtomic("   ", "x", FileOptions{}); err == nil {
		t.Fatalf("WriteTextAtomic(blank path) expected error")
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	t.Parallel()

	if err := Remove(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
}
