package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retrofit-labs/carcomms"
)

func TestFileStore(t *testing.T) {
	dir, err := os.MkdirTemp("", "carcomms-store")
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	defer os.RemoveAll(dir)

	fn := filepath.Join(dir, "nvs", "store.json")
	s := NewFile(fn)

	if _, err := s.Get("bt_devices", "devices"); !errors.Is(err, carcomms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound but got %v", err)
	}

	blob := []byte{0, 1, 2, 0xff}
	if err := s.Put("bt_devices", "devices", blob); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if err := s.Put("other", "devices", []byte{9}); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}

	// a fresh instance reads what the first one wrote
	got, err := NewFile(fn).Get("bt_devices", "devices")
	if err != nil {
		t.Fatalf("expected to find blob but did not: %s", err)
	}
	if !bytes.Equal(got, blob) {
		t.Fatalf("stored and loaded blobs are not equal: % x", got)
	}

	if _, err := os.Stat(fn + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temporary file to be gone")
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	dir, err := os.MkdirTemp("", "carcomms-store")
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	defer os.RemoveAll(dir)

	fn := filepath.Join(dir, "store.json")
	os.WriteFile(fn, []byte("{not json"), 0644)

	if _, err := NewFile(fn).Get("a", "b"); err == nil || errors.Is(err, carcomms.ErrNotFound) {
		t.Fatalf("expected decode error but got %v", err)
	}
}

func TestFileStoreNullNamespace(t *testing.T) {
	dir, err := os.MkdirTemp("", "carcomms-store")
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	defer os.RemoveAll(dir)

	fn := filepath.Join(dir, "store.json")
	os.WriteFile(fn, []byte(`{"bt_devices": null}`), 0644)

	s := NewFile(fn)
	if err := s.Put("bt_devices", "devices", []byte{1, 2}); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	b, err := s.Get("bt_devices", "devices")
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if !bytes.Equal(b, []byte{1, 2}) {
		t.Fatalf("expected [1 2] but got %v", b)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get("a", "b"); !errors.Is(err, carcomms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound but got %v", err)
	}

	in := []byte{1, 2}
	m.Put("a", "b", in)
	in[0] = 9

	got, _ := m.Get("a", "b")
	if !bytes.Equal(got, []byte{1, 2}) {
		t.Fatalf("expected stored copy [1 2] but got %v", got)
	}

	worn := errors.New("flash worn out")
	m.FailPuts(worn)
	if err := m.Put("a", "b", []byte{3}); !errors.Is(err, worn) {
		t.Fatalf("expected injected error but got %v", err)
	}
	if m.Puts() != 1 {
		t.Fatalf("expected 1 successful put but got %d", m.Puts())
	}
}
