package audioio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestScratch_WriteAndRelease(t *testing.T) {
	scratch, err := NewScratch(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewScratch failed: %v", err)
	}

	a, err := scratch.Write([]byte("hello"), ".mp3")
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Ext(a.Path) != ".mp3" {
		t.Errorf("Expected .mp3 extension, got %s", a.Path)
	}
	if filepath.Dir(a.Path) != scratch.Dir() {
		t.Errorf("Expected artifact under %s, got %s", scratch.Dir(), a.Path)
	}

	b, _ := scratch.Write([]byte("hello"), "mp3")
	if a.Path == b.Path {
		t.Error("Expected unique artifact names")
	}
	if len(scratch.Live()) != 2 {
		t.Errorf("Expected 2 live artifacts, got %d", len(scratch.Live()))
	}

	if err := a.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(a.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected file removed, stat err %v", err)
	}

	// Releasing twice is a no-op
	if err := a.Release(); err != nil {
		t.Errorf("Second Release failed: %v", err)
	}

	// A file removed behind our back still counts as released
	os.Remove(b.Path)
	if err := b.Release(); err != nil {
		t.Errorf("Release of missing file failed: %v", err)
	}
	if len(scratch.Live()) != 0 {
		t.Errorf("Expected no live artifacts, got %v", scratch.Live())
	}
}

func TestScratch_NilArtifactRelease(t *testing.T) {
	var a *Artifact
	if err := a.Release(); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestScratch_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	os.WriteFile(blocker, []byte("x"), 0o600)

	_, err := NewScratch(filepath.Join(blocker, "sub"), nil)
	if !errors.Is(err, ErrFileSystem) {
		t.Errorf("Expected ErrFileSystem, got %v", err)
	}
}

func TestScratch_PersistWAV(t *testing.T) {
	scratch, _ := NewScratch(t.TempDir(), nil)

	chunk := &AudioChunk{Samples: make([]int16, 44100), SampleRate: 44100, Channels: 1}
	a, err := scratch.Persist(chunk)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	defer a.Release()

	data, err := os.ReadFile(a.Path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 44+44100*2 {
		t.Errorf("Expected %d bytes, got %d", 44+44100*2, len(data))
	}
	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		t.Error("Missing RIFF/WAVE header")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 44100 {
		t.Errorf("Expected rate 44100 in header, got %d", rate)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != 88200 {
		t.Errorf("Expected data size 88200, got %d", size)
	}
}
