package audioio

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("exec backend needs a POSIX shell")
	}
}

func TestExecRecorder_PadsShortOutput(t *testing.T) {
	requireShell(t)

	cfg := DefaultConfig()
	cfg.RecordCommand = []string{"sh", "-c", "head -c 100 /dev/zero"}
	rec, err := NewExecRecorder(cfg, nil)
	if err != nil {
		t.Fatalf("NewExecRecorder failed: %v", err)
	}

	chunk, err := rec.Record(context.Background(), time.Second, 8000)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(chunk.Samples) != 8000 {
		t.Errorf("Expected 8000 samples, got %d", len(chunk.Samples))
	}
}

func TestExecRecorder_TruncatesLongOutput(t *testing.T) {
	requireShell(t)

	cfg := DefaultConfig()
	cfg.RecordCommand = []string{"sh", "-c", "head -c 40000 /dev/zero"}
	rec, _ := NewExecRecorder(cfg, nil)

	chunk, err := rec.Record(context.Background(), time.Second, 8000)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(chunk.Samples) != 8000 {
		t.Errorf("Expected 8000 samples, got %d", len(chunk.Samples))
	}
}

func TestExecRecorder_Placeholders(t *testing.T) {
	requireShell(t)

	// Emits exactly rate*seconds samples when the placeholders expand.
	cfg := DefaultConfig()
	cfg.RecordCommand = []string{"sh", "-c", "head -c $(( {rate} * {seconds} * 2 )) /dev/zero"}
	rec, _ := NewExecRecorder(cfg, nil)

	chunk, err := rec.Record(context.Background(), 2*time.Second, 4000)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(chunk.Samples) != 8000 {
		t.Errorf("Expected 8000 samples, got %d", len(chunk.Samples))
	}
}

func TestExecRecorder_Unavailable(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name string
		argv []string
	}{
		{"missing program", []string{"voicechat-no-such-recorder"}},
		{"no output", []string{"sh", "-c", "exit 1"}},
		{"empty output", []string{"true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.RecordCommand = tt.argv
			rec, _ := NewExecRecorder(cfg, nil)

			_, err := rec.Record(context.Background(), time.Second, 8000)
			if !errors.Is(err, ErrDeviceUnavailable) {
				t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
			}
		})
	}
}

func TestExecSink_PlaysAndReleases(t *testing.T) {
	requireShell(t)

	scratch, err := NewScratch(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewScratch failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.PlayCommand = []string{"sh", "-c", `test -s "$0"`, "{file}"}
	sink := NewExecSink(cfg, scratch, nil)

	if err := sink.Play(context.Background(), []byte("ID3fake"), "mp3"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if live := scratch.Live(); len(live) != 0 {
		t.Errorf("Expected artifact released, still live: %v", live)
	}
	entries, _ := os.ReadDir(scratch.Dir())
	if len(entries) != 0 {
		t.Errorf("Expected empty scratch dir, found %d files", len(entries))
	}
}

func TestExecSink_Failure(t *testing.T) {
	requireShell(t)

	scratch, _ := NewScratch(t.TempDir(), nil)

	cfg := DefaultConfig()
	cfg.PlayCommand = []string{"sh", "-c", "exit 3"}
	sink := NewExecSink(cfg, scratch, nil)

	err := sink.Play(context.Background(), []byte{1, 2}, "wav")
	if !errors.Is(err, ErrPlaybackFailed) {
		t.Errorf("Expected ErrPlaybackFailed, got %v", err)
	}
	if live := scratch.Live(); len(live) != 0 {
		t.Errorf("Expected artifact released after failure, still live: %v", live)
	}
}

func TestExecSink_MissingPlayer(t *testing.T) {
	scratch, _ := NewScratch(t.TempDir(), nil)

	cfg := DefaultConfig()
	cfg.PlayCommand = []string{"voicechat-no-such-player"}
	sink := NewExecSink(cfg, scratch, nil)

	err := sink.Play(context.Background(), []byte{1, 2}, "mp3")
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestPlayerSelection(t *testing.T) {
	players := platformPlayers("linux")
	if players[0].argv[0] != "ffplay" {
		t.Errorf("Expected ffplay first on linux, got %s", players[0].argv[0])
	}

	var wavOnly player
	for _, p := range players {
		if p.argv[0] == "aplay" {
			wavOnly = p
		}
	}
	if !wavOnly.accepts("wav") || wavOnly.accepts("mp3") {
		t.Error("aplay should accept wav only")
	}
}
