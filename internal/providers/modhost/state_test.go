package modhost

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestState_With(t *testing.T) {
	t.Parallel()
	s := &State{Loaded: []string{"mod-a"}}

	got := s.With("mod-b")
	if !got.Has("mod-a") || !got.Has("mod-b") {
		t.Errorf("Loaded = %v, want both mods", got.Loaded)
	}
	if s.Has("mod-b") {
		t.Error("original state must not change")
	}

	again := got.With("mod-b")
	if len(again.Loaded) != 2 {
		t.Errorf("duplicate add produced %v", again.Loaded)
	}
}

func TestState_Without(t *testing.T) {
	t.Parallel()
	s := &State{Loaded: []string{"mod-a", "mod-b"}}

	got := s.Without("mod-a")
	if got.Has("mod-a") {
		t.Error("mod-a should be removed")
	}
	if !got.Has("mod-b") {
		t.Error("mod-b should remain")
	}
	if !s.Has("mod-a") {
		t.Error("original state must not change")
	}

	same := got.Without("missing")
	if len(same.Loaded) != 1 {
		t.Errorf("removing absent id produced %v", same.Loaded)
	}
}

func TestFileStorage_Load_MissingDirectory(t *testing.T) {
	t.Parallel()
	fs := NewFileStorage("/nonexistent/path/loaded.json")
	ctx := context.Background()

	_, err := fs.Load(ctx)
	if err == nil {
		t.Fatal("expected error when directory does not exist")
	}
}

func TestFileStorage_Load_MissingFile(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loaded.json")

	fs := NewFileStorage(path)
	ctx := context.Background()

	state, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.Loaded) != 0 {
		t.Errorf("expected empty state, got %v", state.Loaded)
	}

	// An empty file must exist afterwards so Watch has something to stat.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file was not created: %v", err)
	}
}

func TestFileStorage_Load_NullLoaded(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loaded.json")

	if err := os.WriteFile(path, []byte(`{"loaded": null}`), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	fs := NewFileStorage(path)
	state, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Has("anything") {
		t.Error("null loaded list should behave as empty")
	}
	if got := state.With("mod-a"); len(got.Loaded) != 1 {
		t.Errorf("With on null list = %v, want single entry", got.Loaded)
	}
}

func TestFileStorage_Load_InvalidJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "object_instead_of_array",
			content: `{"loaded": {}}`,
		},
		{
			name:    "number_instead_of_string",
			content: `{"loaded": [1, 2]}`,
		},
		{
			name:    "trailing_comma",
			content: `{"loaded": ["mod-a",]}`,
		},
		{
			name:    "incomplete_json",
			content: `{"loaded": ["mod-a"`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tmpDir := t.TempDir()
			path := filepath.Join(tmpDir, "loaded.json")

			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("setup failed: %v", err)
			}

			fs := NewFileStorage(path)
			if _, err := fs.Load(context.Background()); err == nil {
				t.Error("expected error for invalid JSON, got nil")
			}
		})
	}
}

func TestFileStorage_SaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loaded.json")
	fs := NewFileStorage(path)
	ctx := context.Background()

	if err := fs.Save(ctx, &State{Loaded: []string{"mod-b", "mod-a"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	state, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(state.Loaded) != 2 || state.Loaded[0] != "mod-b" || state.Loaded[1] != "mod-a" {
		t.Errorf("Loaded = %v, want [mod-b mod-a]", state.Loaded)
	}
}

func TestFileStorage_Save_FilePermissions(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loaded.json")
	fs := NewFileStorage(path)
	ctx := context.Background()

	if err := fs.Save(ctx, &State{Loaded: []string{"mod-a"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat file: %v", err)
	}

	mode := info.Mode().Perm()
	expected := os.FileMode(0644)
	if mode != expected {
		t.Errorf("file permissions = %o, want %o", mode, expected)
	}
}

func TestFileStorage_Save_ReadOnlyDirectory(t *testing.T) {
	t.Parallel()
	if os.Getuid() == 0 {
		t.Skip("skipping permission test when running as root")
	}

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loaded.json")
	fs := NewFileStorage(path)
	ctx := context.Background()

	if err := os.Chmod(tmpDir, 0555); err != nil {
		t.Fatalf("failed to chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(tmpDir, 0755) })

	err := fs.Save(ctx, &State{Loaded: []string{"mod-a"}})
	if err == nil {
		t.Fatal("expected error when saving to read-only directory")
	}
}

func TestFileStorage_Watch_MissingFile(t *testing.T) {
	t.Parallel()
	fs := NewFileStorage(filepath.Join(t.TempDir(), "loaded.json"))

	if _, err := fs.Watch(context.Background()); err == nil {
		t.Fatal("expected error when state file does not exist")
	}
}

func TestFileStorage_Watch_DetectsUpdate(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loaded.json")

	if err := os.WriteFile(path, []byte(`{"loaded": []}`), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	fs := NewFileStorage(path)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, err := fs.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"loaded": ["mod-a"]}`), 0644); err != nil {
		t.Fatalf("failed to write update: %v", err)
	}

	timeout := time.After(3 * time.Second)
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				t.Fatal("channel closed unexpectedly")
			}
			if state.Has("mod-a") {
				return
			}
		case <-timeout:
			t.Fatal("timeout waiting for update")
		}
	}
}

func TestFileStorage_Watch_FileDeleted(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loaded.json")

	if err := os.WriteFile(path, []byte(`{"loaded": []}`), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	fs := NewFileStorage(path)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, err := fs.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}

	// Recreate with new content, the watcher should pick it back up.
	if err := os.WriteFile(path, []byte(`{"loaded": ["recovered"]}`), 0644); err != nil {
		t.Fatalf("failed to recreate file: %v", err)
	}

	timeout := time.After(3 * time.Second)
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				t.Fatal("channel closed unexpectedly")
			}
			if state.Has("recovered") {
				return
			}
		case <-timeout:
			t.Fatal("timeout waiting for update after recreation")
		}
	}
}

func TestFileStorage_ConcurrentWatchAndSave(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loaded.json")

	if err := os.WriteFile(path, []byte(`{"loaded": []}`), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	fs := NewFileStorage(path)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	updates, err := fs.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	received := 0
	done := make(chan struct{})
	go func() {
		for range updates {
			received++
		}
		close(done)
	}()

	for i := 0; i < 10; i++ {
		state := &State{Loaded: []string{string(rune('a' + i))}}
		if err := fs.Save(ctx, state); err != nil {
			t.Errorf("Save failed: %v", err)
		}
		time.Sleep(120 * time.Millisecond)
	}

	cancel()
	<-done

	if received == 0 {
		t.Error("expected at least one update during concurrent watch and save")
	}
}
