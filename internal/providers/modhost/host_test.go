package modhost

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/modbot/internal/core"
)

type testConfig struct {
	dir string
}

func (c testConfig) GetRuntimePath() string   { return c.dir }
func (c testConfig) GetDatabasePath() string  { return filepath.Join(c.dir, "modbot.db") }
func (c testConfig) GetModsPath() string      { return filepath.Join(c.dir, "mods") }
func (c testConfig) GetStatePath() string     { return filepath.Join(c.dir, "loaded.json") }
func (c testConfig) IsTelegramSelected() bool { return false }

// memStorage keeps the mod state in memory for host tests.
type memStorage struct {
	mu      sync.Mutex
	state   State
	saveErr error
}

func newMemStorage(loaded ...string) *memStorage {
	return &memStorage{state: State{Loaded: loaded}}
}

func (m *memStorage) Load(ctx context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &State{Loaded: append([]string(nil), m.state.Loaded...)}, nil
}

func (m *memStorage) Save(ctx context.Context, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = State{Loaded: append([]string(nil), state.Loaded...)}
	return nil
}

func (m *memStorage) Watch(ctx context.Context) (<-chan State, error) {
	return nil, nil
}

func (m *memStorage) has(modID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Has(modID)
}

func newTestHost(t *testing.T, storage Storage) *Host {
	t.Helper()

	cfg := testConfig{dir: t.TempDir()}
	if err := os.MkdirAll(cfg.GetModsPath(), 0755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	pool := NewPoolWithFactory(mockTransportFactory(successTransport, nil))
	return NewHost(cfg, pool, storage, NewToolCache())
}

func writeManifest(t *testing.T, h *Host, modID string, m Manifest) {
	t.Helper()

	dir := filepath.Join(h.modsDir, modID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestHost_LoadMod(t *testing.T) {
	storage := newMemStorage()
	h := newTestHost(t, storage)
	ctx := context.Background()

	writeManifest(t, h, "mod-a", Manifest{Name: "mod-a", Command: "echo"})

	if err := h.LoadMod(ctx, "mod-a"); err != nil {
		t.Fatalf("LoadMod failed: %v", err)
	}

	loaded, err := h.IsLoaded(ctx, "mod-a")
	if err != nil {
		t.Fatalf("IsLoaded failed: %v", err)
	}
	if !loaded {
		t.Error("mod should be loaded")
	}

	if !storage.has("mod-a") {
		t.Error("mod should be persisted in state")
	}

	active := h.ActiveMods()
	if m, ok := active["mod-a"]; !ok || m.Name != "mod-a" {
		t.Errorf("active mods = %v, want mod-a", active)
	}
}

func TestHost_LoadMod_MissingManifest(t *testing.T) {
	h := newTestHost(t, newMemStorage())
	ctx := context.Background()

	err := h.LoadMod(ctx, "ghost")
	if err == nil {
		t.Fatal("expected error for mod without manifest")
	}
	if !strings.Contains(err.Error(), ManifestFile) {
		t.Errorf("error = %v, want mention of %s", err, ManifestFile)
	}
}

func TestHost_LoadMod_InvalidManifest(t *testing.T) {
	storage := newMemStorage()
	h := newTestHost(t, storage)
	ctx := context.Background()

	// Neither url nor command, the transport cannot be inferred.
	writeManifest(t, h, "broken", Manifest{Name: "broken"})

	if err := h.LoadMod(ctx, "broken"); err == nil {
		t.Fatal("expected error for manifest without url or command")
	}

	loaded, _ := h.IsLoaded(ctx, "broken")
	if loaded {
		t.Error("failed load must not leave the mod in the pool")
	}
	if storage.has("broken") {
		t.Error("failed load must not be persisted")
	}
}

func TestHost_LoadMod_StateSaveFailure(t *testing.T) {
	storage := newMemStorage()
	storage.saveErr = errors.New("disk full")
	h := newTestHost(t, storage)
	ctx := context.Background()

	writeManifest(t, h, "mod-a", Manifest{Name: "mod-a", Command: "echo"})

	err := h.LoadMod(ctx, "mod-a")
	if err == nil {
		t.Fatal("expected error when state save fails")
	}
	if !strings.Contains(err.Error(), "state save failed") {
		t.Errorf("error = %v, want state save failure", err)
	}

	// The mod is connected even though persistence failed.
	loaded, _ := h.IsLoaded(ctx, "mod-a")
	if !loaded {
		t.Error("mod should still be connected")
	}
}

func TestHost_UnloadMod(t *testing.T) {
	storage := newMemStorage()
	h := newTestHost(t, storage)
	ctx := context.Background()

	writeManifest(t, h, "mod-a", Manifest{Name: "mod-a", Command: "echo"})
	if err := h.LoadMod(ctx, "mod-a"); err != nil {
		t.Fatalf("LoadMod failed: %v", err)
	}

	if err := h.UnloadMod(ctx, "mod-a"); err != nil {
		t.Fatalf("UnloadMod failed: %v", err)
	}

	loaded, err := h.IsLoaded(ctx, "mod-a")
	if err != nil {
		t.Fatalf("IsLoaded failed: %v", err)
	}
	if loaded {
		t.Error("mod should not be loaded after unload")
	}

	if storage.has("mod-a") {
		t.Error("mod should be removed from persisted state")
	}
	if len(h.ActiveMods()) != 0 {
		t.Error("active mods should be empty after unload")
	}
}

func TestHost_UnloadMod_NotLoaded(t *testing.T) {
	storage := newMemStorage()
	h := newTestHost(t, storage)

	if err := h.UnloadMod(context.Background(), "ghost"); err != nil {
		t.Fatalf("unloading an absent mod should not fail: %v", err)
	}
}

func TestHost_IsLoaded_ReQueriesPool(t *testing.T) {
	storage := newMemStorage()
	h := newTestHost(t, storage)
	ctx := context.Background()

	writeManifest(t, h, "mod-a", Manifest{Name: "mod-a", Command: "echo"})

	for i := 0; i < 2; i++ {
		loaded, _ := h.IsLoaded(ctx, "mod-a")
		if loaded {
			t.Fatalf("query %d: mod not yet loaded", i)
		}
	}

	if err := h.LoadMod(ctx, "mod-a"); err != nil {
		t.Fatalf("LoadMod failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		loaded, _ := h.IsLoaded(ctx, "mod-a")
		if !loaded {
			t.Fatalf("query %d: mod should be loaded", i)
		}
	}
}

func TestHost_ActiveMods_ReturnsCopy(t *testing.T) {
	h := newTestHost(t, newMemStorage())
	ctx := context.Background()

	writeManifest(t, h, "mod-a", Manifest{Name: "mod-a", Command: "echo"})
	if err := h.LoadMod(ctx, "mod-a"); err != nil {
		t.Fatalf("LoadMod failed: %v", err)
	}

	active := h.ActiveMods()
	delete(active, "mod-a")

	if len(h.ActiveMods()) != 1 {
		t.Error("ActiveMods should return a copy, not a reference")
	}
}

func TestHost_GetTools_BuiltinsOnly(t *testing.T) {
	h := newTestHost(t, newMemStorage())
	ctx := context.Background()

	tools, err := h.GetTools(ctx)
	if err != nil {
		t.Fatalf("GetTools failed: %v", err)
	}

	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.Name] = true
	}
	if !names["fetch_url"] || !names["execute_command"] {
		t.Errorf("tools = %v, want builtins fetch_url and execute_command", names)
	}

	// Second call is served from the cache.
	again, err := h.GetTools(ctx)
	if err != nil {
		t.Fatalf("cached GetTools failed: %v", err)
	}
	if len(again) != len(tools) {
		t.Errorf("cached tools count = %d, want %d", len(again), len(tools))
	}
}

func TestHost_LoadMod_InvalidatesToolCache(t *testing.T) {
	h := newTestHost(t, newMemStorage())
	ctx := context.Background()

	if _, err := h.GetTools(ctx); err != nil {
		t.Fatalf("GetTools failed: %v", err)
	}
	if _, _, ok := h.cache.Get(); !ok {
		t.Fatal("cache should be valid after GetTools")
	}

	writeManifest(t, h, "mod-a", Manifest{Name: "mod-a", Command: "echo"})
	if err := h.LoadMod(ctx, "mod-a"); err != nil {
		t.Fatalf("LoadMod failed: %v", err)
	}

	if _, _, ok := h.cache.Get(); ok {
		t.Error("cache should be invalidated after LoadMod")
	}
}

func TestHost_CallTool_UnknownTool(t *testing.T) {
	h := newTestHost(t, newMemStorage())

	_, err := h.CallTool(context.Background(), "nope", "{}")
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "tool not found") {
		t.Errorf("error = %v, want tool not found", err)
	}
}

func TestHost_CallTool_ModUnavailable(t *testing.T) {
	h := newTestHost(t, newMemStorage())

	// Routing points at a mod that is no longer in the pool.
	h.cache.Update(makeTools("ghost.echo"), makeRouting("ghost.echo", "ghost"))

	_, err := h.CallTool(context.Background(), "ghost.echo", "{}")
	if err == nil {
		t.Fatal("expected error for unavailable mod")
	}
	if !strings.Contains(err.Error(), "not available") {
		t.Errorf("error = %v, want mod not available", err)
	}
}

func TestHost_Start_ConnectsPersistedMods(t *testing.T) {
	storage := newMemStorage("mod-a")
	h := newTestHost(t, storage)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writeManifest(t, h, "mod-a", Manifest{Name: "mod-a", Command: "echo"})

	if err := h.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if loaded, _ := h.IsLoaded(ctx, "mod-a"); loaded {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("persisted mod was not connected after Start")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHost_Shutdown_ClosesPool(t *testing.T) {
	h := newTestHost(t, newMemStorage())
	ctx := context.Background()

	writeManifest(t, h, "mod-a", Manifest{Name: "mod-a", Command: "echo"})
	if err := h.LoadMod(ctx, "mod-a"); err != nil {
		t.Fatalf("LoadMod failed: %v", err)
	}

	if err := h.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	loaded, _ := h.IsLoaded(ctx, "mod-a")
	if loaded {
		t.Error("no mod should be loaded after shutdown")
	}
}
