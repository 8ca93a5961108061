package modhost

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/pkg/log"
)

type Timeouts struct {
	Connect  time.Duration
	ToolList time.Duration
	ToolCall time.Duration
}

func NewDefaultTimeouts() *Timeouts {
	return &Timeouts{
		Connect:  30 * time.Second,
		ToolList: 5 * time.Second,
		ToolCall: 2 * time.Minute,
	}
}

var (
	_ core.ModHost  = (*Host)(nil)
	_ core.ToolHost = (*Host)(nil)
)

// Host runs loaded mods as managed protocol clients. The loaded set is
// persisted to the state file and re-synced when the file changes, so mods
// survive restarts and the file can be edited by hand.
type Host struct {
	modsDir  string
	storage  Storage
	pool     ConnectionPool
	cache    *ToolCache
	timeouts *Timeouts

	nativeTools    map[string]NativeHandler
	nativeToolDefs []core.Tool

	mu     sync.RWMutex
	active map[string]Manifest
}

func NewHost(cfg core.AppConfig, pool ConnectionPool, storage Storage, cache *ToolCache) *Host {
	nativeTools, nativeToolDefs := RegisterBuiltinTools(cfg.GetRuntimePath())

	return &Host{
		modsDir:        cfg.GetModsPath(),
		storage:        storage,
		pool:           pool,
		cache:          cache,
		timeouts:       NewDefaultTimeouts(),
		nativeTools:    nativeTools,
		nativeToolDefs: nativeToolDefs,
		active:         make(map[string]Manifest),
	}
}

func (h *Host) Start(ctx context.Context) error {
	state, err := h.storage.Load(ctx)
	if err != nil {
		return err
	}

	// Connect persisted mods in background, a slow mod must not delay boot.
	for _, modID := range state.Loaded {
		go h.connectMod(ctx, modID)
	}

	updates, err := h.storage.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch state: %w", err)
	}
	go h.watchState(ctx, updates)

	return nil
}

func (h *Host) Shutdown(ctx context.Context) error {
	return h.pool.Close()
}

// IsLoaded consults the live pool, never a cached answer.
func (h *Host) IsLoaded(ctx context.Context, modID string) (bool, error) {
	_, ok := h.pool.Get(modID)
	return ok, nil
}

func (h *Host) LoadMod(ctx context.Context, modID string) error {
	manifest, err := ReadManifest(h.modsDir, modID)
	if err != nil {
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, h.timeouts.Connect)
	defer cancel()

	if _, err := h.pool.Add(connectCtx, modID, *manifest); err != nil {
		return fmt.Errorf("failed to load mod %q: %w", modID, err)
	}

	h.mu.Lock()
	h.active[modID] = *manifest
	h.mu.Unlock()

	h.cache.Invalidate()

	if err := h.saveState(ctx, func(s *State) *State { return s.With(modID) }); err != nil {
		return fmt.Errorf("mod %q loaded but state save failed: %w", modID, err)
	}
	return nil
}

func (h *Host) UnloadMod(ctx context.Context, modID string) error {
	if err := h.pool.Del(modID); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("mod", modID).Msg("error closing mod during unload")
	}

	h.mu.Lock()
	delete(h.active, modID)
	h.mu.Unlock()

	h.cache.Invalidate()

	if err := h.saveState(ctx, func(s *State) *State { return s.Without(modID) }); err != nil {
		return fmt.Errorf("mod %q unloaded but state save failed: %w", modID, err)
	}
	return nil
}

// ActiveMods returns the manifests of currently connected mods.
func (h *Host) ActiveMods() map[string]Manifest {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]Manifest, len(h.active))
	for k, v := range h.active {
		result[k] = v
	}
	return result
}

// ActiveModIDs lists connected mods in sorted order.
func (h *Host) ActiveModIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.active))
	for id := range h.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DescribeMod returns a display line for a connected mod, preferring the
// manifest description over name and version.
func (h *Host) DescribeMod(modID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m, ok := h.active[modID]
	if !ok {
		return ""
	}
	if m.Description != "" {
		return m.Description
	}
	if m.Version != "" {
		return fmt.Sprintf("%s %s", m.Name, m.Version)
	}
	return m.Name
}

func (h *Host) saveState(ctx context.Context, mutate func(*State) *State) error {
	state, err := h.storage.Load(ctx)
	if err != nil {
		return err
	}
	return h.storage.Save(ctx, mutate(state))
}

func (h *Host) connectMod(ctx context.Context, modID string) {
	logger := log.FromCtx(ctx).With().Str("mod", modID).Logger()

	manifest, err := ReadManifest(h.modsDir, modID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read mod manifest")
		return
	}

	connectCtx, cancel := context.WithTimeout(ctx, h.timeouts.Connect)
	defer cancel()

	logger.Info().
		Str("url", manifest.URL).
		Str("command", manifest.Command).
		Msg("starting mod")

	if _, err := h.pool.Add(connectCtx, modID, *manifest); err != nil {
		logger.Error().Err(err).Msg("failed to start mod")
		return
	}

	h.mu.Lock()
	h.active[modID] = *manifest
	h.mu.Unlock()

	h.cache.Invalidate()
	logger.Info().Msg("mod connected")
}

func (h *Host) watchState(ctx context.Context, updates <-chan State) {
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			h.syncMods(ctx, state)
		}
	}
}

// syncMods reconciles the live pool with an externally edited state file.
func (h *Host) syncMods(ctx context.Context, desired State) {
	h.mu.RLock()
	activeIDs := make([]string, 0, len(h.active))
	for id := range h.active {
		activeIDs = append(activeIDs, id)
	}
	h.mu.RUnlock()

	for _, id := range activeIDs {
		if !desired.Has(id) {
			log.FromCtx(ctx).Info().Str("mod", id).Msg("removing mod")
			h.pool.Del(id)

			h.mu.Lock()
			delete(h.active, id)
			h.mu.Unlock()

			h.cache.Invalidate()
		}
	}

	for _, id := range desired.Loaded {
		h.mu.RLock()
		_, exists := h.active[id]
		h.mu.RUnlock()

		if !exists {
			log.FromCtx(ctx).Info().Str("mod", id).Msg("adding mod")
			h.connectMod(ctx, id)
		}
	}
}

func (h *Host) GetTools(ctx context.Context) ([]core.Tool, error) {
	if tools, _, ok := h.cache.Get(); ok {
		return tools, nil
	}

	// Builtins first, they are already in memory.
	allTools := make([]core.Tool, len(h.nativeToolDefs))
	copy(allTools, h.nativeToolDefs)

	modTools, routing := h.fetchToolsFromMods(ctx)

	for _, tools := range modTools {
		allTools = append(allTools, tools...)
	}

	h.cache.Update(allTools, routing)

	return allTools, nil
}

func (h *Host) fetchToolsFromMods(ctx context.Context) (map[string][]core.Tool, map[string]string) {
	type toolResult struct {
		modID string
		tools []core.Tool
		err   error
	}

	clients := h.pool.All()
	results := make(chan toolResult, len(clients))
	var wg sync.WaitGroup

	for modID, cli := range clients {
		wg.Add(1)
		go func(id string, c *ManagedClient) {
			defer wg.Done()
			tools, err := h.listToolsFromMod(ctx, id, c)
			results <- toolResult{modID: id, tools: tools, err: err}
		}(modID, cli)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	modTools := make(map[string][]core.Tool)
	routing := make(map[string]string)

	for res := range results {
		if res.err != nil {
			log.FromCtx(ctx).Error().Err(res.err).Str("mod", res.modID).Msg("failed to list tools")
			continue
		}
		modTools[res.modID] = res.tools
		for _, t := range res.tools {
			routing[t.Name] = res.modID
		}
	}

	return modTools, routing
}

func (h *Host) listToolsFromMod(ctx context.Context, modID string, cli *ManagedClient) ([]core.Tool, error) {
	tCtx, cancel := context.WithTimeout(ctx, h.timeouts.ToolList)
	defer cancel()

	resp, err := cli.ListTools(tCtx, mcpproto.ListToolsRequest{})
	if err != nil {
		return nil, err
	}

	tools := make([]core.Tool, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		schemaBytes, _ := json.Marshal(t.InputSchema)
		tools = append(tools, core.Tool{
			// Tool names are namespaced by mod id to avoid collisions.
			Name:        fmt.Sprintf("%s.%s", modID, t.Name),
			Description: t.Description,
			InputSchema: schemaBytes,
		})
	}
	return tools, nil
}

func (h *Host) CallTool(ctx context.Context, name string, args string) (string, error) {
	log.FromCtx(ctx).Info().Str("tool", name).Str("args", args).Msg("executing tool")

	if handler, ok := h.nativeTools[name]; ok {
		return handler(ctx, json.RawMessage(args))
	}

	_, routing, _ := h.cache.Get()
	modID, ok := routing[name]
	if !ok {
		// The cache is cold right after a load, rebuild once before failing.
		if _, err := h.GetTools(ctx); err == nil {
			_, routing, _ = h.cache.Get()
			modID, ok = routing[name]
		}
	}
	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	cli, ok := h.pool.Get(modID)
	if !ok {
		return "", fmt.Errorf("mod %s is not available", modID)
	}

	argsMap := make(map[string]any)
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argsMap); err != nil {
			return "", fmt.Errorf("invalid json arguments: %w", err)
		}
	}

	req := mcpproto.CallToolRequest{}
	req.Params.Name = strings.TrimPrefix(name, modID+".")
	req.Params.Arguments = argsMap

	tCtx, cancel := context.WithTimeout(ctx, h.timeouts.ToolCall)
	defer cancel()

	res, err := cli.CallTool(tCtx, req)
	if err != nil {
		return "", err
	}

	var output string
	for _, content := range res.Content {
		if text, ok := content.(mcpproto.TextContent); ok {
			output += text.Text + "\n"
		} else if textPtr, ok := content.(*mcpproto.TextContent); ok {
			output += textPtr.Text + "\n"
		}
	}

	if res.IsError {
		return "", fmt.Errorf("tool execution failed: %s", output)
	}

	return output, nil
}
