package modhost

import (
	"sync"

	"github.com/sandevgo/modbot/internal/core"
)

// ToolCache holds the aggregated tool list plus the tool-to-mod routing
// table. Invalidated whenever the set of loaded mods changes.
type ToolCache struct {
	mu        sync.RWMutex
	tools     []core.Tool
	toolToMod map[string]string
	valid     bool
}

func NewToolCache() *ToolCache {
	return &ToolCache{
		toolToMod: make(map[string]string),
	}
}

func (c *ToolCache) Get() (tools []core.Tool, routing map[string]string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid {
		return nil, nil, false
	}

	// Copies, callers must not see internal state.
	toolsCopy := make([]core.Tool, len(c.tools))
	copy(toolsCopy, c.tools)

	routingCopy := make(map[string]string, len(c.toolToMod))
	for k, v := range c.toolToMod {
		routingCopy[k] = v
	}

	return toolsCopy, routingCopy, true
}

func (c *ToolCache) Update(tools []core.Tool, routing map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = true

	c.tools = make([]core.Tool, len(tools))
	copy(c.tools, tools)

	c.toolToMod = make(map[string]string, len(routing))
	for k, v := range routing {
		c.toolToMod[k] = v
	}
}

func (c *ToolCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	c.tools = nil
	c.toolToMod = make(map[string]string)
}
