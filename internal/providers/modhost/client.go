package modhost

import (
	"sync"

	"github.com/mark3labs/mcp-go/client"
)

// ManagedClient wraps a mod's protocol client with idempotent Close.
type ManagedClient struct {
	*client.Client
	mu     sync.RWMutex
	closed bool
	modID  string
}

func (mc *ManagedClient) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.closed {
		return nil
	}
	mc.closed = true
	if mc.Client == nil {
		return nil
	}
	return mc.Client.Close()
}

func (mc *ManagedClient) IsClosed() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.closed
}
