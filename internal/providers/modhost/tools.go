package modhost

import (
	"context"
	"encoding/json"

	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/internal/providers/modhost/tools"
)

// NativeHandler is the signature of builtin tool implementations.
type NativeHandler func(ctx context.Context, args json.RawMessage) (string, error)

type tool interface {
	GetDefinitions() map[string]struct {
		Description string
		Schema      string
		Handler     func(context.Context, json.RawMessage) (string, error)
	}
}

// RegisterBuiltinTools wires up the tools that exist without any mod loaded.
func RegisterBuiltinTools(runtimePath string) (map[string]NativeHandler, []core.Tool) {
	handlers := make(map[string]NativeHandler)
	var defs []core.Tool

	register := func(t tool) {
		for name, def := range t.GetDefinitions() {
			handlers[name] = def.Handler
			defs = append(defs, core.Tool{
				Name:        name,
				Description: def.Description,
				InputSchema: json.RawMessage(def.Schema),
			})
		}
	}

	register(tools.NewShell(runtimePath))
	register(tools.NewWorkspace(runtimePath))
	register(tools.NewFetch())

	return handlers, defs
}
