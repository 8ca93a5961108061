package core

import "context"

// ModRepository is the remote mod catalog: search plus install/uninstall of
// mod packages on local disk.
type ModRepository interface {
	Search(ctx context.Context, terms string) (*SearchResult, error)
	Install(ctx context.Context, modID string) error
	Uninstall(ctx context.Context, modID string) error
}

// ModHost tracks which mods are active in the running process and moves
// them in and out of the loaded state.
type ModHost interface {
	IsLoaded(ctx context.Context, modID string) (bool, error)
	LoadMod(ctx context.Context, modID string) error
	UnloadMod(ctx context.Context, modID string) error
}

// ToolHost exposes the tools contributed by currently loaded mods.
type ToolHost interface {
	GetTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args string) (string, error)
}

// Notifier delivers user-visible status lines to a reply target.
// Sends are fire-and-forget: delivery problems are the transport's to log,
// callers never see them.
type Notifier interface {
	Notice(ctx context.Context, target, text string)
}

// ModDispatcher runs one mod command line end to end. All feedback goes
// through the Notifier, callers get nothing back.
type ModDispatcher interface {
	Dispatch(ctx context.Context, target, input string)
}
