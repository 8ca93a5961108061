package command

import (
	"context"
	"strings"

	"github.com/sandevgo/modbot/internal/core"
)

type ModsCommand struct {
	ctl       core.ModDispatcher
	formatter *ResponseFormatter
}

func NewModsCommand(ctl core.ModDispatcher) *ModsCommand {
	return &ModsCommand{
		ctl:       ctl,
		formatter: NewResponseFormatter(),
	}
}

func (c *ModsCommand) Name() string {
	return "mods"
}

func (c *ModsCommand) Description() string {
	return "Search, install and uninstall mods"
}

// Execute hands the verb and its argument over to the dispatcher. The
// dispatcher reports through the notifier, so there is nothing to return
// and its failures never surface as command errors.
func (c *ModsCommand) Execute(ctx context.Context, target string, args []string) (string, error) {
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Mods"),
			c.formatter.Usage("/mods <search|install|uninstall> [argument]"),
			c.formatter.Examples([]string{
				"/mods search weather",
				"/mods install weather-pro",
				"/mods uninstall weather-pro",
			}),
		), nil
	}

	c.ctl.Dispatch(ctx, target, strings.Join(args, " "))
	return "", nil
}
