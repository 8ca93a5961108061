package command

import (
	"github.com/sandevgo/modbot/internal/core"
)

func NewCommands(
	ctl core.ModDispatcher,
	inventory ModInventory,
	tools core.ToolHost,
	events core.EventsRepository,
) []core.Command {
	cmds := []core.Command{
		NewModsCommand(ctl),
		NewStatusCommand(inventory, events),
		NewRunCommand(tools),
	}
	return append(cmds, NewHelpCommand(cmds))
}
