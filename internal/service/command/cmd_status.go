package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/modbot/internal/core"
)

const recentEventLimit = 5

// ModInventory reports which mods the host currently has live.
type ModInventory interface {
	ActiveModIDs() []string
	DescribeMod(modID string) string
}

type StatusCommand struct {
	inventory ModInventory
	events    core.EventsRepository
	formatter *ResponseFormatter
}

func NewStatusCommand(inventory ModInventory, events core.EventsRepository) *StatusCommand {
	return &StatusCommand{
		inventory: inventory,
		events:    events,
		formatter: NewResponseFormatter(),
	}
}

func (c *StatusCommand) Name() string {
	return "status"
}

func (c *StatusCommand) Description() string {
	return "Show loaded mods and recent activity"
}

func (c *StatusCommand) Execute(ctx context.Context, target string, args []string) (string, error) {
	sections := []string{
		c.formatter.Info(fmt.Sprintf("%s %s", core.BotName, core.BotVersion)),
	}

	ids := c.inventory.ActiveModIDs()
	if len(ids) == 0 {
		sections = append(sections,
			c.formatter.Label("Loaded mods", "none"),
			c.formatter.Tip("Install one with /mods install <id>"),
		)
	} else {
		lines := make([]string, len(ids))
		for i, id := range ids {
			if desc := c.inventory.DescribeMod(id); desc != "" {
				lines[i] = fmt.Sprintf("**%s**  %s", id, desc)
			} else {
				lines[i] = fmt.Sprintf("**%s**", id)
			}
		}
		sections = append(sections,
			c.formatter.Label("Loaded mods", fmt.Sprintf("%d", len(ids))),
			c.formatter.List(lines),
		)
	}

	events, err := c.events.RecentEvents(ctx, recentEventLimit)
	if err != nil {
		return "", fmt.Errorf("failed to read recent events: %w", err)
	}
	if len(events) > 0 {
		lines := make([]string, len(events))
		for i, event := range events {
			lines[i] = formatEvent(event)
		}
		sections = append(sections, c.formatter.Section("🧾", "Recent activity", c.formatter.List(lines)))
	}

	return c.formatter.Combine(sections...), nil
}

func formatEvent(event core.ModEvent) string {
	subject := event.Verb
	if event.ModID != "" {
		subject = fmt.Sprintf("%s %s", event.Verb, event.ModID)
	}
	if event.Outcome == core.EventOutcomeError {
		return fmt.Sprintf("%s failed: %s", subject, event.Detail)
	}
	return fmt.Sprintf("%s ok", subject)
}
