package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/modbot/internal/core"
)

type RunCommand struct {
	tools     core.ToolHost
	formatter *ResponseFormatter
}

func NewRunCommand(tools core.ToolHost) *RunCommand {
	return &RunCommand{
		tools:     tools,
		formatter: NewResponseFormatter(),
	}
}

func (c *RunCommand) Name() string {
	return "run"
}

func (c *RunCommand) Description() string {
	return "Run a tool from a loaded mod"
}

func (c *RunCommand) Execute(ctx context.Context, target string, args []string) (string, error) {
	if len(args) == 0 {
		tools, err := c.tools.GetTools(ctx)
		if err != nil {
			return "", err
		}

		lines := make([]string, len(tools))
		for i, tool := range tools {
			if desc := flatten(tool.Description); desc != "" {
				lines[i] = fmt.Sprintf("**%s**  %s", tool.Name, desc)
			} else {
				lines[i] = fmt.Sprintf("**%s**", tool.Name)
			}
		}
		return c.formatter.Combine(
			c.formatter.Info("Available Tools"),
			c.formatter.List(lines),
			c.formatter.Usage("/run <tool> [json arguments]"),
		), nil
	}

	name := args[0]
	jsonArgs := strings.Join(args[1:], " ")
	if jsonArgs == "" {
		jsonArgs = "{}"
	}

	return c.tools.CallTool(ctx, name, jsonArgs)
}

// flatten collapses a tool description to a single trimmed line.
func flatten(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}
