package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sandevgo/modbot/internal/config"
	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/pkg/log"
)

// consoleTarget is the reply target for everything typed at the prompt.
const consoleTarget = "console"

type ReadLine struct {
	cfg    *config.AppConfig
	router core.CmdRouter
	rl     *readline.Instance
}

func NewReadLine(cfg *config.AppConfig) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg: cfg,
		rl:  rl,
	}, nil
}

// Notifier prints notices to the prompt's output.
func (r *ReadLine) Notifier() core.Notifier {
	return &consoleNotifier{out: r.rl.Stdout()}
}

// HandleCommands registers the command router the prompt feeds. Must be
// called before Start.
func (r *ReadLine) HandleCommands(router core.CmdRouter) {
	r.router = router
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("console started, type /help for commands and 'exit' to quit")

	for {
		// Check context before blocking read
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil // Exit on Ctrl+C
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		reply, handled := r.router.Execute(ctx, consoleTarget, line)
		if !handled {
			fmt.Fprintf(r.rl.Stdout(), "Type /help to see what %s can do.\n", core.BotName)
			continue
		}
		if reply != "" {
			fmt.Fprintln(r.rl.Stdout(), reply)
		}
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}

var _ core.Notifier = (*consoleNotifier)(nil)

type consoleNotifier struct {
	out io.Writer
}

func (n *consoleNotifier) Notice(_ context.Context, _ string, text string) {
	fmt.Fprintln(n.out, text)
}
