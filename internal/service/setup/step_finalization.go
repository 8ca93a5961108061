package setup

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandevgo/modbot/internal/config"
)

// FinalizationStep reconciles the collected values before they are saved
type FinalizationStep struct{}

func NewFinalizationStep() Step {
	return &FinalizationStep{}
}

func (s *FinalizationStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *FinalizationStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	// Telegram without a token cannot start, fall back to the console.
	if state.EnvVars["ENABLE_TELEGRAM"] == "true" && state.EnvVars["TELEGRAM_TOKEN"] == "" {
		state.EnvVars["ENABLE_TELEGRAM"] = "false"
		state.EnvVars["ENABLE_CLI"] = "true"
		delete(state.EnvVars, "TELEGRAM_OWNER_ID")
	}

	// Pin the resolved runtime path so later starts use the same directory
	// no matter where the process is launched from.
	state.EnvVars["MODBOT_RUNTIME_PATH"] = config.GetRuntimePath()

	// Signal completion
	return nil, nil
}

func (s *FinalizationStep) View(state *SetupState) string {
	return "Finalizing configuration...\n"
}
