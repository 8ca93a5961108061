package setup

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const defaultRegistryURL = "https://registry.modbot.dev"

// RegistryURLStep collects the mod registry endpoint
type RegistryURLStep struct {
	input textinput.Model
}

func NewRegistryURLStep() Step {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 60
	ti.Placeholder = defaultRegistryURL

	return &RegistryURLStep{
		input: ti,
	}
}

func (s *RegistryURLStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *RegistryURLStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			url := strings.TrimSpace(s.input.Value())
			if url == "" {
				url = defaultRegistryURL
			}
			state.EnvVars["REGISTRY_URL"] = url
			return nil, nil
		}
	}
	return s, cmd
}

func (s *RegistryURLStep) View(state *SetupState) string {
	return "Mod registry URL (press enter for the default):\n\n" +
		s.input.View() + "\n\n" +
		"(press enter to confirm)\n"
}

// RegistryTokenStep collects an optional registry access token
type RegistryTokenStep struct {
	input textinput.Model
}

func NewRegistryTokenStep() Step {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 40
	ti.Placeholder = "Optional - press Enter to skip"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'

	return &RegistryTokenStep{
		input: ti,
	}
}

func (s *RegistryTokenStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *RegistryTokenStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "enter" {
			if token := strings.TrimSpace(s.input.Value()); token != "" {
				state.EnvVars["REGISTRY_TOKEN"] = token
			}
			return nil, nil
		}
	}
	return s, cmd
}

func (s *RegistryTokenStep) View(state *SetupState) string {
	return "Registry access token (optional):\n\n" +
		s.input.View() + "\n\n" +
		"(press enter to confirm)\n"
}
