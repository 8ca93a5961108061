package setup

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ChannelStep selects the chat channel the bot listens on
type ChannelStep struct {
	choices []string
	cursor  int
}

func NewChannelStep() Step {
	return &ChannelStep{
		choices: []string{"Telegram", "Console"},
		cursor:  0,
	}
}

func (s *ChannelStep) Init() tea.Cmd {
	return nil
}

func (s *ChannelStep) Update(msg tea.Msg, state *SetupState, width, height int) (Step, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.choices)-1 {
				s.cursor++
			}
		case "enter":
			switch s.choices[s.cursor] {
			case "Telegram":
				state.EnvVars["ENABLE_TELEGRAM"] = "true"
				state.EnvVars["ENABLE_CLI"] = "false"
			case "Console":
				state.EnvVars["ENABLE_TELEGRAM"] = "false"
				state.EnvVars["ENABLE_CLI"] = "true"
			}
			return nil, nil
		}
	}
	return s, nil
}

func (s *ChannelStep) View(state *SetupState) string {
	var b strings.Builder
	b.WriteString("Select your chat channel:\n\n")
	for i, choice := range s.choices {
		cursor := " "
		if s.cursor == i {
			cursor = "❯"
			b.WriteString(selStyle.Render(fmt.Sprintf("%s %s", cursor, choice)) + "\n")
		} else {
			b.WriteString(itemStyle.Render(fmt.Sprintf("%s %s", cursor, choice)) + "\n")
		}
	}
	b.WriteString("\n(press ctrl+c to quit)\n")
	return b.String()
}
