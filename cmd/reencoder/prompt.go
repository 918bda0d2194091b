package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var errPromptCanceled = errors.New("root prompt canceled")

var (
	promptTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	promptMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	promptErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	promptPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// rootPrompt asks for the library directory until it gets one that exists.
type rootPrompt struct {
	input    textinput.Model
	root     string
	errMsg   string
	canceled bool
}

func newRootPrompt() rootPrompt {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "/path/to/library"
	input.CharLimit = 4096
	input.Width = 60
	input.Focus()
	return rootPrompt{input: input}
}

func (m rootPrompt) Init() tea.Cmd {
	return textinput.Blink
}

func (m rootPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		case tea.KeyEnter:
			root, errMsg := checkRoot(m.input.Value())
			if errMsg != "" {
				m.errMsg = errMsg
				return m, nil
			}
			m.root = root
			m.errMsg = ""
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m rootPrompt) View() string {
	if m.root != "" || m.canceled {
		return ""
	}
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("reencoder"))
	b.WriteString("\n")
	b.WriteString(promptMutedStyle.Render("Library directory to scan for files to convert"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(promptErrorStyle.Render(m.errMsg))
	}
	b.WriteString("\n\n")
	b.WriteString(promptMutedStyle.Render("enter: scan  esc: start idle"))
	return promptPanelStyle.Render(b.String())
}

func checkRoot(value string) (string, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "Enter a directory"
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", "Path does not exist"
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", "Path does not exist"
	}
	return abs, ""
}

func promptForRoot() (string, error) {
	p := tea.NewProgram(newRootPrompt())
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(rootPrompt)
	if !ok || m.canceled || m.root == "" {
		return "", errPromptCanceled
	}
	return m.root, nil
}

func stdinIsTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// startupRoot picks the library to scan at boot: flag, then environment,
// then the interactive prompt. An empty result means start idle.
func startupRoot(flagPath, envPath string, interactive bool, prompt func() (string, error)) (string, error) {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p, nil
	}
	if p := strings.TrimSpace(envPath); p != "" {
		return p, nil
	}
	if !interactive || prompt == nil {
		return "", nil
	}
	root, err := prompt()
	if errors.Is(err, errPromptCanceled) {
		return "", nil
	}
	return root, err
}
