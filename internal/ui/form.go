package ui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lawnchairsociety/tictactoe/internal/address"
)

var formKeys = struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Cancel key.Binding
}{
	Next:   key.NewBinding(key.WithKeys("tab", "down")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up")),
	Submit: key.NewBinding(key.WithKeys("enter")),
	Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c")),
}

// FormModel asks for the server address until it is valid or the user
// cancels.
type FormModel struct {
	inputs    []textinput.Model
	focus     int
	err       string
	result    address.Address
	done      bool
	cancelled bool
}

// NewForm creates the form, prefilled with host and port when non-empty.
func NewForm(host string, port int) FormModel {
	hostInput := textinput.New()
	hostInput.Prompt = "Host: "
	hostInput.Placeholder = "127.0.0.1"
	hostInput.CharLimit = 253
	hostInput.SetValue(host)
	hostInput.Focus()

	portInput := textinput.New()
	portInput.Prompt = "Port: "
	portInput.Placeholder = "4000"
	portInput.CharLimit = 5
	if port > 0 {
		portInput.SetValue(strconv.Itoa(port))
	}

	return FormModel{inputs: []textinput.Model{hostInput, portInput}}
}

// Result returns the validated address; ok is false when the form was
// cancelled.
func (m FormModel) Result() (address.Address, bool) {
	return m.result, m.done && !m.cancelled
}

// Init implements tea.Model.
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, formKeys.Cancel):
			m.done, m.cancelled = true, true
			return m, tea.Quit

		case key.Matches(msg, formKeys.Submit):
			addr, err := address.Parse(m.inputs[0].Value(), m.inputs[1].Value())
			if err != nil {
				m.err = formError(err)
				return m, nil
			}
			m.result, m.done = addr, true
			return m, tea.Quit

		case key.Matches(msg, formKeys.Next):
			return m, m.setFocus((m.focus + 1) % len(m.inputs))

		case key.Matches(msg, formKeys.Prev):
			return m, m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// setFocus moves the cursor to input i.
func (m *FormModel) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[m.focus].Focus()
}

func formError(err error) string {
	switch {
	case errors.Is(err, address.ErrInvalidHost):
		return "Enter an IP address or hostname"
	case errors.Is(err, address.ErrInvalidPort):
		return "Enter a port between 1 and 65535"
	default:
		return err.Error()
	}
}

// View implements tea.Model.
func (m FormModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Connect to a tic-tac-toe server"))
	b.WriteString("\n")
	for _, input := range m.inputs {
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString(faintStyle.Render("tab: next field · enter: connect · esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

// RunForm shows the form on the terminal. ok is false when the player
// cancelled.
func RunForm(host string, port int) (address.Address, bool, error) {
	final, err := tea.NewProgram(NewForm(host, port)).Run()
	if err != nil {
		return address.Address{}, false, err
	}
	m, _ := final.(FormModel)
	addr, ok := m.Result()
	return addr, ok, nil
}
