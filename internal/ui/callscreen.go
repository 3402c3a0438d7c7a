package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Messages fed into the call screen by the controller.

// CallStateMsg updates the status line.
type CallStateMsg struct {
	State  string
	Detail string
}

// ChatLineMsg appends a chat line, local or remote.
type ChatLineMsg struct {
	From  string
	Text  string
	Local bool
	At    time.Time
}

// CallEndedMsg terminates the screen with a closing reason.
type CallEndedMsg struct {
	Reason string
}

type chatLine struct {
	from  string
	text  string
	local bool
	at    time.Time
}

// CallScreen is the live in-call terminal view: status header, chat history,
// and a chat input line.
type CallScreen struct {
	program *tea.Program
}

type callModel struct {
	roomID    string
	state     string
	detail    string
	spinner   spinner.Model
	input     textinput.Model
	lines     []chatLine
	onSend    func(text string)
	endReason string
}

// NewCallScreen builds the screen for the given room. onSend is invoked for
// each chat line the user submits.
func NewCallScreen(roomID string, onSend func(text string)) *CallScreen {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "Type a message and press Enter"
	input.CharLimit = 512
	input.Focus()

	model := &callModel{
		roomID:  roomID,
		state:   "connecting",
		spinner: s,
		input:   input,
		onSend:  onSend,
	}

	return &CallScreen{program: tea.NewProgram(model)}
}

// Run blocks until the call ends or the user quits.
func (c *CallScreen) Run() error {
	_, err := c.program.Run()
	return err
}

// SetState updates the status header from outside the UI loop.
func (c *CallScreen) SetState(state, detail string) {
	c.program.Send(CallStateMsg{State: state, Detail: detail})
}

// AddChat appends a chat line from outside the UI loop.
func (c *CallScreen) AddChat(from, text string, local bool, at time.Time) {
	c.program.Send(ChatLineMsg{From: from, Text: text, Local: local, At: at})
}

// End closes the screen.
func (c *CallScreen) End(reason string) {
	c.program.Send(CallEndedMsg{Reason: reason})
}

func (m *callModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

func (m *callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.endReason = "call ended"
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text != "" && m.onSend != nil {
				m.onSend(text)
				m.lines = append(m.lines, chatLine{from: "you", text: text, local: true, at: time.Now()})
			}
			m.input.SetValue("")
			return m, nil
		}

	case CallStateMsg:
		m.state = msg.State
		m.detail = msg.Detail
		return m, nil

	case ChatLineMsg:
		m.lines = append(m.lines, chatLine{from: msg.From, text: msg.Text, local: msg.Local, at: msg.At})
		return m, nil

	case CallEndedMsg:
		m.endReason = msg.Reason
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *callModel) View() string {
	var b strings.Builder

	status := m.state
	switch m.state {
	case "connected":
		status = SuccessStyle.Render(IconCall + " connected")
	case "connecting":
		status = fmt.Sprintf("%s %s connecting", m.spinner.View(), IconWaiting)
	case "disconnected":
		status = WarningStyle.Render("disconnected")
	case "error":
		status = ErrorStyle.Render("error")
	}

	header := fmt.Sprintf("%s Room %s   %s", IconRoom, BoldStyle.Render(m.roomID), status)
	if m.detail != "" {
		header += "  " + MutedStyle.Render(m.detail)
	}
	b.WriteString(CallBoxStyle.Render(header))
	b.WriteString("\n\n")

	if len(m.lines) == 0 {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%s No messages yet", IconChat)))
		b.WriteString("\n")
	}
	for _, line := range m.lines {
		stamp := MutedStyle.Render(line.at.Format("15:04"))
		if line.local {
			b.WriteString(fmt.Sprintf("%s %s %s\n", stamp, LocalChatStyle.Render("you:"), line.text))
		} else {
			b.WriteString(fmt.Sprintf("%s %s %s\n", stamp, RemoteChatStyle.Render(shortID(line.from)+":"), line.text))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("Enter to send · Esc to hang up"))
	b.WriteString("\n")

	return b.String()
}

// shortID trims server-assigned UUIDs down to something readable.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "peer"
	}
	return id
}
