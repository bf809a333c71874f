// Package chat is the terminal chat window. It renders a dispatcher's
// transcript and turns key presses into submit and clear intents.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	chatmodel "github.com/zhouzirui/arix-mart/backend/internal/model/chat"
	"github.com/zhouzirui/arix-mart/backend/internal/service/dispatch"
)

// Intents is the part of a dispatcher the window drives.
type Intents interface {
	Submit(ctx context.Context, text string) (bool, error)
	Clear(ctx context.Context) error
}

type eventMsg dispatch.Event

type eventsClosedMsg struct{}

type errMsg struct{ err error }

// Model is the Bubble Tea model of the chat window.
type Model struct {
	ctx     context.Context
	intents Intents
	events  <-chan dispatch.Event

	title string
	turns []chatmodel.Turn
	busy  bool
	err   error

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	markdown *glamour.TermRenderer

	width  int
	height int
}

// New builds a window showing snap and following events.
func New(ctx context.Context, title string, intents Intents, snap dispatch.Snapshot, events <-chan dispatch.Event) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Prompt = "┃ "
	ta.CharLimit = 4096
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = thinkingStyle

	m := Model{
		ctx:      ctx,
		intents:  intents,
		events:   events,
		title:    title,
		turns:    snap.Turns,
		busy:     snap.Busy,
		viewport: viewport.New(80, 20),
		input:    ta,
		spinner:  sp,
		width:    80,
		height:   24,
	}
	if !m.busy {
		m.input.Focus()
	}
	m.markdown = newMarkdownRenderer(m.width)
	m.refresh()
	return m
}

func newMarkdownRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		log.Warn().Err(err).Msg("markdown renderer unavailable, showing plain text")
		return nil
	}
	return r
}

func waitForEvent(events <-chan dispatch.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Init starts listening for dispatcher events.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, waitForEvent(m.events)}
	if m.busy {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		return m.handleEvent(dispatch.Event(msg))

	case eventsClosedMsg:
		return m, tea.Quit

	case errMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	const (
		headerHeight = 2
		footerHeight = 6
	)

	m.width = msg.Width
	m.height = msg.Height
	m.viewport.Width = msg.Width
	m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
	m.input.SetWidth(msg.Width)
	m.markdown = newMarkdownRenderer(msg.Width)
	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+l":
		m.err = nil
		return m, m.clearCmd()

	case "enter":
		if m.busy {
			return m, nil
		}
		text := m.input.Value()
		m.input.Reset()
		m.err = nil
		return m, m.submitCmd(text)

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEvent(ev dispatch.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{waitForEvent(m.events)}

	switch ev.Kind {
	case dispatch.EventTurn:
		if ev.Turn != nil {
			m.turns = append(m.turns, *ev.Turn)
		}
	case dispatch.EventCleared:
		m.turns = nil
		if ev.Turn != nil {
			m.turns = []chatmodel.Turn{*ev.Turn}
		}
		m.viewport.GotoTop()
	}

	if ev.Busy != m.busy {
		m.busy = ev.Busy
		if m.busy {
			m.input.Blur()
			cmds = append(cmds, m.spinner.Tick)
		} else {
			cmds = append(cmds, m.input.Focus())
		}
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m Model) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.intents.Submit(m.ctx, text); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m Model) clearCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.intents.Clear(m.ctx); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

// refresh re-renders the transcript and keeps the newest turn in view.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// Busy reports whether a request is in flight.
func (m Model) Busy() bool {
	return m.busy
}

// Turns returns the turns currently shown.
func (m Model) Turns() []chatmodel.Turn {
	return m.turns
}
