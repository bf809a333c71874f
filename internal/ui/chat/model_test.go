package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatmodel "github.com/zhouzirui/arix-mart/backend/internal/model/chat"
	"github.com/zhouzirui/arix-mart/backend/internal/service/dispatch"
)

type recordingIntents struct {
	mu        sync.Mutex
	submitted []string
	clears    int
}

func (r *recordingIntents) Submit(_ context.Context, text string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, text)
	return true, nil
}

func (r *recordingIntents) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
	return nil
}

func newTestModel(t *testing.T) (Model, *recordingIntents) {
	t.Helper()
	intents := &recordingIntents{}
	welcome := chatmodel.AssistantTurn("Welcome to **Arix Mart**", time.Date(2024, 1, 1, 9, 5, 0, 0, time.Local))
	snap := dispatch.Snapshot{State: dispatch.StateIdle, Turns: []chatmodel.Turn{welcome}}
	return New(context.Background(), "Arix Mart", intents, snap, make(chan dispatch.Event)), intents
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(Model)
	require.True(t, ok)
	return updated, cmd
}

func stateEvent(busy bool) eventMsg {
	state := dispatch.StateIdle
	if busy {
		state = dispatch.StateDispatching
	}
	return eventMsg{Kind: dispatch.EventState, State: state, Busy: busy}
}

func TestEnterSubmitsAndResetsInput(t *testing.T) {
	m, intents := newTestModel(t)
	m.input.SetValue("price of milk")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())

	assert.Equal(t, []string{"price of milk"}, intents.submitted)
	assert.Empty(t, m.input.Value())
}

func TestBusyDisablesInput(t *testing.T) {
	m, intents := newTestModel(t)
	require.True(t, m.input.Focused())

	m, _ = update(t, m, stateEvent(true))
	assert.True(t, m.Busy())
	assert.False(t, m.input.Focused())
	assert.Contains(t, m.View(), thinkingText)

	m.input.SetValue("second question")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, intents.submitted)

	m, _ = update(t, m, stateEvent(false))
	assert.False(t, m.Busy())
	assert.True(t, m.input.Focused())
	assert.NotContains(t, m.View(), thinkingText)
}

func TestTurnEventsAppend(t *testing.T) {
	m, _ := newTestModel(t)

	user := chatmodel.UserTurn("milk?", time.Now())
	reply := chatmodel.AssistantTurn("Milk is 1.20", time.Now())
	m, _ = update(t, m, eventMsg{Kind: dispatch.EventTurn, Turn: &user, Busy: false})
	m, _ = update(t, m, eventMsg{Kind: dispatch.EventTurn, Turn: &reply, Busy: true})

	require.Len(t, m.Turns(), 3)
	assert.Equal(t, "milk?", m.Turns()[1].Text)
	assert.Equal(t, "Milk is 1.20", m.Turns()[2].Text)
}

func TestClearedEventResetsTranscript(t *testing.T) {
	m, _ := newTestModel(t)
	for i := 0; i < 4; i++ {
		turn := chatmodel.UserTurn("q", time.Now())
		m, _ = update(t, m, eventMsg{Kind: dispatch.EventTurn, Turn: &turn})
	}

	reset := chatmodel.AssistantTurn("💬 Chat cleared. How can I help you?", time.Now())
	m, _ = update(t, m, eventMsg{Kind: dispatch.EventCleared, Turn: &reset})

	require.Len(t, m.Turns(), 1)
	assert.Equal(t, reset.Text, m.Turns()[0].Text)
}

func TestCtrlLClears(t *testing.T) {
	m, intents := newTestModel(t)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, 1, intents.clears)
}

func TestCtrlCQuits(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestClosedEventsQuit(t *testing.T) {
	events := make(chan dispatch.Event)
	close(events)

	msg := waitForEvent(events)()
	assert.IsType(t, eventsClosedMsg{}, msg)
}

func TestViewShowsTurnClock(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	assert.Contains(t, view, "Arix Mart")
	assert.Contains(t, view, "09:05 AM")
}
