package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/arix-mart/backend/internal/metrics"
	"github.com/zhouzirui/arix-mart/backend/internal/model/chat"
	"github.com/zhouzirui/arix-mart/backend/internal/service/ai"
)

var (
	ErrStopped        = errors.New("dispatcher stopped")
	ErrAlreadyRunning = errors.New("dispatcher already running")
)

// DefaultClearedMessage is used when Options.Cleared is empty.
const DefaultClearedMessage = "💬 Chat cleared. How can I help you?"

// Options tunes a Dispatcher.
type Options struct {
	// Welcome seeds the transcript with an assistant turn when non-empty.
	Welcome string
	// Cleared is the assistant turn left behind by Clear.
	Cleared string
	// Timeout bounds a single completion. Zero waits indefinitely.
	Timeout time.Duration
	// EventBuffer is each listener's queue length.
	EventBuffer int
	// Now overrides the clock.
	Now    func() time.Time
	Logger *zerolog.Logger
}

type completion struct {
	text   string
	failed bool
}

// Dispatcher owns one chat transcript and moves at most one completion
// request at a time off its owner goroutine. Every mutation of the
// transcript and the state happens inside Run; the public methods post
// intents to it.
type Dispatcher struct {
	completer ai.Completer
	opts      Options
	logger    zerolog.Logger

	intents chan func(context.Context)
	results chan completion
	done    chan struct{}
	running atomic.Bool

	// owned by the Run goroutine
	transcript   *chat.Transcript
	state        State
	pending      *PendingRequest
	listeners    map[int]chan Event
	nextListener int
	seq          uint64
}

// New creates an idle dispatcher. Call Run to start serving intents.
func New(completer ai.Completer, opts Options) *Dispatcher {
	if opts.Cleared == "" {
		opts.Cleared = DefaultClearedMessage
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	d := &Dispatcher{
		completer: completer,
		opts:      opts,
		logger:    logger,
		intents:   make(chan func(context.Context)),
		results:   make(chan completion, 1),
		done:      make(chan struct{}),
		state:     StateIdle,
		listeners: make(map[int]chan Event),
	}

	d.transcript = chat.NewTranscript()
	if opts.Welcome != "" {
		d.transcript.Append(chat.AssistantTurn(opts.Welcome, opts.Now()))
	}
	return d
}

// Run serves intents and completions until ctx is done. Cancelling ctx
// also cancels an in-flight completion.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(d.done)
	defer d.closeListeners()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug().Msg("dispatcher stopping")
			return nil
		case intent := <-d.intents:
			intent(ctx)
		case res := <-d.results:
			d.finish(res)
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Submit starts a completion for text. It reports false, without any
// change, when text is blank or a request is already in flight.
func (d *Dispatcher) Submit(ctx context.Context, text string) (bool, error) {
	var accepted bool
	err := d.do(ctx, func(runCtx context.Context) {
		accepted = d.submit(runCtx, text)
	})
	return accepted, err
}

// Clear empties the transcript and leaves the reset announcement. A
// request in flight is not abandoned; its reply lands after the reset.
func (d *Dispatcher) Clear(ctx context.Context) error {
	return d.do(ctx, func(context.Context) {
		reset := chat.AssistantTurn(d.opts.Cleared, d.opts.Now())
		d.transcript.Clear(reset)
		d.emit(Event{Kind: EventCleared, Turn: &reset})
	})
}

// Snapshot returns a copy of the transcript and the lifecycle state.
func (d *Dispatcher) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := d.do(ctx, func(context.Context) {
		snap = d.snapshot()
	})
	return snap, err
}

// Subscribe registers a listener. The snapshot and the first event on the
// channel are consistent: no change falls between them. The channel is
// closed by the returned cancel func or when the dispatcher stops.
func (d *Dispatcher) Subscribe(ctx context.Context) (Snapshot, <-chan Event, func(), error) {
	var (
		snap Snapshot
		id   int
		ch   = make(chan Event, d.opts.EventBuffer)
	)
	err := d.do(ctx, func(context.Context) {
		snap = d.snapshot()
		id = d.nextListener
		d.nextListener++
		d.listeners[id] = ch
	})
	if err != nil {
		return Snapshot{}, nil, nil, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = d.do(context.Background(), func(context.Context) {
				d.removeListener(id)
			})
		})
	}
	return snap, ch, cancel, nil
}

// do runs fn on the owner goroutine and waits for it.
func (d *Dispatcher) do(ctx context.Context, fn func(context.Context)) error {
	finished := make(chan struct{})
	intent := func(runCtx context.Context) {
		defer close(finished)
		fn(runCtx)
	}

	select {
	case d.intents <- intent:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-finished
	return nil
}

func (d *Dispatcher) submit(runCtx context.Context, text string) bool {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		metrics.SubmissionsTotal.WithLabelValues("empty").Inc()
		return false
	}
	if d.pending != nil {
		// Dropped silently, as the input is disabled while busy.
		metrics.SubmissionsTotal.WithLabelValues("busy").Inc()
		d.logger.Debug().Str("pending", d.pending.Prompt).Msg("submission dropped while a request is in flight")
		return false
	}

	now := d.opts.Now()
	d.pending = &PendingRequest{Prompt: prompt, IssuedAt: now}
	d.append(chat.UserTurn(prompt, now))
	d.setState(StateDispatching)
	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()

	go d.work(runCtx, prompt)
	return true
}

// work performs the blocking call and hands the reply back to Run. It never
// touches the transcript.
func (d *Dispatcher) work(ctx context.Context, prompt string) {
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	res := completion{}
	defer func() {
		if r := recover(); r != nil {
			res = completion{text: ai.ErrorReply(fmt.Errorf("completion panicked: %v", r)), failed: true}
		}
		d.results <- res
	}()

	text, err := d.completer.Complete(ctx, prompt)
	if err != nil {
		d.logger.Warn().Err(err).Msg("completion failed")
		res = completion{text: ai.ErrorReply(err), failed: true}
		return
	}
	res = completion{text: text}
}

func (d *Dispatcher) finish(res completion) {
	if d.pending == nil {
		return
	}

	elapsed := d.opts.Now().Sub(d.pending.IssuedAt)
	d.pending = nil
	d.append(chat.AssistantTurn(res.text, d.opts.Now()))
	d.setState(StateIdle)

	d.logger.Info().Bool("failed", res.failed).Dur("elapsed", elapsed).Int("turns", d.transcript.Len()).Msg("reply delivered")
}

func (d *Dispatcher) append(turn chat.Turn) {
	d.transcript.Append(turn)
	d.emit(Event{Kind: EventTurn, Turn: &turn})
}

func (d *Dispatcher) setState(state State) {
	d.state = state
	d.emit(Event{Kind: EventState})
}

func (d *Dispatcher) snapshot() Snapshot {
	snap := Snapshot{
		State: d.state,
		Busy:  d.state.Busy(),
		Turns: d.transcript.Snapshot(),
	}
	if d.pending != nil {
		pending := *d.pending
		snap.Pending = &pending
	}
	return snap
}

// emit never blocks the owner goroutine; a full listener loses the event.
func (d *Dispatcher) emit(ev Event) {
	d.seq++
	ev.Seq = d.seq
	ev.State = d.state
	ev.Busy = d.state.Busy()

	for id, ch := range d.listeners {
		select {
		case ch <- ev:
		default:
			metrics.EventsDropped.Inc()
			d.logger.Warn().Int("listener", id).Uint64("seq", ev.Seq).Msg("listener queue full, event dropped")
		}
	}
}

func (d *Dispatcher) removeListener(id int) {
	if ch, ok := d.listeners[id]; ok {
		delete(d.listeners, id)
		close(ch)
	}
}

func (d *Dispatcher) closeListeners() {
	for id := range d.listeners {
		d.removeListener(id)
	}
}
