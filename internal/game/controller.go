package game

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"tictactoe-client/internal/models"
)

// Human is the side the local user always plays.
const Human = models.PlayerX

type State int

const (
	StateNoSession State = iota
	StateOngoing
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateOngoing:
		return "ongoing"
	case StateTerminal:
		return "terminal"
	}
	return "no_session"
}

func stateFor(status models.GameStatus) State {
	if status.Terminal() {
		return StateTerminal
	}
	return StateOngoing
}

// Snapshot is a copy of the controller state. Session is the zero value
// when State is StateNoSession. Seq increases with every snapshot taken;
// events from concurrent flows may arrive out of order, so subscribers
// keep the snapshot with the highest Seq.
type Snapshot struct {
	Seq            uint64
	State          State
	Session        models.GameSession
	EngineInFlight bool
	Busy           bool
	LastError      string
}

type Outcome struct {
	Status  models.GameStatus
	Winner  *models.Player
	Message string
}

func OutcomeMessage(status models.GameStatus) string {
	switch status {
	case models.StatusXWon:
		return "You won!"
	case models.StatusOWon:
		return "AI won!"
	case models.StatusDraw:
		return "It's a draw!"
	}
	return ""
}

type EventKind int

const (
	EventStateChanged EventKind = iota + 1
	EventOutcome
	EventError
)

// Event is delivered to subscribers after the mutation that caused it.
// Outcome is set for EventOutcome, Err for EventError.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Outcome  Outcome
	Err      error
}

// Pacing bounds the randomized delay before each engine move request.
type Pacing struct {
	Min time.Duration
	Max time.Duration
}

var DefaultPacing = Pacing{Min: 200 * time.Millisecond, Max: time.Second}

func (p Pacing) next() time.Duration {
	if p.Max <= p.Min {
		return max(p.Min, 0)
	}
	return p.Min + rand.N(p.Max-p.Min+1)
}

// Recorder keeps the latest adopted session so a later run can resume it.
type Recorder interface {
	Record(ctx context.Context, s models.GameSession) error
	Forget(ctx context.Context) error
}

type Option func(*Controller)

func WithPacing(p Pacing) Option {
	return func(c *Controller) { c.pacing = p }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// Controller is the single writer of the local game mirror. Network calls
// run without the lock held; replies are matched against the session
// generation they were issued for and dropped when it has moved on.
type Controller struct {
	api      API
	pacing   Pacing
	recorder Recorder

	mu             sync.Mutex
	state          State
	session        models.GameSession
	engineInFlight bool
	busy           bool
	creating       bool
	outcomeSent    bool
	lastErr        string
	gen            uint64
	seq            uint64
	cancel         chan struct{}

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

func NewController(api API, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		pacing: DefaultPacing,
		cancel: make(chan struct{}),
		subs:   make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// StartNewGame replaces the mirror with a fresh server session. When the
// engine opens, its first move is played before StartNewGame returns. A
// call made while another create is pending is dropped.
func (c *Controller) StartNewGame(ctx context.Context, humanFirst bool) error {
	c.mu.Lock()
	if c.creating {
		c.mu.Unlock()
		return nil
	}
	c.creating = true
	startGen := c.gen
	c.mu.Unlock()

	sess, err := c.api.CreateGameSession(ctx, humanFirst)

	c.mu.Lock()
	c.creating = false
	if startGen != c.gen {
		// Reset while the create was pending.
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		events := c.failLocked(err)
		c.mu.Unlock()
		c.publish(events)
		return err
	}
	gen, cancel, events := c.adoptLocked(sess, false)
	engineTurn := !humanFirst && c.state == StateOngoing
	if engineTurn {
		c.engineInFlight = true
	}
	events = append(events, c.changedLocked())
	c.mu.Unlock()

	c.publish(events)
	c.record(ctx, sess)

	if engineTurn {
		return c.runEngineMove(ctx, gen, cancel)
	}
	return nil
}

// Resume adopts an existing server session. An already finished session
// does not report its outcome again. If the server says it is the engine's
// turn, the engine move is requested before Resume returns.
func (c *Controller) Resume(ctx context.Context, sessionID int) error {
	c.mu.Lock()
	if c.creating {
		c.mu.Unlock()
		return nil
	}
	c.creating = true
	startGen := c.gen
	c.mu.Unlock()

	sess, err := c.api.GameState(ctx, sessionID)

	c.mu.Lock()
	c.creating = false
	if startGen != c.gen {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		events := c.failLocked(err)
		c.mu.Unlock()
		c.publish(events)
		return err
	}
	gen, cancel, events := c.adoptLocked(sess, true)
	engineTurn := c.state == StateOngoing && sess.CurrentPlayer == Human.Opponent()
	if engineTurn {
		c.engineInFlight = true
	}
	events = append(events, c.changedLocked())
	c.mu.Unlock()

	c.publish(events)
	c.record(ctx, sess)

	if engineTurn {
		return c.runEngineMove(ctx, gen, cancel)
	}
	return nil
}

// SubmitMove places the human mark at (row, col). It is a no-op unless a
// game is ongoing, nothing else is in flight and the cell is empty. The
// board only changes after the server accepts the move. On the engine's
// turn, left over from a failed engine request, the move is dropped and
// the engine move is requested again.
func (c *Controller) SubmitMove(ctx context.Context, row, col int) error {
	c.mu.Lock()
	if c.engineTurnLocked() {
		c.mu.Unlock()
		return c.RetryEngineMove(ctx)
	}
	if c.state != StateOngoing || c.engineInFlight || c.busy || c.creating || !c.session.Board.IsEmpty(row, col) {
		c.mu.Unlock()
		return nil
	}
	candidate, err := c.session.Board.Place(row, col, Human.Mark())
	if err != nil {
		c.mu.Unlock()
		return nil
	}
	gen, cancel, id := c.gen, c.cancel, c.session.ID
	c.busy = true
	busy := c.changedLocked()
	c.mu.Unlock()
	c.publish([]Event{busy})

	status, err := c.api.MakeMove(ctx, candidate, id)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	c.busy = false
	if err != nil {
		events := c.failLocked(err)
		c.mu.Unlock()
		c.publish(events)
		return err
	}

	c.lastErr = ""
	c.session.Board = candidate
	c.session.Status = status
	c.session.CurrentPlayer = c.session.CurrentPlayer.Opponent()
	var events []Event
	if status.Terminal() {
		events = c.finishLocked(nil)
	} else {
		c.engineInFlight = true
	}
	events = append(events, c.changedLocked())
	sess := c.session.Clone()
	c.mu.Unlock()

	c.publish(events)
	c.record(ctx, sess)

	if !status.Terminal() {
		return c.runEngineMove(ctx, gen, cancel)
	}
	return nil
}

// RetryEngineMove requests the engine move again after a failed attempt.
// It is a no-op unless the game is ongoing, the engine is to move and
// nothing is in flight.
func (c *Controller) RetryEngineMove(ctx context.Context) error {
	c.mu.Lock()
	if !c.engineTurnLocked() {
		c.mu.Unlock()
		return nil
	}
	c.engineInFlight = true
	gen, cancel := c.gen, c.cancel
	ev := c.changedLocked()
	c.mu.Unlock()

	c.publish([]Event{ev})
	return c.runEngineMove(ctx, gen, cancel)
}

func (c *Controller) engineTurnLocked() bool {
	return c.state == StateOngoing &&
		c.session.CurrentPlayer == Human.Opponent() &&
		!c.engineInFlight && !c.busy && !c.creating
}

// Reset drops the local session, cancels any pending engine move and
// forgets the recorded session.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	c.invalidateLocked()
	c.state = StateNoSession
	c.session = models.GameSession{}
	c.outcomeSent = false
	c.lastErr = ""
	ev := c.changedLocked()
	c.mu.Unlock()

	c.publish([]Event{ev})
	if c.recorder != nil {
		if err := c.recorder.Forget(ctx); err != nil {
			log.Printf("game: forget session: %v", err)
		}
	}
}

// runEngineMove expects engineInFlight to be set for gen. Every path
// that still owns gen clears it.
func (c *Controller) runEngineMove(ctx context.Context, gen uint64, cancel <-chan struct{}) error {
	timer := time.NewTimer(c.pacing.next())
	select {
	case <-timer.C:
	case <-cancel:
		timer.Stop()
		return nil
	case <-ctx.Done():
		timer.Stop()
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return nil
		}
		c.engineInFlight = false
		ev := c.changedLocked()
		c.mu.Unlock()
		c.publish([]Event{ev})
		return ctx.Err()
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	board, id := c.session.Board.Clone(), c.session.ID
	c.mu.Unlock()

	resp, err := c.api.EngineMove(ctx, board, id)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	c.engineInFlight = false
	if err != nil {
		events := c.failLocked(err)
		c.mu.Unlock()
		c.publish(events)
		return err
	}

	c.lastErr = ""
	c.session.Board = resp.Board.Clone()
	c.session.Status = resp.Status
	c.session.CurrentPlayer = c.session.CurrentPlayer.Opponent()
	var events []Event
	if resp.Status.Terminal() {
		events = c.finishLocked(resp.Winner)
	}
	events = append(events, c.changedLocked())
	sess := c.session.Clone()
	c.mu.Unlock()

	c.publish(events)
	c.record(ctx, sess)
	return nil
}

// adoptLocked installs sess as a new generation. Pending replies for the
// previous generation are invalidated and its pacing delay is canceled.
func (c *Controller) adoptLocked(sess models.GameSession, resumed bool) (uint64, chan struct{}, []Event) {
	c.invalidateLocked()
	c.session = sess.Clone()
	c.state = stateFor(sess.Status)
	c.lastErr = ""
	c.outcomeSent = false

	var events []Event
	if c.state == StateTerminal {
		if resumed {
			c.outcomeSent = true
		} else {
			events = c.finishLocked(sess.Winner)
		}
	}
	return c.gen, c.cancel, events
}

func (c *Controller) invalidateLocked() {
	c.gen++
	close(c.cancel)
	c.cancel = make(chan struct{})
	c.engineInFlight = false
	c.busy = false
}

// finishLocked moves to StateTerminal and yields the outcome event the
// first time it is called for the current session.
func (c *Controller) finishLocked(winner *models.Player) []Event {
	c.state = StateTerminal
	if winner == nil {
		if p, ok := c.session.Status.Winner(); ok {
			winner = &p
		}
	}
	if winner != nil {
		w := *winner
		c.session.Winner = &w
	}
	if c.outcomeSent {
		return nil
	}
	c.outcomeSent = true
	return []Event{{
		Kind:     EventOutcome,
		Snapshot: c.snapshotLocked(),
		Outcome: Outcome{
			Status:  c.session.Status,
			Winner:  c.session.Winner,
			Message: OutcomeMessage(c.session.Status),
		},
	}}
}

func (c *Controller) failLocked(err error) []Event {
	c.lastErr = err.Error()
	snap := c.snapshotLocked()
	return []Event{
		{Kind: EventError, Snapshot: snap, Err: err},
		{Kind: EventStateChanged, Snapshot: snap},
	}
}

func (c *Controller) changedLocked() Event {
	return Event{Kind: EventStateChanged, Snapshot: c.snapshotLocked()}
}

func (c *Controller) snapshotLocked() Snapshot {
	c.seq++
	snap := Snapshot{
		Seq:            c.seq,
		State:          c.state,
		EngineInFlight: c.engineInFlight,
		Busy:           c.busy || c.creating,
		LastError:      c.lastErr,
	}
	if c.state != StateNoSession {
		snap.Session = c.session.Clone()
	}
	return snap
}

func (c *Controller) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	c.subMu.Lock()
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

func (c *Controller) record(ctx context.Context, sess models.GameSession) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, sess); err != nil {
		log.Printf("game: record session %d: %v", sess.ID, err)
	}
}
