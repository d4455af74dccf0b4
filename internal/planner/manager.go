// Package planner tracks seating optimizer runs. Runs execute on background
// goroutines; the manager keeps an in-memory registry so HTTP handlers can
// poll progress, fetch results and cancel, and allows at most one running
// optimization per event.
package planner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wedding-planner/internal/metrics"
	"wedding-planner/internal/queue"
	"wedding-planner/internal/seating"
)

// Run states.
const (
	StateRunning   = "RUNNING"
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
	StateCancelled = "CANCELLED"
)

var (
	// ErrRunActive is returned when an event already has a run in flight.
	ErrRunActive = errors.New("an optimization run is already active for this event")
	// ErrRunNotFound is returned for unknown run IDs.
	ErrRunNotFound = errors.New("run not found")
)

// Publisher delivers a finished-run event to the broker. nil disables
// publishing.
type Publisher func(ctx context.Context, ev queue.SeatingOptimizedEvent) error

// run is the manager's mutable record of one optimization.
type run struct {
	id         string
	eventID    uint64
	eventName  string
	state      string
	guestCount int
	tableCount int
	progress   seating.Progress
	result     *seating.Result
	errMsg     string
	startedAt  time.Time
	finishedAt time.Time
	cancel     context.CancelFunc
}

// RunView is an immutable snapshot of a run handed out to handlers.
type RunView struct {
	ID         string           `json:"id"`
	EventID    uint64           `json:"event_id"`
	State      string           `json:"state"`
	Progress   seating.Progress `json:"progress"`
	Result     *seating.Result  `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// Manager owns all runs of the process.
type Manager struct {
	log *zap.Logger
	pub Publisher

	mu     sync.RWMutex
	runs   map[string]*run
	active map[uint64]string // eventID -> id of its RUNNING run

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager constructs a Manager. pub may be nil when no broker is
// configured.
func NewManager(log *zap.Logger, pub Publisher) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		log:        log,
		pub:        pub,
		runs:       make(map[string]*run),
		active:     make(map[uint64]string),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Start validates the event's data against the criteria, registers a run and
// launches the optimization in the background. Infeasible input fails here,
// synchronously, before any run is recorded.
func (m *Manager) Start(eventID uint64, eventName string, guests []seating.Guest, tables []seating.Table, cons []seating.Constraint, crit seating.Criteria) (RunView, error) {
	engine, err := seating.NewEngine(guests, tables, cons, crit)
	if err != nil {
		return RunView{}, err
	}

	m.mu.Lock()
	if id, ok := m.active[eventID]; ok {
		if r := m.runs[id]; r != nil && r.state == StateRunning {
			m.mu.Unlock()
			return RunView{}, ErrRunActive
		}
	}
	// Only the latest finished run per event is kept around.
	for id, r := range m.runs {
		if r.eventID == eventID && r.state != StateRunning {
			delete(m.runs, id)
		}
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	r := &run{
		id:         uuid.NewString(),
		eventID:    eventID,
		eventName:  eventName,
		state:      StateRunning,
		guestCount: len(guests),
		tableCount: len(tables),
		progress:   seating.Progress{MaxGenerations: crit.MaxGenerations},
		startedAt:  time.Now().UTC(),
		cancel:     cancel,
	}
	m.runs[r.id] = r
	m.active[eventID] = r.id
	view := m.snapshot(r)
	m.mu.Unlock()

	engine.OnProgress(func(p seating.Progress) {
		m.mu.Lock()
		r.progress = p
		m.mu.Unlock()
	})

	metrics.SeatingRunsStarted.Inc()
	m.log.Info("seating run started",
		zap.String("run_id", r.id),
		zap.Uint64("event_id", eventID),
		zap.Int("guests", len(guests)),
		zap.Int("tables", len(tables)))

	m.wg.Add(1)
	go m.execute(ctx, r, engine)

	return view, nil
}

// execute drives one optimization to a terminal state.
func (m *Manager) execute(ctx context.Context, r *run, engine *seating.Engine) {
	defer m.wg.Done()

	res, err := engine.Run(ctx)

	state := StateCompleted
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		state = StateCancelled
	default:
		// Includes ErrConstraintsUnsatisfied; the best-effort result is
		// still attached so callers can inspect what was violated.
		state = StateFailed
	}

	m.mu.Lock()
	r.state = state
	r.result = res
	if err != nil {
		r.errMsg = err.Error()
	}
	r.finishedAt = time.Now().UTC()
	if m.active[r.eventID] == r.id {
		delete(m.active, r.eventID)
	}
	view := m.snapshot(r)
	m.mu.Unlock()

	metrics.SeatingRunsFinished.WithLabelValues(strings.ToLower(state)).Inc()
	if res != nil {
		metrics.SeatingRunDuration.Observe(res.Elapsed.Seconds())
		if state == StateCompleted {
			metrics.SeatingRunScore.Observe(res.Score)
		}
	}

	fields := []zap.Field{
		zap.String("run_id", r.id),
		zap.Uint64("event_id", r.eventID),
		zap.String("state", state),
	}
	if res != nil {
		fields = append(fields,
			zap.Float64("score", res.Score),
			zap.Int("hard_violations", res.HardViolations),
			zap.Int("generations", res.Generations),
			zap.Duration("elapsed", res.Elapsed))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	m.log.Info("seating run finished", fields...)

	m.publish(view)
}

// publish sends the terminal-state event to the broker, if one is wired.
func (m *Manager) publish(v RunView) {
	if m.pub == nil {
		return
	}
	ev := queue.SeatingOptimizedEvent{
		RunID:   v.ID,
		EventID: v.EventID,
		State:   v.State,
	}
	if v.FinishedAt != nil {
		ev.FinishedAt = v.FinishedAt.Format(time.RFC3339)
	}
	m.mu.RLock()
	if r, ok := m.runs[v.ID]; ok {
		ev.EventName = r.eventName
		ev.GuestCount = r.guestCount
		ev.TableCount = r.tableCount
	}
	m.mu.RUnlock()
	if v.Result != nil {
		ev.Score = v.Result.Score
		ev.HardViolations = v.Result.HardViolations
		ev.Generations = v.Result.Generations
		ev.ElapsedMS = v.Result.Elapsed.Milliseconds()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.pub(ctx, ev); err != nil {
		m.log.Warn("publish seating.optimized failed",
			zap.String("run_id", v.ID), zap.Error(err))
	}
}

// Get returns a snapshot of one run.
func (m *Manager) Get(id string) (RunView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return RunView{}, ErrRunNotFound
	}
	return m.snapshot(r), nil
}

// GetForEvent returns the most relevant run of an event: the running one if
// any, otherwise the latest finished run.
func (m *Manager) GetForEvent(eventID uint64) (RunView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.active[eventID]; ok {
		if r, found := m.runs[id]; found {
			return m.snapshot(r), nil
		}
	}
	var latest *run
	for _, r := range m.runs {
		if r.eventID != eventID {
			continue
		}
		if latest == nil || r.startedAt.After(latest.startedAt) {
			latest = r
		}
	}
	if latest == nil {
		return RunView{}, ErrRunNotFound
	}
	return m.snapshot(latest), nil
}

// Cancel stops a running optimization. The run keeps its best result so far
// and moves to CANCELLED. Cancelling an already finished run is a no-op.
func (m *Manager) Cancel(id string) error {
	m.mu.RLock()
	r, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return ErrRunNotFound
	}
	r.cancel()
	return nil
}

// Close cancels every running optimization and waits for their goroutines.
func (m *Manager) Close() {
	m.baseCancel()
	m.wg.Wait()
}

// snapshot copies the mutable run record. Callers must hold m.mu.
func (m *Manager) snapshot(r *run) RunView {
	v := RunView{
		ID:        r.id,
		EventID:   r.eventID,
		State:     r.state,
		Progress:  r.progress,
		Result:    r.result, // results are immutable once set
		Error:     r.errMsg,
		StartedAt: r.startedAt,
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		v.FinishedAt = &t
	}
	return v
}
