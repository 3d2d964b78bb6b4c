package relay

import (
	"math"
	"sync"
	"time"

	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/jkaflik/cover2mqtt/internal/cover/lut"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	notifyPeriodRatio    = 5
	keepAlivePeriodRatio = 4
)

type Config struct {
	// FullTravel is the time of one end to end traversal.
	FullTravel time.Duration
	// InitialPosition is the linear position assumed at startup, lut.Invalid when unknown.
	InitialPosition int
}

func (c Config) NotifyPeriod() time.Duration {
	return c.FullTravel / notifyPeriodRatio
}

func (c Config) KeepAlivePeriod() time.Duration {
	return c.FullTravel * keepAlivePeriodRatio
}

// overrunBudget is the full travel time plus a 10% margin.
func (c Config) overrunBudget() time.Duration {
	return c.FullTravel * 11 / 10
}

type motion struct {
	current int
	target  int
	origin  int

	startedAt time.Time
	budget    time.Duration
}

// RelaysCover estimates the position of a cover driven by a raise and a lower
// relay from the time its motor has been running.
type RelaysCover struct {
	mu sync.Mutex
	// dispatchMu is taken before mu is released, so handlers see events in
	// the order they were produced.
	dispatchMu sync.Mutex

	name  string
	pair  *Pair
	cfg   Config
	clock cover.Clock

	updateHandler cover.UpdateHandler
	pending       []cover.Event

	state    cover.State
	moving   Direction
	motion   motion
	reporter reporter
}

func NewRelaysCover(name string, up Relay, down Relay, cfg Config, clock cover.Clock) (*RelaysCover, error) {
	if cfg.FullTravel <= 0 {
		return nil, errors.Errorf("%s: full travel duration must be positive, got %s", name, cfg.FullTravel)
	}
	if cfg.InitialPosition != lut.Invalid && (cfg.InitialPosition < lut.Closed || cfg.InitialPosition > lut.Open) {
		return nil, errors.Errorf("%s: initial position %d is out of range", name, cfg.InitialPosition)
	}
	if clock == nil {
		clock = cover.SystemClock{}
	}

	s := &RelaysCover{
		name:     name,
		pair:     NewRelayPair(up, down),
		cfg:      cfg,
		clock:    clock,
		state:    cover.StateIdle,
		reporter: newReporter(cfg),
	}
	s.motion.current = cfg.InitialPosition
	s.motion.target = cfg.InitialPosition
	s.motion.origin = cfg.InitialPosition

	logrus.Infof("%s: full travel %s, notify every %s, keep alive every %s",
		name, cfg.FullTravel, cfg.NotifyPeriod(), cfg.KeepAlivePeriod())

	return s, nil
}

func (s *RelaysCover) Name() string {
	return s.name
}

func (s *RelaysCover) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.event().Level
}

func (s *RelaysCover) State() cover.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *RelaysCover) Operation() cover.Operation {
	return cover.OperationOf(s.State())
}

func (s *RelaysCover) Status() cover.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cover.Status{Level: s.event().Level, State: s.state}
}

// Position returns the estimated linear travel position, lut.Invalid when unknown.
func (s *RelaysCover) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.motion.current
}

func (s *RelaysCover) OnUpdate(h cover.UpdateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateHandler = h
}

func (s *RelaysCover) SetPosition(level float64) error {
	logrus.Infof("%s: set position to %.2f", s.name, level)
	if math.IsNaN(level) {
		return errors.Errorf("%s: position is not a number", s.name)
	}

	s.mu.Lock()
	err := s.requestOpeningLevel(level)
	s.unlockAndDispatch()

	return err
}

func (s *RelaysCover) Stop() error {
	logrus.Infof("%s: stop", s.name)

	s.mu.Lock()
	s.state = cover.StateIdle
	err := s.halt()
	s.emit()
	s.unlockAndDispatch()

	return err
}

// MarkFaulted releases both relays and parks the cover in the error state
// until the next position or stop command.
func (s *RelaysCover) MarkFaulted(reason string) {
	logrus.Warnf("%s: marked faulted: %s", s.name, reason)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = cover.StateError
	if err := s.halt(); err != nil {
		logrus.Errorf("%s: %s", s.name, err)
	}
}

func (s *RelaysCover) Tick() {
	s.mu.Lock()
	now := s.clock.Now()
	s.step(now)
	if s.reporter.due(s.state, now) {
		logrus.Debugf("%s: position %d", s.name, s.motion.current)
		s.emit()
	}
	s.unlockAndDispatch()
}

// halt releases both relays and forgets the running direction, so the next
// tick in a rolling state starts a new move.
func (s *RelaysCover) halt() error {
	s.moving = None

	return errors.Wrapf(s.pair.Release(), "%s: halt", s.name)
}

func (s *RelaysCover) event() cover.Event {
	e := cover.Event{Level: cover.UnknownLevel, Operation: cover.OperationOf(s.state)}
	if level := lut.ToOpeningLevel(s.motion.current); level != lut.Invalid {
		e.Level = float64(level) / 100
	}

	return e
}

func (s *RelaysCover) emit() {
	e := s.event()
	logrus.Debugf("%s: state %s, level %.2f", s.name, s.state, e.Level)
	s.pending = append(s.pending, e)
}

// unlockAndDispatch releases mu and delivers the queued events. It must be
// called with mu held.
func (s *RelaysCover) unlockAndDispatch() {
	events := s.pending
	s.pending = nil
	h := s.updateHandler

	if h == nil || len(events) == 0 {
		s.mu.Unlock()
		return
	}

	s.dispatchMu.Lock()
	s.mu.Unlock()
	defer s.dispatchMu.Unlock()

	for _, e := range events {
		h(e)
	}
}
