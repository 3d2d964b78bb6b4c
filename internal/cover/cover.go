package cover

import (
	"time"
)

type State int

const (
	StateIdle State = iota
	StateRollingUp
	StateRollingDown
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRollingUp:
		return "rolling up"
	case StateRollingDown:
		return "rolling down"
	default:
		return "error"
	}
}

type Operation string

const (
	OperationOpening Operation = "opening"
	OperationClosing Operation = "closing"
	OperationIdle    Operation = "idle"
)

// OperationOf derives the reported operation from a movement state.
func OperationOf(s State) Operation {
	switch s {
	case StateRollingUp:
		return OperationOpening
	case StateRollingDown:
		return OperationClosing
	default:
		return OperationIdle
	}
}

// UnknownLevel is reported while the cover has not reached a travel extreme yet.
const UnknownLevel = -1.0

// Event is a position/state report. Level is the opening level in [0,1] or UnknownLevel.
type Event struct {
	Level     float64
	Operation Operation
}

func (e Event) Known() bool {
	return e.Level >= 0
}

type UpdateHandler func(e Event)

// Status is a consistent view of a cover taken at one instant.
type Status struct {
	Level float64
	State State
}

func (s Status) Operation() Operation {
	return OperationOf(s.State)
}

type CalibrationAction int

const (
	CalibrationReset CalibrationAction = iota
	CalibrationRaiseTrim
	CalibrationLowerTrim
)

func (a CalibrationAction) String() string {
	switch a {
	case CalibrationReset:
		return "reset"
	case CalibrationRaiseTrim:
		return "raise-trim"
	case CalibrationLowerTrim:
		return "lower-trim"
	default:
		return "unknown"
	}
}

type Cover interface {
	Name() string

	Level() float64
	State() State
	Operation() Operation
	Status() Status

	OnUpdate(h UpdateHandler)

	// SetPosition moves the cover to an opening level in [0,1]. Values outside are clamped.
	SetPosition(level float64) error
	Stop() error
	// Calibrate runs a calibration pulse sequence. It blocks for the whole sequence.
	Calibrate(action CalibrationAction) error

	// Tick advances the cover by one step. It must be called periodically.
	Tick()
}

// FaultableCover can be put in the error state by its owner.
type FaultableCover interface {
	Cover

	MarkFaulted(reason string)
}

type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
