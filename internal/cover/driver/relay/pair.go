package relay

import (
	"sync"

	"github.com/pkg/errors"
)

type Direction int

const (
	None Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// Pair interlocks the raise and lower relays of a motor: at most one of them
// is enabled, and enabling one always releases the other first.
type Pair struct {
	l    sync.Mutex
	up   Relay
	down Relay
}

func NewRelayPair(up, down Relay) *Pair {
	return &Pair{up: up, down: down}
}

func (p *Pair) Relay(d Direction) Relay {
	switch d {
	case Up:
		return p.up
	case Down:
		return p.down
	default:
		return nil
	}
}

// Energize releases the opposite relay and enables the one for d.
func (p *Pair) Energize(d Direction) error {
	p.l.Lock()
	defer p.l.Unlock()

	on, off := p.up, p.down
	if d == Down {
		on, off = p.down, p.up
	} else if d != Up {
		return errors.Errorf("can not energize direction %s", d)
	}

	if err := off.Disable(); err != nil {
		return errors.Wrapf(err, "release %s before energizing %s", opposite(d), d)
	}

	return errors.Wrapf(on.Enable(), "energize %s", d)
}

// Release disables both relays. Both are attempted even when the first fails.
func (p *Pair) Release() error {
	p.l.Lock()
	defer p.l.Unlock()

	errUp := p.up.Disable()
	errDown := p.down.Disable()
	if errUp != nil {
		return errors.Wrap(errUp, "release up")
	}

	return errors.Wrap(errDown, "release down")
}

// Energized reports which relay is enabled, None when both are released.
func (p *Pair) Energized() Direction {
	p.l.Lock()
	defer p.l.Unlock()

	switch {
	case p.up.IsEnabled():
		return Up
	case p.down.IsEnabled():
		return Down
	default:
		return None
	}
}

func opposite(d Direction) Direction {
	if d == Up {
		return Down
	}
	return Up
}
