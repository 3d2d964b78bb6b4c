package relay

import (
	"github.com/sirupsen/logrus"
)

// Relay is a single motor output. Enable energizes it, Disable releases it.
type Relay interface {
	Enable() error
	Disable() error
	IsEnabled() bool
}

type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Dumb is a relay without hardware behind it. It only logs transitions.
type Dumb struct {
	Name string

	isEnabled bool
}

func (r *Dumb) Enable() error {
	if !r.isEnabled {
		logrus.Warnf("%s: dumb relay enabled", r.Name)
	}
	r.isEnabled = true

	return nil
}

func (r *Dumb) Disable() error {
	if r.isEnabled {
		logrus.Warnf("%s: dumb relay disabled", r.Name)
	}
	r.isEnabled = false

	return nil
}

func (r *Dumb) IsEnabled() bool {
	return r.isEnabled
}
