package relay

import (
	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
)

type SetPin interface {
	High() error
	Low() error
}

type Mcp23017Pin struct {
	device *mcp23017.Device
	pin    uint8
}

func NewMcp23017Pin(device *mcp23017.Device, pin uint8) (p *Mcp23017Pin, err error) {
	p = &Mcp23017Pin{}
	p.device = device
	p.pin = pin
	err = p.device.PinMode(pin, mcp23017.OUTPUT)
	return p, errors.Wrapf(err, "mcp23017: pin %d output mode", pin)
}

func (m *Mcp23017Pin) High() error {
	return m.device.DigitalWrite(m.pin, mcp23017.HIGH)
}

func (m *Mcp23017Pin) Low() error {
	return m.device.DigitalWrite(m.pin, mcp23017.LOW)
}

// Wired drives a relay coil through a pin. ActiveLevel is the level that energizes it.
type Wired struct {
	Pin         SetPin
	ActiveLevel Level

	isEnabled bool
}

func (p *Wired) Enable() error {
	if err := p.write(p.ActiveLevel); err != nil {
		return errors.Wrap(err, "wired relay enable")
	}
	p.isEnabled = true

	return nil
}

func (p *Wired) Disable() error {
	if err := p.write(!p.ActiveLevel); err != nil {
		return errors.Wrap(err, "wired relay disable")
	}
	p.isEnabled = false

	return nil
}

func (p *Wired) IsEnabled() bool {
	return p.isEnabled
}

func (p *Wired) write(level Level) error {
	if level == High {
		return p.Pin.High()
	}

	return p.Pin.Low()
}
