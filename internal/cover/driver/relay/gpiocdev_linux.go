//go:build linux

package relay

import (
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

// GpiocdevPin is an output line requested through the GPIO character device.
type GpiocdevPin struct {
	line *gpiocdev.Line
}

// NewGpiocdevPin requests offset on chip as an output, initially low.
func NewGpiocdevPin(chip string, offset int) (*GpiocdevPin, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, errors.Wrapf(err, "gpiocdev: request %s line %d", chip, offset)
	}

	return &GpiocdevPin{line: line}, nil
}

func (g *GpiocdevPin) High() error {
	return g.line.SetValue(1)
}

func (g *GpiocdevPin) Low() error {
	return g.line.SetValue(0)
}

// Close returns the line to an input so nothing stays driven after exit.
func (g *GpiocdevPin) Close() error {
	if err := g.line.Reconfigure(gpiocdev.AsInput); err != nil {
		return errors.Wrap(err, "gpiocdev: reconfigure line as input")
	}

	return g.line.Close()
}
