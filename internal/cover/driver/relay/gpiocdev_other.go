//go:build !linux

package relay

import "github.com/pkg/errors"

type GpiocdevPin struct{}

func NewGpiocdevPin(chip string, offset int) (*GpiocdevPin, error) {
	return nil, errors.New("gpiocdev: not supported on this platform (requires Linux)")
}

func (g *GpiocdevPin) High() error {
	return errors.New("gpiocdev: not supported")
}

func (g *GpiocdevPin) Low() error {
	return errors.New("gpiocdev: not supported")
}

func (g *GpiocdevPin) Close() error {
	return nil
}
