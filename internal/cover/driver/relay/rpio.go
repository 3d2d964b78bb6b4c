package relay

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stianeikeland/go-rpio/v4"
)

var (
	rpioOnce      sync.Once
	rpioOpenErr   error
	rpioCloseOnce sync.Once
)

// OpenRpio maps the Raspberry Pi GPIO registers. Safe to call more than once.
func OpenRpio() error {
	rpioOnce.Do(func() {
		rpioOpenErr = rpio.Open()
		if rpioOpenErr == nil {
			logrus.Debug("rpio: gpio memory mapped")
		}
	})

	return errors.Wrap(rpioOpenErr, "rpio: open (are you running on a Raspberry Pi?)")
}

// CloseRpio unmaps the GPIO registers. Only the first call has an effect.
func CloseRpio() (err error) {
	rpioCloseOnce.Do(func() {
		err = rpio.Close()
	})

	return err
}

// RpioPin is a memory mapped Raspberry Pi output (BCM numbering).
type RpioPin struct {
	pin rpio.Pin
}

func NewRpioPin(bcm int) (*RpioPin, error) {
	if err := OpenRpio(); err != nil {
		return nil, err
	}

	p := rpio.Pin(bcm)
	p.Output()

	return &RpioPin{pin: p}, nil
}

func (r *RpioPin) High() error {
	r.pin.High()
	return nil
}

func (r *RpioPin) Low() error {
	r.pin.Low()
	return nil
}
