package relay

import (
	"time"

	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	calibrationPulse   = 250 * time.Millisecond
	calibrationSpacing = 250 * time.Millisecond
	calibrationHold    = 2500 * time.Millisecond
)

var calibrationSequences = map[cover.CalibrationAction][]Direction{
	cover.CalibrationReset:     {Up, Up, Down, Up, Up, Down},
	cover.CalibrationRaiseTrim: {Up, Up, Up},
	cover.CalibrationLowerTrim: {Down, Down, Down},
}

// Calibrate plays a key sequence on the relays, as if the motor's own
// buttons were pressed. It holds the cover for the whole sequence, so ticks
// and commands wait until it is done.
func (s *RelaysCover) Calibrate(action cover.CalibrationAction) error {
	sequence, ok := calibrationSequences[action]
	if !ok {
		return errors.Errorf("%s: %d is not a calibration action", s.name, action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == cover.StateRollingUp || s.state == cover.StateRollingDown {
		return errors.Errorf("%s: can not calibrate while %s", s.name, s.state)
	}

	logrus.Infof("%s: %s calibration", s.name, action)
	last := len(sequence) - 1
	for i, d := range sequence {
		hold := calibrationPulse
		if i == last {
			hold = calibrationHold
		}
		logrus.Debugf("%s: calibration step %d: %s for %s", s.name, i, d, hold)
		if err := s.pulse(s.pair.Relay(d), hold); err != nil {
			return errors.Wrapf(err, "%s: calibration step %d", s.name, i)
		}
	}
	logrus.Infof("%s: %s calibration done", s.name, action)

	return nil
}

func (s *RelaysCover) pulse(r Relay, hold time.Duration) error {
	if err := r.Enable(); err != nil {
		return err
	}
	s.clock.Sleep(hold)
	if err := r.Disable(); err != nil {
		return err
	}
	s.clock.Sleep(calibrationSpacing)

	return nil
}
