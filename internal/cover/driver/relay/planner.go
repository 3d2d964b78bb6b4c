package relay

import (
	"math"
	"time"

	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/jkaflik/cover2mqtt/internal/cover/lut"
	"github.com/sirupsen/logrus"
)

func (s *RelaysCover) requestOpeningLevel(level float64) error {
	requested := int(math.Round(level * 100))
	target := lut.ToLinearPosition(requested)
	logrus.Debugf("%s: requested level %d, linear target %d", s.name, requested, target)

	switch {
	case target <= lut.Closed:
		s.fullRollDown()
	case target >= lut.Open:
		s.fullRollUp()
	default:
		s.motion.target = target
	}

	return s.planToTarget()
}

func (s *RelaysCover) fullRollUp() {
	logrus.Debugf("%s: configure full roll up", s.name)
	s.motion.target = lut.Open
	s.motion.budget = s.cfg.overrunBudget()
	s.state = cover.StateRollingUp
}

func (s *RelaysCover) fullRollDown() {
	logrus.Debugf("%s: configure full roll down", s.name)
	s.motion.target = lut.Closed
	s.motion.budget = s.cfg.overrunBudget()
	s.state = cover.StateRollingDown
}

func (s *RelaysCover) planToTarget() error {
	if err := s.halt(); err != nil {
		s.state = cover.StateIdle
		return err
	}

	target, current := s.motion.target, s.motion.current
	if current == lut.Invalid {
		// unknown start: only the closed end is reachable by rolling down
		if target == lut.Closed {
			s.fullRollDown()
			return nil
		}
		current = lut.Closed
	}

	logrus.Infof("%s: go to position %d, current %d", s.name, target, s.motion.current)

	switch {
	case target > current:
		s.state = cover.StateRollingUp
		if target < lut.Open {
			s.motion.budget = s.travelTime(target - current)
		} else {
			s.fullRollUp()
		}
	case target < current:
		s.state = cover.StateRollingDown
		if target > lut.Closed {
			s.motion.budget = s.travelTime(current - target)
		} else {
			s.fullRollDown()
		}
	default:
		logrus.Debugf("%s: already on position %d", s.name, target)
		s.state = cover.StateIdle
		s.emit()
	}

	return nil
}

// travelTime is the time needed to move by delta percent of the full travel.
// Anything reaching the full travel gets the overrun margin.
func (s *RelaysCover) travelTime(delta int) time.Duration {
	t := time.Duration(delta) * s.cfg.FullTravel / 100
	if t >= s.cfg.FullTravel {
		t = s.cfg.overrunBudget()
	}
	logrus.Debugf("%s: move by %d takes %s", s.name, delta, t)

	return t
}

// travelled converts the elapsed motor time into linear travel.
func (s *RelaysCover) travelled(elapsed time.Duration) int {
	return int(elapsed * 100 / s.cfg.FullTravel)
}
