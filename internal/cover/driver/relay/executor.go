package relay

import (
	"time"

	"github.com/jkaflik/cover2mqtt/internal/cover"
	"github.com/jkaflik/cover2mqtt/internal/cover/lut"
	"github.com/sirupsen/logrus"
)

func (s *RelaysCover) step(now time.Time) {
	switch s.state {
	case cover.StateIdle:
		if err := s.halt(); err != nil {
			logrus.Errorf("%s: %s", s.name, err)
		}
	case cover.StateRollingUp:
		s.roll(now, Up)
	case cover.StateRollingDown:
		s.roll(now, Down)
	}
}

func (s *RelaysCover) roll(now time.Time, d Direction) {
	if s.moving != d {
		logrus.Infof("%s: started roll %s to %d from %d", s.name, d, s.motion.target, s.motion.current)
		s.moving = d
		s.motion.startedAt = now
		s.motion.origin = s.motion.current
		if err := s.pair.Energize(d); err != nil {
			logrus.Errorf("%s: %s", s.name, err)
		}
	}

	elapsed := now.Sub(s.motion.startedAt)
	extreme := lut.Open
	if d == Down {
		extreme = lut.Closed
	}

	if s.motion.current != lut.Invalid && s.motion.current != extreme {
		s.motion.current = s.estimate(elapsed, d)
	}

	switch {
	case s.motion.budget > 0 && elapsed > s.motion.budget:
		logrus.Infof("%s: stopped roll %s after %s", s.name, d, elapsed)
		if s.motion.target == extreme {
			s.motion.current = extreme
		}
		s.finish()
	case elapsed > s.cfg.overrunBudget():
		logrus.Warnf("%s: roll %s ran for %s, forcing position %d", s.name, d, elapsed, extreme)
		s.motion.current = extreme
		s.finish()
	}
}

func (s *RelaysCover) finish() {
	s.state = cover.StateIdle
	if err := s.halt(); err != nil {
		logrus.Errorf("%s: %s", s.name, err)
	}
	s.emit()
}

func (s *RelaysCover) estimate(elapsed time.Duration, d Direction) int {
	if d == Up {
		return min(s.motion.origin+s.travelled(elapsed), lut.Open)
	}

	return max(s.motion.origin-s.travelled(elapsed), lut.Closed)
}
