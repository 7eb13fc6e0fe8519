package esplayer

import (
	"time"

	"github.com/vicon-security/esplayer/pkg/source"
)

const transportStatsPeriod = 1 * time.Second

type playerTransportStats struct {
	now     func() time.Time
	onStats func(lost int64, jitter float64, bitrate int64)

	last  time.Time
	bytes int64
}

func (s *playerTransportStats) initialize() {
	if s.now == nil {
		s.now = time.Now
	}
	s.last = s.now()
}

func (s *playerTransportStats) add(n int) {
	s.bytes += int64(n)
}

// update emits statistics at most once per period.
// The bitrate is expressed in kbit/s.
func (s *playerTransportStats) update(src source.Source) {
	now := s.now()
	elapsed := now.Sub(s.last)
	if elapsed < transportStatsPeriod {
		return
	}

	st, _ := src.TransportStats()
	bitrate := s.bytes * 8 * int64(time.Second) / int64(elapsed) / 1000

	s.last = now
	s.bytes = 0

	s.onStats(st.Lost, st.Jitter, bitrate)
}
