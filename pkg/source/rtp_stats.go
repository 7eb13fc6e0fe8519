package source

import (
	"time"
)

// rtpStats computes loss and interarrival jitter of a RTP stream,
// following the RTP receiver statistics model.
type rtpStats struct {
	clockRate int

	initialized bool
	start       time.Time
	baseSeq     uint16
	maxSeq      uint16
	cycles      int64
	received    int64
	prevTransit int64
	jitter      float64
}

func (s *rtpStats) update(seq uint16, ts uint32, now time.Time) {
	if !s.initialized {
		s.initialized = true
		s.start = now
		s.baseSeq = seq
		s.maxSeq = seq
		s.received = 1
		s.prevTransit = s.arrival(now) - int64(ts)
		return
	}

	delta := seq - s.maxSeq
	if delta < 0x8000 {
		if seq < s.maxSeq {
			s.cycles += 1 << 16
		}
		s.maxSeq = seq
	}
	s.received++

	transit := s.arrival(now) - int64(ts)
	d := transit - s.prevTransit
	s.prevTransit = transit
	if d < 0 {
		d = -d
	}
	s.jitter += (float64(d) - s.jitter) / 16
}

// arrival returns the arrival time in clock rate units.
func (s *rtpStats) arrival(now time.Time) int64 {
	d := now.Sub(s.start)
	secs := int64(d / time.Second)
	dec := int64(d % time.Second)
	return secs*int64(s.clockRate) + dec*int64(s.clockRate)/int64(time.Second)
}

func (s *rtpStats) lost() int64 {
	if !s.initialized {
		return 0
	}
	expected := s.cycles + int64(s.maxSeq) - int64(s.baseSeq) + 1
	return expected - s.received
}

// jitterMs returns the interarrival jitter in milliseconds.
func (s *rtpStats) jitterMs() float64 {
	if s.clockRate <= 0 {
		return 0
	}
	return s.jitter * 1000 / float64(s.clockRate)
}
