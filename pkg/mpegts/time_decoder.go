// Package mpegts contains MPEG-TS utilities.
package mpegts

const (
	maximum           = 0x1FFFFFFFF // 33 bits
	negativeThreshold = 0x1FFFFFFFF / 2
	clockRate         = 90000
	timeBase          = 1000000
)

// TimeDecoder converts 33-bit MPEG-TS timestamps into
// monotonic microseconds, handling wraparounds.
type TimeDecoder struct {
	overall int64
	prev    int64
}

// NewTimeDecoder allocates a TimeDecoder.
// The start timestamp is mapped to zero.
func NewTimeDecoder(start int64) *TimeDecoder {
	return &TimeDecoder{
		prev: start,
	}
}

// Decode decodes a MPEG-TS timestamp.
func (d *TimeDecoder) Decode(ts int64) int64 {
	diff := (ts - d.prev) & maximum

	// negative difference
	if diff > negativeThreshold {
		diff = (d.prev - ts) & maximum
		d.prev = ts
		d.overall -= diff
	} else {
		d.prev = ts
		d.overall += diff
	}

	// split the division to preserve resolution without overflowing
	secs := d.overall / clockRate
	dec := d.overall % clockRate
	return secs*timeBase + dec*timeBase/clockRate
}

// toClock converts microseconds into 90khz units.
func toClock(v int64) int64 {
	secs := v / timeBase
	dec := v % timeBase
	return secs*clockRate + dec*clockRate/timeBase
}
