package esplayer

import (
	"encoding/binary"
	"math"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/espacket"
)

// meanMagnitude returns the mean absolute sample value of a frame.
// Only 8-bit and 16-bit samples are measured; other widths return 0.
func meanMagnitude(fr *audio.Frame) float64 {
	width := fr.Format.BytesPerSample()
	if width != 1 && width != 2 {
		return 0
	}

	var sum int64
	var count int64

	for _, plane := range fr.Data {
		for i := 0; i+width <= len(plane); i += width {
			var v int64
			if width == 1 {
				v = int64(plane[i]) - 128
			} else {
				v = int64(int16(binary.LittleEndian.Uint16(plane[i:])))
			}
			if v < 0 {
				v = -v
			}
			sum += v
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// decibels converts a mean magnitude into decibels.
// Magnitudes below 1 are reported as 0.
func decibels(mean float64) float64 {
	if mean < 1 {
		return 0
	}
	return 20 * math.Log(mean) * 0.4343
}

type playerLevelMeter struct {
	// minimum interval between emissions, in seconds.
	interval float64
	onLevel  func(level float64)

	level    float64
	lastEmit int64
}

func (m *playerLevelMeter) update(fr *audio.Frame) {
	if m.interval <= 0 {
		return
	}

	m.level = (m.level + decibels(meanMagnitude(fr))) / 2

	if espacket.ToSeconds(fr.PTS-m.lastEmit) > m.interval {
		m.lastEmit = fr.PTS
		m.onLevel(m.level)
	}
}
