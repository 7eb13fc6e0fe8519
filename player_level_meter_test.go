package esplayer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vicon-security/esplayer/pkg/audio"
)

func constantFrame(format audio.SampleFormat, v int, n int, pts int64) *audio.Frame {
	fr := audio.NewFrame(format, 8000, 1, n)
	fr.PTS = pts
	for i := 0; i < n; i++ {
		switch format.BytesPerSample() {
		case 1:
			fr.Data[0][i] = byte(128 + v)
		case 2:
			binary.LittleEndian.PutUint16(fr.Data[0][i*2:], uint16(int16(v)))
		}
	}
	return fr
}

func TestMeanMagnitude(t *testing.T) {
	for _, ca := range []struct {
		name   string
		format audio.SampleFormat
		v      int
		mean   float64
	}{
		{"u8", audio.SampleFormatU8, -100, 100},
		{"s16", audio.SampleFormatS16, -1000, 1000},
		{"s16 silence", audio.SampleFormatS16, 0, 0},
		{"f32 unsupported", audio.SampleFormatF32, 0, 0},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.Equal(t, ca.mean, meanMagnitude(constantFrame(ca.format, ca.v, 10, 0)))
		})
	}
}

func TestDecibels(t *testing.T) {
	require.InDelta(t, 60, decibels(1000), 0.01)
	require.Equal(t, float64(0), decibels(0))
	require.Equal(t, float64(0), decibels(0.5))
}

func TestLevelMeterThrottling(t *testing.T) {
	var levels []float64
	var emitted []int64

	m := &playerLevelMeter{interval: 1}
	m.onLevel = func(level float64) {
		levels = append(levels, level)
		emitted = append(emitted, m.lastEmit)
	}

	// 3.5 seconds of frames, one every 100ms.
	for i := int64(0); i <= 35; i++ {
		m.update(constantFrame(audio.SampleFormatS16, 1000, 160, i*100000))
	}

	require.NotEmpty(t, levels)
	require.LessOrEqual(t, len(levels), 3)

	for i := 1; i < len(emitted); i++ {
		require.Greater(t, emitted[i]-emitted[i-1], int64(1000000))
	}

	// the running average converges to the level of the signal.
	require.InDelta(t, 60, levels[len(levels)-1], 0.01)
}

func TestLevelMeterDisabled(t *testing.T) {
	for _, interval := range []float64{0, -1} {
		m := &playerLevelMeter{
			interval: interval,
			onLevel: func(float64) {
				t.Error("should not happen")
			},
		}

		for i := int64(0); i < 100; i++ {
			m.update(constantFrame(audio.SampleFormatS16, 1000, 160, i*1000000))
		}
		require.Equal(t, float64(0), m.level)
	}
}
