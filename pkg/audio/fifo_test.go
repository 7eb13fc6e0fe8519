package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rampFrame(format SampleFormat, channels int, n int, start int) *Frame {
	fr := NewFrame(format, 8000, channels, n)
	for i := 0; i < n; i++ {
		for ch := 0; ch < channels; ch++ {
			fr.SetSample(ch, i, float64((start+i)%100)/100)
		}
	}
	return fr
}

func TestFIFOPartialFills(t *testing.T) {
	for _, format := range []SampleFormat{SampleFormatS16, SampleFormatF32P} {
		t.Run(format.String(), func(t *testing.T) {
			f := NewFIFO(format, 8000, 2)

			written := 0
			for _, n := range []int{160, 160, 700, 3, 1024} {
				err := f.Write(rampFrame(format, 2, n, written))
				require.NoError(t, err)
				written += n
			}
			require.Equal(t, written, f.Size())

			read := 0
			for f.Size() >= 1024 {
				fr, err := f.Read(1024)
				require.NoError(t, err)
				require.Equal(t, 1024, fr.NumSamples)

				for i := 0; i < fr.NumSamples; i++ {
					require.InDelta(t, float64((read+i)%100)/100, fr.Sample(1, i), 0.0001)
				}
				read += 1024
			}

			require.Equal(t, written, read+f.Size())
			require.Equal(t, written-read, f.Reset())
			require.Equal(t, 0, f.Size())
		})
	}
}

func TestFIFOErrors(t *testing.T) {
	f := NewFIFO(SampleFormatS16, 8000, 1)

	err := f.Write(NewFrame(SampleFormatF32, 8000, 1, 10))
	require.Error(t, err)

	_, err = f.Read(1)
	require.Error(t, err)

	err = f.Write(NewFrame(SampleFormatS16, 8000, 1, 10))
	require.NoError(t, err)

	_, err = f.Read(11)
	require.Error(t, err)
}
