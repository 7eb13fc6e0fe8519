package audio

import (
	"fmt"
)

// Converter converts frames into a target sample format, channel count
// and sample rate. Resampling is linear and keeps its fractional position
// across frames, so the output sample count never drifts.
type Converter struct {
	Format     SampleFormat
	SampleRate int
	Channels   int

	inRate   int
	totalIn  int64
	totalOut int64
}

// OutputSamples returns the number of samples that converting n input samples
// at rate inRate would produce, without changing the converter state.
func (c *Converter) OutputSamples(n int, inRate int) int {
	if inRate == c.SampleRate || inRate <= 0 {
		return n
	}
	totalIn := c.totalIn
	totalOut := c.totalOut
	if inRate != c.inRate {
		totalIn, totalOut = 0, 0
	}
	newOut := (totalIn + int64(n)) * int64(c.SampleRate) / int64(inRate)
	return int(newOut - totalOut)
}

// Convert converts a frame. When mute is true, the output has the same geometry
// but contains only silence.
func (c *Converter) Convert(in *Frame, mute bool) (*Frame, error) {
	err := in.Validate()
	if err != nil {
		return nil, err
	}

	if c.Format.BytesPerSample() == 0 || c.Channels <= 0 || c.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid converter configuration")
	}

	if in.SampleRate != c.inRate {
		c.inRate = in.SampleRate
		c.totalIn = 0
		c.totalOut = 0
	}

	outN := c.OutputSamples(in.NumSamples, in.SampleRate)
	c.totalIn += int64(in.NumSamples)
	c.totalOut += int64(outN)

	out := NewFrame(c.Format, c.SampleRate, c.Channels, outN)
	out.PTS = in.PTS

	if mute {
		out.FillSilence()
		return out, nil
	}

	for i := 0; i < outN; i++ {
		pos := float64(i) * float64(in.NumSamples) / float64(max(outN, 1))
		i0 := int(pos)
		if i0 >= in.NumSamples {
			i0 = in.NumSamples - 1
		}
		i1 := i0 + 1
		if i1 >= in.NumSamples {
			i1 = i0
		}
		frac := pos - float64(i0)

		for ch := 0; ch < c.Channels; ch++ {
			v := mixSample(in, ch, c.Channels, i0)*(1-frac) + mixSample(in, ch, c.Channels, i1)*frac
			out.SetSample(ch, i, v)
		}
	}

	return out, nil
}

// mixSample returns the input sample that feeds output channel ch.
// Downmixing to mono averages all input channels.
func mixSample(in *Frame, ch int, outChannels int, i int) float64 {
	if outChannels == 1 && in.Channels > 1 {
		var sum float64
		for c := 0; c < in.Channels; c++ {
			sum += in.Sample(c, i)
		}
		return sum / float64(in.Channels)
	}

	if ch >= in.Channels {
		ch = in.Channels - 1
	}
	return in.Sample(ch, i)
}
