package audio

import (
	"fmt"
)

// Frame is a block of raw audio samples.
type Frame struct {
	Format     SampleFormat
	SampleRate int
	Channels   int
	NumSamples int

	// one plane for interleaved formats, one plane per channel for planar ones.
	Data [][]byte

	// presentation timestamp, in pipeline time units.
	PTS int64
}

// NewFrame allocates a silent frame.
func NewFrame(format SampleFormat, sampleRate int, channels int, numSamples int) *Frame {
	f := &Frame{
		Format:     format,
		SampleRate: sampleRate,
		Channels:   channels,
		NumSamples: numSamples,
	}

	planes, planeSize := f.layout()
	f.Data = make([][]byte, planes)
	for i := range f.Data {
		f.Data[i] = make([]byte, planeSize)
	}

	if format.silence() != 0 {
		f.FillSilence()
	}

	return f
}

func (f *Frame) layout() (int, int) {
	if f.Format.IsPlanar() {
		return f.Channels, f.NumSamples * f.Format.BytesPerSample()
	}
	return 1, f.NumSamples * f.Channels * f.Format.BytesPerSample()
}

// Validate checks that the frame planes match its geometry.
func (f *Frame) Validate() error {
	if f.Format.BytesPerSample() == 0 {
		return fmt.Errorf("invalid sample format")
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}

	planes, planeSize := f.layout()
	if len(f.Data) != planes {
		return fmt.Errorf("expected %d planes, got %d", planes, len(f.Data))
	}

	for _, plane := range f.Data {
		if len(plane) < planeSize {
			return fmt.Errorf("plane is too small: %d < %d", len(plane), planeSize)
		}
	}

	return nil
}

// sampleOffset returns the plane index and byte offset of a sample.
func (f *Frame) sampleOffset(ch int, i int) (int, int) {
	bps := f.Format.BytesPerSample()
	if f.Format.IsPlanar() {
		return ch, i * bps
	}
	return 0, (i*f.Channels + ch) * bps
}

// Sample returns a sample, normalized to the [-1, 1] range.
func (f *Frame) Sample(ch int, i int) float64 {
	plane, off := f.sampleOffset(ch, i)
	return f.Format.decode(f.Data[plane][off:])
}

// SetSample sets a sample, normalized to the [-1, 1] range.
func (f *Frame) SetSample(ch int, i int, v float64) {
	plane, off := f.sampleOffset(ch, i)
	f.Format.encode(f.Data[plane][off:], v)
}

// FillSilence overwrites all samples with silence.
func (f *Frame) FillSilence() {
	b := f.Format.silence()
	for _, plane := range f.Data {
		for i := range plane {
			plane[i] = b
		}
	}
}
