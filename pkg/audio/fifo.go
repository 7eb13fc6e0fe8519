package audio

import (
	"fmt"
)

// FIFO is a queue of samples with a fixed format and channel count.
// It bridges producers and consumers that use different frame sizes.
type FIFO struct {
	format     SampleFormat
	sampleRate int
	channels   int

	planes [][]byte
	size   int
}

// NewFIFO allocates a FIFO.
func NewFIFO(format SampleFormat, sampleRate int, channels int) *FIFO {
	f := &FIFO{
		format:     format,
		sampleRate: sampleRate,
		channels:   channels,
	}

	if format.IsPlanar() {
		f.planes = make([][]byte, channels)
	} else {
		f.planes = make([][]byte, 1)
	}

	return f
}

// Size returns the number of samples per channel currently stored.
func (f *FIFO) Size() int {
	return f.size
}

// Write appends all the samples of a frame.
func (f *FIFO) Write(fr *Frame) error {
	if fr.Format != f.format || fr.Channels != f.channels {
		return fmt.Errorf("frame format (%v, %d channels) does not match FIFO format (%v, %d channels)",
			fr.Format, fr.Channels, f.format, f.channels)
	}

	err := fr.Validate()
	if err != nil {
		return err
	}

	_, planeSize := fr.layout()
	for i, plane := range fr.Data {
		f.planes[i] = append(f.planes[i], plane[:planeSize]...)
	}
	f.size += fr.NumSamples

	return nil
}

// Read removes n samples per channel from the head of the queue.
func (f *FIFO) Read(n int) (*Frame, error) {
	if n <= 0 || n > f.size {
		return nil, fmt.Errorf("unable to read %d samples, %d available", n, f.size)
	}

	fr := NewFrame(f.format, f.sampleRate, f.channels, n)
	_, planeSize := fr.layout()

	for i := range f.planes {
		copy(fr.Data[i], f.planes[i][:planeSize])
		f.planes[i] = append(f.planes[i][:0], f.planes[i][planeSize:]...)
	}
	f.size -= n

	return fr, nil
}

// Reset discards all samples and returns how many were discarded.
func (f *FIFO) Reset() int {
	n := f.size
	for i := range f.planes {
		f.planes[i] = f.planes[i][:0]
	}
	f.size = 0
	return n
}
