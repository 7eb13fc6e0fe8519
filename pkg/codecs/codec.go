// Package codecs contains codec definitions.
package codecs

// Codec is a codec.
type Codec interface {
	// IsVideo returns whether the codec is a video one.
	IsVideo() bool

	isCodec()
}

// AudioParams returns the sample rate and channel count of an audio codec.
func AudioParams(c Codec) (int, int, bool) {
	switch c := c.(type) {
	case *MPEG4Audio:
		return c.Config.SampleRate, c.Config.ChannelCount, true

	case *G711:
		return c.SampleRate, c.ChannelCount, true

	case *LPCM:
		return c.SampleRate, c.ChannelCount, true

	case *Opus:
		return 48000, c.ChannelCount, true

	case *MPEG1Audio:
		return c.SampleRate, c.ChannelCount, c.SampleRate != 0

	case *AC3:
		return c.SampleRate, c.ChannelCount, true
	}

	return 0, 0, false
}
