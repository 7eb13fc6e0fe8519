package codecs

// AC3 is an AC-3 codec.
type AC3 struct {
	SampleRate   int
	ChannelCount int
}

// IsVideo implements Codec.
func (*AC3) IsVideo() bool { return false }

func (*AC3) isCodec() {}
