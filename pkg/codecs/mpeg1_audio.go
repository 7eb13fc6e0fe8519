package codecs

// MPEG1Audio is a MPEG-1/2 audio codec (layer I, II or III).
// Parameters are filled in when the first frame is parsed.
type MPEG1Audio struct {
	SampleRate   int
	ChannelCount int
}

// IsVideo implements Codec.
func (*MPEG1Audio) IsVideo() bool { return false }

func (*MPEG1Audio) isCodec() {}
