package codecs

// G711 is a G711 codec.
type G711 struct {
	// whether the μ-law variant is in use. Otherwise A-law is.
	MULaw        bool
	SampleRate   int
	ChannelCount int
}

// IsVideo implements Codec.
func (*G711) IsVideo() bool {
	return false
}

func (*G711) isCodec() {
}
