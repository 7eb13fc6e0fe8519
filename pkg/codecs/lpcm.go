package codecs

// LPCM is an uncompressed, signed, big endian audio codec.
type LPCM struct {
	BitDepth     int
	SampleRate   int
	ChannelCount int
}

// IsVideo implements Codec.
func (*LPCM) IsVideo() bool {
	return false
}

func (*LPCM) isCodec() {
}
