package esplayer

import (
	"github.com/bluenviron/mediacommon/pkg/codecs/h264"

	"github.com/vicon-security/esplayer/pkg/audio"
	"github.com/vicon-security/esplayer/pkg/codecparams"
	"github.com/vicon-security/esplayer/pkg/codecs"
)

// TrackType is the type of an elementary stream.
type TrackType int

// Track types.
const (
	TrackTypeAudio TrackType = iota
	TrackTypeVideo
)

func (t TrackType) String() string {
	if t == TrackTypeVideo {
		return "video"
	}
	return "audio"
}

// VideoFrameFormat is the raw frame format a sink decodes video into.
const VideoFrameFormat = "yv12"

// AudioTrackConfig is the configuration of an audio elementary stream.
type AudioTrackConfig struct {
	// Codec of the delivered packets.
	Codec codecs.Codec

	// MIME type of the codec, when it can be described.
	MIMEType string

	// Codec profile. For MPEG-4 audio, the audio object type.
	Profile int

	// Raw sample format the track decodes into.
	SampleFormat audio.SampleFormat

	ChannelCount   int
	BitsPerChannel int
	SampleRate     int
}

// VideoTrackConfig is the configuration of a video elementary stream.
type VideoTrackConfig struct {
	// Codec of the delivered packets.
	Codec codecs.Codec

	// MIME type of the codec, when it can be described.
	MIMEType string

	// Codec profile. For H264, profile_idc.
	Profile int

	// Raw frame format the track decodes into.
	FrameFormat string

	Width     int
	Height    int
	FrameRate float64

	// SPS and PPS in Annex-B format.
	ExtraData []byte
}

func audioTrackConfig(enc codecs.Codec, in audio.SampleFormat) *AudioTrackConfig {
	conf := &AudioTrackConfig{
		Codec:          enc,
		MIMEType:       codecparams.MIMEType(enc),
		SampleFormat:   in,
		BitsPerChannel: in.BytesPerSample() * 8,
	}

	switch c := enc.(type) {
	case *codecs.MPEG4Audio:
		conf.Profile = int(c.Config.Type)
		conf.SampleRate = c.Config.SampleRate
		conf.ChannelCount = c.Config.ChannelCount

	case *codecs.LPCM:
		conf.BitsPerChannel = c.BitDepth
		conf.SampleRate = c.SampleRate
		conf.ChannelCount = c.ChannelCount

	default:
		conf.SampleRate, conf.ChannelCount, _ = codecs.AudioParams(enc)
	}

	return conf
}

func videoTrackConfig(c *codecs.H264) *VideoTrackConfig {
	conf := &VideoTrackConfig{
		Codec:       c,
		MIMEType:    codecparams.MIMEType(c),
		FrameFormat: VideoFrameFormat,
	}

	sps, pps := c.SafeParams()
	if sps == nil {
		return conf
	}

	var s h264.SPS
	err := s.Unmarshal(sps)
	if err == nil {
		conf.Profile = int(s.ProfileIdc)
		conf.Width = s.Width()
		conf.Height = s.Height()
		conf.FrameRate = s.FPS()
	}

	if pps != nil {
		conf.ExtraData, _ = h264.AnnexBMarshal([][]byte{sps, pps})
	}

	return conf
}
