// Package codecparams contains utilities to describe codecs with RFC 6381 codec parameters,
// the format used by MIME types of media sinks.
package codecparams

import (
	"encoding/hex"
	"strconv"

	"github.com/vicon-security/esplayer/pkg/codecs"
)

// Marshal returns the codec parameter of a codec.
// It returns an empty string when the codec can't be described.
func Marshal(codec codecs.Codec) string {
	switch tcodec := codec.(type) {
	case *codecs.H264:
		sps, _ := tcodec.SafeParams()
		if len(sps) >= 4 {
			return "avc1." + hex.EncodeToString(sps[1:4])
		}

	case *codecs.MPEG4Audio:
		// https://developer.mozilla.org/en-US/docs/Web/Media/Formats/codecs_parameter
		return "mp4a.40." + strconv.FormatInt(int64(tcodec.Config.Type), 10)

	case *codecs.MPEG1Audio:
		return "mp4a.6b"

	case *codecs.AC3:
		return "ac-3"

	case *codecs.Opus:
		return "opus"
	}

	return ""
}

// MIMEType returns the MIME type of a single-track fragmented MP4 stream that contains the codec,
// or an empty string when the codec can't be described.
func MIMEType(codec codecs.Codec) string {
	params := Marshal(codec)
	if params == "" {
		return ""
	}

	if codec.IsVideo() {
		return "video/mp4; codecs=\"" + params + "\""
	}
	return "audio/mp4; codecs=\"" + params + "\""
}
