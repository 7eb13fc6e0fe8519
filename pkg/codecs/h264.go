package codecs

import (
	"sync"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
)

// H264 is a H264 codec.
type H264 struct {
	SPS []byte
	PPS []byte

	mutex sync.RWMutex
}

// IsVideo returns whether the codec is a video one.
func (*H264) IsVideo() bool {
	return true
}

func (*H264) isCodec() {}

// SafeSetParams sets the codec parameters.
func (c *H264) SafeSetParams(sps []byte, pps []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.SPS = sps
	c.PPS = pps
}

// SafeParams returns the codec parameters.
func (c *H264) SafeParams() ([]byte, []byte) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.SPS, c.PPS
}

// UpdateFromAU stores parameters found inside an access unit.
// It returns true when the parameters changed.
func (c *H264) UpdateFromAU(au [][]byte) bool {
	sps, pps := c.SafeParams()
	changed := false

	for _, nalu := range au {
		if len(nalu) == 0 {
			continue
		}

		switch h264.NALUType(nalu[0] & 0x1F) {
		case h264.NALUTypeSPS:
			if string(nalu) != string(sps) {
				sps = append([]byte(nil), nalu...)
				changed = true
			}

		case h264.NALUTypePPS:
			if string(nalu) != string(pps) {
				pps = append([]byte(nil), nalu...)
				changed = true
			}
		}
	}

	if changed {
		c.SafeSetParams(sps, pps)
	}
	return changed
}
