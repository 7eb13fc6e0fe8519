package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/asticode/go-astits"
	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/pkg/codecs/h265"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/pkg/formats/mpegts"

	"github.com/vicon-security/esplayer/pkg/codecs"
	tsutil "github.com/vicon-security/esplayer/pkg/mpegts"
)

// countingReader counts the bytes read since the last reset.
type countingReader struct {
	r io.Reader
	n int
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n += n
	return n, err
}

func (r *countingReader) reset() int {
	n := r.n
	r.n = 0
	return n
}

// mpegtsSource is a source that demuxes a MPEG-TS byte stream.
type mpegtsSource struct {
	rc            io.ReadCloser
	cr            *countingReader
	r             *mpegts.Reader
	tracks        []*Track
	timeDec       *tsutil.TimeDecoder
	pending       []*Frame
	onDecodeError func(error)

	closeOnce sync.Once
}

func newMPEGTSSource(rc io.ReadCloser, onDecodeError func(error)) (*mpegtsSource, error) {
	s := &mpegtsSource{
		rc:            rc,
		cr:            &countingReader{r: rc},
		onDecodeError: onDecodeError,
	}

	var err error
	s.r, err = mpegts.NewReader(mpegts.NewBufferedReader(s.cr))
	if err != nil {
		rc.Close()
		return nil, err
	}

	s.r.OnDecodeError(onDecodeError)

	for _, track := range s.r.Tracks() {
		c := codecs.FromMPEGTS(track.Codec)
		if c == nil {
			continue
		}

		t := &Track{
			Index: len(s.tracks),
			Codec: c,
		}
		s.tracks = append(s.tracks, t)
		s.setupTrack(track, t)
	}

	if len(s.tracks) == 0 {
		rc.Close()
		return nil, fmt.Errorf("no supported tracks found")
	}

	return s, nil
}

func (s *mpegtsSource) decodeTime(ts int64) int64 {
	if s.timeDec == nil {
		s.timeDec = tsutil.NewTimeDecoder(ts)
	}
	return s.timeDec.Decode(ts)
}

func (s *mpegtsSource) push(f *Frame) {
	f.Size = s.cr.reset()
	s.pending = append(s.pending, f)
}

func (s *mpegtsSource) setupTrack(track *mpegts.Track, t *Track) {
	switch c := t.Codec.(type) {
	case *codecs.H264:
		s.r.OnDataH26x(track, func(rawPTS int64, rawDTS int64, au [][]byte) error {
			c.UpdateFromAU(au)

			enc, err := h264.AnnexBMarshal(au)
			if err != nil {
				s.onDecodeError(err)
				return nil
			}

			dts := s.decodeTime(rawDTS)
			s.push(&Frame{
				Track:    t,
				PTS:      dts + (rawPTS-rawDTS)*1000000/90000,
				DTS:      dts,
				KeyFrame: h264.IDRPresent(au),
				Payload:  enc,
			})
			return nil
		})

	case *codecs.H265:
		s.r.OnDataH26x(track, func(rawPTS int64, rawDTS int64, au [][]byte) error {
			enc, err := h264.AnnexBMarshal(au)
			if err != nil {
				s.onDecodeError(err)
				return nil
			}

			dts := s.decodeTime(rawDTS)
			s.push(&Frame{
				Track:    t,
				PTS:      dts + (rawPTS-rawDTS)*1000000/90000,
				DTS:      dts,
				KeyFrame: h265.IsRandomAccess(au),
				Payload:  enc,
			})
			return nil
		})

	case *codecs.MPEG4Audio:
		s.r.OnDataMPEG4Audio(track, func(rawPTS int64, aus [][]byte) error {
			pts := s.decodeTime(rawPTS)
			for i, au := range aus {
				auPTS := pts + int64(i)*mpeg4audio.SamplesPerAccessUnit*1000000/int64(c.Config.SampleRate)
				s.push(&Frame{
					Track:    t,
					PTS:      auPTS,
					DTS:      auPTS,
					KeyFrame: true,
					Payload:  au,
				})
			}
			return nil
		})

	case *codecs.Opus:
		s.r.OnDataOpus(track, func(rawPTS int64, packets [][]byte) error {
			s.pushAudio(t, s.decodeTime(rawPTS), packets)
			return nil
		})

	case *codecs.MPEG1Audio:
		s.r.OnDataMPEG1Audio(track, func(rawPTS int64, frames [][]byte) error {
			s.pushAudio(t, s.decodeTime(rawPTS), frames)
			return nil
		})

	case *codecs.AC3:
		s.r.OnDataAC3(track, func(rawPTS int64, frame []byte) error {
			s.pushAudio(t, s.decodeTime(rawPTS), [][]byte{frame})
			return nil
		})
	}
}

// pushAudio pushes audio frames that share the timestamp of their PES packet.
func (s *mpegtsSource) pushAudio(t *Track, pts int64, frames [][]byte) {
	for _, frame := range frames {
		s.push(&Frame{
			Track:    t,
			PTS:      pts,
			DTS:      pts,
			KeyFrame: true,
			Payload:  frame,
		})
	}
}

// Tracks implements Source.
func (s *mpegtsSource) Tracks() []*Track {
	return s.tracks
}

// ReadFrame implements Source.
func (s *mpegtsSource) ReadFrame(ctx context.Context) (*Frame, error) {
	for len(s.pending) == 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		err := s.r.Read()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) || errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, err
		}
	}

	f := s.pending[0]
	s.pending = s.pending[1:]
	return f, nil
}

// TransportStats implements Source.
func (s *mpegtsSource) TransportStats() (TransportStats, bool) {
	return TransportStats{}, false
}

// Close implements Source.
func (s *mpegtsSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.rc.Close()
	})
	return err
}
