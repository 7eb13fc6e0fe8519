package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/bluenviron/gortsplib/v4/pkg/format/rtph264"
	"github.com/bluenviron/gortsplib/v4/pkg/format/rtpmpeg4audio"
	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/pion/rtp"

	"github.com/vicon-security/esplayer/pkg/codecs"
	"github.com/vicon-security/esplayer/pkg/espacket"
)

const (
	rtspFrameQueueSize = 512
)

type rtspTrack struct {
	track     *Track
	stats     rtpStats
	bytesRecv int
}

// rtspSource is a source that reads from a RTSP server.
type rtspSource struct {
	c      *gortsplib.Client
	tracks []*rtspTrack

	mutex  sync.Mutex
	frames chan *Frame
	done   chan struct{}
	err    error
}

func openRTSP(ctx context.Context, rawURL string, opts Options) (*rtspSource, error) {
	u, err := base.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	tlsConf, err := loadTLSConfig(opts.CAFile)
	if err != nil {
		return nil, err
	}

	transport := gortsplib.TransportTCP
	if opts.Transport == "udp" {
		transport = gortsplib.TransportUDP
	}

	s := &rtspSource{
		frames: make(chan *Frame, rtspFrameQueueSize),
		done:   make(chan struct{}),
	}

	s.c = &gortsplib.Client{
		Transport:     &transport,
		TLSConfig:     tlsConf,
		ReadTimeout:   opts.ReadTimeout,
		OnDecodeError: opts.OnDecodeError,
	}

	err = s.c.Start(u.Scheme, u.Host)
	if err != nil {
		return nil, err
	}

	// closing the client unblocks pending requests when ctx is canceled
	stop := context.AfterFunc(ctx, s.c.Close)
	defer stop()

	err = s.setup(u, opts.OnDecodeError)
	if err != nil {
		s.c.Close()
		return nil, err
	}

	_, err = s.c.Play(nil)
	if err != nil {
		s.c.Close()
		return nil, err
	}

	go s.wait()

	return s, nil
}

func (s *rtspSource) setup(u *base.URL, onDecodeError func(error)) error {
	desc, _, err := s.c.Describe(u)
	if err != nil {
		return err
	}

	for _, medi := range desc.Medias {
		for _, forma := range medi.Formats {
			ok, err := s.setupFormat(desc, medi, forma, onDecodeError)
			if err != nil {
				return err
			}
			if ok {
				break
			}
		}
	}

	if len(s.tracks) == 0 {
		return fmt.Errorf("no supported tracks found")
	}

	return nil
}

func (s *rtspSource) setupFormat(
	desc *description.Session,
	medi *description.Media,
	forma format.Format,
	onDecodeError func(error),
) (bool, error) {
	var codec codecs.Codec
	var decode func(pkt *rtp.Packet) ([][]byte, error)

	switch forma := forma.(type) {
	case *format.H264:
		dec, err := forma.CreateDecoder()
		if err != nil {
			return false, err
		}
		codec = &codecs.H264{SPS: forma.SPS, PPS: forma.PPS}
		decode = func(pkt *rtp.Packet) ([][]byte, error) {
			au, err := dec.Decode(pkt)
			if errors.Is(err, rtph264.ErrNonStartingPacketAndNoPrevious) ||
				errors.Is(err, rtph264.ErrMorePacketsNeeded) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			enc, err := h264.AnnexBMarshal(au)
			if err != nil {
				return nil, err
			}
			return [][]byte{enc}, nil
		}

	case *format.MPEG4Audio:
		if forma.Config == nil {
			return false, nil
		}
		dec, err := forma.CreateDecoder()
		if err != nil {
			return false, err
		}
		codec = &codecs.MPEG4Audio{Config: *forma.Config}
		decode = func(pkt *rtp.Packet) ([][]byte, error) {
			aus, err := dec.Decode(pkt)
			if errors.Is(err, rtpmpeg4audio.ErrMorePacketsNeeded) {
				return nil, nil
			}
			return aus, err
		}

	case *format.G711:
		dec, err := forma.CreateDecoder()
		if err != nil {
			return false, err
		}
		codec = &codecs.G711{MULaw: forma.MULaw, SampleRate: forma.ClockRate(), ChannelCount: 1}
		decode = func(pkt *rtp.Packet) ([][]byte, error) {
			samples, err := dec.Decode(pkt)
			if err != nil {
				return nil, err
			}
			return [][]byte{samples}, nil
		}

	case *format.LPCM:
		dec, err := forma.CreateDecoder()
		if err != nil {
			return false, err
		}
		codec = &codecs.LPCM{BitDepth: forma.BitDepth, SampleRate: forma.SampleRate, ChannelCount: forma.ChannelCount}
		decode = func(pkt *rtp.Packet) ([][]byte, error) {
			samples, err := dec.Decode(pkt)
			if err != nil {
				return nil, err
			}
			return [][]byte{samples}, nil
		}

	default:
		return false, nil
	}

	_, err := s.c.Setup(desc.BaseURL, medi, 0, 0)
	if err != nil {
		return false, err
	}

	rt := &rtspTrack{
		track: &Track{
			Index: len(s.tracks),
			Codec: codec,
		},
		stats: rtpStats{clockRate: forma.ClockRate()},
	}
	s.tracks = append(s.tracks, rt)

	clockRate := forma.ClockRate()

	s.c.OnPacketRTP(medi, forma, func(pkt *rtp.Packet) {
		s.mutex.Lock()
		rt.stats.update(pkt.SequenceNumber, pkt.Timestamp, time.Now())
		rt.bytesRecv += pkt.MarshalSize()
		s.mutex.Unlock()

		pts, ok := s.c.PacketPTS(medi, pkt)
		if !ok {
			return
		}

		payloads, err := decode(pkt)
		if err != nil {
			onDecodeError(err)
			return
		}

		for i, payload := range payloads {
			f := &Frame{
				Track:    rt.track,
				PTS:      espacket.FromDuration(pts),
				KeyFrame: true,
				Payload:  payload,
			}

			switch c := codec.(type) {
			case *codecs.H264:
				au, _ := h264.AnnexBUnmarshal(payload)
				c.UpdateFromAU(au)
				f.KeyFrame = h264.IDRPresent(au)

			case *codecs.MPEG4Audio:
				f.PTS += espacket.Rescale(int64(i)*mpeg4audio.SamplesPerAccessUnit, 1, int64(clockRate))
			}
			f.DTS = f.PTS

			s.mutex.Lock()
			f.Size = rt.bytesRecv
			rt.bytesRecv = 0
			s.mutex.Unlock()

			select {
			case s.frames <- f:
			case <-s.done:
				return
			}
		}
	})

	return true, nil
}

func (s *rtspSource) wait() {
	err := s.c.Wait()

	s.mutex.Lock()
	s.err = err
	s.mutex.Unlock()

	close(s.done)
}

// Tracks implements Source.
func (s *rtspSource) Tracks() []*Track {
	out := make([]*Track, len(s.tracks))
	for i, rt := range s.tracks {
		out[i] = rt.track
	}
	return out
}

// ReadFrame implements Source.
func (s *rtspSource) ReadFrame(ctx context.Context) (*Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil

	case <-s.done:
		// deliver frames queued before the session ended
		select {
		case f := <-s.frames:
			return f, nil
		default:
		}

		s.mutex.Lock()
		err := s.err
		s.mutex.Unlock()

		if err == nil || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TransportStats implements Source.
func (s *rtspSource) TransportStats() (TransportStats, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var st TransportStats
	for _, rt := range s.tracks {
		st.Lost += rt.stats.lost()
		st.Jitter += rt.stats.jitterMs()
	}
	if len(s.tracks) != 0 {
		st.Jitter /= float64(len(s.tracks))
	}
	return st, true
}

// Close implements Source.
func (s *rtspSource) Close() error {
	s.c.Close()
	return nil
}
