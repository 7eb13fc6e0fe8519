// Package sink contains playback sinks.
package sink

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"

	"github.com/vicon-security/esplayer"
	"github.com/vicon-security/esplayer/pkg/codecs"
	"github.com/vicon-security/esplayer/pkg/espacket"
	"github.com/vicon-security/esplayer/pkg/mpegts"
)

const timeUpdatePeriod = 1000000

// Recorder is a sink that records H264 video and AAC audio into a MPEG-TS file.
//
// Recording starts at the first random access point. Tracks with other codecs
// are refused through flow control, and so is everything while paused.
type Recorder struct {
	// Path of the MPEG-TS file.
	Path string

	l           esplayer.SinkListener
	audioConfig *mpeg4audio.Config
	hasVideo    bool

	mutex      sync.Mutex
	f          *os.File
	bw         *bufio.Writer
	w          *mpegts.Writer
	started    bool
	startPTS   int64
	lastUpdate int64
	viewRect   esplayer.Rect
}

// Initialize implements esplayer.Sink.
func (r *Recorder) Initialize(l esplayer.SinkListener) error {
	if r.Path == "" {
		return fmt.Errorf("path is empty")
	}
	r.l = l
	return nil
}

// ConfigureAudioTrack implements esplayer.Sink.
func (r *Recorder) ConfigureAudioTrack(conf *esplayer.AudioTrackConfig) error {
	c, ok := conf.Codec.(*codecs.MPEG4Audio)
	if !ok {
		r.l.OnEnoughData(esplayer.TrackTypeAudio)
		return nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.w != nil {
		return fmt.Errorf("recording already started")
	}
	r.audioConfig = &c.Config

	r.l.OnNeedData(esplayer.TrackTypeAudio)
	return nil
}

// ConfigureVideoTrack implements esplayer.Sink.
func (r *Recorder) ConfigureVideoTrack(conf *esplayer.VideoTrackConfig) error {
	if _, ok := conf.Codec.(*codecs.H264); !ok {
		r.l.OnEnoughData(esplayer.TrackTypeVideo)
		return nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.w != nil {
		return fmt.Errorf("recording already started")
	}
	r.hasVideo = true

	r.l.OnNeedData(esplayer.TrackTypeVideo)
	return nil
}

func (r *Recorder) createWriter() error {
	var err error
	r.f, err = os.Create(r.Path)
	if err != nil {
		return err
	}

	r.bw = bufio.NewWriterSize(r.f, 64*1024)
	r.w = mpegts.NewWriter(r.bw, r.hasVideo, r.audioConfig)
	return nil
}

// AppendPacket implements esplayer.Sink.
func (r *Recorder) AppendPacket(track esplayer.TrackType, pkt *espacket.Packet) error {
	notify, err := r.appendPacket(track, pkt)
	if err != nil {
		return err
	}

	if notify.bufferingCompleted {
		r.l.OnBufferingCompleted()
	}
	if notify.timeUpdate {
		r.l.OnTimeUpdate(notify.time)
	}
	return nil
}

type recorderNotify struct {
	bufferingCompleted bool
	timeUpdate         bool
	time               float64
}

func (r *Recorder) appendPacket(track esplayer.TrackType, pkt *espacket.Packet) (recorderNotify, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var notify recorderNotify

	if r.w == nil {
		if !r.hasVideo && r.audioConfig == nil {
			return notify, fmt.Errorf("no tracks configured")
		}

		err := r.createWriter()
		if err != nil {
			return notify, err
		}
	}

	if !r.started {
		// wait for a random access point of the PCR track.
		if (r.hasVideo && (track != esplayer.TrackTypeVideo || !pkt.KeyFrame())) ||
			(!r.hasVideo && track != esplayer.TrackTypeAudio) {
			return notify, nil
		}

		r.started = true
		r.startPTS = pkt.PTS()
		r.lastUpdate = pkt.PTS()
		notify.bufferingCompleted = true
	}

	switch track {
	case esplayer.TrackTypeVideo:
		if !r.hasVideo {
			return notify, fmt.Errorf("video track not configured")
		}

		au, err := h264.AnnexBUnmarshal(pkt.Data())
		if err != nil {
			return notify, err
		}

		err = r.w.WriteH264(pkt.DTS(), pkt.DTS(), pkt.PTS(), pkt.KeyFrame(), au)
		if err != nil {
			return notify, err
		}

	case esplayer.TrackTypeAudio:
		if r.audioConfig == nil {
			return notify, fmt.Errorf("audio track not configured")
		}

		err := r.w.WriteAAC(pkt.PTS(), pkt.PTS(), pkt.Data())
		if err != nil {
			return notify, err
		}
	}

	if pkt.PTS()-r.lastUpdate >= timeUpdatePeriod {
		r.lastUpdate = pkt.PTS()
		notify.timeUpdate = true
		notify.time = espacket.ToSeconds(pkt.PTS() - r.startPTS)
	}

	return notify, nil
}

// SetEndOfStream implements esplayer.Sink.
func (r *Recorder) SetEndOfStream() {
	r.mutex.Lock()
	var err error
	if r.bw != nil {
		err = r.bw.Flush()
	}
	r.mutex.Unlock()

	if err != nil {
		r.l.OnError(err)
	}
	r.l.OnEnded()
}

// Play implements esplayer.Sink.
func (r *Recorder) Play() error {
	r.mutex.Lock()
	hasAudio := r.audioConfig != nil
	hasVideo := r.hasVideo
	r.mutex.Unlock()

	if hasAudio {
		r.l.OnNeedData(esplayer.TrackTypeAudio)
	}
	if hasVideo {
		r.l.OnNeedData(esplayer.TrackTypeVideo)
	}
	return nil
}

// Pause implements esplayer.Sink.
func (r *Recorder) Pause() error {
	r.l.OnEnoughData(esplayer.TrackTypeAudio)
	r.l.OnEnoughData(esplayer.TrackTypeVideo)
	return nil
}

// SetViewRect implements esplayer.Sink.
func (r *Recorder) SetViewRect(rect esplayer.Rect) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.viewRect = rect
	return nil
}

// Close implements esplayer.Sink.
func (r *Recorder) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.f != nil {
		r.bw.Flush() //nolint:errcheck
		r.f.Close()
		r.f = nil
	}
}
