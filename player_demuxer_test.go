package esplayer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/stretchr/testify/require"

	"github.com/vicon-security/esplayer/pkg/audiocodec/pcm"
	"github.com/vicon-security/esplayer/pkg/codecs"
	"github.com/vicon-security/esplayer/pkg/source"
)

// liveSource produces audio frames until it is closed.
type liveSource struct {
	track *source.Track

	mutex  sync.Mutex
	pts    int64
	closed bool
}

func (s *liveSource) Tracks() []*source.Track {
	return []*source.Track{s.track}
}

func (s *liveSource) ReadFrame(_ context.Context) (*source.Frame, error) {
	time.Sleep(time.Millisecond)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	f := &source.Frame{Track: s.track, PTS: s.pts, DTS: s.pts, Payload: mulawPayload(100), Size: 100}
	s.pts += 12500
	return f, nil
}

func (s *liveSource) TransportStats() (source.TransportStats, bool) {
	return source.TransportStats{}, false
}

func (s *liveSource) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
	return nil
}

type logRecorder struct {
	t     *testing.T
	mutex sync.Mutex
	lines []string
}

func (r *logRecorder) log(_ LogLevel, format string, args ...interface{}) {
	r.t.Logf(format, args...)
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *logRecorder) contains(sub string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func waitEOS(t *testing.T, sink *fakeSink) {
	select {
	case <-sink.eos:
	case <-time.After(5 * time.Second):
		t.Fatal("end of stream not received")
	}
}

func TestPlayerUndecodableAudio(t *testing.T) {
	aacTrack := &source.Track{
		Index: 0,
		Codec: &codecs.MPEG4Audio{Config: mpeg4audio.Config{
			Type:         mpeg4audio.ObjectTypeAACLC,
			SampleRate:   48000,
			ChannelCount: 2,
		}},
	}
	videoTrack := &source.Track{Index: 1, Codec: &codecs.H264{}}

	src := &fakeSource{
		tracks: []*source.Track{aacTrack, videoTrack},
		frames: []*source.Frame{
			{Track: aacTrack, PTS: 0, DTS: 0, Payload: []byte{1, 2, 3}, Size: 3},
			{Track: videoTrack, PTS: 0, DTS: 0, KeyFrame: true, Payload: []byte{0, 0, 0, 1, 5}, Size: 5},
			{Track: aacTrack, PTS: 21333, DTS: 21333, Payload: []byte{4, 5, 6}, Size: 3},
		},
	}

	sink := newFakeSink(true, true)
	logs := &logRecorder{t: t}

	// the default codec factory can't decode AAC.
	p := &Player{
		Sink: sink,
		OpenSource: func(context.Context, string, source.Options) (source.Source, error) {
			return src, nil
		},
		Log: logs.log,
	}
	err := p.Start()
	require.NoError(t, err)
	defer p.Close()

	p.Init(InitOptions{URL: "rtsp://camera/stream"})
	waitEOS(t, sink)

	appended, eosCount := sink.snapshot()
	require.Equal(t, 1, eosCount)
	require.Len(t, appended, 1)
	require.Equal(t, TrackTypeVideo, appended[0].track)

	sink.mutex.Lock()
	require.Nil(t, sink.audioConf)
	require.NotNil(t, sink.videoConf)
	sink.mutex.Unlock()

	require.Equal(t, StateReady, p.State())
	require.True(t, logs.contains("audio track skipped"))
}

func TestPlayerReadError(t *testing.T) {
	src := testSource()
	src.err = fmt.Errorf("connection reset by peer")

	sink := newFakeSink(true, true)
	states := make(chan State, 10)

	p := &Player{
		Sink:         sink,
		CodecFactory: &pcm.Factory{FrameSize: 160},
		OpenSource: func(context.Context, string, source.Options) (source.Source, error) {
			return src, nil
		},
		OnStateChange: func(s State) {
			states <- s
		},
		Log: testLog(t),
	}
	err := p.Start()
	require.NoError(t, err)
	defer p.Close()

	p.Init(InitOptions{URL: "rtsp://myserver/mystream"})
	require.Equal(t, StateReady, <-states)
	require.Equal(t, StateError, <-states)

	// packets read before the error are still delivered.
	require.Eventually(t, func() bool {
		appended, _ := sink.snapshot()
		return len(appended) == 3
	}, 2*time.Second, 10*time.Millisecond)

	_, eosCount := sink.snapshot()
	require.Equal(t, 0, eosCount)
}

func TestPlayerAppendError(t *testing.T) {
	sink := newFakeSink(true, false)
	sink.failAppends = 1
	logs := &logRecorder{t: t}

	p := &Player{
		Sink:         sink,
		CodecFactory: &pcm.Factory{FrameSize: 160},
		OpenSource: func(context.Context, string, source.Options) (source.Source, error) {
			return testSource(), nil
		},
		Log: logs.log,
	}
	err := p.Start()
	require.NoError(t, err)
	defer p.Close()

	p.Init(InitOptions{URL: "rtsp://myserver/mystream"})
	waitEOS(t, sink)

	appended, eosCount := sink.snapshot()
	require.Equal(t, 1, eosCount)
	require.Len(t, appended, 1)
	require.Equal(t, TrackTypeAudio, appended[0].track)
	require.Equal(t, int64(20000), appended[0].pkt.PTS())

	require.True(t, logs.contains("unable to append audio packet: buffer full"))
	require.NotEqual(t, StateError, p.State())
}

func TestPlayerVideoPassthrough(t *testing.T) {
	videoTrack := &source.Track{Index: 0, Codec: &codecs.H264{}}

	src := &fakeSource{
		tracks: []*source.Track{videoTrack},
		frames: []*source.Frame{
			{Track: videoTrack, PTS: 80000, DTS: 40000, KeyFrame: true, Payload: []byte{0, 0, 0, 1, 5, 1}, Size: 6},
			{Track: videoTrack, PTS: 120000, DTS: 80000, Payload: []byte{0, 0, 0, 1, 1, 2}, Size: 6},
		},
	}

	sink := newFakeSink(false, true)

	p := &Player{
		Sink: sink,
		OpenSource: func(context.Context, string, source.Options) (source.Source, error) {
			return src, nil
		},
		Log: testLog(t),
	}
	err := p.Start()
	require.NoError(t, err)
	defer p.Close()

	p.Init(InitOptions{URL: "rtsp://myserver/mystream"})
	waitEOS(t, sink)

	appended, _ := sink.snapshot()
	require.Len(t, appended, 2)

	for i, ca := range []struct {
		pts      int64
		dts      int64
		keyFrame bool
		data     []byte
	}{
		{80000, 40000, true, []byte{0, 0, 0, 1, 5, 1}},
		{120000, 80000, false, []byte{0, 0, 0, 1, 1, 2}},
	} {
		require.Equal(t, TrackTypeVideo, appended[i].track)
		require.Equal(t, ca.pts, appended[i].pkt.PTS())
		require.Equal(t, ca.dts, appended[i].pkt.DTS())
		require.Equal(t, ca.keyFrame, appended[i].pkt.KeyFrame())
		require.Equal(t, ca.data, appended[i].pkt.Data())
	}
}

func TestPlayerCloseDuringStream(t *testing.T) {
	src := &liveSource{
		track: &source.Track{
			Index: 0,
			Codec: &codecs.G711{MULaw: true, SampleRate: 8000, ChannelCount: 1},
		},
	}

	sink := newFakeSink(true, false)

	p := &Player{
		Sink:         sink,
		CodecFactory: &pcm.Factory{FrameSize: 160},
		OpenSource: func(context.Context, string, source.Options) (source.Source, error) {
			return src, nil
		},
		Log: testLog(t),
	}
	err := p.Start()
	require.NoError(t, err)

	p.Init(InitOptions{URL: "rtsp://myserver/mystream"})

	require.Eventually(t, func() bool {
		return p.TranscodeStats().Encoded >= 320
	}, 5*time.Second, 10*time.Millisecond)

	p.Close()
	require.Equal(t, ErrTerminated, <-p.Wait())

	src.mutex.Lock()
	require.True(t, src.closed)
	src.mutex.Unlock()

	// the transcoder was flushed: the FIFO is empty and no sample was lost.
	s := p.TranscodeStats()
	require.Equal(t, int64(0), s.Remaining)
	require.Equal(t, s.Converted, s.Encoded+s.DroppedOnFlush+s.EncodeFailed)

	_, eosCount := sink.snapshot()
	require.Equal(t, 0, eosCount)
}
