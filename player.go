// Package esplayer contains a live stream player that demuxes network streams,
// transcodes audio and delivers elementary streams to a playback sink.
package esplayer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vicon-security/esplayer/pkg/audiocodec"
	"github.com/vicon-security/esplayer/pkg/audiocodec/pcm"
	"github.com/vicon-security/esplayer/pkg/espacket"
	"github.com/vicon-security/esplayer/pkg/source"
)

// ErrTerminated is returned by Wait after Close.
var ErrTerminated = errors.New("terminated")

// Player is a live stream player.
//
// Commands are non-blocking: they are queued and executed in order by
// a delivery routine, which owns the sink.
type Player struct {
	//
	// parameters (all optional except Sink).
	//

	// Playback sink.
	Sink Sink

	// Factory of audio decoders and encoders.
	// It defaults to a factory of LPCM encoders.
	CodecFactory audiocodec.Factory

	// Bit rate of transcoded audio, for codecs that support it.
	AudioBitRate int

	// Function used to open sources.
	// It defaults to source.Open.
	OpenSource func(ctx context.Context, url string, opts source.Options) (source.Source, error)

	// Whether to start playback when the sink completes buffering.
	AutoPlay bool

	//
	// callbacks (all optional).
	//

	// called when a status message is emitted.
	OnStatus func(Status)

	// called when the state changes.
	OnStateChange func(State)

	// called when a non-fatal source decode error occurs.
	OnDecodeError func(err error)

	// function that receives log messages.
	// It defaults to a colored logger.
	Log LogFunc

	//
	// private
	//

	ctx       context.Context
	ctxCancel func()
	rp        *playerRoutinePool
	delivery  *playerDelivery
	flow      *playerFlowControl
	mute      *playerMute
	loadedURL string

	demuxerMutex sync.Mutex
	demuxer      *playerDemuxer

	stateMutex sync.RWMutex
	state      State

	done chan struct{}
	err  error
}

// Start starts the Player.
func (p *Player) Start() error {
	if p.Sink == nil {
		return fmt.Errorf("sink is not set")
	}
	if p.CodecFactory == nil {
		p.CodecFactory = &pcm.Factory{}
	}
	if p.OpenSource == nil {
		p.OpenSource = source.Open
	}
	if p.OnStatus == nil {
		p.OnStatus = func(Status) {}
	}
	if p.OnStateChange == nil {
		p.OnStateChange = func(State) {}
	}
	if p.OnDecodeError == nil {
		p.OnDecodeError = func(err error) {
			p.Log(LogLevelWarn, "%v", err)
		}
	}
	if p.Log == nil {
		p.Log = defaultLog
	}

	p.flow = &playerFlowControl{}
	p.mute = &playerMute{}

	p.delivery = &playerDelivery{}
	p.delivery.initialize()

	err := p.Sink.Initialize(p)
	if err != nil {
		return err
	}

	p.ctx, p.ctxCancel = context.WithCancel(context.Background())

	p.rp = &playerRoutinePool{}
	p.rp.initialize()
	p.rp.add(p.delivery)

	p.done = make(chan struct{})

	go p.run()

	return nil
}

// Close closes all the Player resources and waits for them to close.
// The demux routine exits at its next iteration; the delivery routine
// discards pending work items.
func (p *Player) Close() {
	p.ctxCancel()
	<-p.done
}

// Wait waits for any error of the Player.
func (p *Player) Wait() chan error {
	ch := make(chan error)
	go func() {
		<-p.done
		ch <- p.err
	}()
	return ch
}

func (p *Player) run() {
	p.err = p.runInner()

	p.rp.close()
	p.Sink.Close()

	close(p.done)
}

func (p *Player) runInner() error {
	select {
	case err := <-p.rp.errorChan():
		return err

	case <-p.ctx.Done():
		return ErrTerminated
	}
}

// State returns the state of the Player.
func (p *Player) State() State {
	p.stateMutex.RLock()
	defer p.stateMutex.RUnlock()
	return p.state
}

// TranscodeStats returns the sample counters of the audio transcoder of the current stream.
func (p *Player) TranscodeStats() TranscodeStats {
	p.demuxerMutex.Lock()
	d := p.demuxer
	p.demuxerMutex.Unlock()

	if d == nil {
		return TranscodeStats{}
	}
	return d.transcodeStats()
}

// Init loads a stream. Loading the stream that is already loaded does nothing;
// loading a different one replaces it.
func (p *Player) Init(opts InitOptions) {
	p.delivery.push(func() error {
		p.doInit(opts)
		return nil
	})
}

// Play starts playback.
func (p *Player) Play() {
	p.delivery.push(func() error {
		p.doPlay()
		return nil
	})
}

// Stop pauses playback.
func (p *Player) Stop() {
	p.delivery.push(func() error {
		if p.State() != StatePlaying {
			return nil
		}

		err := p.Sink.Pause()
		if err != nil {
			p.Log(LogLevelError, "unable to pause: %v", err)
			return nil
		}

		p.setState(StatePaused)
		return nil
	})
}

// Mute toggles audio muting.
func (p *Player) Mute() {
	p.delivery.push(func() error {
		muted := p.mute.toggle()
		p.Log(LogLevelDebug, "muted: %v", muted)
		return nil
	})
}

// SetViewRect sets the position and size of the view.
func (p *Player) SetViewRect(r Rect) {
	p.delivery.push(func() error {
		err := p.Sink.SetViewRect(r)
		if err != nil {
			p.Log(LogLevelError, "unable to set view rect: %v", err)
		}
		return nil
	})
}

func (p *Player) setState(s State) {
	p.stateMutex.Lock()
	changed := p.state != s
	p.state = s
	p.stateMutex.Unlock()

	if changed {
		p.OnStateChange(s)
	}
}

func (p *Player) emit(s Status) {
	p.delivery.push(func() error {
		p.OnStatus(s)
		return nil
	})
}

func (p *Player) doInit(opts InitOptions) {
	if p.demuxer != nil {
		if opts.URL == p.loadedURL && p.State() != StateError {
			return
		}

		p.demuxer.close()
		p.setDemuxer(nil)
		p.setState(StateUninitialized)
	}

	p.flow.reset()
	p.loadedURL = opts.URL

	p.Log(LogLevelInfo, "loading %s", opts.URL)

	d := &playerDemuxer{
		url: opts.URL,
		sourceOpts: source.Options{
			Transport:     opts.Transport,
			CAFile:        opts.CAFile,
			ReadTimeout:   opts.ReadTimeout,
			OnDecodeError: p.OnDecodeError,
		},
		openSource:   p.OpenSource,
		codecFactory: p.CodecFactory,
		audioBitRate: p.AudioBitRate,
		mute:         p.mute,
		levelMeter: &playerLevelMeter{
			interval: opts.AudioLevelInterval,
			onLevel: func(level float64) {
				p.emit(Status{Kind: StatusSetAudioLevel, AudioLevel: level})
			},
		},
		stats: &playerTransportStats{
			onStats: func(lost int64, jitter float64, bitrate int64) {
				p.emit(Status{Kind: StatusSendStats, Lost: lost, Jitter: jitter, Bitrate: bitrate})
			},
		},
		log: p.Log,
	}

	d.onTracks = func(audio *AudioTrackConfig, video *VideoTrackConfig) {
		p.delivery.push(func() error {
			if p.demuxer == d {
				p.configureTracks(audio, video)
			}
			return nil
		})
	}
	d.onPacket = func(track TrackType, pkt *espacket.Packet) {
		p.delivery.push(func() error {
			if p.demuxer == d {
				p.deliverPacket(track, pkt)
			}
			return nil
		})
	}
	d.onEOS = func() {
		p.delivery.push(func() error {
			if p.demuxer == d && p.flow.markEOS() {
				p.Log(LogLevelInfo, "end of stream")
				p.Sink.SetEndOfStream()
			}
			return nil
		})
	}
	d.onError = func(err error) {
		p.delivery.push(func() error {
			if p.demuxer == d {
				p.Log(LogLevelError, "%v", err)
				p.setState(StateError)
			}
			return nil
		})
	}

	d.initialize(p.rp.ctx)
	p.setDemuxer(d)
	p.rp.add(d)
}

// setDemuxer sets the current demux routine.
// The field is written by the delivery routine only.
func (p *Player) setDemuxer(d *playerDemuxer) {
	p.demuxerMutex.Lock()
	defer p.demuxerMutex.Unlock()
	p.demuxer = d
}

func (p *Player) configureTracks(audio *AudioTrackConfig, video *VideoTrackConfig) {
	if audio != nil {
		err := p.Sink.ConfigureAudioTrack(audio)
		if err != nil {
			p.Log(LogLevelError, "unable to configure audio track: %v", err)
			p.setState(StateError)
			return
		}
	}

	if video != nil {
		err := p.Sink.ConfigureVideoTrack(video)
		if err != nil {
			p.Log(LogLevelError, "unable to configure video track: %v", err)
			p.setState(StateError)
			return
		}
	}

	p.setState(StateReady)

	// live streams have no duration.
	p.OnStatus(Status{Kind: StatusSetDuration, Time: 0})
}

func (p *Player) deliverPacket(track TrackType, pkt *espacket.Packet) {
	if !p.flow.shouldAppend(track) {
		return
	}

	err := p.Sink.AppendPacket(track, pkt)
	if err != nil {
		p.Log(LogLevelWarn, "unable to append %s packet: %v", track, err)
	}
}

func (p *Player) doPlay() {
	switch p.State() {
	case StateReady, StatePaused:
	default:
		return
	}

	err := p.Sink.Play()
	if err != nil {
		p.Log(LogLevelError, "unable to play: %v", err)
		return
	}

	p.setState(StatePlaying)
}

// OnNeedData implements SinkListener.
func (p *Player) OnNeedData(track TrackType) {
	p.flow.setNeedData(track, true)
}

// OnEnoughData implements SinkListener.
func (p *Player) OnEnoughData(track TrackType) {
	p.flow.setNeedData(track, false)
}

// OnSeekData implements SinkListener.
func (p *Player) OnSeekData(track TrackType, ts int64) {
	p.Log(LogLevelDebug, "seek of %s track to %.3fs ignored on live streams", track, espacket.ToSeconds(ts))
}

// OnBufferingCompleted implements SinkListener.
func (p *Player) OnBufferingCompleted() {
	p.emit(Status{Kind: StatusBufferingCompleted})

	if p.AutoPlay {
		p.Play()
	}
}

// OnTimeUpdate implements SinkListener.
func (p *Player) OnTimeUpdate(t float64) {
	p.emit(Status{Kind: StatusTimeUpdate, Time: t})
}

// OnEnded implements SinkListener.
func (p *Player) OnEnded() {
	p.emit(Status{Kind: StatusStreamEnded})
}

// OnError implements SinkListener.
func (p *Player) OnError(err error) {
	p.Log(LogLevelError, "sink error: %v", err)
}
