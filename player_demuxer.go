package esplayer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/vicon-security/esplayer/pkg/audiocodec"
	"github.com/vicon-security/esplayer/pkg/codecs"
	"github.com/vicon-security/esplayer/pkg/espacket"
	"github.com/vicon-security/esplayer/pkg/source"
)

// playerDemuxer is the demux routine. It reads frames from a source,
// transcodes audio and hands packets over to the delivery routine.
// It never waits for the delivery routine.
type playerDemuxer struct {
	url          string
	sourceOpts   source.Options
	openSource   func(ctx context.Context, url string, opts source.Options) (source.Source, error)
	codecFactory audiocodec.Factory
	audioBitRate int
	mute         *playerMute
	levelMeter   *playerLevelMeter
	stats        *playerTransportStats
	log          LogFunc
	onTracks     func(audio *AudioTrackConfig, video *VideoTrackConfig)
	onPacket     func(track TrackType, pkt *espacket.Packet)
	onEOS        func()
	onError      func(err error)

	ctx       context.Context
	ctxCancel func()
	done      chan struct{}

	mutex       sync.Mutex
	transcodeSt TranscodeStats
}

func (d *playerDemuxer) initialize(parent context.Context) {
	d.ctx, d.ctxCancel = context.WithCancel(parent)
	d.done = make(chan struct{})
}

// close stops the routine and waits for it to exit.
func (d *playerDemuxer) close() {
	d.ctxCancel()
	<-d.done
}

func (d *playerDemuxer) run(_ context.Context) error {
	defer close(d.done)

	err := d.runInner()
	if err != nil && d.ctx.Err() == nil {
		d.onError(err)
	}

	return nil
}

func (d *playerDemuxer) runInner() error {
	src, err := d.openSource(d.ctx, d.url, d.sourceOpts)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", d.url, err)
	}
	defer src.Close() //nolint:errcheck

	audioTrack, videoTrack := pickTracks(src.Tracks())
	if audioTrack == nil && videoTrack == nil {
		return fmt.Errorf("no supported tracks found")
	}

	var tr *playerTranscoder
	var audioConf *AudioTrackConfig
	var videoConf *VideoTrackConfig

	if audioTrack != nil {
		tr = &playerTranscoder{
			factory: d.codecFactory,
			codec:   audioTrack.Codec,
			bitRate: d.audioBitRate,
			mute:    d.mute,
			meter:   d.levelMeter,
		}
		err = tr.initialize()
		if err != nil {
			// audio is optional: the stream goes on with video only.
			d.log(LogLevelWarn, "audio track skipped: %v", err)
			audioTrack = nil
			tr = nil
		} else {
			defer func() {
				tr.close()
				d.publishTranscodeStats(tr)
			}()

			audioConf = tr.trackConfig()
		}
	}

	if audioTrack == nil && videoTrack == nil {
		return fmt.Errorf("no playable tracks found")
	}

	if videoTrack != nil {
		videoConf = videoTrackConfig(videoTrack.Codec.(*codecs.H264))
	}

	d.onTracks(audioConf, videoConf)
	d.stats.initialize()

	for {
		if d.ctx.Err() != nil {
			return nil
		}

		f, err := src.ReadFrame(d.ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.onEOS()
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}

		d.stats.add(f.Size)

		var track TrackType
		var pkt *espacket.Packet

		switch f.Track {
		case audioTrack:
			track = TrackTypeAudio
			pkt, err = tr.transcode(f)
			if err != nil {
				d.log(LogLevelWarn, "audio frame dropped: %v", err)
			}
			d.publishTranscodeStats(tr)

		case videoTrack:
			track = TrackTypeVideo
			pkt = espacket.New(f.Payload)
			pkt.SetTiming(f.PTS, f.DTS, 0)
			pkt.SetKeyFrame(f.KeyFrame)
		}

		d.stats.update(src)

		if pkt != nil {
			d.onPacket(track, pkt)
		}
	}
}

func (d *playerDemuxer) publishTranscodeStats(tr *playerTranscoder) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.transcodeSt = tr.transcodeStats()
}

func (d *playerDemuxer) transcodeStats() TranscodeStats {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.transcodeSt
}

// pickTracks picks the first H264 track and the first audio track
// whose parameters are known.
func pickTracks(tracks []*source.Track) (*source.Track, *source.Track) {
	var audioTrack *source.Track
	var videoTrack *source.Track

	for _, track := range tracks {
		if track.Codec.IsVideo() {
			if _, ok := track.Codec.(*codecs.H264); ok && videoTrack == nil {
				videoTrack = track
			}
			continue
		}

		if _, _, ok := codecs.AudioParams(track.Codec); ok && audioTrack == nil {
			audioTrack = track
		}
	}

	return audioTrack, videoTrack
}
