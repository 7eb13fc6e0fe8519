package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/grafov/m3u8"
)

const (
	hlsMinReloadPeriod = 500 * time.Millisecond
)

// hlsReader follows a HLS playlist and returns the concatenation of its MPEG-TS segments.
type hlsReader struct {
	playlistURL *url.URL
	httpClient  *http.Client
	readTimeout time.Duration

	ctx       context.Context
	ctxCancel func()

	queue      []*url.URL
	lastSeq    uint64
	started    bool
	ended      bool
	reloadWait time.Duration
	cur        io.ReadCloser
}

func newHLSReader(
	parentCtx context.Context,
	u *url.URL,
	httpClient *http.Client,
	readTimeout time.Duration,
) *hlsReader {
	ctx, ctxCancel := context.WithCancel(parentCtx)

	return &hlsReader{
		playlistURL: u,
		httpClient:  httpClient,
		readTimeout: readTimeout,
		ctx:         ctx,
		ctxCancel:   ctxCancel,
	}
}

func (r *hlsReader) Read(p []byte) (int, error) {
	for {
		if r.cur == nil {
			err := r.nextSegment()
			if err != nil {
				return 0, err
			}
		}

		n, err := r.cur.Read(p)
		if err == io.EOF {
			r.cur.Close()
			r.cur = nil
			if n == 0 {
				continue
			}
			return n, nil
		}
		return n, err
	}
}

func (r *hlsReader) Close() error {
	r.ctxCancel()
	if r.cur != nil {
		r.cur.Close()
	}
	return nil
}

func (r *hlsReader) nextSegment() error {
	for len(r.queue) == 0 {
		if r.ended {
			return io.EOF
		}

		if r.started {
			select {
			case <-time.After(r.reloadWait):
			case <-r.ctx.Done():
				return fmt.Errorf("terminated")
			}
		}

		err := r.reloadPlaylist()
		if err != nil {
			return err
		}
	}

	u := r.queue[0]
	r.queue = r.queue[1:]

	var err error
	r.cur, err = openHTTP(r.ctx, u, r.httpClient, r.readTimeout)
	return err
}

func (r *hlsReader) download(u *url.URL) (m3u8.Playlist, m3u8.ListType, error) {
	rc, err := openHTTP(r.ctx, u, r.httpClient, r.readTimeout)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	return m3u8.DecodeFrom(rc, true)
}

func (r *hlsReader) reloadPlaylist() error {
	pl, listType, err := r.download(r.playlistURL)
	if err != nil {
		return err
	}

	if listType == m3u8.MASTER {
		master := pl.(*m3u8.MasterPlaylist)

		var best *m3u8.Variant
		for _, v := range master.Variants {
			if v != nil && (best == nil || v.Bandwidth > best.Bandwidth) {
				best = v
			}
		}
		if best == nil {
			return fmt.Errorf("multivariant playlist does not contain variants")
		}

		r.playlistURL, err = r.playlistURL.Parse(best.URI)
		if err != nil {
			return err
		}

		pl, listType, err = r.download(r.playlistURL)
		if err != nil {
			return err
		}
		if listType != m3u8.MEDIA {
			return fmt.Errorf("variant is not a media playlist")
		}
	}

	media := pl.(*m3u8.MediaPlaylist)

	r.reloadWait = time.Duration(media.TargetDuration * float64(time.Second) / 2)
	if r.reloadWait < hlsMinReloadPeriod {
		r.reloadWait = hlsMinReloadPeriod
	}

	type segment struct {
		seq uint64
		uri string
	}
	var segments []segment
	seq := media.SeqNo
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		segments = append(segments, segment{seq, seg.URI})
		seq++
	}

	// live playlists are joined at their last segment
	if !r.started && !media.Closed && len(segments) != 0 {
		segments = segments[len(segments)-1:]
	}

	for _, seg := range segments {
		if r.started && seg.seq <= r.lastSeq {
			continue
		}

		u, err := r.playlistURL.Parse(seg.uri)
		if err != nil {
			return err
		}
		r.queue = append(r.queue, u)
		r.lastSeq = seg.seq
	}

	r.started = true
	r.ended = media.Closed
	return nil
}
