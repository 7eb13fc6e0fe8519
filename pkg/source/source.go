// Package source contains network and file inputs that demux
// containers into per-track compressed frames.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vicon-security/esplayer/pkg/codecs"
)

// ErrUnsupportedScheme is returned by Open when the URL scheme is not supported.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Track is a track of a source.
type Track struct {
	// index of the track inside the source.
	Index int

	// codec, updated in place when in-band parameters change.
	Codec codecs.Codec
}

// Frame is a compressed frame.
type Frame struct {
	Track *Track

	// timestamps, in microseconds.
	PTS int64
	DTS int64

	KeyFrame bool

	// video frames are Annex-B access units, audio frames are single access units.
	Payload []byte

	// number of bytes received from the network to produce the frame.
	Size int
}

// TransportStats are statistics of the real-time transport beneath the container.
type TransportStats struct {
	// packets lost, summed over all tracks.
	Lost int64

	// interarrival jitter in milliseconds, averaged over all tracks.
	Jitter float64
}

// Source is a demuxed input.
type Source interface {
	// Tracks returns the tracks.
	Tracks() []*Track

	// ReadFrame returns the next frame. It returns io.EOF at the end of the input.
	ReadFrame(ctx context.Context) (*Frame, error)

	// TransportStats returns transport statistics, when the transport provides them.
	TransportStats() (TransportStats, bool)

	// Close closes the source and unblocks ReadFrame.
	Close() error
}

// Options are source options.
type Options struct {
	// RTSP transport protocol ("tcp" or "udp").
	// It defaults to "tcp".
	Transport string

	// path of a PEM file containing the certificate authority
	// used to verify RTSPS and HTTPS servers.
	CAFile string

	// timeout of read operations.
	// It defaults to 10 seconds.
	ReadTimeout time.Duration

	// HTTP client used by HTTP and HLS inputs.
	// It defaults to a client that uses CAFile.
	HTTPClient *http.Client

	// called when a non-fatal decode error occurs.
	OnDecodeError func(err error)
}

func (o *Options) setDefaults() error {
	if o.Transport == "" {
		o.Transport = "tcp"
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 10 * time.Second
	}
	if o.OnDecodeError == nil {
		o.OnDecodeError = func(error) {}
	}
	if o.HTTPClient == nil {
		tlsConf, err := loadTLSConfig(o.CAFile)
		if err != nil {
			return err
		}
		o.HTTPClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: tlsConf,
			},
		}
	}
	return nil
}

// Open opens a source by URL.
//
// Supported inputs are rtsp:// and rtsps:// (RTSP), srt:// (MPEG-TS over SRT),
// udp:// (MPEG-TS over UDP), http:// and https:// (MPEG-TS, or HLS when the path
// ends with .m3u8), file:// and plain paths (MPEG-TS files).
//
// ctx bounds the lifetime of the source: canceling it unblocks Open and ReadFrame.
// A network read that stalls for longer than Options.ReadTimeout fails.
func Open(ctx context.Context, rawURL string, opts Options) (Source, error) {
	err := opts.setDefaults()
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "rtsp", "rtsps":
		return openRTSP(ctx, rawURL, opts)

	case "srt":
		rc, err := dialSRT(ctx, u, opts.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return newMPEGTSSource(rc, opts.OnDecodeError)

	case "udp":
		rc, err := listenUDP(u, opts.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return newMPEGTSSource(rc, opts.OnDecodeError)

	case "http", "https":
		if strings.HasSuffix(u.Path, ".m3u8") {
			return newMPEGTSSource(newHLSReader(ctx, u, opts.HTTPClient, opts.ReadTimeout), opts.OnDecodeError)
		}

		rc, err := openHTTP(ctx, u, opts.HTTPClient, opts.ReadTimeout)
		if err != nil {
			return nil, err
		}
		return newMPEGTSSource(rc, opts.OnDecodeError)

	case "file":
		rc, err := openFile(u.Path)
		if err != nil {
			return nil, err
		}
		return newMPEGTSSource(rc, opts.OnDecodeError)

	case "":
		rc, err := openFile(rawURL)
		if err != nil {
			return nil, err
		}
		return newMPEGTSSource(rc, opts.OnDecodeError)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
}
