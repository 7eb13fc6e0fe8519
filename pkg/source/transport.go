package source

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	srtgo "github.com/zsiec/srtgo"
)

const (
	srtLatencyNs      = 120_000_000
	srtDialTimeout    = 10 * time.Second
	udpMaxPayloadSize = 1472
)

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// timeoutReader calls abort when a read lasts longer than timeout.
// abort must unblock the pending read.
type timeoutReader struct {
	rc      io.ReadCloser
	timeout time.Duration
	abort   func()
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	t := time.AfterFunc(r.timeout, r.abort)
	n, err := r.rc.Read(p)
	if !t.Stop() {
		return n, fmt.Errorf("read timed out after %v", r.timeout)
	}
	return n, err
}

func (r *timeoutReader) Close() error {
	r.abort()
	return r.rc.Close()
}

// openHTTP performs a GET request. Both the wait for the response
// and every read of the body are limited by readTimeout.
func openHTTP(
	ctx context.Context,
	u *url.URL,
	httpClient *http.Client,
	readTimeout time.Duration,
) (io.ReadCloser, error) {
	reqCtx, reqCtxCancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		reqCtxCancel()
		return nil, err
	}

	t := time.AfterFunc(readTimeout, reqCtxCancel)
	res, err := httpClient.Do(req)
	if !t.Stop() {
		if err == nil {
			res.Body.Close()
		}
		reqCtxCancel()
		return nil, fmt.Errorf("no response after %v", readTimeout)
	}
	if err != nil {
		reqCtxCancel()
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		reqCtxCancel()
		return nil, fmt.Errorf("bad status code: %d", res.StatusCode)
	}

	return &timeoutReader{
		rc:      res.Body,
		timeout: readTimeout,
		abort:   reqCtxCancel,
	}, nil
}

// packetConnReader turns a UDP socket into a MPEG-TS byte stream.
type packetConnReader struct {
	pc          net.PacketConn
	readTimeout time.Duration
	midbuf      []byte
	midbufpos   int
}

func listenUDP(u *url.URL, readTimeout time.Duration) (*packetConnReader, error) {
	pc, err := net.ListenPacket("udp", u.Host)
	if err != nil {
		return nil, err
	}

	return &packetConnReader{
		pc:          pc,
		readTimeout: readTimeout,
		midbuf:      make([]byte, 0, udpMaxPayloadSize),
	}, nil
}

func (r *packetConnReader) Read(p []byte) (int, error) {
	if r.midbufpos < len(r.midbuf) {
		n := copy(p, r.midbuf[r.midbufpos:])
		r.midbufpos += n
		return n, nil
	}

	err := r.pc.SetReadDeadline(time.Now().Add(r.readTimeout))
	if err != nil {
		return 0, err
	}

	mn, _, err := r.pc.ReadFrom(r.midbuf[:cap(r.midbuf)])
	if err != nil {
		return 0, err
	}

	if (mn % 188) != 0 {
		return 0, fmt.Errorf("received packet with size %d not multiple of 188", mn)
	}

	r.midbuf = r.midbuf[:mn]
	n := copy(p, r.midbuf)
	r.midbufpos = n
	return n, nil
}

func (r *packetConnReader) Close() error {
	return r.pc.Close()
}

type srtDialResult struct {
	conn *srtgo.Conn
	err  error
}

// srtReader reads a MPEG-TS byte stream from a SRT connection.
type srtReader struct {
	conn      *srtgo.Conn
	stopCtx   func() bool
	closeOnce sync.Once
}

func newSRTReader(ctx context.Context, conn *srtgo.Conn, readTimeout time.Duration) io.ReadCloser {
	r := &srtReader{conn: conn}

	// canceling ctx closes the connection and unblocks reads.
	r.stopCtx = context.AfterFunc(ctx, r.closeConn)

	return &timeoutReader{
		rc:      r,
		timeout: readTimeout,
		abort:   r.closeConn,
	}
}

func (r *srtReader) Read(p []byte) (int, error) {
	return r.conn.Read(p)
}

func (r *srtReader) Close() error {
	r.stopCtx()
	r.closeConn()
	return nil
}

func (r *srtReader) closeConn() {
	r.closeOnce.Do(func() {
		r.conn.Close()
	})
}

// dialSRT connects to a SRT listener in caller mode.
// The stream ID is taken from the "streamid" query parameter.
func dialSRT(ctx context.Context, u *url.URL, readTimeout time.Duration) (io.ReadCloser, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs
	cfg.StreamID = u.Query().Get("streamid")

	ch := make(chan srtDialResult, 1)
	go func() {
		conn, err := srtgo.Dial(u.Host, cfg)
		ch <- srtDialResult{conn, err}
	}()

	timer := time.NewTimer(srtDialTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("SRT dial failed: %w", res.err)
		}
		return newSRTReader(ctx, res.conn, readTimeout), nil

	case <-timer.C:
		go closeLateSRT(ch)
		return nil, fmt.Errorf("SRT dial timed out after %s", srtDialTimeout)

	case <-ctx.Done():
		go closeLateSRT(ch)
		return nil, ctx.Err()
	}
}

// closeLateSRT closes a connection that completed after the dial was abandoned.
func closeLateSRT(ch chan srtDialResult) {
	if res := <-ch; res.conn != nil {
		res.conn.Close()
	}
}
