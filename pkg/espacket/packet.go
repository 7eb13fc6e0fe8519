// Package espacket contains the elementary stream packet model.
package espacket

import (
	"sync"
	"time"
)

// TimeBase is the number of pipeline time units in one second.
// Packet timestamps are expressed in microseconds.
const TimeBase = 1000000

// Subsample is a clear/encrypted byte range pair of an encrypted packet.
type Subsample struct {
	ClearBytes  uint32
	CipherBytes uint32
}

// View is a read-only snapshot of the storage owned by a Packet.
// Its slices always reference the current storage of the Packet they were taken from.
type View struct {
	Data       []byte
	KeyID      []byte
	IV         []byte
	Subsamples []Subsample
}

// Packet is an elementary stream packet.
//
// A Packet owns its payload and encryption metadata. Every mutation
// refreshes the exposed View before the lock is released, therefore readers
// on other goroutines never observe a view of a replaced buffer.
type Packet struct {
	mutex sync.RWMutex

	data       []byte
	keyID      []byte
	iv         []byte
	subsamples []Subsample
	view       View

	pts      int64
	dts      int64
	duration int64
	keyFrame bool
}

// New allocates a Packet that owns a copy of b.
func New(b []byte) *Packet {
	p := &Packet{
		data: append([]byte(nil), b...),
	}
	p.refreshView()
	return p
}

func (p *Packet) refreshView() {
	p.view = View{
		Data:       p.data[:len(p.data):len(p.data)],
		KeyID:      nil,
		IV:         nil,
		Subsamples: nil,
	}
	if len(p.keyID) != 0 {
		p.view.KeyID = p.keyID[:len(p.keyID):len(p.keyID)]
	}
	if len(p.iv) != 0 {
		p.view.IV = p.iv[:len(p.iv):len(p.iv)]
	}
	if len(p.subsamples) != 0 {
		p.view.Subsamples = p.subsamples[:len(p.subsamples):len(p.subsamples)]
	}
}

// SetKeyID replaces the key ID. An empty input clears it.
func (p *Packet) SetKeyID(b []byte) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(b) == 0 {
		p.keyID = nil
	} else {
		p.keyID = append([]byte(nil), b...)
	}
	p.refreshView()
}

// SetIV replaces the initialization vector. An empty input clears it.
func (p *Packet) SetIV(b []byte) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(b) == 0 {
		p.iv = nil
	} else {
		p.iv = append([]byte(nil), b...)
	}
	p.refreshView()
}

// ClearSubsamples removes all subsamples.
func (p *Packet) ClearSubsamples() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.subsamples = nil
	p.refreshView()
}

// AppendSubsample appends a subsample.
func (p *Packet) AppendSubsample(clearBytes uint32, cipherBytes uint32) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.subsamples = append(p.subsamples, Subsample{
		ClearBytes:  clearBytes,
		CipherBytes: cipherBytes,
	})
	p.refreshView()
}

// SetTiming sets timestamps and duration, in TimeBase units.
func (p *Packet) SetTiming(pts int64, dts int64, duration int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.pts = pts
	p.dts = dts
	p.duration = duration
}

// SetKeyFrame sets whether the packet contains a key frame.
func (p *Packet) SetKeyFrame(v bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.keyFrame = v
}

// View returns the current view of the owned storage.
// The returned slices must not be modified.
func (p *Packet) View() View {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.view
}

// Data returns the payload.
func (p *Packet) Data() []byte {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.view.Data
}

// KeyID returns the key ID.
func (p *Packet) KeyID() []byte {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.view.KeyID
}

// IV returns the initialization vector.
func (p *Packet) IV() []byte {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.view.IV
}

// Subsamples returns the subsamples.
func (p *Packet) Subsamples() []Subsample {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.view.Subsamples
}

// PTS returns the presentation timestamp.
func (p *Packet) PTS() int64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.pts
}

// DTS returns the decoding timestamp.
func (p *Packet) DTS() int64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.dts
}

// Duration returns the duration.
func (p *Packet) Duration() int64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.duration
}

// KeyFrame returns whether the packet contains a key frame.
func (p *Packet) KeyFrame() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.keyFrame
}

// IsEncrypted returns whether the packet is encrypted, that is,
// whether it has a key ID or an initialization vector.
// A packet without subsamples can be encrypted.
func (p *Packet) IsEncrypted() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.keyID) != 0 || len(p.iv) != 0
}

// Rescale converts ts, expressed in units of num/den seconds, into TimeBase units.
func Rescale(ts int64, num int64, den int64) int64 {
	if den == 0 {
		return 0
	}

	// split the multiplication to avoid overflows
	unit := num * TimeBase
	secs := ts / den
	rem := ts % den
	return secs*unit + rem*unit/den
}

// FromDuration converts a time.Duration into TimeBase units.
func FromDuration(d time.Duration) int64 {
	return int64(d / time.Microsecond)
}

// ToSeconds converts a TimeBase timestamp into seconds.
func ToSeconds(ts int64) float64 {
	return float64(ts) / TimeBase
}
