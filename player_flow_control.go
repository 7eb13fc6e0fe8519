package esplayer

import (
	"sync"
)

// playerFlowControl holds the data flags and the end of stream flag.
// They are written both by sink callbacks and by the delivery routine.
type playerFlowControl struct {
	mutex     sync.Mutex
	needAudio bool
	needVideo bool
	eos       bool
}

func (f *playerFlowControl) reset() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.needAudio = false
	f.needVideo = false
	f.eos = false
}

func (f *playerFlowControl) setNeedData(track TrackType, v bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if track == TrackTypeVideo {
		f.needVideo = v
	} else {
		f.needAudio = v
	}
}

// shouldAppend returns whether a packet of the track must be appended.
// The sink is called after the lock is released, since appending may perform I/O.
func (f *playerFlowControl) shouldAppend(track TrackType) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.eos {
		return false
	}

	if track == TrackTypeVideo {
		return f.needVideo
	}
	return f.needAudio
}

// markEOS marks the end of stream and returns true the first time only.
func (f *playerFlowControl) markEOS() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.eos {
		return false
	}
	f.eos = true
	return true
}

// playerMute is the mute flag. It has its own lock, so that toggles
// never contend with flow control.
type playerMute struct {
	mutex sync.Mutex
	muted bool
}

func (m *playerMute) toggle() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.muted = !m.muted
	return m.muted
}

func (m *playerMute) isMuted() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.muted
}

// do runs cb with the lock held.
func (m *playerMute) do(cb func(muted bool) error) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return cb(m.muted)
}
