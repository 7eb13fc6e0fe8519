package esplayer

import (
	"fmt"
	"time"
)

// CommandKind is the kind of a command.
type CommandKind int

// Command kinds.
const (
	CommandClose          CommandKind = 0
	CommandLoadMedia      CommandKind = 1
	CommandPlay           CommandKind = 2
	CommandStop           CommandKind = 3
	CommandChangeViewRect CommandKind = 4
	CommandMute           CommandKind = 5
)

// InitOptions are the options of Init.
type InitOptions struct {
	// URL of the stream.
	URL string `json:"url"`

	// MIME type of the stream, informative.
	Type string `json:"type"`

	// Minimum interval between audio level notifications, in seconds.
	// Zero or negative disables audio level notifications.
	AudioLevelInterval float64 `json:"audio_level_cb_frequency"`

	// Path of a PEM file with the certificate authority of RTSPS and HTTPS servers.
	CAFile string `json:"crt_path"`

	// RTSP transport protocol ("tcp" or "udp").
	Transport string `json:"transport,omitempty"`

	// Timeout of read operations.
	ReadTimeout time.Duration `json:"-"`
}

// Command is a command addressed to the Player, in the format of the control channel.
type Command struct {
	Kind CommandKind `json:"messageToPlayer"`

	InitOptions
	Rect
}

// HandleCommand dispatches a command.
func (p *Player) HandleCommand(cmd Command) error {
	switch cmd.Kind {
	case CommandClose:
		p.Close()

	case CommandLoadMedia:
		p.Init(cmd.InitOptions)

	case CommandPlay:
		p.Play()

	case CommandStop:
		p.Stop()

	case CommandChangeViewRect:
		p.SetViewRect(cmd.Rect)

	case CommandMute:
		p.Mute()

	default:
		return fmt.Errorf("unknown command: %d", cmd.Kind)
	}

	return nil
}
