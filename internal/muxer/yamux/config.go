package yamux

import (
	"io"
	"time"

	hyamux "github.com/hashicorp/yamux"
)

// Config exposes the handful of yamux tunables this module cares about; it
// mirrors the teacher's Config/ConfigToYamux split so callers don't need to
// import hashicorp/yamux directly just to build a Factory.
type Config struct {
	AcceptBacklog          int
	EnableKeepAlive        bool
	KeepAliveInterval      time.Duration
	ConnectionWriteTimeout time.Duration
	MaxStreamWindowSize    uint32
	StreamOpenTimeout      time.Duration
	StreamCloseTimeout     time.Duration
}

// DefaultConfig matches hashicorp/yamux's own defaults, with logging
// discarded rather than sent to the process's default logger.
func DefaultConfig() Config {
	d := hyamux.DefaultConfig()
	return Config{
		AcceptBacklog:          d.AcceptBacklog,
		EnableKeepAlive:        d.EnableKeepAlive,
		KeepAliveInterval:      d.KeepAliveInterval,
		ConnectionWriteTimeout: d.ConnectionWriteTimeout,
		MaxStreamWindowSize:    d.MaxStreamWindowSize,
		StreamOpenTimeout:      d.StreamOpenTimeout,
		StreamCloseTimeout:     d.StreamCloseTimeout,
	}
}

func (c Config) toYamux() *hyamux.Config {
	return &hyamux.Config{
		AcceptBacklog:          c.AcceptBacklog,
		EnableKeepAlive:        c.EnableKeepAlive,
		KeepAliveInterval:      c.KeepAliveInterval,
		ConnectionWriteTimeout: c.ConnectionWriteTimeout,
		MaxStreamWindowSize:    c.MaxStreamWindowSize,
		StreamOpenTimeout:      c.StreamOpenTimeout,
		StreamCloseTimeout:     c.StreamCloseTimeout,
		LogOutput:              io.Discard,
	}
}
