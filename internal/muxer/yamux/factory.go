// Package yamux adapts hashicorp/yamux into the upgrader's
// interfaces.StreamMuxerFactory / MuxedConn / MuxedStream contracts.
package yamux

import (
	"fmt"
	"net"

	hyamux "github.com/hashicorp/yamux"

	"github.com/p2pkit/upgrader/internal/lib/log"
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

const protocolID = "/yamux/1.0.0"

var muxLog = log.Logger("muxer/yamux")

// Factory creates one yamux session per connection.
type Factory struct {
	cfg *hyamux.Config
}

var _ interfaces.StreamMuxerFactory = (*Factory)(nil)

// NewFactory builds a Factory from cfg. A zero Config uses yamux's defaults.
func NewFactory(cfg Config) *Factory {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Factory{cfg: cfg.toYamux()}
}

func (f *Factory) ID() string { return protocolID }

func (f *Factory) NewConn(conn net.Conn, dir types.Direction, onIncomingStream func(interfaces.MuxedStream)) (interfaces.MuxedConn, error) {
	var session *hyamux.Session
	var err error

	if dir == types.DirInbound {
		session, err = hyamux.Server(conn, f.cfg)
	} else {
		session, err = hyamux.Client(conn, f.cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("yamux: create session: %w", err)
	}

	mc := newMuxedConn(session)
	if onIncomingStream != nil {
		go mc.acceptLoop(onIncomingStream)
	}
	return mc, nil
}
