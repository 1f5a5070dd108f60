package upgrader

import (
	"context"
	"errors"

	"github.com/p2pkit/upgrader/internal/lib/log"
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

var routerLog = log.Logger("core/upgrader/router")

// routeInboundStream implements spec.md §4.6. It runs on the muxer's own
// goroutine per inbound substream and must never let a failure here tear
// down the connection or any other stream.
func routeInboundStream(cfg *Config, cell *connCell, stream interfaces.MuxedStream) {
	conn := cell.get()
	if conn == nil {
		// Stream arrived before the Connection was published into the cell.
		// The muxer's accept loop starts inside NewConn, so a stream the
		// remote opens between NewConn returning and cell.publish lands here
		// and is reset.
		_ = stream.Reset()
		return
	}

	protocols := protocolStrings(cfg.Registrar.Protocols())

	selected, err := negotiateResponder(context.Background(), stream, protocols, false)
	if err != nil {
		routerLog.Debug("inbound protocol negotiation failed", "stream", stream.ID(), "error", err)
		closeIfOpen(stream)
		return
	}
	protocol := types.ProtocolID(selected)

	entry, err := cfg.Registrar.GetHandler(protocol)
	limit := DefaultMaxInboundStreams
	if err != nil {
		if !errors.Is(err, interfaces.ErrUnhandledProtocol) {
			routerLog.Warn("registrar lookup failed", "protocol", protocol, "error", err)
			closeIfOpen(stream)
			return
		}
		// Unhandled (the protocol was unregistered after negotiation): there
		// is no handler to invoke, so close and stop; no stream cap is checked.
		routerLog.Debug("no handler for protocol", "protocol", protocol)
		closeIfOpen(stream)
		return
	}
	if entry.Options.MaxInboundStreams > 0 {
		limit = entry.Options.MaxInboundStreams
	}

	count := countStreams(conn, types.DirInbound, protocol)
	if count == limit {
		routerLog.Debug("too many inbound streams", "protocol", protocol, "limit", limit)
		abortStream(stream, &TooManyInboundProtocolStreamsError{Protocol: string(protocol), Limit: limit})
		return
	}

	stream.SetProtocol(protocol)

	if cfg.PeerStore != nil {
		cfg.PeerStore.Merge(conn.RemotePeer(), []types.ProtocolID{protocol})
	}

	if cfg.Metrics != nil {
		cfg.Metrics.TrackProtocolStream(stream, conn)
	}

	if conn.Limits() != nil && !entry.Options.RunOnLimitedConnection {
		routerLog.Debug("rejecting stream on limited connection", "protocol", protocol)
		abortStream(stream, ErrLimitedConnection)
		return
	}

	entry.Handler(conn, stream)
}

func protocolStrings(ids []types.ProtocolID) []string {
	out := make([]string, len(ids))
	for i, p := range ids {
		out[i] = string(p)
	}
	return out
}

// countStreams counts the muxer's current live streams matching dir and
// protocol. The stream under negotiation is never counted here: its
// Protocol() is only set after this check runs (see SetProtocol above).
func countStreams(conn *connection, dir types.Direction, protocol types.ProtocolID) int {
	if conn.muxConn == nil {
		return 0
	}
	n := 0
	for _, s := range conn.muxConn.Streams() {
		if s.Direction() == dir && s.Protocol() == protocol {
			n++
		}
	}
	return n
}

func closeIfOpen(stream interfaces.MuxedStream) {
	_ = stream.Close()
}

func abortStream(stream interfaces.MuxedStream, cause error) {
	routerLog.Debug("aborting stream", "cause", cause)
	_ = stream.Reset()
}
