package upgrader

import (
	"context"

	"github.com/p2pkit/upgrader/internal/lib/log"
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

var outboundLog = log.Logger("core/upgrader/outbound")

// newStream implements spec.md §4.7, the outbound stream factory.
func (c *connection) newStream(ctx context.Context, protocols []types.ProtocolID, opts interfaces.NewStreamOpts) (interfaces.MuxedStream, error) {
	if c.muxConn == nil {
		return nil, ErrMuxerUnavailable
	}
	if len(protocols) == 0 {
		return nil, ErrMuxerUnavailable
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultProtocolSelectTimeout)
		defer cancel()
	}

	stream, err := c.muxConn.OpenStream(ctx)
	if err != nil {
		return nil, classifyUpgradeErr(ctx, err)
	}

	selected, err := negotiateInitiator(ctx, stream, protocolStrings(protocols), true)
	if err != nil {
		_ = stream.Reset()
		return nil, classifyUpgradeErr(ctx, err)
	}
	protocol := types.ProtocolID(selected)

	limit := c.findOutgoingStreamLimit(protocol, opts)

	count := countStreams(c, types.DirOutbound, protocol)
	if count >= limit {
		cause := &TooManyOutboundProtocolStreamsError{Protocol: string(protocol), Count: count, Limit: limit}
		_ = stream.Reset()
		return nil, cause
	}

	stream.SetProtocol(protocol)

	if c.cfg.PeerStore != nil {
		c.cfg.PeerStore.Merge(c.remotePeer, []types.ProtocolID{protocol})
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.TrackProtocolStream(stream, c)
	}

	return stream, nil
}

// findOutgoingStreamLimit resolves the outbound cap in the order spec.md
// §4.7 specifies: the registrar handler's MaxOutboundStreams wins, else the
// caller's NewStreamOpts, else DefaultMaxOutboundStreams.
func (c *connection) findOutgoingStreamLimit(protocol types.ProtocolID, opts interfaces.NewStreamOpts) int {
	if c.cfg.Registrar != nil {
		entry, err := c.cfg.Registrar.GetHandler(protocol)
		if err == nil && entry.Options.MaxOutboundStreams > 0 {
			return entry.Options.MaxOutboundStreams
		}
	}
	if opts.MaxOutboundStreams > 0 {
		return opts.MaxOutboundStreams
	}
	return DefaultMaxOutboundStreams
}
