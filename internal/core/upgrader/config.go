package upgrader

import (
	"time"

	"github.com/p2pkit/upgrader/pkg/interfaces"
)

// DefaultMaxInboundStreams and DefaultMaxOutboundStreams are the per-protocol
// stream caps used when neither the registrar's handler options nor the
// caller's NewStreamOpts specify one. Spec leaves the numeric value
// unspecified beyond "imported from the registrar"; 32 is the conventional
// default carried forward from the wider ecosystem.
const (
	DefaultMaxInboundStreams  = 32
	DefaultMaxOutboundStreams = 32
)

// DefaultProtocolSelectTimeout bounds a single outbound NewStream's
// multistream-select exchange when the caller supplies no context deadline.
const DefaultProtocolSelectTimeout = 30 * time.Second

// DefaultInboundUpgradeTimeout bounds an entire inbound upgrade attempt.
const DefaultInboundUpgradeTimeout = 30 * time.Second

// Config is the upgrader's fixed, process-lifetime configuration.
type Config struct {
	SecurityTransports []interfaces.SecureTransport
	StreamMuxers       []interfaces.StreamMuxerFactory

	// InboundUpgradeTimeout bounds inbound upgrades; zero means
	// DefaultInboundUpgradeTimeout.
	InboundUpgradeTimeout time.Duration

	ConnectionManager interfaces.ConnectionManager
	Gater             interfaces.ConnectionGater
	Registrar         interfaces.Registrar
	PeerStore         interfaces.PeerStore
	EventBus          interfaces.EventBus
	Metrics           interfaces.Metrics

	Protector interfaces.Protector
}

func (c *Config) inboundUpgradeTimeout() time.Duration {
	if c.InboundUpgradeTimeout <= 0 {
		return DefaultInboundUpgradeTimeout
	}
	return c.InboundUpgradeTimeout
}

func (c *Config) securityIDs() []string {
	ids := make([]string, len(c.SecurityTransports))
	for i, s := range c.SecurityTransports {
		ids[i] = string(s.ID())
	}
	return ids
}

func (c *Config) muxerIDs() []string {
	ids := make([]string, len(c.StreamMuxers))
	for i, m := range c.StreamMuxers {
		ids[i] = m.ID()
	}
	return ids
}

func (c *Config) securityByID(id string) interfaces.SecureTransport {
	for _, s := range c.SecurityTransports {
		if string(s.ID()) == id {
			return s
		}
	}
	return nil
}

func (c *Config) muxerByID(id string) interfaces.StreamMuxerFactory {
	for _, m := range c.StreamMuxers {
		if m.ID() == id {
			return m
		}
	}
	return nil
}
