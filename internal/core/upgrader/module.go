package upgrader

import (
	"go.uber.org/fx"

	"github.com/p2pkit/upgrader/pkg/interfaces"
)

// Module wires an Upgrader into an fx application, following the teacher
// package's fx.Module + fx.Provide pattern.
var Module = fx.Module("upgrader", fx.Provide(ProvideUpgrader))

// Params collects the Upgrader's collaborators for fx injection. All but
// SecurityTransports/StreamMuxers are optional and may be left as the zero
// value (nil) if the caller has no use for that collaborator.
type Params struct {
	fx.In

	SecurityTransports []interfaces.SecureTransport `group:"security-transports"`
	StreamMuxers       []interfaces.StreamMuxerFactory `group:"stream-muxers"`

	ConnectionManager interfaces.ConnectionManager `optional:"true"`
	Gater             interfaces.ConnectionGater   `optional:"true"`
	Registrar         interfaces.Registrar         `optional:"true"`
	PeerStore         interfaces.PeerStore         `optional:"true"`
	EventBus          interfaces.EventBus          `optional:"true"`
	Metrics           interfaces.Metrics           `optional:"true"`
	Protector         interfaces.Protector         `optional:"true"`
}

// ProvideUpgrader builds the Config from injected collaborators and returns
// the resulting Upgrader as the public interfaces.Upgrader.
func ProvideUpgrader(p Params) interfaces.Upgrader {
	cfg := &Config{
		SecurityTransports: p.SecurityTransports,
		StreamMuxers:       p.StreamMuxers,
		ConnectionManager:  p.ConnectionManager,
		Gater:              p.Gater,
		Registrar:          p.Registrar,
		PeerStore:          p.PeerStore,
		EventBus:           p.EventBus,
		Metrics:            p.Metrics,
		Protector:          p.Protector,
	}
	return New(cfg)
}
