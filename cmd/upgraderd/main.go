// Command upgraderd is a thin fx-wired example binary. It listens on a local
// TCP port, dials itself, and drives one inbound and one outbound upgrade
// through the same Upgrader built by internal/core/upgrader's fx module,
// logging the outcome of each upgrade. It is not a production
// daemon; it exists to give the fx wiring a reachable main.
package main

import (
	"context"
	"crypto/ed25519"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/p2pkit/upgrader/internal/collab"
	"github.com/p2pkit/upgrader/internal/core/upgrader"
	"github.com/p2pkit/upgrader/internal/lib/log"
	noisesec "github.com/p2pkit/upgrader/internal/security/noise"
	yamuxmux "github.com/p2pkit/upgrader/internal/muxer/yamux"
	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

var mainLog = log.Logger("cmd/upgraderd")

func main() {
	app := fx.New(
		upgrader.Module,
		fx.Provide(
			fx.Annotate(newNoiseTransport, fx.As(new(interfaces.SecureTransport)), fx.ResultTags(`group:"security-transports"`)),
			fx.Annotate(newYamuxFactory, fx.As(new(interfaces.StreamMuxerFactory)), fx.ResultTags(`group:"stream-muxers"`)),
			fx.Annotate(collab.NewRegistrar, fx.As(new(interfaces.Registrar))),
			fx.Annotate(newEventBus, fx.As(new(interfaces.EventBus))),
			fx.Annotate(newPeerStore, fx.As(new(interfaces.PeerStore))),
			fx.Annotate(newConnManager, fx.As(new(interfaces.ConnectionManager))),
			fx.Annotate(newMetrics, fx.As(new(interfaces.Metrics))),
		),
		fx.Invoke(runDemo),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		mainLog.Error("fx start failed", "error", err)
		return
	}
	defer app.Stop(context.Background())
}

func newNoiseTransport() interfaces.SecureTransport {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	t, err := noisesec.New(priv)
	if err != nil {
		panic(err)
	}
	return t
}

func newYamuxFactory() interfaces.StreamMuxerFactory {
	return yamuxmux.NewFactory(yamuxmux.Config{})
}

func newEventBus() interfaces.EventBus       { return collab.NewEventBus() }
func newPeerStore() interfaces.PeerStore     { return collab.NewPeerStore(4096) }
func newConnManager() interfaces.ConnectionManager { return collab.NewConnManager(128) }
func newMetrics() interfaces.Metrics         { return collab.NewMetrics(prometheus.NewRegistry()) }

// runDemo listens once, dials itself once, and upgrades both ends so the
// wiring above is actually exercised rather than merely constructed.
func runDemo(lc fx.Lifecycle, up interfaces.Upgrader) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return err
			}

			go func() {
				defer ln.Close()
				server, err := ln.Accept()
				if err != nil {
					return
				}
				addr, err := types.NewMultiaddr("/ip4/127.0.0.1/tcp/0")
				if err != nil {
					return
				}
				conn, err := up.UpgradeInbound(context.Background(), server, addr, interfaces.UpgradeOpts{})
				if err != nil {
					mainLog.Error("inbound upgrade failed", "error", err)
					return
				}
				mainLog.Info("inbound connection upgraded", "remote_peer", conn.RemotePeer().ShortString(), "muxer", conn.Multiplexer())
			}()

			client, err := net.Dial("tcp", ln.Addr().String())
			if err != nil {
				return err
			}
			addr, err := types.NewMultiaddr("/ip4/127.0.0.1/tcp/0")
			if err != nil {
				return err
			}
			conn, err := up.UpgradeOutbound(ctx, client, addr, types.EmptyPeerID, interfaces.UpgradeOpts{})
			if err != nil {
				mainLog.Error("outbound upgrade failed", "error", err)
				return nil
			}
			mainLog.Info("outbound connection upgraded", "remote_peer", conn.RemotePeer().ShortString(), "muxer", conn.Multiplexer())
			return nil
		},
	})
}
