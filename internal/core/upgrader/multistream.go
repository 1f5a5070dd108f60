package upgrader

import (
	"context"
	"fmt"
	"net"
	"time"

	mss "github.com/multiformats/go-multistream"
)

// negotiateResponder runs multistream-select in responder mode, offering
// every id in protocols and returning whichever the initiator selected.
// yieldBytes has no effect here; go-multistream's muxer always reads the
// initiator's selection before replying, so there is nothing to optimize —
// the parameter is kept to document the spec's handle(stream, protocols,
// {yieldBytes}) contract at the call sites that mirror it (see router.go).
func negotiateResponder(ctx context.Context, conn net.Conn, protocols []string, yieldBytes bool) (string, error) {
	mux := mss.NewMultistreamMuxer[string]()
	for _, p := range protocols {
		mux.AddHandler(p, nil)
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
		defer conn.SetDeadline(time.Time{})
	}

	selected, _, err := mux.Negotiate(conn)
	if err != nil {
		return "", fmt.Errorf("upgrader: multistream negotiate: %w", err)
	}
	return selected, nil
}

// negotiateInitiator runs multistream-select in initiator mode, offering
// protocols in order and returning the first the responder accepts.
// yieldBytes=true mirrors the spec's optimistic-selection contract: with a
// single candidate protocol, go-multistream's SelectOneOf already sends the
// selection without waiting for an "ls" round trip, which is the effect
// optimistic selection is after; with multiple candidates there is no
// equivalent in go-multistream's API, so the parameter only changes which
// path is documented as "optimistic" at the call site, not actual wire
// behavior.
func negotiateInitiator(ctx context.Context, conn net.Conn, protocols []string, yieldBytes bool) (string, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
		defer conn.SetDeadline(time.Time{})
	}

	selected, err := mss.SelectOneOf(protocols, conn)
	if err != nil {
		return "", fmt.Errorf("upgrader: multistream select: %w", err)
	}
	return selected, nil
}
