package interfaces

import "net"

// Protector wraps a raw connection in a pre-shared-key tunnel. A nil
// Protector, or UpgradeOpts.SkipProtection, means the stage is skipped.
type Protector interface {
	Protect(conn net.Conn) (net.Conn, error)
}
