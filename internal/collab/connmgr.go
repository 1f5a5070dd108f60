// Package collab provides default, in-memory implementations of every
// upgrader collaborator, suitable for a single-process deployment or as a
// starting point for a more sophisticated one.
package collab

import (
	"sync/atomic"

	"github.com/p2pkit/upgrader/pkg/interfaces"
)

// ConnManager admits connections up to a fixed ceiling and otherwise allows
// everything. It has no notion of trimming or scoring; it is the minimum
// viable admission policy.
type ConnManager struct {
	maxInbound int64
	current    atomic.Int64
}

var _ interfaces.ConnectionManager = (*ConnManager)(nil)

// NewConnManager builds a ConnManager that admits at most maxInbound
// concurrent inbound upgrades. A non-positive maxInbound means unlimited.
func NewConnManager(maxInbound int64) *ConnManager {
	return &ConnManager{maxInbound: maxInbound}
}

// AcceptIncomingConnection reserves a slot unconditionally; the caller's
// upgrader is required to invoke AfterUpgradeInbound exactly once per
// attempt regardless of this decision, which is what releases it.
func (m *ConnManager) AcceptIncomingConnection(interfaces.MultiaddrConnLike) bool {
	n := m.current.Add(1)
	if m.maxInbound > 0 && n > m.maxInbound {
		return false
	}
	return true
}

func (m *ConnManager) AfterUpgradeInbound() {
	m.current.Add(-1)
}
