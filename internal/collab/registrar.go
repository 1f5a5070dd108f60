package collab

import (
	"sync"

	"github.com/p2pkit/upgrader/pkg/interfaces"
	"github.com/p2pkit/upgrader/pkg/types"
)

// Registrar is a simple, mutable protocol handler table. Handlers may be
// added at any time, including after connections are already open — the
// inbound router reads Protocols() fresh on every stream arrival rather
// than caching it.
type Registrar struct {
	mu      sync.RWMutex
	entries map[types.ProtocolID]interfaces.HandlerEntry
	order   []types.ProtocolID
}

var _ interfaces.Registrar = (*Registrar)(nil)

func NewRegistrar() *Registrar {
	return &Registrar{entries: make(map[types.ProtocolID]interfaces.HandlerEntry)}
}

// SetHandler registers or replaces the handler for protocol.
func (r *Registrar) SetHandler(protocol types.ProtocolID, handler interfaces.StreamHandler, opts interfaces.HandlerOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[protocol]; !exists {
		r.order = append(r.order, protocol)
	}
	r.entries[protocol] = interfaces.HandlerEntry{Handler: handler, Options: opts}
}

// RemoveHandler unregisters protocol, if present.
func (r *Registrar) RemoveHandler(protocol types.ProtocolID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[protocol]; !exists {
		return
	}
	delete(r.entries, protocol)
	for i, p := range r.order {
		if p == protocol {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registrar) Protocols() []types.ProtocolID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ProtocolID, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registrar) GetHandler(protocol types.ProtocolID) (interfaces.HandlerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[protocol]
	if !ok {
		return interfaces.HandlerEntry{}, interfaces.ErrUnhandledProtocol
	}
	return entry, nil
}
