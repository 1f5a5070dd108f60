package upgrader

import "github.com/p2pkit/upgrader/pkg/interfaces"

// dispatchConnectionOpened fires connection:open exactly once, immediately
// after the Connection is constructed (spec.md §4.5 step 5). A nil EventBus
// collaborator is valid and simply means nothing is listening.
func dispatchConnectionOpened(cfg *Config, conn *connection) {
	if cfg.EventBus == nil {
		return
	}
	emitter, err := cfg.EventBus.Emitter(interfaces.EvtConnectionOpened{})
	if err != nil {
		connLog.Warn("no emitter for connection:open", "error", err)
		return
	}
	defer emitter.Close()
	if err := emitter.Emit(interfaces.EvtConnectionOpened{Connection: conn}); err != nil {
		connLog.Warn("failed to emit connection:open", "error", err)
	}
}

// dispatchConnectionClosed is invoked from the timeline's one-shot OnClose
// hook (pkg/types.Timeline), so it fires at most once per connection and
// only once the underlying transport close has been recorded.
func dispatchConnectionClosed(cfg *Config, conn *connection) {
	if cfg.EventBus == nil {
		return
	}
	emitter, err := cfg.EventBus.Emitter(interfaces.EvtConnectionClosed{})
	if err != nil {
		connLog.Warn("no emitter for connection:close", "error", err)
		return
	}
	defer emitter.Close()
	if err := emitter.Emit(interfaces.EvtConnectionClosed{Connection: conn}); err != nil {
		connLog.Warn("failed to emit connection:close", "error", err)
	}
}
