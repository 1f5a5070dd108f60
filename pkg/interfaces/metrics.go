package interfaces

// Metrics is an optional collaborator; a nil Metrics means "don't track".
type Metrics interface {
	TrackMultiaddrConnection(maConn MultiaddrConnLike)
	TrackProtocolStream(stream MuxedStream, conn UpgradedConnection)

	// CountDialerEvent increments the dialer event counter for one of
	// "connect", "error", "timeout", "abort".
	CountDialerEvent(event string)
}
