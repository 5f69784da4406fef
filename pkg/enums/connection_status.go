package enums

// ConnectionStatus reports the realtime connection state.
type ConnectionStatus string

const (
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusError        ConnectionStatus = "error"
)

// String implements fmt.Stringer.
func (c ConnectionStatus) String() string {
	return string(c)
}
