package ws

import "time"

// ConnInfo is the metadata carried per websocket connection for metrics
// and event publishing. UserID is empty until the channel authenticates.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
