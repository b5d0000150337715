package models

import "time"

// HeartbeatStaleMultiplier is the consumer-side convention for liveness:
// an origin is stale once now - receiveTime exceeds timeout * 4.
const HeartbeatStaleMultiplier = 4

// Heartbeat is a liveness signal from an alert-producing origin. Heartbeats
// are keyed by origin and sit entirely outside the alert state machine.
type Heartbeat struct {
	Origin      string    `bson:"_id" json:"origin"`
	Tags        []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	CreateTime  time.Time `bson:"createTime" json:"createTime"`
	ReceiveTime time.Time `bson:"receiveTime" json:"receiveTime"`
	Timeout     int       `bson:"timeout" json:"timeout"` // seconds
	Version     string    `bson:"version,omitempty" json:"version,omitempty"`
}

// Stale reports whether the origin has gone quiet for longer than the
// conventional multiple of its timeout.
func (h *Heartbeat) Stale(now time.Time) bool {
	return now.Sub(h.ReceiveTime) > time.Duration(h.Timeout*HeartbeatStaleMultiplier)*time.Second
}

// Latency is the send-to-receive delay in milliseconds.
func (h *Heartbeat) Latency() int64 {
	return h.ReceiveTime.Sub(h.CreateTime).Milliseconds()
}

// HeartbeatStatus is the display shape consumed by dashboards, a heartbeat
// plus its derived liveness fields.
type HeartbeatStatus struct {
	Heartbeat
	Stale     bool  `json:"stale"`
	LatencyMs int64 `json:"latencyMs"`
	SinceSec  int64 `json:"sinceSec"`
}

// HeartbeatRequest is an inbound heartbeat write.
type HeartbeatRequest struct {
	Origin     string     `json:"origin"`
	Tags       []string   `json:"tags,omitempty"`
	CreateTime *time.Time `json:"createTime,omitempty"`
	Timeout    *int       `json:"timeout,omitempty"`
	Version    string     `json:"version,omitempty"`
}
