package bus

import "github.com/parlorchat/parlor/pkg/api"

// Kind discriminates the event payload.
type Kind string

const (
	// KindMessage carries a message delivered over the realtime channel.
	KindMessage Kind = "message"
	// KindPresence carries a wholesale snapshot of online peer ids.
	KindPresence Kind = "presence"
	// KindConnection reports a realtime transport state change.
	KindConnection Kind = "connection"
)

// Event is a single inbound realtime event. Events are consumed in arrival
// order by one goroutine, which is what keeps conversation updates serialized.
type Event struct {
	Kind      Kind
	Message   api.Message // KindMessage
	OnlineIDs []string    // KindPresence
	Connected bool        // KindConnection
	Reason    string      // KindConnection: why the transport dropped, if known
}
