package core

// Broadcaster pushes freshly inserted records to listening clients over a
// realtime channel. Delivery is best effort: implementations never block
// and never report failure to the caller.
type Broadcaster interface {
	Broadcast(topic string, payload interface{})
}
