package domain

import "fmt"

// Advertisement is the message routed over the trust graph by the
// protocol. Sender is the immediate previous hop, not the originator;
// InboundTTL is the number of further hops the message may travel;
// Payload is opaque to the core.
//
// Advertisement is immutable: CopyWith is the only way to derive a new
// value from an existing one.
type Advertisement struct {
	Sender     NodeID
	InboundTTL int
	Payload    []byte
}

// NewAdvertisement builds an Advertisement with the given sender, TTL and
// payload.
func NewAdvertisement(sender NodeID, ttl int, payload []byte) Advertisement {
	return Advertisement{Sender: sender, InboundTTL: ttl, Payload: payload}
}

// CopyWith returns a fresh Advertisement with a new sender and TTL but the
// same payload. The payload slice is shared, never mutated, by either
// advertisement.
func (a Advertisement) CopyWith(sender NodeID, ttl int) Advertisement {
	return Advertisement{Sender: sender, InboundTTL: ttl, Payload: a.Payload}
}

// String renders a one-line summary suitable for logging; it never prints
// the payload contents.
func (a Advertisement) String() string {
	return fmt.Sprintf("Advertisement{sender=%s ttl=%d payloadLen=%d}", a.Sender, a.InboundTTL, len(a.Payload))
}
