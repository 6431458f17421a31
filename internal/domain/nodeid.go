// Package domain holds the network-neutral value types shared by the
// routing table and advertisement engine: opaque neighbor identities and
// the advertisement message itself.
package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
)

// IDLen is the byte length of a NodeID (a SHA-1 digest).
const IDLen = sha1.Size

// ErrInvalidNodeID is returned when a hex string cannot be parsed into a NodeID.
var ErrInvalidNodeID = errors.New("domain: invalid node id")

// NodeID is an opaque neighbor identity. It is a fixed-size byte array so
// that Go's built-in equality and hashing (content-based, by value) make it
// directly usable as a map key without any helper methods — exactly the
// capability set a node identifier needs (hashable, equatable, string-renderable,
// immutable, unordered).
type NodeID [IDLen]byte

// NewNodeID derives a NodeID from an arbitrary seed string by taking its
// SHA-1 digest, the same way the embedder derives a stable identity from a
// listen address or public key fingerprint.
func NewNodeID(seed string) NodeID {
	return NodeID(sha1.Sum([]byte(seed)))
}

// NodeIDFromHex parses the reference string rendering produced by String()
// back into a NodeID. Used by the persistence adapter when reloading a
// snapshot.
func NodeIDFromHex(s string) (NodeID, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != IDLen {
		return NodeID{}, ErrInvalidNodeID
	}
	var id NodeID
	copy(id[:], b)
	return id, nil
}

// String renders the NodeID as a stable lowercase hex string.
func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the all-zero NodeID (the zero value), which
// never identifies a real neighbor.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}
