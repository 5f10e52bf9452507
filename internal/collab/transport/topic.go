package transport

import (
	"crypto/sha256"
	"encoding/hex"
)

// TopicID identifies one gossip topic. It is the SHA-256 of the edited
// resource's canonical address, so any peer computes the same topic
// from the address alone, without coordination.
type TopicID [32]byte

// TopicForAddress derives the gossip topic for a resource address.
func TopicForAddress(addr string) TopicID {
	return TopicID(sha256.Sum256([]byte(addr)))
}

// String returns the topic as lowercase hex.
func (t TopicID) String() string {
	return hex.EncodeToString(t[:])
}
