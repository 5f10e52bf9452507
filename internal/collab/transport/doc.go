// Package transport provides the P2P endpoint for live collaboration:
// one node per process bound to a persistent keypair, gossip topics
// derived deterministically from resource addresses, and sessions that
// subscribe to one topic per edited resource.
//
// Gossip delivery is unordered and at-most-once. The session receive
// loop therefore tolerates malformed payloads (logged and skipped) and
// lag signals (logged and continued); neither terminates the session.
package transport
