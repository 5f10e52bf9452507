package transport

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/dshills/inkwell/internal/diag"
)

// ErrBindFailed wraps a gossip backend failure during node startup.
// It is fatal to the session being created.
var ErrBindFailed = errors.New("transport: bind failed")

// Node is the process-wide P2P endpoint. One node, bound to one
// keypair, serves every session in the process.
type Node struct {
	id     NodeID
	key    ed25519.PrivateKey
	gossip Gossip
	log    *diag.Logger
}

// NewNode creates a node over the given gossip backend using the
// provided keypair.
func NewNode(key ed25519.PrivateKey, gossip Gossip, log *diag.Logger) *Node {
	if log == nil {
		log = diag.NullLogger
	}
	pub := key.Public().(ed25519.PublicKey)
	return &Node{
		id:     NodeID(hex.EncodeToString(pub)),
		key:    key,
		gossip: gossip,
		log:    log.WithComponent("transport"),
	}
}

// ID returns the node's identifier.
func (n *Node) ID() NodeID { return n.id }

// Sign signs a payload with the node's key.
func (n *Node) Sign(payload []byte) []byte {
	return ed25519.Sign(n.key, payload)
}

// LoadOrGenerateKey returns the keypair persisted at path, generating
// and persisting a fresh one when the file does not exist. The file
// holds the hex-encoded 32-byte seed.
func LoadOrGenerateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		seed, decErr := hex.DecodeString(string(data))
		if decErr != nil {
			return nil, fmt.Errorf("decode key file %s: %w", path, decErr)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("key file %s: seed is %d bytes, want %d", path, len(seed), ed25519.SeedSize)
		}
		return ed25519.NewKeyFromSeed(seed), nil

	case os.IsNotExist(err):
		_, key, genErr := ed25519.GenerateKey(rand.Reader)
		if genErr != nil {
			return nil, fmt.Errorf("generate key: %w", genErr)
		}
		encoded := []byte(hex.EncodeToString(key.Seed()))
		if writeErr := os.WriteFile(path, encoded, 0o600); writeErr != nil {
			return nil, fmt.Errorf("persist key file %s: %w", path, writeErr)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}
}
