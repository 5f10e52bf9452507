// Package discovery handles the string encoding of peer transport
// addresses published in presence records, and turns a set of such
// records into a session's bootstrap peer list.
//
// The encoded form is "<node-id>@<host:port>", optionally followed by
// "?relay=<url>" when the peer is reachable only through a relay.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/dshills/inkwell/internal/collab/transport"
)

// ErrInvalidAddress is returned when an encoded peer address cannot be
// parsed.
var ErrInvalidAddress = errors.New("discovery: invalid peer address")

// PeerAddress is one decoded peer transport address.
type PeerAddress struct {
	NodeID   transport.NodeID
	Host     string
	RelayURL string
}

// Parse decodes a published peer address string.
func Parse(s string) (PeerAddress, error) {
	base := s
	var relay string
	if i := strings.IndexByte(s, '?'); i >= 0 {
		base = s[:i]
		query, err := url.ParseQuery(s[i+1:])
		if err != nil {
			return PeerAddress{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
		}
		relay = query.Get("relay")
	}

	id, host, ok := strings.Cut(base, "@")
	if !ok || id == "" || host == "" {
		return PeerAddress{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		return PeerAddress{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}

	return PeerAddress{NodeID: transport.NodeID(id), Host: host, RelayURL: relay}, nil
}

// String encodes the address back to its published form.
func (a PeerAddress) String() string {
	s := fmt.Sprintf("%s@%s", a.NodeID, a.Host)
	if a.RelayURL != "" {
		s += "?relay=" + url.QueryEscape(a.RelayURL)
	}
	return s
}

// PresenceRecord is one published presence entry for a session peer.
type PresenceRecord struct {
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BootstrapList converts presence records into the bootstrap peer list
// for a session join, skipping unparsable entries and the local node.
func BootstrapList(records []PresenceRecord, self transport.NodeID) []string {
	var out []string
	for _, rec := range records {
		addr, err := Parse(rec.Address)
		if err != nil {
			continue
		}
		if addr.NodeID == self {
			continue
		}
		out = append(out, addr.String())
	}
	return out
}
