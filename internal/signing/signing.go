// Package signing states the contract the active-client cache builds
// against: a Signer that holds an identity's private key, a RelayHandle
// abstracting one relay connection, and the ActiveClient value that bundles
// them. Event construction, subscription multiplexing, and wire framing
// live in internal/relay; this package only states the contract.
package signing

import "context"

// Signer signs a 32-byte NIP-01 event ID with the active identity's
// private key. A read-only ActiveClient has a nil Signer.
type Signer interface {
	PublicKeyHex() string
	Sign(ctx context.Context, eventID []byte) ([]byte, error)
}

// RelayHandle is the per-relay connection state the active-client cache
// manages on behalf of an ActiveClient.
type RelayHandle interface {
	URL() string
	ReadWrite() string // "read", "write", or "both"
	Connect(ctx context.Context) error
	Disconnect(force bool) error
	Status() string
}

// ActiveClient is the single cached value the active-client cache
// maintains: the signer bound to the current active identity and the
// relay set from its settings.
type ActiveClient struct {
	ActiveLabel string
	PublicKey   string // hex
	Signer      Signer // nil => read-only
	Relays      []RelayHandle
}

func (c *ActiveClient) ReadOnly() bool {
	return c.Signer == nil
}
