package routing

import (
	"time"

	"github.com/luxfi/crypto/bls"

	"github.com/luxfi/overlay/keychain"
)

// BounceDelay is the fixed delay before resending a bounced message
// (spec §4.5).
const BounceDelay = time.Second

// Bounce is returned to the immediate sender of a message the receiver
// could not verify because it lacks the referenced section key.
type Bounce struct {
	SenderLastKnownKey *bls.PublicKey
	OriginalBytes      []byte
}

// BounceAction is what a node should do after receiving a Bounce.
type BounceAction int

const (
	// Drop means do not resend; the bouncer's knowledge is ahead of or
	// unrelated to ours.
	Drop BounceAction = iota
	// ResendUnchanged means resend the original bytes as-is after
	// BounceDelay.
	ResendUnchanged
	// ResendWithExtension means resend the original bytes along with a
	// chain extension covering the gap between the bouncer's key and our
	// tail, after BounceDelay.
	ResendWithExtension
)

// HandleBounce decides how to respond to a Bounce given the node's current
// lifecycle state and section key chain (spec §4.5 "Bounce protocol"). A
// bootstrapping or joining node always resends unchanged, since it has no
// chain to prove. Otherwise: if the bouncer's last known key is behind our
// chain, we resend with the extension that brings it up to date; if it is
// ahead of or unknown to us, we drop.
func HandleBounce(state State, chain *keychain.Chain, b Bounce) (BounceAction, *keychain.Chain) {
	if state == Bootstrapping || state == Joining {
		return ResendUnchanged, nil
	}

	sub, known := chain.MinimizeTo(b.SenderLastKnownKey)
	if !known {
		return Drop, nil
	}
	if sub.Len() <= 1 {
		// The bouncer already holds our tail key; nothing to extend.
		return Drop, nil
	}
	return ResendWithExtension, sub
}
