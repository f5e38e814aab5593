// Package chat implements the client side of the realtime teamchat
// protocol: the transport adapter, the optimistic-message reconciler, and
// the recency-ordered contact list.
package chat

import "strings"

// PairID computes the deterministic pairwise chat id for two participants:
// the two ids sorted lexicographically and joined with "-". Both sides of a
// conversation compute the same id regardless of who initiates.
func PairID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "-" + b
}

// PairPeer returns the other participant of a pairwise chat id. The second
// return is false when selfID is not a participant.
func PairPeer(chatID, selfID string) (string, bool) {
	if peer, ok := strings.CutPrefix(chatID, selfID+"-"); ok {
		return peer, true
	}
	if peer, ok := strings.CutSuffix(chatID, "-"+selfID); ok {
		return peer, true
	}
	return "", false
}
