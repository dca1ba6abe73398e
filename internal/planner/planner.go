// Package planner decides which remote messages need fetching.
package planner

// Mode selects how the planner treats already-cached messages.
type Mode string

const (
	// ModeSync fetches only messages not present in the local cache.
	ModeSync Mode = "sync"
	// ModeForce refetches every remote message, ignoring the cache.
	ModeForce Mode = "force"
)

// Plan computes the set of ids that must be fetched from the remote service
// to bring local state up to date with remoteIDs.
//
// In ModeSync the result is the set difference remoteIDs − knownIDs; in
// ModeForce it is all of remoteIDs. Plan is a pure function: it performs no
// I/O and cannot fail. The result is a set — fetch order is up to the caller.
func Plan(remoteIDs []string, knownIDs map[string]bool, mode Mode) map[string]bool {
	fetch := make(map[string]bool)
	for _, id := range remoteIDs {
		if mode == ModeForce || !knownIDs[id] {
			fetch[id] = true
		}
	}
	return fetch
}

// Order filters remoteIDs down to those in fetch, preserving remote order.
// Convenient for callers that want a stable fetch sequence for progress
// reporting.
func Order(remoteIDs []string, fetch map[string]bool) []string {
	out := make([]string, 0, len(fetch))
	for _, id := range remoteIDs {
		if fetch[id] {
			out = append(out, id)
		}
	}
	return out
}
