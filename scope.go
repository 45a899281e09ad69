package gmkit

// Channel describes a channel-like context as reported by the chat platform.
// A thread carries its parent channel's identifier in ParentID.
type Channel struct {
	ID       string
	ParentID string
	IsThread bool
}

// ResolveScope derives the canonical scope for a community/channel pair.
// Threads collapse to their parent channel, so every thread of a channel
// shares that channel's ledger and authority namespace.
func ResolveScope(community string, ch Channel) Scope {
	if ch.IsThread && ch.ParentID != "" {
		return Scope{Community: community, Channel: ch.ParentID}
	}

	return Scope{Community: community, Channel: ch.ID}
}
