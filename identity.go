package gmkit

import (
	"context"
	"errors"
)

// ErrUnknownHolder is returned by an IdentityResolver when the holder can no
// longer be resolved to a live identity in the community. The presence tracker
// treats this as "remove the entry", not as a failure.
var ErrUnknownHolder = errors.New("unknown holder")

// IdentityResolver resolves holders to display labels through the external
// identity/permission platform. The engine never inspects identities beyond
// this interface.
type IdentityResolver interface {
	// ResolveHolder returns the display label for holder within scope.
	// It returns ErrUnknownHolder when the holder does not exist anymore;
	// any other error is treated as a lookup failure.
	ResolveHolder(ctx context.Context, scope Scope, holder Holder) (string, error)
}

// selfResolver labels every holder with its own identifier. It is the default
// when no platform resolver is wired in.
type selfResolver struct{}

func (selfResolver) ResolveHolder(ctx context.Context, scope Scope, holder Holder) (string, error) {
	return string(holder), nil
}
