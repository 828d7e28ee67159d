// Package auth implements the ledger's controller set (spec.md §4.5):
// the principals authorized to call admin operations (mint, burn,
// create_token, set_token_fee, controller management itself).
package auth

import (
	"context"
	"fmt"

	"github.com/icrc151/ledgerd/internal/storage/region"
)

// Set is the persisted controller set backed by region.Controllers.
type Set struct {
	controllers *region.Map
}

// New scopes a controller set onto backend via region.Controllers.
func New(controllers *region.Map) *Set {
	return &Set{controllers: controllers}
}

var present = []byte{1}

// IsController reports whether principal is currently a controller.
func (s *Set) IsController(ctx context.Context, principal []byte) (bool, error) {
	return s.controllers.Contains(ctx, principal)
}

// Require returns an error unless principal is a controller. Every admin
// RPC method checks this before doing anything else (spec.md §4.5).
func (s *Set) Require(ctx context.Context, principal []byte) error {
	ok, err := s.IsController(ctx, principal)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("auth: caller is not a controller")
	}
	return nil
}

// Add grants controller status to principal. Idempotent.
func (s *Set) Add(ctx context.Context, principal []byte) error {
	return s.controllers.Insert(ctx, principal, present)
}

// Remove revokes controller status. Refuses to remove the last remaining
// controller, so the ledger can never end up with zero controllers and
// become unadministrable (spec.md §4.5 "at least one controller").
func (s *Set) Remove(ctx context.Context, principal []byte) error {
	ok, err := s.IsController(ctx, principal)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	n, err := s.controllers.Len(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return fmt.Errorf("auth: cannot remove the last controller")
	}
	return s.controllers.Remove(ctx, principal)
}

// List returns every controller principal in ascending byte order.
func (s *Set) List(ctx context.Context) ([][]byte, error) {
	entries, err := s.controllers.Iterate(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out, nil
}
