package service

import (
	"context"

	"greenzone/internal/model"
)

// Policy decides whether an identity may perform a registry operation.
// A non-nil error rejects the operation before anything is committed.
type Policy interface {
	CanRegister(ctx context.Context, actor model.Identity) error
	CanPurchase(ctx context.Context, buyer model.Identity, product *model.Product) error
	CanVerify(ctx context.Context, verifier model.Identity, product *model.Product) error
}

// AllowAll lets any identity perform any operation.
type AllowAll struct{}

func (AllowAll) CanRegister(context.Context, model.Identity) error { return nil }

func (AllowAll) CanPurchase(context.Context, model.Identity, *model.Product) error { return nil }

func (AllowAll) CanVerify(context.Context, model.Identity, *model.Product) error { return nil }

// VerifierAllowlist restricts verification to a fixed set of identities.
// Registration and purchase are open to everyone.
type VerifierAllowlist struct {
	AllowAll
	verifiers map[model.Identity]struct{}
}

// NewVerifierAllowlist creates a policy accepting the given verifiers.
func NewVerifierAllowlist(verifiers ...model.Identity) *VerifierAllowlist {
	set := make(map[model.Identity]struct{}, len(verifiers))
	for _, v := range verifiers {
		set[v] = struct{}{}
	}
	return &VerifierAllowlist{verifiers: set}
}

// CanVerify rejects identities outside the allowlist.
func (p *VerifierAllowlist) CanVerify(_ context.Context, verifier model.Identity, product *model.Product) error {
	if _, ok := p.verifiers[verifier]; !ok {
		return model.PermissionDenied(product.ID, verifier)
	}
	return nil
}
