package model

import (
	"strings"
	"time"
)

// Identity is an opaque account token supplied by the wallet layer.
type Identity string

// String returns the identity as a plain string.
func (i Identity) String() string {
	return string(i)
}

// IsZero reports whether the identity is empty.
func (i Identity) IsZero() bool {
	return i == ""
}

// Product is a registered agricultural product and its current custody state.
type Product struct {
	ID            string     `json:"productId" db:"id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	Location      string     `json:"location" db:"location"`
	HarvestDate   time.Time  `json:"harvestDate" db:"harvest_date"`
	Farmer        string     `json:"farmer" db:"farmer"`
	Certification string     `json:"certification" db:"certification"`
	Price         int64      `json:"price" db:"price"`
	IsVerified    bool       `json:"isVerified" db:"is_verified"`
	VerifiedBy    Identity   `json:"verifiedBy,omitempty" db:"verified_by"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty" db:"verified_at"`
	RegisteredBy  Identity   `json:"registeredBy" db:"registered_by"`
	Owner         Identity   `json:"owner" db:"current_owner"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// Clone returns a deep copy of the product.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	if p.VerifiedAt != nil {
		at := *p.VerifiedAt
		c.VerifiedAt = &at
	}
	return &c
}

// RegisterRequest carries the caller-supplied fields of a new product.
type RegisterRequest struct {
	ID            string    `json:"productId"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	HarvestDate   time.Time `json:"harvestDate"`
	Farmer        string    `json:"farmer"`
	Certification string    `json:"certification"`
	Price         int64     `json:"price"`
	RegisteredBy  Identity  `json:"registeredBy"`
}

// TransferRequest asks to move ownership of a product to the buyer.
type TransferRequest struct {
	ProductID  string   `json:"productId"`
	Buyer      Identity `json:"buyer"`
	PaidAmount int64    `json:"paidAmount"`

	// ExpectedOwner is the owner the buyer observed when deciding to buy.
	// When set, the transfer fails with ErrStaleOwner if ownership moved since.
	ExpectedOwner Identity `json:"expectedOwner,omitempty"`
}

// VerificationFilter selects products by verification state.
type VerificationFilter string

const (
	VerificationAll        VerificationFilter = "all"
	VerificationVerified   VerificationFilter = "verified"
	VerificationUnverified VerificationFilter = "unverified"
)

// ProductFilter narrows a product listing.
type ProductFilter struct {
	// Search matches name, product ID or farmer, case-insensitively.
	Search       string
	Verification VerificationFilter
	Limit        int
	Offset       int
}

// Matches reports whether p passes the search and verification criteria.
// Limit and Offset are not considered.
func (f ProductFilter) Matches(p *Product) bool {
	switch f.Verification {
	case VerificationVerified:
		if !p.IsVerified {
			return false
		}
	case VerificationUnverified:
		if p.IsVerified {
			return false
		}
	}

	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.ID), term) ||
		strings.Contains(strings.ToLower(p.Farmer), term)
}

// RegistryStats summarises the registry for the dashboard.
type RegistryStats struct {
	Total      int `json:"total"`
	Verified   int `json:"verified"`
	Unverified int `json:"unverified"`
	Owners     int `json:"owners"`
}
