package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStepKind(t *testing.T) {
	tests := []struct {
		input    string
		expected StepKind
	}{
		{"REGISTRATION", StepRegistration},
		{"harvest", StepHarvest},
		{" Processing ", StepProcessing},
		{"TRANSPORT", StepTransport},
		{"distribution", StepDistribution},
		{"RETAIL", StepUnknown},
		{"", StepUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseStepKind(tt.input))
		})
	}
}

func TestStepID(t *testing.T) {
	assert.Equal(t, "PROD-1-0", StepID("PROD-1", 0))
	assert.Equal(t, "PROD-1-4", StepID("PROD-1", 4))
}

func TestProduct_CloneIsDeep(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &Product{ID: "P1", Owner: "A", VerifiedAt: &at}

	c := p.Clone()
	c.Owner = "B"
	*c.VerifiedAt = at.Add(time.Hour)

	assert.Equal(t, Identity("A"), p.Owner)
	assert.Equal(t, at, *p.VerifiedAt)
	assert.Nil(t, (*Product)(nil).Clone())
}

func TestProductFilter_Matches(t *testing.T) {
	rice := &Product{ID: "P1", Name: "Gạo ST25", Farmer: "Nguyễn Văn A", IsVerified: true}
	mango := &Product{ID: "MANGO-2", Name: "Xoài Cát", Farmer: "Trần Thị B"}

	tests := []struct {
		name     string
		filter   ProductFilter
		product  *Product
		expected bool
	}{
		{name: "empty filter", filter: ProductFilter{}, product: mango, expected: true},
		{name: "search by name", filter: ProductFilter{Search: "st25"}, product: rice, expected: true},
		{name: "search by id", filter: ProductFilter{Search: "mango"}, product: mango, expected: true},
		{name: "search by farmer", filter: ProductFilter{Search: "trần"}, product: mango, expected: true},
		{name: "search miss", filter: ProductFilter{Search: "coffee"}, product: rice, expected: false},
		{name: "verified only", filter: ProductFilter{Verification: VerificationVerified}, product: mango, expected: false},
		{name: "unverified only", filter: ProductFilter{Verification: VerificationUnverified}, product: mango, expected: true},
		{name: "unverified excludes verified", filter: ProductFilter{Verification: VerificationUnverified}, product: rice, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Matches(tt.product))
		})
	}
}
