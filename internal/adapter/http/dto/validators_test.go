package dto

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := POSEntryRequest{
		Email:     "  jane@example.com  ",
		Reference: " POS-001 ",
		Amount:    decimal.RequireFromString("12.50"),
	}
	SanitizeStruct(&req)

	assert.Equal(t, "jane@example.com", req.Email)
	assert.Equal(t, "POS-001", req.Reference)
	assert.Equal(t, "12.50", req.Amount.StringFixed(2), "non-string fields untouched")
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := RefundRequest{
		Reason: "customer <script>alert('x')</script> request",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Reason, "&lt;script&gt;")
	assert.NotContains(t, req.Reason, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	type withPointer struct {
		Note *string
	}
	note := "  <b>till 4</b>  "
	req := withPointer{Note: &note}
	SanitizeStruct(&req)

	assert.Equal(t, "&lt;b&gt;till 4&lt;/b&gt;", *req.Note)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	type withPointer struct {
		Note *string
	}
	req := withPointer{}
	SanitizeStruct(&req)
	assert.Nil(t, req.Note)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"POS-001",
		"WALLET-ORDER-42-store",
		"a.b.c",
		"terminal_7:sale#12",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"ref 001",     // space
		"ref<001>",    // angle brackets
		"ref;DROP",    // semicolon
		"",            // empty
		"hello world", // space
		"ref\n001",    // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}
