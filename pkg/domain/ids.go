// Package domain holds the typed identifiers shared across the connector.
// Wrapping uuid.UUID in distinct types keeps tenant, profile, and account
// identifiers from being swapped at call sites.
package domain

import (
	"github.com/google/uuid"

	dErrors "traitsync/pkg/domain-errors"
)

// TenantID identifies a connector installation (one customer workspace).
type TenantID uuid.UUID

// ProfileID identifies a user profile in the customer-data platform.
type ProfileID uuid.UUID

// AccountID identifies a company/account profile.
type AccountID uuid.UUID

func (id TenantID) String() string  { return uuid.UUID(id).String() }
func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id AccountID) String() string { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewTenantID mints a fresh tenant identifier.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewProfileID mints a fresh profile identifier. Used when the reconciler
// creates profiles for prospected contacts and discovered companies.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// NewAccountID mints a fresh account identifier.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil uuid")
	}
	return parsed, nil
}

// ParseTenantID validates and converts a raw string into a TenantID.
func ParseTenantID(raw string) (TenantID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return TenantID{}, err
	}
	return TenantID(parsed), nil
}

// ParseProfileID validates and converts a raw string into a ProfileID.
func ParseProfileID(raw string) (ProfileID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return ProfileID{}, err
	}
	return ProfileID(parsed), nil
}

// ParseAccountID validates and converts a raw string into an AccountID.
func ParseAccountID(raw string) (AccountID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(parsed), nil
}
