package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultProviderRole is the role given to a provider added without one.
const DefaultProviderRole = "Ordering Provider"

// npiLuhnPrefix is prepended to an NPI before its check digit is verified.
const npiLuhnPrefix = "80840"

// ErrInvalidNPI is returned when a National Provider Identifier is malformed
// or fails its check digit.
var ErrInvalidNPI = fmt.Errorf("%w: invalid NPI", ErrValidation)

// Provider is a clinician working at one location. Deactivation keeps the
// row; only clearing a program for reimport removes providers.
type Provider struct {
	ID                 int64      `json:"provider_id"`
	LocationID         string     `json:"location_id"`
	Name               string     `json:"name"`
	NPI                string     `json:"npi,omitempty"`
	Role               string     `json:"role"`
	Specialty          string     `json:"specialty,omitempty"`
	Active             bool       `json:"active"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
	DeactivationReason string     `json:"deactivation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Validate checks the provider's required fields and normalizes its NPI.
func (p *Provider) Validate() error {
	if strings.TrimSpace(p.LocationID) == "" {
		return NewValidationError("location_id", "cannot be empty", ErrValidation)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return NewValidationError("name", "cannot be empty", ErrValidation)
	}
	npi, err := NormalizeNPI(p.NPI)
	if err != nil {
		return err
	}
	p.NPI = npi
	if p.Role == "" {
		p.Role = DefaultProviderRole
	}
	return nil
}

// ProviderUpdate carries the provider fields to change; nil fields are kept.
type ProviderUpdate struct {
	Name      *string `json:"name,omitempty"`
	NPI       *string `json:"npi,omitempty"`
	Role      *string `json:"role,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u ProviderUpdate) IsEmpty() bool {
	return u.Name == nil && u.NPI == nil && u.Role == nil && u.Specialty == nil
}

// Apply copies the set fields onto p and revalidates it.
func (u ProviderUpdate) Apply(p *Provider) error {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.NPI != nil {
		p.NPI = *u.NPI
	}
	if u.Role != nil {
		p.Role = strings.TrimSpace(*u.Role)
	}
	if u.Specialty != nil {
		p.Specialty = strings.TrimSpace(*u.Specialty)
	}
	return p.Validate()
}

// NormalizeNPI strips everything but digits from raw and checks the result
// is a ten digit NPI for an individual (1) or organization (2) whose last
// digit is a Luhn check digit over the 80840 card issuer prefix. An empty
// input is allowed and stays empty.
func NormalizeNPI(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	switch {
	case len(digits) != 10:
		return "", fmt.Errorf("%w: %q must have 10 digits, got %d", ErrInvalidNPI, raw, len(digits))
	case digits[0] != '1' && digits[0] != '2':
		return "", fmt.Errorf("%w: %q must start with 1 or 2", ErrInvalidNPI, raw)
	}
	if err := validate.Var(npiLuhnPrefix+digits, "luhn_checksum"); err != nil {
		return "", fmt.Errorf("%w: %q fails its check digit", ErrInvalidNPI, raw)
	}
	return digits, nil
}
