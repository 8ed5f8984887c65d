package models

import (
	"fmt"
	"strings"
	"time"
)

// SharingScope is the participant-level consent setting that controls
// whether data may be exported.
type SharingScope string

const (
	SharingNone                    SharingScope = "NO_SHARING"
	SharingSponsorsAndPartners     SharingScope = "SPONSORS_AND_PARTNERS"
	SharingAllQualifiedResearchers SharingScope = "ALL_QUALIFIED_RESEARCHERS"
)

// ParseSharingScope accepts both the canonical upper-case and the lower-case
// catalog spelling.
func ParseSharingScope(s string) (SharingScope, error) {
	switch scope := SharingScope(strings.ToUpper(strings.TrimSpace(s))); scope {
	case SharingNone, SharingSponsorsAndPartners, SharingAllQualifiedResearchers:
		return scope, nil
	default:
		return "", fmt.Errorf("unknown sharing scope %q", s)
	}
}

// Shares reports whether the scope permits export.
func (s SharingScope) Shares() bool {
	return s == SharingSponsorsAndPartners || s == SharingAllQualifiedResearchers
}

// CatalogName is the lower-case form used in the participant-version catalog.
func (s SharingScope) CatalogName() string {
	return strings.ToLower(string(s))
}

// ParticipantVersion is one entry of the append-only participant ledger.
// Versions for a health code start at 1 and are contiguous.
type ParticipantVersion struct {
	HealthCode   string
	AppID        string
	Version      int64
	SharingScope SharingScope
	CreatedOn    time.Time
	ModifiedOn   time.Time
}
