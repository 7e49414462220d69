// Package filter derives a filtered projection of a claims collection.
package filter

import (
	"strings"

	"github.com/mesikahq/claims-intake/internal/claim"
)

// Criteria is a set of independent predicates over claim records. An empty
// predicate matches every record; active predicates combine with AND.
// Enumerated fields match exactly, the date matches by calendar-day equality,
// and free-text fields match by case-insensitive substring.
type Criteria struct {
	PatientID        string `form:"patient_id" json:"patient_id"`
	ProviderID       string `form:"provider_id" json:"provider_id"`
	Status           string `form:"status" json:"status"`
	ClaimType        string `form:"claim_type" json:"claim_type"`
	SubmissionMethod string `form:"submission_method" json:"submission_method"`
	ClaimDate        string `form:"claim_date" json:"claim_date"`
	Notes            string `form:"notes" json:"notes"`
	DiagnosisCode    string `form:"diagnosis_code" json:"diagnosis_code"`
}

// Matches reports whether the record satisfies every active predicate.
func (c Criteria) Matches(rec claim.Claim) bool {
	if c.PatientID != "" && rec.PatientID != c.PatientID {
		return false
	}
	if c.ProviderID != "" && rec.ProviderID != c.ProviderID {
		return false
	}
	if c.Status != "" && rec.ClaimStatus != c.Status {
		return false
	}
	if c.ClaimType != "" && rec.ClaimType != c.ClaimType {
		return false
	}
	if c.SubmissionMethod != "" && rec.ClaimSubmissionMethod != c.SubmissionMethod {
		return false
	}
	if c.ClaimDate != "" && claim.NormalizeDate(rec.ClaimDate) != claim.NormalizeDate(c.ClaimDate) {
		return false
	}
	if c.Notes != "" && !containsFold(rec.CoverageNotes, c.Notes) {
		return false
	}
	if c.DiagnosisCode != "" && !containsFold(rec.DiagnosisCode, c.DiagnosisCode) {
		return false
	}
	return true
}

// Apply returns the subsequence of claims matching the criteria, preserving
// the original relative order. It holds no state between calls; the result is
// re-derived from the source collection every time.
func Apply(claims []claim.Claim, c Criteria) []claim.Claim {
	out := make([]claim.Claim, 0, len(claims))
	for _, rec := range claims {
		if c.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
