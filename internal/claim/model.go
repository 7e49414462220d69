package claim

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ClaimStatus values accepted by the intake form.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusDenied   = "Denied"
	StatusInReview = "In Review"
)

// Draft is the in-progress claim record being edited. Text inputs are kept as
// raw strings until submission; only approval_probability and fraud_flag are
// typed at edit time. Entity-derived fields hold copies of the selected
// patient/provider record and are overwritten wholesale on selection change.
type Draft struct {
	ClaimID string `json:"claim_id"`

	PatientID               string `json:"patient_id"`
	PatientAge              string `json:"patient_age"`
	PatientGender           string `json:"patient_gender"`
	PatientIncome           string `json:"patient_income"`
	PatientMaritalStatus    string `json:"patient_marital_status"`
	PatientEmploymentStatus string `json:"patient_employment_status"`

	ProviderID        string `json:"provider_id"`
	ProviderSpecialty string `json:"provider_specialty"`
	ProviderLocation  string `json:"provider_location"`

	CoverageNotes         string `json:"coverage_notes"`
	ClaimDate             string `json:"claim_date"`
	ClaimAmount           string `json:"claim_amount"`
	ClaimStatus           string `json:"claim_status"`
	ClaimType             string `json:"claim_type"`
	ClaimSubmissionMethod string `json:"claim_submission_method"`

	DiagnosisCode          string `json:"diagnosis_code"`
	ProcedureCode          string `json:"procedure_code"`
	SuggestedDiagnosisCode string `json:"suggested_diagnosis_code"`
	SuggestedProcedureCode string `json:"suggested_procedure_code"`

	ApprovalProbability float64 `json:"approval_probability"`
	PredictedPayout     string  `json:"predicted_payout"`

	FraudFlag   bool   `json:"fraud_flag"`
	FraudReason string `json:"fraud_reason"`
}

// Claim is the persisted record as the upstream backend returns it: the flat
// row shape shared by the claims list and the edit-mode initial data.
type Claim struct {
	ClaimID string `json:"claim_id,omitempty"`

	PatientID               string      `json:"patient_id"`
	PatientAge              json.Number `json:"patient_age,omitempty"`
	PatientGender           string      `json:"patient_gender,omitempty"`
	PatientIncome           json.Number `json:"patient_income,omitempty"`
	PatientMaritalStatus    string      `json:"patient_marital_status,omitempty"`
	PatientEmploymentStatus string      `json:"patient_employment_status,omitempty"`

	ProviderID        string `json:"provider_id"`
	ProviderSpecialty string `json:"provider_specialty,omitempty"`
	ProviderLocation  string `json:"provider_location,omitempty"`

	CoverageNotes         string  `json:"coverage_notes"`
	ClaimDate             string  `json:"claim_date"`
	ClaimAmount           float64 `json:"claim_amount"`
	ClaimStatus           string  `json:"claim_status"`
	ClaimType             string  `json:"claim_type"`
	ClaimSubmissionMethod string  `json:"claim_submission_method"`

	DiagnosisCode          string `json:"diagnosis_code"`
	ProcedureCode          string `json:"procedure_code"`
	SuggestedDiagnosisCode string `json:"suggested_diagnosis_code"`
	SuggestedProcedureCode string `json:"suggested_procedure_code"`

	ApprovalProbability float64 `json:"approval_probability"`
	PredictedPayout     float64 `json:"predicted_payout"`

	FraudFlag   bool   `json:"fraud_flag"`
	FraudReason string `json:"fraud_reason"`
}

// Payload is the serialized form of a draft sent to the upstream claim
// endpoint. A new claim carries a null claim_id; claim_date is a plain
// calendar date or null; the three money/score fields are always numeric.
// Mode is attached for the caller and is not interpreted upstream.
type Payload struct {
	ClaimID   *string `json:"claim_id"`
	ClaimDate *string `json:"claim_date"`

	PatientID               string `json:"patient_id"`
	PatientAge              string `json:"patient_age"`
	PatientGender           string `json:"patient_gender"`
	PatientIncome           string `json:"patient_income"`
	PatientMaritalStatus    string `json:"patient_marital_status"`
	PatientEmploymentStatus string `json:"patient_employment_status"`

	ProviderID        string `json:"provider_id"`
	ProviderSpecialty string `json:"provider_specialty"`
	ProviderLocation  string `json:"provider_location"`

	CoverageNotes         string  `json:"coverage_notes"`
	ClaimAmount           float64 `json:"claim_amount"`
	ClaimStatus           string  `json:"claim_status"`
	ClaimType             string  `json:"claim_type"`
	ClaimSubmissionMethod string  `json:"claim_submission_method"`

	DiagnosisCode          string `json:"diagnosis_code"`
	ProcedureCode          string `json:"procedure_code"`
	SuggestedDiagnosisCode string `json:"suggested_diagnosis_code"`
	SuggestedProcedureCode string `json:"suggested_procedure_code"`

	ApprovalProbability float64 `json:"approval_probability"`
	PredictedPayout     float64 `json:"predicted_payout"`

	FraudFlag   bool   `json:"fraud_flag"`
	FraudReason string `json:"fraud_reason"`

	Mode string `json:"mode"`
}

// CodeCandidate is one ranked entry in a code-suggestion response.
type CodeCandidate struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Suggestion is the response of the upstream code-suggestion service.
type Suggestion struct {
	SuggestedDiagnosisCodes []CodeCandidate `json:"suggested_diagnosis_codes"`
	SuggestedProcedureCodes []CodeCandidate `json:"suggested_procedure_codes"`
}

// Document is a supporting document attached to a claim.
type Document struct {
	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	FileName     string `json:"file_name"`
	Description  string `json:"description"`
}

// DocumentType values accepted by the upload endpoint.
type DocumentType string

const (
	DocumentDischargeSummary DocumentType = "discharge_summary"
	DocumentBill             DocumentType = "bill"
	DocumentPrescription     DocumentType = "prescription"
	DocumentInsuranceCard    DocumentType = "insurance_card"
	DocumentLabReport        DocumentType = "lab_report"
)

// Valid reports whether t is one of the accepted document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentDischargeSummary, DocumentBill, DocumentPrescription,
		DocumentInsuranceCard, DocumentLabReport:
		return true
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NormalizeDate reduces a date value to a plain calendar-date string with no
// time-of-day and no timezone. Values that cannot be parsed are returned
// unchanged so the backend can reject them with a proper validation error.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if len(s) > 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// FormatNumber renders a float the way the form shows it, without a forced
// decimal point.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
