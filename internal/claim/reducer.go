package claim

import (
	"strconv"
	"strings"

	"github.com/mesikahq/claims-intake/internal/directory"
)

// Action is one member of the closed set of draft mutations. Every merge rule
// of the intake form is expressed as a pure transition in Apply, so the
// wholesale-overwrite and suggestion rules are testable in isolation.
type Action interface {
	isAction()
}

// EditField is a direct user edit of a single form field. The value is the
// raw control value: a string for text inputs, a bool for the fraud checkbox,
// a number for the approval slider.
type EditField struct {
	Name  string
	Value any
}

// SelectPatient replaces the patient-derived field group from the resolved
// record. A nil patient is a clear-selection action.
type SelectPatient struct {
	Patient *directory.Patient
}

// SelectProvider replaces the provider-derived field group from the resolved
// record. A nil provider is a clear-selection action.
type SelectProvider struct {
	Provider *directory.Provider
}

// InitializeFromExternal replaces the entire draft with an externally
// supplied claim record. Used once, when a form session opens in edit mode.
type InitializeFromExternal struct {
	Record Claim
}

// ApplySuggestion merges a code-suggestion response into the draft.
type ApplySuggestion struct {
	Result Suggestion
}

// ApplySubmissionResult folds a server-assigned identifier back into the
// draft after a successful create, transitioning it to an edit target.
type ApplySubmissionResult struct {
	ClaimID string
}

func (EditField) isAction()              {}
func (SelectPatient) isAction()          {}
func (SelectProvider) isAction()         {}
func (InitializeFromExternal) isAction() {}
func (ApplySuggestion) isAction()        {}
func (ApplySubmissionResult) isAction()  {}

// Apply returns the draft that results from applying a single action. The
// input draft is never mutated.
func Apply(d Draft, action Action) Draft {
	switch a := action.(type) {
	case EditField:
		return applyEdit(d, a)
	case SelectPatient:
		return applyPatient(d, a.Patient)
	case SelectProvider:
		return applyProvider(d, a.Provider)
	case InitializeFromExternal:
		return DraftFromClaim(a.Record)
	case ApplySuggestion:
		return applySuggestion(d, a.Result)
	case ApplySubmissionResult:
		if a.ClaimID != "" && d.ClaimID == "" {
			d.ClaimID = a.ClaimID
		}
		return d
	}
	return d
}

func applyEdit(d Draft, a EditField) Draft {
	switch a.Name {
	case "fraud_flag":
		d.FraudFlag = asBool(a.Value)
	case "approval_probability":
		d.ApprovalProbability = asNumber(a.Value)
	case "patient_id":
		d.PatientID = asString(a.Value)
	case "patient_age":
		d.PatientAge = asString(a.Value)
	case "patient_gender":
		d.PatientGender = asString(a.Value)
	case "patient_income":
		d.PatientIncome = asString(a.Value)
	case "patient_marital_status":
		d.PatientMaritalStatus = asString(a.Value)
	case "patient_employment_status":
		d.PatientEmploymentStatus = asString(a.Value)
	case "provider_id":
		d.ProviderID = asString(a.Value)
	case "provider_specialty":
		d.ProviderSpecialty = asString(a.Value)
	case "provider_location":
		d.ProviderLocation = asString(a.Value)
	case "coverage_notes":
		d.CoverageNotes = asString(a.Value)
	case "claim_date":
		d.ClaimDate = asString(a.Value)
	case "claim_amount":
		d.ClaimAmount = asString(a.Value)
	case "claim_status":
		d.ClaimStatus = asString(a.Value)
	case "claim_type":
		d.ClaimType = asString(a.Value)
	case "claim_submission_method":
		d.ClaimSubmissionMethod = asString(a.Value)
	case "diagnosis_code":
		d.DiagnosisCode = asString(a.Value)
	case "procedure_code":
		d.ProcedureCode = asString(a.Value)
	case "suggested_diagnosis_code":
		d.SuggestedDiagnosisCode = asString(a.Value)
	case "suggested_procedure_code":
		d.SuggestedProcedureCode = asString(a.Value)
	case "fraud_reason":
		d.FraudReason = asString(a.Value)
	case "predicted_payout":
		d.PredictedPayout = asString(a.Value)
	}
	// Unknown names, including claim_id, are ignored: identity only changes
	// through initialization or a submission result.
	return d
}

func applyPatient(d Draft, p *directory.Patient) Draft {
	if p == nil {
		d.PatientID = ""
		d.PatientAge = ""
		d.PatientGender = ""
		d.PatientIncome = ""
		d.PatientMaritalStatus = ""
		d.PatientEmploymentStatus = ""
		return d
	}
	d.PatientID = p.PatientID
	d.PatientAge = p.PatientAge.String()
	d.PatientGender = p.PatientGender
	d.PatientIncome = p.PatientIncome.String()
	d.PatientMaritalStatus = p.PatientMaritalStatus
	d.PatientEmploymentStatus = p.PatientEmploymentStatus
	return d
}

func applyProvider(d Draft, p *directory.Provider) Draft {
	if p == nil {
		d.ProviderID = ""
		d.ProviderSpecialty = ""
		d.ProviderLocation = ""
		return d
	}
	d.ProviderID = p.ProviderID
	d.ProviderSpecialty = p.ResolvedSpecialty()
	d.ProviderLocation = p.ResolvedLocation()
	return d
}

func applySuggestion(d Draft, s Suggestion) Draft {
	d.SuggestedDiagnosisCode = ""
	d.SuggestedProcedureCode = ""
	if len(s.SuggestedDiagnosisCodes) > 0 {
		top := s.SuggestedDiagnosisCodes[0].Code
		d.SuggestedDiagnosisCode = top
		// The editable field is only overwritten when a candidate exists.
		if top != "" {
			d.DiagnosisCode = top
		}
	}
	if len(s.SuggestedProcedureCodes) > 0 {
		top := s.SuggestedProcedureCodes[0].Code
		d.SuggestedProcedureCode = top
		if top != "" {
			d.ProcedureCode = top
		}
	}
	return d
}

// DraftFromClaim builds a fresh draft from a persisted claim record,
// normalizing the date and rendering numeric columns as form values.
func DraftFromClaim(rec Claim) Draft {
	return Draft{
		ClaimID:                 rec.ClaimID,
		PatientID:               rec.PatientID,
		PatientAge:              rec.PatientAge.String(),
		PatientGender:           rec.PatientGender,
		PatientIncome:           rec.PatientIncome.String(),
		PatientMaritalStatus:    rec.PatientMaritalStatus,
		PatientEmploymentStatus: rec.PatientEmploymentStatus,
		ProviderID:              rec.ProviderID,
		ProviderSpecialty:       rec.ProviderSpecialty,
		ProviderLocation:        rec.ProviderLocation,
		CoverageNotes:           rec.CoverageNotes,
		ClaimDate:               NormalizeDate(rec.ClaimDate),
		ClaimAmount:             FormatNumber(rec.ClaimAmount),
		ClaimStatus:             rec.ClaimStatus,
		ClaimType:               rec.ClaimType,
		ClaimSubmissionMethod:   rec.ClaimSubmissionMethod,
		DiagnosisCode:           rec.DiagnosisCode,
		ProcedureCode:           rec.ProcedureCode,
		SuggestedDiagnosisCode:  rec.SuggestedDiagnosisCode,
		SuggestedProcedureCode:  rec.SuggestedProcedureCode,
		ApprovalProbability:     rec.ApprovalProbability,
		PredictedPayout:         FormatNumber(rec.PredictedPayout),
		FraudFlag:               rec.FraudFlag,
		FraudReason:             rec.FraudReason,
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return FormatNumber(t)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func asNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if t == "on" {
			return true
		}
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}
