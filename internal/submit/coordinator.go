// Package submit derives outbound payloads from drafts, classifies each
// submission as create or update, and folds the result back into the store.
package submit

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/mesikahq/claims-intake/internal/activity"
	"github.com/mesikahq/claims-intake/internal/backend"
	"github.com/mesikahq/claims-intake/internal/claim"
)

// Mode classifies a submission. The payload carries it for the caller; the
// backend accepts both shapes at the same endpoint.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// Classify returns update when the draft already has an identifier,
// regardless of any other field.
func Classify(d claim.Draft) Mode {
	if d.ClaimID != "" {
		return ModeUpdate
	}
	return ModeCreate
}

// BuildPayload copies the draft into the wire shape: null claim_id when the
// draft is new, claim_date reduced to a plain calendar date or null, and the
// money/score fields coerced to numbers with 0 for anything non-numeric.
func BuildPayload(d claim.Draft) claim.Payload {
	p := claim.Payload{
		PatientID:               d.PatientID,
		PatientAge:              d.PatientAge,
		PatientGender:           d.PatientGender,
		PatientIncome:           d.PatientIncome,
		PatientMaritalStatus:    d.PatientMaritalStatus,
		PatientEmploymentStatus: d.PatientEmploymentStatus,
		ProviderID:              d.ProviderID,
		ProviderSpecialty:       d.ProviderSpecialty,
		ProviderLocation:        d.ProviderLocation,
		CoverageNotes:           d.CoverageNotes,
		ClaimAmount:             coerceNumber(d.ClaimAmount),
		ClaimStatus:             d.ClaimStatus,
		ClaimType:               d.ClaimType,
		ClaimSubmissionMethod:   d.ClaimSubmissionMethod,
		DiagnosisCode:           d.DiagnosisCode,
		ProcedureCode:           d.ProcedureCode,
		SuggestedDiagnosisCode:  d.SuggestedDiagnosisCode,
		SuggestedProcedureCode:  d.SuggestedProcedureCode,
		ApprovalProbability:     d.ApprovalProbability,
		PredictedPayout:         coerceNumber(d.PredictedPayout),
		FraudFlag:               d.FraudFlag,
		FraudReason:             d.FraudReason,
		Mode:                    string(Classify(d)),
	}
	if d.ClaimID != "" {
		id := d.ClaimID
		p.ClaimID = &id
	}
	if date := claim.NormalizeDate(d.ClaimDate); date != "" {
		p.ClaimDate = &date
	}
	return p
}

func coerceNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// ClaimSaver is the one upstream operation the coordinator needs.
type ClaimSaver interface {
	SaveClaim(ctx context.Context, payload claim.Payload) (*claim.Claim, error)
}

// Result reports a completed submission.
type Result struct {
	Mode    Mode         `json:"mode"`
	Message string       `json:"message"`
	Claim   *claim.Claim `json:"claim"`
}

// Coordinator submits drafts and applies the outcome. Its only side effects
// are the upstream call and, after a successful create, the single fold-back
// of the assigned claim_id.
type Coordinator struct {
	saver ClaimSaver
	store *claim.Store
	log   *activity.Logger
}

func NewCoordinator(saver ClaimSaver, store *claim.Store, log *activity.Logger) *Coordinator {
	return &Coordinator{saver: saver, store: store, log: log}
}

// Submit builds the payload for the draft, invokes the claim endpoint, and on
// a successful create sets the server-assigned claim_id on the draft,
// transitioning the session to an edit target in place. Failures leave the
// draft untouched.
func (c *Coordinator) Submit(ctx context.Context, draftID string) (*Result, error) {
	draft, generation, err := c.store.Get(draftID)
	if err != nil {
		return nil, err
	}

	payload := BuildPayload(draft)
	mode := Mode(payload.Mode)

	saved, err := c.saver.SaveClaim(ctx, payload)
	if err != nil {
		c.log.Record(activity.Event{
			Action:  "claim_submit",
			DraftID: draftID,
			Status:  "error",
			Detail:  err.Error(),
		})
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return nil, apiErr
		}
		return nil, backend.ErrSaveFailed
	}

	result := &Result{Mode: mode, Claim: saved}
	if mode == ModeCreate {
		result.Message = "Claim created successfully!"
		if saved.ClaimID != "" {
			// Guarded by generation: if the session was re-initialized while
			// the create was in flight, the stale identifier is discarded.
			if _, err := c.store.DispatchAt(draftID, generation, claim.ApplySubmissionResult{ClaimID: saved.ClaimID}); err != nil && !errors.Is(err, claim.ErrStaleDraft) {
				return nil, err
			}
		}
	} else {
		result.Message = "Claim updated successfully!"
	}

	c.log.Record(activity.Event{
		Action:  "claim_submit",
		DraftID: draftID,
		ClaimID: saved.ClaimID,
		Status:  "success",
		Detail:  string(mode),
	})
	return result, nil
}
