package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mesikahq/claims-intake/internal/activity"
	"github.com/mesikahq/claims-intake/internal/backend"
	"github.com/mesikahq/claims-intake/internal/claim"
	"github.com/mesikahq/claims-intake/internal/directory"
	"github.com/mesikahq/claims-intake/internal/filter"
	"github.com/mesikahq/claims-intake/internal/submit"
)

// Handler exposes the intake operations as a JSON API. It carries no business
// rules of its own; every merge and classification decision lives in the
// claim, submit and filter packages.
type Handler struct {
	store       *claim.Store
	dir         *directory.Directory
	backend     *backend.Client
	coordinator *submit.Coordinator
	activity    *activity.Logger
}

func NewHandler(
	store *claim.Store,
	dir *directory.Directory,
	backendClient *backend.Client,
	coordinator *submit.Coordinator,
	activityLog *activity.Logger,
) *Handler {
	return &Handler{
		store:       store,
		dir:         dir,
		backend:     backendClient,
		coordinator: coordinator,
		activity:    activityLog,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Directory handlers

func (h *Handler) ListPatients(c *gin.Context) {
	c.JSON(http.StatusOK, h.dir.Patients())
}

func (h *Handler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, h.dir.Providers())
}

func (h *Handler) RefreshDirectory(c *gin.Context) {
	h.dir.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"patients":  len(h.dir.Patients()),
		"providers": len(h.dir.Providers()),
	})
}

// Draft session handlers

type createDraftRequest struct {
	Claim *claim.Claim `json:"claim"`
}

// CreateDraft opens a new form session. When the request carries a claim
// record the session opens in edit mode, initialized from it.
func (h *Handler) CreateDraft(c *gin.Context) {
	var req createDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var id string
	var draft claim.Draft
	if req.Claim != nil {
		id, draft = h.store.CreateFrom(*req.Claim)
	} else {
		id, draft = h.store.Create()
	}

	h.activity.Record(activity.Event{
		Action:    "draft_open",
		DraftID:   id,
		ClaimID:   draft.ClaimID,
		UserID:    c.GetString("user_id"),
		RequestID: c.GetString("request_id"),
		Status:    "success",
	})
	c.JSON(http.StatusCreated, gin.H{"draft_id": id, "draft": draft})
}

func (h *Handler) GetDraft(c *gin.Context) {
	draft, _, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

func (h *Handler) CloseDraft(c *gin.Context) {
	h.store.Close(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type editFieldRequest struct {
	Name  string `json:"name" binding:"required"`
	Value any    `json:"value"`
}

func (h *Handler) EditDraftField(c *gin.Context) {
	var req editFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft, err := h.store.Dispatch(c.Param("id"), claim.EditField{Name: req.Name, Value: req.Value})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

type selectPatientRequest struct {
	PatientID string `json:"patient_id"`
}

// SelectPatient resolves the patient and overwrites the patient-derived field
// group wholesale. An unknown or empty identifier clears the group; it is
// never an error.
func (h *Handler) SelectPatient(c *gin.Context) {
	var req selectPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patient, _ := h.dir.FindPatient(req.PatientID)
	draft, err := h.store.Dispatch(c.Param("id"), claim.SelectPatient{Patient: patient})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

type selectProviderRequest struct {
	ProviderID string `json:"provider_id"`
}

func (h *Handler) SelectProvider(c *gin.Context) {
	var req selectProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provider, _ := h.dir.FindProvider(req.ProviderID)
	draft, err := h.store.Dispatch(c.Param("id"), claim.SelectProvider{Provider: provider})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// SuggestCodes sends the draft's coverage notes to the code-suggestion
// service and merges the ranked result into the draft. The merge is
// generation-guarded: a response for a draft that was re-initialized in the
// meantime is discarded.
func (h *Handler) SuggestCodes(c *gin.Context) {
	draftID := c.Param("id")
	draft, generation, err := h.store.Get(draftID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}
	if len(draft.CoverageNotes) == 0 || allSpace(draft.CoverageNotes) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coverage notes are required before requesting suggestions"})
		return
	}

	suggestion, err := h.backend.SuggestCodes(c.Request.Context(), draft.CoverageNotes)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": upstreamMessage(err, "code suggestion failed")})
		return
	}

	updated, err := h.store.DispatchAt(draftID, generation, claim.ApplySuggestion{Result: *suggestion})
	if err != nil {
		if errors.Is(err, claim.ErrStaleDraft) {
			c.JSON(http.StatusConflict, gin.H{"error": "draft changed while suggesting codes"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return
	}

	h.activity.Record(activity.Event{
		Action:    "codes_suggested",
		DraftID:   draftID,
		UserID:    c.GetString("user_id"),
		RequestID: c.GetString("request_id"),
		Status:    "success",
	})
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion, "draft": updated})
}

// SubmitDraft submits the draft as a create or update. On upstream failure
// the draft is left untouched and the server-provided detail is surfaced.
func (h *Handler) SubmitDraft(c *gin.Context) {
	draftID := c.Param("id")
	result, err := h.coordinator.Submit(c.Request.Context(), draftID)
	if err != nil {
		if errors.Is(err, claim.ErrDraftNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	draft, _, _ := h.store.Get(draftID)
	c.JSON(http.StatusOK, gin.H{
		"mode":    result.Mode,
		"message": result.Message,
		"claim":   result.Claim,
		"draft":   draft,
	})
}

// Claims list handlers

// ListClaims fetches a page of claims from the backend and applies the
// requested filters. A failed fetch is absorbed as an empty list; an empty
// result renders as an empty array, never an error.
func (h *Handler) ListClaims(c *gin.Context) {
	var criteria filter.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	skip := intQuery(c, "skip", 0)
	limit := intQuery(c, "limit", 100)

	claims, err := h.backend.ListClaims(c.Request.Context(), skip, limit)
	if err != nil {
		claims = nil
	}
	c.JSON(http.StatusOK, filter.Apply(claims, criteria))
}

// Document handlers

func (h *Handler) ListClaimDocuments(c *gin.Context) {
	docs, err := h.backend.ListDocuments(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"documents": []claim.Document{},
			"message":   "no documents found for this claim",
		})
		return
	}
	if docs == nil {
		docs = []claim.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// UploadClaimDocument forwards a multipart upload to the backend after
// checking the preconditions the form enforces: a claim, a known document
// type and a file.
func (h *Handler) UploadClaimDocument(c *gin.Context) {
	claimID := c.Param("id")
	if claimID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "claim id is required"})
		return
	}

	docType := claim.DocumentType(c.PostForm("document_type"))
	if docType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document type is required"})
		return
	}
	if !docType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown document type"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read file"})
		return
	}
	defer file.Close()

	doc, err := h.backend.UploadDocument(c.Request.Context(), backend.UploadRequest{
		ClaimID:      claimID,
		DocumentType: docType,
		FileName:     fileHeader.Filename,
		Description:  c.PostForm("description"),
		File:         file,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": upstreamMessage(err, "upload failed")})
		return
	}

	h.activity.Record(activity.Event{
		Action:    "document_upload",
		ClaimID:   claimID,
		UserID:    c.GetString("user_id"),
		RequestID: c.GetString("request_id"),
		Status:    "success",
		Detail:    string(docType),
	})
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

func upstreamMessage(err error, fallback string) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func allSpace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
