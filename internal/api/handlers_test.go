package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesikahq/claims-intake/internal/activity"
	"github.com/mesikahq/claims-intake/internal/backend"
	"github.com/mesikahq/claims-intake/internal/claim"
	"github.com/mesikahq/claims-intake/internal/directory"
	"github.com/mesikahq/claims-intake/internal/submit"
)

type upstream struct {
	server       *httptest.Server
	failSuggest  bool
	failSave     bool
	failDocs     bool
	savedClaims  int
	lastSavePath string
}

func newTestUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	mux := http.NewServeMux()

	mux.HandleFunc("/patients/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]directory.Patient{
			{
				PatientID:               "p-1",
				FirstName:               "Kofi",
				LastName:                "Owusu",
				PatientAge:              json.Number("35"),
				PatientGender:           "male",
				PatientIncome:           json.Number("41000"),
				PatientMaritalStatus:    "single",
				PatientEmploymentStatus: "employed",
			},
		})
	})
	mux.HandleFunc("/providers/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]directory.Provider{
			{ProviderID: "pr-1", FirstName: "Adwoa", LastName: "Asante", Specialty: "Cardiology", Location: "Accra"},
		})
	})
	mux.HandleFunc("/claims/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if u.failSave {
				w.WriteHeader(http.StatusUnprocessableEntity)
				io.WriteString(w, `{"detail": "claim_status is required"}`)
				return
			}
			var payload claim.Payload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			u.savedClaims++
			u.lastSavePath = r.URL.Path

			saved := claim.Claim{ClaimID: "c-100", ClaimStatus: payload.ClaimStatus, ClaimAmount: payload.ClaimAmount}
			if payload.ClaimID != nil {
				saved.ClaimID = *payload.ClaimID
			}
			json.NewEncoder(w).Encode(saved)
			return
		}
		json.NewEncoder(w).Encode([]claim.Claim{
			{ClaimID: "c-1", ClaimStatus: "Approved"},
			{ClaimID: "c-2", ClaimStatus: "Pending"},
			{ClaimID: "c-3", ClaimStatus: "Approved"},
		})
	})
	mux.HandleFunc("/ai/suggest_codes", func(w http.ResponseWriter, r *http.Request) {
		if u.failSuggest {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"detail": "suggestion model unavailable"}`)
			return
		}
		json.NewEncoder(w).Encode(claim.Suggestion{
			SuggestedDiagnosisCodes: []claim.CodeCandidate{{Code: "R07.9", Description: "chest pain"}},
			SuggestedProcedureCodes: []claim.CodeCandidate{{Code: "99213", Description: "office visit"}},
		})
	})
	mux.HandleFunc("/claim-documents/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(claim.Document{
			DocumentID:   "d-1",
			DocumentType: r.FormValue("document_type"),
			FileName:     "note.pdf",
			Description:  r.FormValue("description"),
		})
	})
	mux.HandleFunc("/claim-documents/", func(w http.ResponseWriter, r *http.Request) {
		if u.failDocs {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode([]claim.Document{{DocumentID: "d-1", DocumentType: "bill", FileName: "bill.pdf"}})
	})

	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func newTestRouter(t *testing.T, u *upstream) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := backend.NewClient(u.server.URL, time.Second, 0)
	dir := directory.New(client)
	dir.Refresh(context.Background())

	store := claim.NewStore()
	log := activity.NewLogger()
	coordinator := submit.NewCoordinator(client, store, log)
	handler := NewHandler(store, dir, client, coordinator, log)

	return NewRouter(handler, "", "").SetupRouter(zap.NewNop())
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeDraft(t *testing.T, rec *httptest.ResponseRecorder) claim.Draft {
	t.Helper()
	var resp struct {
		Draft claim.Draft `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Draft
}

func openDraft(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/drafts", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		DraftID string `json:"draft_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.DraftID)
	return resp.DraftID
}

func TestIntakeFlowCreateEditSubmit(t *testing.T) {
	u := newTestUpstream(t)
	router := newTestRouter(t, u)
	id := openDraft(t, router)

	rec := doJSON(t, router, http.MethodPatch, "/api/drafts/"+id, gin.H{"name": "claim_status", "value": "Pending"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pending", decodeDraft(t, rec).ClaimStatus)

	rec = doJSON(t, router, http.MethodPut, "/api/drafts/"+id+"/patient", gin.H{"patient_id": "p-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	draft := decodeDraft(t, rec)
	assert.Equal(t, "p-1", draft.PatientID)
	assert.Equal(t, "35", draft.PatientAge)
	assert.Equal(t, "male", draft.PatientGender)

	rec = doJSON(t, router, http.MethodPut, "/api/drafts/"+id+"/provider", gin.H{"provider_id": "pr-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	draft = decodeDraft(t, rec)
	assert.Equal(t, "Cardiology", draft.ProviderSpecialty)

	rec = doJSON(t, router, http.MethodPost, "/api/drafts/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var submitResp struct {
		Mode    string      `json:"mode"`
		Message string      `json:"message"`
		Draft   claim.Draft `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitResp))
	assert.Equal(t, "create", submitResp.Mode)
	assert.Equal(t, "Claim created successfully!", submitResp.Message)
	assert.Equal(t, "c-100", submitResp.Draft.ClaimID, "draft transitions to edit mode in place")

	// Resubmission is now an update.
	rec = doJSON(t, router, http.MethodPost, "/api/drafts/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitResp))
	assert.Equal(t, "update", submitResp.Mode)
	assert.Equal(t, 2, u.savedClaims)
}

func TestSelectUnknownPatientClearsSelection(t *testing.T) {
	u := newTestUpstream(t)
	router := newTestRouter(t, u)
	id := openDraft(t, router)

	rec := doJSON(t, router, http.MethodPut, "/api/drafts/"+id+"/patient", gin.H{"patient_id": "p-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/drafts/"+id+"/patient", gin.H{"patient_id": "p-404"})
	require.Equal(t, http.StatusOK, rec.Code, "unknown patient is a clear action, not an error")
	draft := decodeDraft(t, rec)
	assert.Equal(t, "", draft.PatientID)
	assert.Equal(t, "", draft.PatientAge)
	assert.Equal(t, "", draft.PatientGender)
}

func TestOpenDraftInEditMode(t *testing.T) {
	u := newTestUpstream(t)
	router := newTestRouter(t, u)

	rec := doJSON(t, router, http.MethodPost, "/api/drafts", gin.H{"claim": gin.H{
		"claim_id":     "c-8",
		"claim_date":   "2025-05-01T00:00:00Z",
		"claim_amount": 300.0,
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	draft := decodeDraft(t, rec)
	assert.Equal(t, "c-8", draft.ClaimID)
	assert.Equal(t, "2025-05-01", draft.ClaimDate)
	assert.Equal(t, "300", draft.ClaimAmount)
}

func TestSuggestCodesMergesTopCandidates(t *testing.T) {
	u := newTestUpstream(t)
	router := newTestRouter(t, u)
	id := openDraft(t, router)

	// Coverage notes are required first.
	rec := doJSON(t, router, http.MethodPost, "/api/drafts/"+id+"/suggestions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/drafts/"+id, gin.H{"name": "coverage_notes", "value": "chest pain on exertion"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/drafts/"+id+"/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	draft := decodeDraft(t, rec)
	assert.Equal(t, "R07.9", draft.DiagnosisCode)
	assert.Equal(t, "R07.9", draft.SuggestedDiagnosisCode)
	assert.Equal(t, "99213", draft.ProcedureCode)
}

func TestSuggestFailureLeavesDraftUnchanged(t *testing.T) {
	u := newTestUpstream(t)
	u.failSuggest = true
	router := newTestRouter(t, u)
	id := openDraft(t, router)

	rec := doJSON(t, router, http.MethodPatch, "/api/drafts/"+id, gin.H{"name": "coverage_notes", "value": "notes"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/drafts/"+id+"/suggestions", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "suggestion model unavailable")

	rec = doJSON(t, router, http.MethodGet, "/api/drafts/"+id, nil)
	draft := decodeDraft(t, rec)
	assert.Equal(t, "", draft.SuggestedDiagnosisCode)
	assert.Equal(t, "", draft.DiagnosisCode)
}

func TestSubmitFailureSurfacesDetail(t *testing.T) {
	u := newTestUpstream(t)
	u.failSave = true
	router := newTestRouter(t, u)
	id := openDraft(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/drafts/"+id+"/submit", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "claim_status is required")

	rec = doJSON(t, router, http.MethodGet, "/api/drafts/"+id, nil)
	assert.Equal(t, "", decodeDraft(t, rec).ClaimID, "failed save does not mutate the draft")
}

func TestListClaimsAppliesFilters(t *testing.T) {
	u := newTestUpstream(t)
	router := newTestRouter(t, u)

	rec := doJSON(t, router, http.MethodGet, "/api/claims?status=Approved", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var claims []claim.Claim
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claims))
	require.Len(t, claims, 2)
	assert.Equal(t, "c-1", claims[0].ClaimID)
	assert.Equal(t, "c-3", claims[1].ClaimID)
}

func TestListDocumentsAbsorbsUpstreamFailure(t *testing.T) {
	u := newTestUpstream(t)
	u.failDocs = true
	router := newTestRouter(t, u)

	rec := doJSON(t, router, http.MethodGet, "/api/claims/c-1/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Documents []claim.Document `json:"documents"`
		Message   string           `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Documents)
	assert.NotEmpty(t, resp.Message)
}

func TestUploadDocumentValidation(t *testing.T) {
	u := newTestUpstream(t)
	router := newTestRouter(t, u)

	// Missing document type.
	rec := postMultipart(t, router, "/api/claims/c-1/documents", map[string]string{}, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "document type is required")

	// Unknown document type.
	rec = postMultipart(t, router, "/api/claims/c-1/documents", map[string]string{"document_type": "x_ray"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown document type")

	// Missing file.
	rec = postMultipart(t, router, "/api/claims/c-1/documents", map[string]string{"document_type": "bill"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is required")

	// Happy path.
	rec = postMultipart(t, router, "/api/claims/c-1/documents",
		map[string]string{"document_type": "bill", "description": "itemized bill"},
		"bill.pdf", strings.NewReader("pdf"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"d-1"`)
}

func TestDraftNotFoundResponses(t *testing.T) {
	u := newTestUpstream(t)
	router := newTestRouter(t, u)

	for _, probe := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/drafts/missing", nil},
		{http.MethodPatch, "/api/drafts/missing", gin.H{"name": "claim_type", "value": "Dental"}},
		{http.MethodPut, "/api/drafts/missing/patient", gin.H{"patient_id": "p-1"}},
		{http.MethodPost, "/api/drafts/missing/submit", nil},
	} {
		rec := doJSON(t, router, probe.method, probe.path, probe.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, fmt.Sprintf("%s %s", probe.method, probe.path))
	}
}

func postMultipart(t *testing.T, router *gin.Engine, path string, fields map[string]string, fileName string, file io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if file != nil {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = io.Copy(part, file)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
