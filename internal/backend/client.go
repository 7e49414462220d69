// Package backend is the JSON-over-HTTP client for the remote claims API.
// The gateway owns no claim storage of its own; every mutating operation and
// every reference list goes through this client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mesikahq/claims-intake/internal/claim"
	"github.com/mesikahq/claims-intake/internal/directory"
)

// ErrSaveFailed is the generic submission failure shown when the server
// response carries no structured detail.
var ErrSaveFailed = errors.New("failed to save claim")

// APIError is a non-success response from the claims backend. Detail carries
// the server-provided message when the body had one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("claims backend returned status %d", e.StatusCode)
}

// Client talks to the claims backend at a configurable base URL. Outbound
// calls share a limiter so a busy intake screen cannot flood the upstream.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client for the given base URL. A zero timeout falls back
// to 15 seconds; requestsPerSecond <= 0 disables outbound rate limiting.
func NewClient(baseURL string, timeout time.Duration, requestsPerSecond int) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// ListPatients fetches the patient reference list.
func (c *Client) ListPatients(ctx context.Context) ([]directory.Patient, error) {
	var patients []directory.Patient
	if err := c.getJSON(ctx, "/patients/", nil, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// ListProviders fetches the provider reference list.
func (c *Client) ListProviders(ctx context.Context) ([]directory.Provider, error) {
	var providers []directory.Provider
	if err := c.getJSON(ctx, "/providers/", nil, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

// ListClaims fetches a page of claim records.
func (c *Client) ListClaims(ctx context.Context, skip, limit int) ([]claim.Claim, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var claims []claim.Claim
	if err := c.getJSON(ctx, "/claims/", query, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// SaveClaim creates or updates a claim. The same endpoint accepts both; the
// backend decides by the claim_id in the payload.
func (c *Client) SaveClaim(ctx context.Context, payload claim.Payload) (*claim.Claim, error) {
	var saved claim.Claim
	if err := c.postJSON(ctx, "/claims/", payload, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

type suggestRequest struct {
	CoverageNotes string `json:"coverage_notes"`
}

// SuggestCodes asks the code-suggestion service for ranked diagnosis and
// procedure candidates derived from the coverage notes.
func (c *Client) SuggestCodes(ctx context.Context, coverageNotes string) (*claim.Suggestion, error) {
	var suggestion claim.Suggestion
	if err := c.postJSON(ctx, "/ai/suggest_codes", suggestRequest{CoverageNotes: coverageNotes}, &suggestion); err != nil {
		return nil, err
	}
	return &suggestion, nil
}

// ListDocuments fetches the documents attached to a claim.
func (c *Client) ListDocuments(ctx context.Context, claimID string) ([]claim.Document, error) {
	var docs []claim.Document
	if err := c.getJSON(ctx, "/claim-documents/"+url.PathEscape(claimID), nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UploadRequest carries the multipart fields of a document upload.
type UploadRequest struct {
	ClaimID      string
	DocumentType claim.DocumentType
	FileName     string
	Description  string
	File         io.Reader
}

// UploadDocument uploads a supporting document as multipart form data.
func (c *Client) UploadDocument(ctx context.Context, req UploadRequest) (*claim.Document, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("claim_id", req.ClaimID); err != nil {
		return nil, err
	}
	if err := writer.WriteField("document_type", string(req.DocumentType)); err != nil {
		return nil, err
	}
	if err := writer.WriteField("description", req.Description); err != nil {
		return nil, err
	}
	part, err := writer.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/claim-documents/upload", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	var doc claim.Document
	if err := c.do(httpReq, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError surfaces the FastAPI-style {"detail": "..."} message when the
// body carries one.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiErr
	}
	var envelope struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Detail != "" {
			apiErr.Detail = envelope.Detail
		} else if envelope.Error != "" {
			apiErr.Detail = envelope.Error
		}
	}
	return apiErr
}
