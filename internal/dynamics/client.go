package dynamics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// TokenURL is the Microsoft identity platform token endpoint
	TokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"

	apiBase = "https://api.businesscentral.dynamics.com/v2.0"
	scope   = "https://api.businesscentral.dynamics.com/.default offline_access"
)

// Resource names exposed by the Business Central API
const (
	ResourceCompanies       = "companies"
	ResourceAccounts        = "accounts"
	ResourceVendors         = "vendors"
	ResourceEmployees       = "employees"
	ResourceLocations       = "locations"
	ResourceBankAccounts    = "bankAccounts"
	ResourceDimensions      = "dimensions"
	ResourceDimensionValues = "dimensionValues"
)

// Client is a company-scoped Business Central API connection. A fresh client
// is built per task from the stored refresh token; token rotation is surfaced
// through RefreshToken() so the caller can persist the new value.
type Client struct {
	clientID     string
	clientSecret string
	environment  string
	tokenURL     string
	baseURL      string

	refreshToken string
	accessToken  string
	companyID    string

	httpClient *http.Client
}

// Config carries the connector credentials; no ambient global state.
type Config struct {
	ClientID     string
	ClientSecret string
	Environment  string
}

func NewClient(ctx context.Context, cfg Config, refreshToken string) (*Client, error) {
	c := &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		environment:  cfg.Environment,
		tokenURL:     TokenURL,
		baseURL:      fmt.Sprintf("%s/%s/api/v2.0", apiBase, cfg.Environment),
		refreshToken: refreshToken,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}

	if err := c.refreshAccessToken(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// RefreshToken returns the current refresh token, which may have been rotated
// during the initial token exchange
func (c *Client) RefreshToken() string {
	return c.refreshToken
}

// SetCompanyID scopes subsequent resource calls to one company
func (c *Client) SetCompanyID(companyID string) {
	c.companyID = companyID
}

func (c *Client) refreshAccessToken(ctx context.Context) error {
	config := &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Scopes:       strings.Split(scope, " "),
		Endpoint: oauth2.Endpoint{
			TokenURL: c.tokenURL,
		},
	}

	token := &oauth2.Token{
		RefreshToken: c.refreshToken,
	}

	tokenSource := config.TokenSource(ctx, token)
	newToken, err := tokenSource.Token()
	if err != nil {
		return &InvalidTokenError{Message: "failed to refresh access token", Response: err.Error()}
	}

	c.accessToken = newToken.AccessToken
	if newToken.RefreshToken != "" {
		c.refreshToken = newToken.RefreshToken
	}

	return nil
}

func (c *Client) resourceURL(resource string) string {
	if resource == ResourceCompanies || c.companyID == "" {
		return fmt.Sprintf("%s/%s", c.baseURL, resource)
	}
	return fmt.Sprintf("%s/companies(%s)/%s", c.baseURL, c.companyID, resource)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// classify translates an error status into the typed errors the exception
// policy switches on
func classify(status int, body []byte) error {
	var payload interface{}
	_ = json.Unmarshal(body, &payload)
	if payload == nil {
		payload = string(body)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &InvalidTokenError{Message: fmt.Sprintf("status %d", status), Response: payload}
	default:
		return &WrongParamsError{Message: fmt.Sprintf("status %d", status), Response: payload}
	}
}

// GetAll pages through one resource collection following @odata.nextLink
func (c *Client) GetAll(ctx context.Context, resource string) ([]map[string]interface{}, error) {
	endpoint := c.resourceURL(resource)
	records := []map[string]interface{}{}

	for endpoint != "" {
		status, body, err := c.do(ctx, "GET", endpoint, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, classify(status, body)
		}

		var page struct {
			Value    []map[string]interface{} `json:"value"`
			NextLink string                   `json:"@odata.nextLink"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse %s response: %w", resource, err)
		}

		records = append(records, page.Value...)
		endpoint = page.NextLink
	}

	return records, nil
}

// Count returns the remote row count of one resource collection
func (c *Client) Count(ctx context.Context, resource string) (int, error) {
	endpoint := c.resourceURL(resource) + "/$count"

	status, body, err := c.do(ctx, "GET", endpoint, nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, classify(status, body)
	}

	count, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s count: %w", resource, err)
	}

	return count, nil
}

// Post creates one record in a resource collection
func (c *Client) Post(ctx context.Context, resource string, payload map[string]interface{}) (map[string]interface{}, error) {
	endpoint := c.resourceURL(resource)

	status, body, err := c.do(ctx, "POST", endpoint, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, classify(status, body)
	}

	var record map[string]interface{}
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", resource, err)
	}

	return record, nil
}

// BulkResponse is one element of a bulk envelope, carrying either the created
// record or the per-line error, keyed by position.
type BulkResponse struct {
	Status int                    `json:"status"`
	Body   map[string]interface{} `json:"body"`
	Error  map[string]interface{} `json:"error"`
}

// Envelope is the response shape of BulkPost
type Envelope struct {
	Responses []BulkResponse `json:"responses"`
}

// BulkPost creates many records in one OData $batch call. Per-line failures
// land as error elements in the envelope; the call itself only errors when
// the whole batch is rejected.
func (c *Client) BulkPost(ctx context.Context, resource string, payloads []map[string]interface{}) (*Envelope, error) {
	requests := make([]map[string]interface{}, 0, len(payloads))
	for i, payload := range payloads {
		requests = append(requests, map[string]interface{}{
			"id":     strconv.Itoa(i + 1),
			"method": "POST",
			"url":    c.batchRelativeURL(resource),
			"headers": map[string]string{
				"Content-Type": "application/json",
			},
			"body": payload,
		})
	}

	endpoint := fmt.Sprintf("%s/$batch", c.baseURL)
	status, body, err := c.do(ctx, "POST", endpoint, map[string]interface{}{"requests": requests})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, classify(status, body)
	}

	var raw struct {
		Responses []struct {
			ID     string                 `json:"id"`
			Status int                    `json:"status"`
			Body   map[string]interface{} `json:"body"`
		} `json:"responses"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	// Batch responses are not ordering-guaranteed; re-key by request id so the
	// envelope stays positional.
	envelope := &Envelope{Responses: make([]BulkResponse, len(payloads))}
	for _, r := range raw.Responses {
		pos, err := strconv.Atoi(r.ID)
		if err != nil || pos < 1 || pos > len(payloads) {
			continue
		}
		element := BulkResponse{Status: r.Status}
		if r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices {
			element.Body = r.Body
		} else {
			element.Error = r.Body
		}
		envelope.Responses[pos-1] = element
	}

	return envelope, nil
}

func (c *Client) batchRelativeURL(resource string) string {
	if c.companyID == "" {
		return resource
	}
	return fmt.Sprintf("companies(%s)/%s", c.companyID, resource)
}

// PostJournalLineItems bulk-creates journal lines under one journal
func (c *Client) PostJournalLineItems(ctx context.Context, journalID string, payloads []map[string]interface{}) (*Envelope, error) {
	resource := fmt.Sprintf("journals(%s)/journalLines", journalID)
	return c.BulkPost(ctx, resource, payloads)
}

// PostPurchaseInvoice creates the invoice header and then bulk-creates its
// lines. The returned map carries both the header record and the line
// envelope.
func (c *Client) PostPurchaseInvoice(ctx context.Context, invoicePayload map[string]interface{}, linePayloads []map[string]interface{}) (map[string]interface{}, error) {
	invoice, err := c.Post(ctx, "purchaseInvoices", invoicePayload)
	if err != nil {
		return nil, err
	}

	invoiceID, _ := invoice["id"].(string)
	lineResource := fmt.Sprintf("purchaseInvoices(%s)/purchaseInvoiceLines", invoiceID)

	envelope, err := c.BulkPost(ctx, lineResource, linePayloads)
	if err != nil {
		return nil, err
	}

	failed := []int{}
	for i, r := range envelope.Responses {
		if r.Error != nil {
			failed = append(failed, i)
		}
	}
	if len(failed) > 0 {
		return nil, &BulkPostError{
			Message:   "purchase invoice line creation failed",
			Positions: failed,
			Response:  envelope,
		}
	}

	return map[string]interface{}{
		"purchase_invoice_response": invoice,
		"bulk_post_response":        envelope,
	}, nil
}

// PostDimensionSetLine attaches one dimension value to a posted line
func (c *Client) PostDimensionSetLine(ctx context.Context, parentID string, payload map[string]interface{}) (map[string]interface{}, error) {
	resource := fmt.Sprintf("journalLines(%s)/dimensionSetLines", parentID)
	return c.Post(ctx, resource, payload)
}

// Attachment is one receipt to upload, already resolved to a signed URL
type Attachment struct {
	FileName    string
	DownloadURL string
	ContentType string
}

// PostAttachments downloads each receipt from its signed URL and uploads it
// against the parent document
func (c *Client) PostAttachments(ctx context.Context, parentType, parentID string, attachments []Attachment) error {
	for _, attachment := range attachments {
		record, err := c.Post(ctx, "attachments", map[string]interface{}{
			"parentId":   parentID,
			"parentType": parentType,
			"fileName":   attachment.FileName,
		})
		if err != nil {
			return err
		}

		attachmentID, _ := record["id"].(string)
		if err := c.uploadAttachmentContent(ctx, attachmentID, attachment); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) uploadAttachmentContent(ctx context.Context, attachmentID string, attachment Attachment) error {
	content, err := c.downloadFile(ctx, attachment.DownloadURL)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/attachments(%s)/attachmentContent", c.resourceURLRoot(), attachmentID)
	req, err := http.NewRequestWithContext(ctx, "PATCH", endpoint, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", attachment.ContentType)
	req.Header.Set("If-Match", "*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload attachment content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return classify(resp.StatusCode, body)
	}
	return nil
}

func (c *Client) resourceURLRoot() string {
	if c.companyID == "" {
		return c.baseURL
	}
	return fmt.Sprintf("%s/companies(%s)", c.baseURL, c.companyID)
}

func (c *Client) downloadFile(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download error (status %d)", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
