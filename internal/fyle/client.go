package fyle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// TokenURL is the Fyle OAuth token endpoint used to exchange refresh tokens
	TokenURL = "https://accounts.fylehq.com/oauth/token"

	expensesPageSize = 200
)

// Source account types on the Fyle platform
const (
	SourceAccountPersonalCash        = "PERSONAL_CASH_ACCOUNT"
	SourceAccountCorporateCreditCard = "PERSONAL_CORPORATE_CREDIT_CARD_ACCOUNT"
)

type Client struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
}

func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     TokenURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SetTokenURL overrides the OAuth token endpoint (used in tests)
func (c *Client) SetTokenURL(tokenURL string) {
	c.tokenURL = tokenURL
}

// Expense is one expense record as returned by the platform listing endpoint
type Expense struct {
	ID                string                 `json:"id"`
	EmployeeEmail     string                 `json:"employee_email"`
	EmployeeName      string                 `json:"employee_name"`
	Category          string                 `json:"category"`
	SubCategory       string                 `json:"sub_category"`
	Project           string                 `json:"project"`
	ExpenseNumber     string                 `json:"expense_number"`
	OrgID             string                 `json:"org_id"`
	ClaimNumber       string                 `json:"claim_number"`
	Amount            decimal.Decimal        `json:"amount"`
	Currency          string                 `json:"currency"`
	ForeignAmount     decimal.Decimal        `json:"foreign_amount"`
	ForeignCurrency   string                 `json:"foreign_currency"`
	SettlementID      string                 `json:"settlement_id"`
	Reimbursable      bool                   `json:"reimbursable"`
	State             string                 `json:"state"`
	Vendor            string                 `json:"vendor"`
	CostCenter        string                 `json:"cost_center"`
	Purpose           string                 `json:"purpose"`
	ReportID          string                 `json:"report_id"`
	Billable          bool                   `json:"billable"`
	FileIDs           []string               `json:"file_ids"`
	SpentAt           *time.Time             `json:"spent_at"`
	ApprovedAt        *time.Time             `json:"approved_at"`
	PostedAt          *time.Time             `json:"posted_at"`
	ExpenseCreatedAt  time.Time              `json:"expense_created_at"`
	ExpenseUpdatedAt  time.Time              `json:"expense_updated_at"`
	SourceAccountType string                 `json:"source_account_type"`
	VerifiedAt        *time.Time             `json:"verified_at"`
	CustomProperties  map[string]interface{} `json:"custom_properties"`
	PaidOnFyle        bool                   `json:"paid_on_fyle"`
}

// ExpenseFilter narrows the listing to one fund source's pending window. At
// most one of the watermark fields is set, depending on the configured
// expense state.
type ExpenseFilter struct {
	SourceAccountType    string
	State                string
	SettledAfter         *time.Time
	ApprovedAfter        *time.Time
	LastPaidAfter        *time.Time
	FilterCreditExpenses bool
}

// FileURL is one signed download URL from the bulk generate endpoint
type FileURL struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
	ContentType string `json:"content_type"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type listResponse struct {
	Count  int       `json:"count"`
	Offset int       `json:"offset"`
	Data   []Expense `json:"data"`
}

// GetAccessToken exchanges the stored refresh token for an access token
func (c *Client) GetAccessToken(ctx context.Context, refreshToken string) (string, error) {
	reqBody := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token API error (status %d): %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access token")
	}

	return token.AccessToken, nil
}

// ListExpenses pages through the platform expense listing under the given
// filter. The watermark is applied against the timestamp column that matches
// the configured expense state.
func (c *Client) ListExpenses(ctx context.Context, clusterDomain, refreshToken string, filter ExpenseFilter) ([]Expense, error) {
	accessToken, err := c.GetAccessToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("order", "updated_at.asc")
	params.Set("source_account_type", fmt.Sprintf("in.(%s)", filter.SourceAccountType))
	if filter.State != "" {
		params.Set("state", "eq."+filter.State)
	}
	if filter.SettledAfter != nil {
		params.Set("last_settled_at", "gte."+filter.SettledAfter.UTC().Format(time.RFC3339))
	}
	if filter.ApprovedAfter != nil {
		params.Set("last_approved_at", "gte."+filter.ApprovedAfter.UTC().Format(time.RFC3339))
	}
	if filter.LastPaidAfter != nil {
		params.Set("last_paid_at", "gte."+filter.LastPaidAfter.UTC().Format(time.RFC3339))
	}
	if filter.FilterCreditExpenses {
		params.Set("amount", "gte.0")
	}
	params.Set("limit", fmt.Sprintf("%d", expensesPageSize))

	expenses := []Expense{}
	offset := 0

	for {
		params.Set("offset", fmt.Sprintf("%d", offset))
		endpoint := fmt.Sprintf("%s/platform/v1/admin/expenses?%s", clusterDomain, params.Encode())

		page, err := c.getExpensePage(ctx, endpoint, accessToken)
		if err != nil {
			return nil, err
		}

		expenses = append(expenses, page.Data...)

		offset += len(page.Data)
		if offset >= page.Count || len(page.Data) == 0 {
			break
		}
	}

	return expenses, nil
}

func (c *Client) getExpensePage(ctx context.Context, endpoint, accessToken string) (*listResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("expenses API error (status %d): %s", resp.StatusCode, string(body))
	}

	var page listResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse expenses response: %w", err)
	}

	return &page, nil
}

// BulkGenerateFileURLs resolves receipt file ids into signed download URLs
func (c *Client) BulkGenerateFileURLs(ctx context.Context, clusterDomain, refreshToken string, fileIDs []string) ([]FileURL, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}

	files := make([]map[string]string, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		if fileID == "" {
			continue
		}
		files = append(files, map[string]string{"id": fileID})
	}
	if len(files) == 0 {
		return nil, nil
	}

	accessToken, err := c.GetAccessToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{"data": files}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/platform/v1/admin/files/bulk_generate_urls", clusterDomain)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("files API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Data []FileURL `json:"data"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse files response: %w", err)
	}

	return apiResp.Data, nil
}
