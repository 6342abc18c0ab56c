package fyle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const attributesPageSize = 200

// Category is one platform category row, folded into a single value with
// the sub-category when present.
type Category struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	SubCategory string      `json:"sub_category"`
	IsEnabled   bool        `json:"is_enabled"`
}

// DisplayValue applies the category / sub-category join rule
func (c Category) DisplayValue() string {
	if c.SubCategory == "" || c.SubCategory == c.Name {
		return c.Name
	}
	return c.Name + " / " + c.SubCategory
}

// Employee is one platform employee row
type Employee struct {
	ID        string `json:"id"`
	IsEnabled bool   `json:"is_enabled"`
	User      struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	} `json:"user"`
}

// Project is one platform project row
type Project struct {
	ID         json.Number `json:"id"`
	Name       string      `json:"name"`
	SubProject string      `json:"sub_project"`
	IsEnabled  bool        `json:"is_enabled"`
}

// DisplayValue folds the sub-project into the value the same way categories
// fold sub-categories.
func (p Project) DisplayValue() string {
	if p.SubProject == "" || p.SubProject == p.Name {
		return p.Name
	}
	return p.Name + " / " + p.SubProject
}

// CostCenter is one platform cost center row
type CostCenter struct {
	ID        json.Number `json:"id"`
	Name      string      `json:"name"`
	IsEnabled bool        `json:"is_enabled"`
}

// ExpenseField is one configurable expense field; SELECT fields with
// is_custom carry the option list imported as expense attributes.
type ExpenseField struct {
	ID        json.Number `json:"id"`
	FieldName string      `json:"field_name"`
	Type      string      `json:"type"`
	IsCustom  bool        `json:"is_custom"`
	IsEnabled bool        `json:"is_enabled"`
	Options   []string    `json:"options"`
}

// ListCategories pages through the category listing, returning only rows
// updated after the watermark when one is given
func (c *Client) ListCategories(ctx context.Context, clusterDomain, refreshToken string, updatedAfter *time.Time) ([]Category, error) {
	categories := []Category{}
	err := c.listResource(ctx, clusterDomain, refreshToken, "/platform/v1/admin/categories", updatedAfter, func(data json.RawMessage) (int, error) {
		var page []Category
		if err := json.Unmarshal(data, &page); err != nil {
			return 0, err
		}
		categories = append(categories, page...)
		return len(page), nil
	})
	return categories, err
}

// ListEmployees pages through the employee listing
func (c *Client) ListEmployees(ctx context.Context, clusterDomain, refreshToken string, updatedAfter *time.Time) ([]Employee, error) {
	employees := []Employee{}
	err := c.listResource(ctx, clusterDomain, refreshToken, "/platform/v1/admin/employees", updatedAfter, func(data json.RawMessage) (int, error) {
		var page []Employee
		if err := json.Unmarshal(data, &page); err != nil {
			return 0, err
		}
		employees = append(employees, page...)
		return len(page), nil
	})
	return employees, err
}

// ListProjects pages through the project listing
func (c *Client) ListProjects(ctx context.Context, clusterDomain, refreshToken string, updatedAfter *time.Time) ([]Project, error) {
	projects := []Project{}
	err := c.listResource(ctx, clusterDomain, refreshToken, "/platform/v1/admin/projects", updatedAfter, func(data json.RawMessage) (int, error) {
		var page []Project
		if err := json.Unmarshal(data, &page); err != nil {
			return 0, err
		}
		projects = append(projects, page...)
		return len(page), nil
	})
	return projects, err
}

// ListCostCenters pages through the cost center listing
func (c *Client) ListCostCenters(ctx context.Context, clusterDomain, refreshToken string, updatedAfter *time.Time) ([]CostCenter, error) {
	costCenters := []CostCenter{}
	err := c.listResource(ctx, clusterDomain, refreshToken, "/platform/v1/admin/cost_centers", updatedAfter, func(data json.RawMessage) (int, error) {
		var page []CostCenter
		if err := json.Unmarshal(data, &page); err != nil {
			return 0, err
		}
		costCenters = append(costCenters, page...)
		return len(page), nil
	})
	return costCenters, err
}

// ListExpenseFields pages through the configurable expense fields
func (c *Client) ListExpenseFields(ctx context.Context, clusterDomain, refreshToken string) ([]ExpenseField, error) {
	fields := []ExpenseField{}
	err := c.listResource(ctx, clusterDomain, refreshToken, "/platform/v1/admin/expense_fields", nil, func(data json.RawMessage) (int, error) {
		var page []ExpenseField
		if err := json.Unmarshal(data, &page); err != nil {
			return 0, err
		}
		fields = append(fields, page...)
		return len(page), nil
	})
	return fields, err
}

type rawListResponse struct {
	Count int             `json:"count"`
	Data  json.RawMessage `json:"data"`
}

// listResource pages through one platform listing, handing each page's raw
// data array to collect and advancing by the number of rows it reports.
func (c *Client) listResource(ctx context.Context, clusterDomain, refreshToken, path string, updatedAfter *time.Time, collect func(data json.RawMessage) (int, error)) error {
	accessToken, err := c.GetAccessToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("order", "updated_at.asc")
	params.Set("limit", fmt.Sprintf("%d", attributesPageSize))
	if updatedAfter != nil {
		params.Set("updated_at", "gte."+updatedAfter.UTC().Format(time.RFC3339))
	}

	offset := 0
	for {
		params.Set("offset", fmt.Sprintf("%d", offset))
		endpoint := fmt.Sprintf("%s%s?%s", clusterDomain, path, params.Encode())

		page, err := c.getResourcePage(ctx, endpoint, accessToken)
		if err != nil {
			return err
		}

		n, err := collect(page.Data)
		if err != nil {
			return fmt.Errorf("failed to parse %s response: %w", path, err)
		}

		offset += n
		if offset >= page.Count || n == 0 {
			break
		}
	}

	return nil
}

func (c *Client) getResourcePage(ctx context.Context, endpoint, accessToken string) (*rawListResponse, error) {
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
		return nil, fmt.Errorf("attributes API error (status %d): %s", resp.StatusCode, string(body))
	}

	var page rawListResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse list response: %w", err)
	}

	return &page, nil
}
