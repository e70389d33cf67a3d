// server/internal/cep/client.go
package cep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotFound means the postal code does not resolve to an address.
	ErrNotFound = errors.New("postal code not found")
	// ErrInvalidCode means the cleaned code is not exactly 8 digits; the
	// lookup service is never called in that case.
	ErrInvalidCode = errors.New("postal code must have 8 digits")
)

// Address is the resolved street/city for a postal code.
type Address struct {
	Street       string `json:"logradouro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
	Neighborhood string `json:"bairro"`
	NotFound     bool   `json:"erro"`
}

// Client resolves Brazilian postal codes through a ViaCEP-compatible API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// CleanCode strips every non-digit character from a postal code.
func CleanCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup resolves a postal code. The code is cleaned first and the
// service is only invoked for exactly 8 digits.
func (c *Client) Lookup(ctx context.Context, code string) (*Address, error) {
	clean := CleanCode(code)
	if len(clean) != 8 {
		return nil, ErrInvalidCode
	}

	url := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, clean)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call postal lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("postal lookup returned status %d", resp.StatusCode)
	}

	var addr Address
	if err := json.NewDecoder(resp.Body).Decode(&addr); err != nil {
		return nil, fmt.Errorf("decode postal lookup response: %w", err)
	}
	if addr.NotFound {
		return nil, ErrNotFound
	}
	return &addr, nil
}

// CityLabel formats the resolved city the way the delivery form stores it.
func (a *Address) CityLabel() string {
	if a.State == "" {
		return a.City
	}
	return a.City + "/" + a.State
}
