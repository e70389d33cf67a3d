// server/internal/ocr/client.go
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrRateLimited marks a quota/429 style failure. Retryable.
	ErrRateLimited = errors.New("ocr service rate limited")
	// ErrUnreadable marks an image the service could not extract from.
	// Terminal for that item; the courier fills the fields by hand.
	ErrUnreadable = errors.New("could not read delivery data from image")
)

// Fields are the structured label fields extracted from a shipping photo.
// The wire names follow the extraction contract (cep = postal code).
type Fields struct {
	CustomerName string   `json:"customerName"`
	Phone        string   `json:"phone"`
	FullAddress  string   `json:"fullAddress"`
	PostalCode   string   `json:"cep"`
	City         string   `json:"city"`
	Complement   string   `json:"complement"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

const extractionPrompt = "Analise esta imagem de etiqueta de envio ou documento. Extraia os dados do DESTINATÁRIO (Receiver). Retorne APENAS um JSON com os campos: customerName (nome completo), phone (telefone apenas números), fullAddress (logradouro e número), cep (apenas números), city (cidade/UF), complement (complemento se houver), lat (latitude decimal), lng (longitude decimal)."

// Client calls a Gemini-style generateContent endpoint to turn label
// photos into structured delivery fields.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

func NewClient(baseURL, model, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Extract sends one base64-encoded image and parses the structured reply.
// A data URL header ("data:image/jpeg;base64,...") is stripped if present.
func (c *Client) Extract(ctx context.Context, imageBase64 string) (*Fields, error) {
	if idx := strings.Index(imageBase64, ","); idx >= 0 && strings.HasPrefix(imageBase64, "data:") {
		imageBase64 = imageBase64[idx+1:]
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{MimeType: "image/jpeg", Data: imageBase64}},
				{Text: extractionPrompt},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ocr service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ocr response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		// Quota errors can also surface as structured error bodies.
		if strings.Contains(string(body), "RESOURCE_EXHAUSTED") || strings.Contains(string(body), "quota") {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("%w: service returned status %d", ErrUnreadable, resp.StatusCode)
	}

	var reply generateResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(reply.Candidates) == 0 || len(reply.Candidates[0].Content.Parts) == 0 {
		return nil, ErrUnreadable
	}

	text := stripCodeFences(reply.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return nil, ErrUnreadable
	}

	var fields Fields
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return &fields, nil
}

// stripCodeFences removes a surrounding markdown code block, which the
// service sometimes emits despite the JSON mime type hint.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
