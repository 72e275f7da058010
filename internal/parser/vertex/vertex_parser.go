// Package vertex implements port.DocumentParser against the Vertex AI
// generateContent REST endpoint.
package vertex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"ormd/internal/config"
	"ormd/internal/parser"
	"ormd/internal/port"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Parser implements port.DocumentParser using a Vertex AI Gemini model.
type Parser struct {
	model           string
	endpoint        string
	tokens          oauth2.TokenSource
	client          *http.Client
	maxOutputTokens int
}

// NewParser creates a Vertex-backed parser from a service-account key file.
// A missing or unreadable key file is an authentication failure and comes
// back as a tagged extraction error.
func NewParser(cfg *config.VertexConfig) (*Parser, error) {
	keyData, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, parser.NewAuthError(fmt.Sprintf("No se encontró el archivo de clave JSON en la ruta: %s", cfg.KeyPath))
	}
	creds, err := google.CredentialsFromJSON(context.Background(), keyData, cloudPlatformScope)
	if err != nil {
		return nil, parser.NewAuthError(fmt.Sprintf("Archivo de clave JSON inválido: %v", err))
	}
	endpoint := fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		cfg.Location, cfg.ProjectID, cfg.Location, cfg.Model,
	)
	return newParser(cfg, endpoint, creds.TokenSource), nil
}

// NewParserWithEndpoint creates a parser pointing at a custom endpoint with a
// fixed token source (for testing).
func NewParserWithEndpoint(cfg *config.VertexConfig, endpoint string, tokens oauth2.TokenSource) *Parser {
	return newParser(cfg, endpoint, tokens)
}

func newParser(cfg *config.VertexConfig, endpoint string, tokens oauth2.TokenSource) *Parser {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash-001"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return &Parser{
		model:           model,
		endpoint:        endpoint,
		tokens:          tokens,
		client:          &http.Client{Timeout: timeout},
		maxOutputTokens: maxTokens,
	}
}

// Parse sends the sheet to the model and returns the raw response text.
// Failures come back as tagged extraction errors so callers can store them
// on the document.
func (p *Parser) Parse(ctx context.Context, input port.ParseInput) (*port.ParseOutput, error) {
	mimeType, err := toVertexMimeType(input.ContentType)
	if err != nil {
		return nil, parser.NewProcessingError(err)
	}

	encoded := base64.StdEncoding.EncodeToString(input.FileBytes)

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{
						"inline_data": map[string]interface{}{
							"mime_type": mimeType,
							"data":      encoded,
						},
					},
					{
						"text": parser.SMVSheetPrompt,
					},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"temperature":      0.0,
			"maxOutputTokens":  p.maxOutputTokens,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, parser.NewProcessingError(fmt.Errorf("marshaling request: %w", err))
	}

	token, err := p.tokens.Token()
	if err != nil {
		return nil, parser.NewAuthError(fmt.Sprintf("No se pudo obtener el token de acceso: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, parser.NewProcessingError(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, parser.NewConnectionError()
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, parser.NewConnectionError()
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(resp.StatusCode, respBody)
	}

	text, err := responseText(respBody)
	if err != nil {
		return nil, parser.NewProcessingError(err)
	}

	return &port.ParseOutput{
		RawText:    text,
		ModelUsed:  p.model,
		PromptUsed: parser.SMVSheetPrompt,
	}, nil
}

func toVertexMimeType(contentType string) (string, error) {
	switch contentType {
	case "application/pdf":
		return "application/pdf", nil
	case "image/jpeg":
		return "image/jpeg", nil
	case "image/png":
		return "image/png", nil
	default:
		return "", fmt.Errorf("unsupported content type for parsing: %s", contentType)
	}
}

func classifyAPIError(status int, body []byte) *parser.ExtractionError {
	text := string(body)
	if status == http.StatusUnauthorized || status == http.StatusForbidden ||
		strings.Contains(text, "PERMISSION_DENIED") {
		return parser.NewPermissionError()
	}
	if status == http.StatusServiceUnavailable {
		return parser.NewConnectionError()
	}
	return parser.NewProcessingError(fmt.Errorf("vertex API error (status %d): %s", status, truncate(text, 500)))
}

// vertexResponse models the generateContent response.
type vertexResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func responseText(body []byte) (string, error) {
	var resp vertexResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from API: no candidates")
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from API: no parts")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
