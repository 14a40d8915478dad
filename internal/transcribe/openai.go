// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/template"

	"github.com/scottkwong/pdf-to-md/internal/httputil"
	"github.com/scottkwong/pdf-to-md/pkg/types"
)

// visionPrompt is the fixed instruction sent with every page image.
const visionPrompt = "Write a Markdown version of this page keeping as much of the semantic " +
	"meaning from information hierarchy as possible. For tabular-like " +
	"data (including chart data), make easy to read tables as they'd be " +
	"presented by a financial analyst."

// assistPromptTmpl extends the instruction with previously extracted page
// text when running in vision-and-text mode.
var assistPromptTmpl = template.Must(template.New("assist").Parse(visionPrompt +
	"\n\nYour vision isn't great, so I've provided previously extracted " +
	"text to help in <prior_text> tags. That text isn't perfect either so " +
	"use a balanced approach to create the full Markdown output.\n" +
	"\n<prior_text>\n{{.PriorText}}\n</prior_text>\n"))

// openaiAPIURL is the chat completions endpoint. Package-level var for test
// substitution.
var openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIBackend transcribes page images through the OpenAI chat completions
// API, sending each image as a base64 data URL.
type OpenAIBackend struct {
	APIKey    string
	Model     string
	MaxTokens int
	UserAgent string
	Client    *http.Client
}

// NewOpenAIBackend builds a backend from the transcription config.
func NewOpenAIBackend(cfg types.TranscriptionConfig) *OpenAIBackend {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &OpenAIBackend{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: maxTokens,
		UserAgent: cfg.UserAgent,
		Client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

// chatMessage is a single message with multimodal content parts.
type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

// contentPart is either a text part or an image part of a message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// chatResponse is the response body from the chat completions API.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Transcribe sends one page image (and optional prior text) to the
// completion API and returns the response text verbatim.
func (b *OpenAIBackend) Transcribe(ctx context.Context, page Page) (string, error) {
	image, err := os.ReadFile(page.ImagePath)
	if err != nil {
		return "", fmt.Errorf("reading page image: %w", err)
	}

	prompt, err := renderPrompt(page.PriorText)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := chatRequest{
		Model:     b.Model,
		MaxTokens: b.MaxTokens,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{
						URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
					}},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling completion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}

	if len(cResp.Choices) == 0 || cResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("completion API returned empty content")
	}

	return cResp.Choices[0].Message.Content, nil
}

// renderPrompt returns the vision instruction, extended with the prior-text
// assist section when page text is available.
func renderPrompt(priorText string) (string, error) {
	if priorText == "" {
		return visionPrompt, nil
	}
	var buf bytes.Buffer
	if err := assistPromptTmpl.Execute(&buf, struct{ PriorText string }{PriorText: priorText}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
