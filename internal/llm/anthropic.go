// Package llm is the Anthropic-backed collaborator client: category
// classification, condensed summaries, short reply phrases, and plain
// conversation. Every call returns an explicit error on failure; the static
// fallback is applied by the caller, never in here.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pbaille/jot/internal/domain"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

const defaultModel = "claude-sonnet-4-20250514"

// callTimeout bounds every collaborator call so a slow upstream degrades to
// the caller's fallback instead of blocking the message stream.
const callTimeout = 30 * time.Second

// Classification is the wire payload of the classification contract: labels
// drawn from the closed module and tag vocabularies. Membership is validated
// by the classify package, not here.
type Classification struct {
	Main []string `json:"main"`
	Tags []string `json:"tags"`
}

// Collaborator is the set of text-understanding calls the router needs.
type Collaborator interface {
	Classify(ctx context.Context, text string) (*Classification, error)
	Summarize(ctx context.Context, text string) (string, error)
	Phrase(ctx context.Context, text string, backlog bool) (string, error)
	Chat(ctx context.Context, persona string, turns []domain.Turn) (string, error)
}

// Client talks to the Anthropic Messages API.
type Client struct {
	apiKey string
	model  string
	http   *http.Client
}

// New creates a Client from the environment. model may be empty.
func New(model string) (*Client, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}
	if model == "" {
		model = defaultModel
	}

	return &Client{
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: callTimeout},
	}, nil
}

// Classify maps text onto the closed category vocabularies.
func (c *Client) Classify(ctx context.Context, text string) (*Classification, error) {
	prompt := buildClassifyPrompt(text)

	resp, err := c.callAPI(ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	return parseClassification(resp)
}

// Summarize condenses text to a short status line (~15 characters).
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	prompt := "用15個字以內濃縮這則活動紀錄，只回覆濃縮後的文字，不要標點結尾：\n\n" + text

	resp, err := c.callAPI(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}

	return strings.TrimSpace(resp), nil
}

// Phrase produces the short trailing remark for a log confirmation. backlog
// selects retrospective phrasing over present/continuous.
func (c *Client) Phrase(ctx context.Context, text string, backlog bool) (string, error) {
	tense := "用現在式或進行式"
	if backlog {
		tense = "用回顧的口吻"
	}
	prompt := fmt.Sprintf("針對這則活動%s寫一句50字以內的簡短回應，只回覆那一句話：\n\n%s", tense, text)

	resp, err := c.callAPI(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}

	return strings.TrimSpace(resp), nil
}

// Chat answers a plain-conversation message given the persona and the recent
// turn window.
func (c *Client) Chat(ctx context.Context, persona string, turns []domain.Turn) (string, error) {
	msgs := make([]apiMessage, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == "assistant" {
			role = "assistant"
		}
		msgs = append(msgs, apiMessage{Role: role, Content: t.Content})
	}

	resp, err := c.call(ctx, persona, msgs)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}

	return strings.TrimSpace(resp), nil
}

func buildClassifyPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("Classify this activity record. Return JSON only.\n\n")
	sb.WriteString("Activity:\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")

	sb.WriteString("Allowed main categories:\n")
	for _, m := range domain.Modules() {
		sb.WriteString("- ")
		sb.WriteString(string(m))
		sb.WriteString("\n")
	}
	sb.WriteString("\nAllowed tags:\n")
	for _, t := range domain.Tags() {
		sb.WriteString("- ")
		sb.WriteString(string(t))
		sb.WriteString("\n")
	}

	sb.WriteString(`
Return a JSON object with this structure:
{
  "main": ["work"],
  "tags": ["meeting"]
}

Rules:
- "main" and "tags" must only use labels from the lists above
- An activity may belong to more than one main category
- "tags" may be empty
- Return ONLY the JSON, no other text.`)

	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) callAPI(ctx context.Context, system, prompt string) (string, error) {
	return c.call(ctx, system, []apiMessage{{Role: "user", Content: prompt}})
}

func (c *Client) call(ctx context.Context, system string, msgs []apiMessage) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: 1024,
		System:    system,
		Messages:  msgs,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicAPI, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return apiResp.Content[0].Text, nil
}

func parseClassification(resp string) (*Classification, error) {
	// Clean up response - remove markdown code blocks if present
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var result Classification
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	return &result, nil
}

// Unavailable returns a Collaborator whose every call fails. Used when no API
// key is configured so the router's static fallbacks take over uniformly.
func Unavailable(reason string) Collaborator {
	return unavailable{reason: reason}
}

type unavailable struct{ reason string }

func (u unavailable) Classify(context.Context, string) (*Classification, error) {
	return nil, fmt.Errorf("collaborator unavailable: %s", u.reason)
}

func (u unavailable) Summarize(context.Context, string) (string, error) {
	return "", fmt.Errorf("collaborator unavailable: %s", u.reason)
}

func (u unavailable) Phrase(context.Context, string, bool) (string, error) {
	return "", fmt.Errorf("collaborator unavailable: %s", u.reason)
}

func (u unavailable) Chat(context.Context, string, []domain.Turn) (string, error) {
	return "", fmt.Errorf("collaborator unavailable: %s", u.reason)
}
