package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teemow/meetgate/internal/job"
)

// Defaults for ChatConfig.
const (
	DefaultChatBaseURL = "https://api.openai.com/v1"
	DefaultChatModel   = "gpt-4o-mini"
	DefaultChatTimeout = 60 * time.Second
)

// ChatConfig configures a ChatOracle.
type ChatConfig struct {
	// BaseURL is the OpenAI-compatible API root, e.g. http://localhost:11434/v1.
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the default client (mainly for tests).
	HTTPClient *http.Client
}

// ChatOracle asks an OpenAI-compatible chat-completions endpoint for both
// decisions and replies. It works with OpenAI, Ollama /v1, vLLM and similar.
type ChatOracle struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewChatOracle creates a ChatOracle, filling in defaults.
func NewChatOracle(cfg ChatConfig) *ChatOracle {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultChatBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChatTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ChatOracle{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// Name implements Oracle.
func (c *ChatOracle) Name() string { return TypeChat }

const decisionPrompt = `You are a gatekeeper for a busy person's calendar.
Decide whether the requester's cumulative messages justify a live meeting.
Approve only when a meeting is explicitly requested AND there is a concrete reason
that needs live discussion (a decision, a blocker, alignment, planning, an incident).
Decline questions that can be answered asynchronously.

%s
Answer with a single JSON object and nothing else:
{"decision": "APPROVE" | "DECLINE", "rationale": "<one sentence>", "missing": ["<field>", ...]}
"missing" lists details still needed to book the meeting, chosen from: %s.`

const replyPrompt = `You are the assistant of a busy person, talking to someone who wants time with them.
Acknowledge what they told you, stay consistent with the gatekeeping decision below,
and ask at most one question. Keep it to two or three sentences.

Decision: %s
Rationale: %s
Details still needed: %s`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Evaluate implements DecisionOracle.
func (c *ChatOracle) Evaluate(ctx context.Context, transcript string, policy job.Policy) (*job.Decision, error) {
	var checklist strings.Builder
	if len(policy.Checklist) > 0 {
		checklist.WriteString("Policy checklist:\n")
		for _, item := range policy.Checklist {
			fmt.Fprintf(&checklist, "- %s\n", item)
		}
	}
	fields := policy.RequiredFields
	if len(fields) == 0 {
		fields = job.KnownFields
	}

	content, err := c.complete(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(decisionPrompt, checklist.String(), strings.Join(fields, ", "))},
			{Role: "user", Content: transcript},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}
	return ParseDecision(content)
}

// Reply implements ResponseOracle.
func (c *ChatOracle) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	verdict, rationale := "none yet", ""
	if req.Decision != nil {
		verdict, rationale = string(req.Decision.Decision), req.Decision.Rationale
	}
	missing := "none"
	if len(req.Missing) > 0 {
		missing = strings.Join(req.Missing, ", ")
	}

	msgs := []chatMessage{{Role: "system", Content: fmt.Sprintf(replyPrompt, verdict, rationale, missing)}}
	for _, m := range req.Tail {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	content, err := c.complete(ctx, chatRequest{Model: c.model, Messages: msgs, Temperature: 0.3})
	if err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: empty reply", job.ErrParse)
	}
	return content, nil
}

// complete posts to /chat/completions and returns the first choice's content.
// Transport and status failures wrap job.ErrOracleUnavailable.
func (c *ChatOracle) complete(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", job.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: chat API returned status %d: %s", job.ErrOracleUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode chat response: %v", job.ErrParse, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in chat response", job.ErrParse)
	}
	return result.Choices[0].Message.Content, nil
}
