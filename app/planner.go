// Package app generates career switch plans via an OpenAI-compatible API.
package app

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/config"
)

const plannerSystemPrompt = "You are a pragmatic career coach. Produce a concrete, step-by-step " +
	"plan for switching from the current role to the target role: skills to close, " +
	"projects to build, a realistic timeline, and how to position existing experience. " +
	"Be specific and avoid generic advice."

type PlannerRequest struct {
	CurrentRole string   `json:"currentRole"`
	TargetRole  string   `json:"targetRole"`
	Experience  string   `json:"experience,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	Constraints string   `json:"constraints,omitempty"`
}

func (r PlannerRequest) validate() error {
	if strings.TrimSpace(r.CurrentRole) == "" {
		return errors.New("currentRole is required")
	}
	if strings.TrimSpace(r.TargetRole) == "" {
		return errors.New("targetRole is required")
	}
	return nil
}

// inputHash fingerprints a request for idempotent-failure bookkeeping in
// tool_runs. Skills are sorted so ordering does not change the hash.
func (r PlannerRequest) inputHash() string {
	skills := append([]string(nil), r.Skills...)
	sort.Strings(skills)
	canonical := strings.Join([]string{
		strings.TrimSpace(strings.ToLower(r.CurrentRole)),
		strings.TrimSpace(strings.ToLower(r.TargetRole)),
		strings.TrimSpace(r.Experience),
		strings.Join(skills, ","),
		strings.TrimSpace(r.Constraints),
	}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func (r PlannerRequest) userPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current role: %s\nTarget role: %s\n", r.CurrentRole, r.TargetRole)
	if r.Experience != "" {
		fmt.Fprintf(&b, "Experience: %s\n", r.Experience)
	}
	if len(r.Skills) > 0 {
		fmt.Fprintf(&b, "Existing skills: %s\n", strings.Join(r.Skills, ", "))
	}
	if r.Constraints != "" {
		fmt.Fprintf(&b, "Constraints: %s\n", r.Constraints)
	}
	return b.String()
}

// plannerClient talks to an OpenAI-compatible chat completions endpoint.
type plannerClient struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
}

func newPlannerClient(cfg config.PlannerConfig) *plannerClient {
	return &plannerClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GeneratePlan runs one completion and returns the plan text.
func (pc *plannerClient) GeneratePlan(ctx context.Context, req PlannerRequest) (string, error) {
	if pc.apiKey == "" {
		return "", errors.New("planner api key not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model: pc.model,
		Messages: []chatMessage{
			{Role: "system", Content: plannerSystemPrompt},
			{Role: "user", Content: req.userPrompt()},
		},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+pc.apiKey)

	resp, err := pc.httpc.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("planner response decode failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("planner upstream error: %s", msg)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("planner returned no content")
	}
	return out.Choices[0].Message.Content, nil
}
