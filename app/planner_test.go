package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPlannerRequestValidate(t *testing.T) {
	valid := PlannerRequest{CurrentRole: "teacher", TargetRole: "ux designer"}
	if err := valid.validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	for _, req := range []PlannerRequest{
		{},
		{CurrentRole: "teacher"},
		{TargetRole: "ux designer"},
		{CurrentRole: "   ", TargetRole: "ux designer"},
	} {
		if err := req.validate(); err == nil {
			t.Fatalf("expected validation error for %+v", req)
		}
	}
}

func TestPlannerRequestInputHash(t *testing.T) {
	a := PlannerRequest{CurrentRole: "Teacher", TargetRole: "UX Designer", Skills: []string{"figma", "writing"}}
	b := PlannerRequest{CurrentRole: "teacher", TargetRole: "ux designer", Skills: []string{"writing", "figma"}}
	if a.inputHash() != b.inputHash() {
		t.Fatalf("hash must ignore case of roles and skill order")
	}

	c := PlannerRequest{CurrentRole: "teacher", TargetRole: "data analyst"}
	if a.inputHash() == c.inputHash() {
		t.Fatalf("different inputs must hash differently")
	}
}

func TestGeneratePlan(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request decode: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "step one"}},
			},
		})
	}))
	t.Cleanup(server.Close)

	pc := &plannerClient{
		baseURL: server.URL,
		apiKey:  "sk-test",
		model:   "test-model",
		httpc:   &http.Client{Timeout: 5 * time.Second},
	}

	plan, err := pc.GeneratePlan(context.Background(), PlannerRequest{CurrentRole: "a", TargetRole: "b"})
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if plan != "step one" {
		t.Fatalf("plan = %q", plan)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("auth header = %q", gotAuth)
	}
}

func TestGeneratePlanUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited upstream"}}`))
	}))
	t.Cleanup(server.Close)

	pc := &plannerClient{
		baseURL: server.URL,
		apiKey:  "sk-test",
		model:   "test-model",
		httpc:   &http.Client{Timeout: 5 * time.Second},
	}

	_, err := pc.GeneratePlan(context.Background(), PlannerRequest{CurrentRole: "a", TargetRole: "b"})
	if err == nil {
		t.Fatalf("expected upstream error")
	}
}

func TestGeneratePlanMissingKey(t *testing.T) {
	pc := &plannerClient{baseURL: "http://unused", httpc: http.DefaultClient}
	if _, err := pc.GeneratePlan(context.Background(), PlannerRequest{CurrentRole: "a", TargetRole: "b"}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestGeneratePlanEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(server.Close)

	pc := &plannerClient{
		baseURL: server.URL,
		apiKey:  "sk-test",
		model:   "test-model",
		httpc:   &http.Client{Timeout: 5 * time.Second},
	}

	if _, err := pc.GeneratePlan(context.Background(), PlannerRequest{CurrentRole: "a", TargetRole: "b"}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
