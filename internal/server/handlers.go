// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/tombee/flowsmith/internal/catalog"
	"github.com/tombee/flowsmith/internal/generator"
	"github.com/tombee/flowsmith/internal/store"
	pkgerrors "github.com/tombee/flowsmith/pkg/errors"
	"github.com/tombee/flowsmith/pkg/secrets"
	"github.com/tombee/flowsmith/pkg/workflow"
	"github.com/tombee/flowsmith/pkg/workflow/lint"
)

// maxContextSnippets is the number of caller-supplied snippets passed to
// the generator.
const maxContextSnippets = 5

// defaultMaxNodes is the advisory node cap used when a request omits it.
const defaultMaxNodes = 20

type generateRequest struct {
	Prompt          string   `json:"prompt"`
	LLMProvider     string   `json:"llmProvider"`
	Model           string   `json:"model"`
	MaxNodes        int      `json:"maxNodes"`
	TriggerType     string   `json:"triggerType"`
	Temperature     *float64 `json:"temperature"`
	MaxTokens       *int     `json:"maxTokens"`
	ForceJSON       bool     `json:"forceJson"`
	ContextSnippets []string `json:"contextSnippets"`

	// AllowProgrammaticImport is accepted for compatibility and ignored.
	AllowProgrammaticImport bool `json:"allowProgrammaticImport"`
}

type generateResponse struct {
	Success  bool               `json:"success"`
	Workflow *workflow.Workflow `json:"workflow"`
	Lint     []lint.Issue       `json:"lint"`
}

// handleGenerate handles POST /api/generate-workflow.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, r, s.logger, pkgerrors.NewAPIError(pkgerrors.CodeInvalidRequest, "Prompt is required"))
		return
	}
	if req.LLMProvider != "" && req.LLMProvider != s.app.Config.LLM.Provider {
		s.logger.DebugContext(r.Context(), "ignoring requested provider",
			"requested", req.LLMProvider,
			"provider", s.app.Config.LLM.Provider,
		)
	}

	gen, err := s.app.Generator(r.Context())
	if err != nil {
		var cerr *pkgerrors.ConfigError
		if errors.As(err, &cerr) {
			err = &pkgerrors.APIError{Code: pkgerrors.CodeInternal, Message: cerr.Reason, Cause: err}
		}
		writeError(w, r, s.logger, err)
		return
	}

	snippets := req.ContextSnippets
	if len(snippets) > maxContextSnippets {
		snippets = snippets[:maxContextSnippets]
	}
	maxNodes := req.MaxNodes
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	res, err := gen.Generate(r.Context(), generator.Request{
		Prompt:          req.Prompt,
		Model:           req.Model,
		MaxNodes:        maxNodes,
		TriggerType:     req.TriggerType,
		Temperature:     req.Temperature,
		MaxTokens:       req.MaxTokens,
		ForceJSON:       req.ForceJSON,
		ContextSnippets: snippets,
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	s.remember(r, req.Prompt, res.Workflow)

	issues := res.Issues
	if issues == nil {
		issues = []lint.Issue{}
	}
	writeJSON(w, http.StatusOK, generateResponse{Success: true, Workflow: res.Workflow, Lint: issues})
}

// remember records the prompt and result in the state store. Failures are
// logged and do not fail the request.
func (s *Server) remember(r *http.Request, prompt string, wf *workflow.Workflow) {
	ctx := r.Context()
	if err := s.app.Store.AddRecentPrompt(ctx, prompt); err != nil {
		s.logger.WarnContext(ctx, "failed to record prompt", "error", err)
	}
	if err := s.app.Store.SaveLastWorkflow(ctx, wf); err != nil {
		s.logger.WarnContext(ctx, "failed to record workflow", "error", err)
	}
}

type workflowRequest struct {
	Workflow json.RawMessage `json:"workflow"`
}

// handleTest handles POST /api/test-workflow.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	wf, err := decodeWorkflow(req.Workflow)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	result, err := s.app.Simulator.Run(r.Context(), wf)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "testResults": result})
}

type importRequest struct {
	Workflow          json.RawMessage   `json:"workflow"`
	CredentialMapping map[string]string `json:"credentialMapping"`
	N8NAPIURL         string            `json:"n8nApiUrl"`
	N8NAPIKey         string            `json:"n8nApiKey"`
}

type importResponse struct {
	Success    bool   `json:"success"`
	WorkflowID string `json:"workflowId"`
	Message    string `json:"message"`
	N8NURL     string `json:"n8nUrl"`
}

// handleImport handles POST /api/import-to-n8n.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	wf, err := decodeWorkflow(req.Workflow)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if wf == nil {
		writeError(w, r, s.logger, &pkgerrors.ValidationError{Field: "workflow", Message: "Missing required parameters"})
		return
	}

	client, err := s.app.N8N(r.Context(), req.N8NAPIURL, req.N8NAPIKey)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	unmapped := secrets.Unmapped(wf, req.CredentialMapping)
	wf = secrets.ReplacePlaceholders(wf, req.CredentialMapping)
	if len(unmapped) > 0 {
		s.logger.InfoContext(r.Context(), "importing with unmapped placeholders", "placeholders", unmapped)
	}

	result, err := client.Import(r.Context(), wf)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{
		Success:    true,
		WorkflowID: result.WorkflowID,
		Message:    result.Message,
		N8NURL:     result.URL,
	})
}

// handleCatalog handles GET /api/workflow-catalog.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := s.app.Catalog.Get(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*catalog.Catalog
	}{Success: true, Catalog: c})
}

// handleLint handles POST /api/lint-workflow.
func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	wf, err := decodeWorkflow(req.Workflow)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if wf == nil {
		writeError(w, r, s.logger, &pkgerrors.ValidationError{Field: "workflow", Message: "Workflow is required"})
		return
	}

	issues := s.app.Linter.Lint(wf)
	if issues == nil {
		issues = []lint.Issue{}
	}
	for _, issue := range issues {
		s.metrics.RecordLintIssue(r.Context(), issue.RuleID, string(issue.Severity))
	}
	placeholders := secrets.ExtractPlaceholders(wf)
	if placeholders == nil {
		placeholders = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"issues":       issues,
		"placeholders": placeholders,
	})
}

// handleSettings handles GET and PUT /api/settings.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method == http.MethodPut {
		settings := store.DefaultSettings()
		if err := decodeBody(w, r, &settings); err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		if settings.MaxNodes < 0 || settings.MaxTokens < 0 {
			writeError(w, r, s.logger, &pkgerrors.ValidationError{Field: "settings", Message: "maxNodes and maxTokens must not be negative"})
			return
		}
		if err := s.app.Store.SaveSettings(ctx, settings); err != nil {
			writeError(w, r, s.logger, err)
			return
		}
	}

	settings, err := s.app.Store.Settings(ctx)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "settings": settings})
}

// handleState handles GET and DELETE /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method == http.MethodDelete {
		if err := s.app.Store.Clear(ctx); err != nil {
			writeError(w, r, s.logger, err)
			return
		}
	}

	last, err := s.app.Store.LastWorkflow(ctx)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	recent, err := s.app.Store.RecentPrompts(ctx)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if recent == nil {
		recent = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"lastWorkflow":  last,
		"recentPrompts": recent,
	})
}

// HealthResponse is the response format for /v1/health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"api":     "ok",
		"runtime": runtime.Version(),
		"auth":    "disabled",
	}
	if len(s.jwt.Secret) > 0 {
		checks["auth"] = "enabled"
	}
	checks["llm"] = s.app.ProviderStatus()
	if c, err := s.app.Catalog.Get(r.Context()); err != nil {
		checks["catalog"] = "error: " + err.Error()
	} else {
		checks["catalog"] = formatCount(c.TotalWorkflows, "workflow")
	}
	if _, err := s.app.Store.Settings(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
	} else {
		checks["store"] = "ok"
	}

	status := "healthy"
	for _, v := range checks {
		if strings.HasPrefix(v, "error") {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Checks:    checks,
	})
}

// VersionResponse is the response format for /v1/version.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// handleVersion handles GET /v1/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   s.app.Build.Version,
		Commit:    s.app.Build.Commit,
		BuildDate: s.app.Build.BuildDate,
		GoVersion: runtime.Version(),
	})
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
