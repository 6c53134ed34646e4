// Package enrichment turns a scored assessment into an AI-written analysis and
// a 90-day action plan.
package enrichment

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"revops-backend/internal/llm"
)

var (
	ErrUnconfigured      = errors.New("ai enrichment is not configured")
	ErrUpstream          = errors.New("ai provider request failed")
	ErrMalformedResponse = errors.New("ai provider returned malformed output")
)

// DefaultLanguage is the prompt output language when none is configured.
const DefaultLanguage = "English"

const (
	analysisTemplate   = "analysis.tmpl"
	actionPlanTemplate = "action_plan.tmpl"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"score": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
}).ParseFS(promptFS, "prompts/*.tmpl"))

// Generator builds prompts and parses model replies. A Generator without a
// client is unconfigured and fails every call with ErrUnconfigured.
type Generator struct {
	client   llm.Client
	language string
}

// NewGenerator constructs a Generator. client may be nil.
func NewGenerator(client llm.Client, language string) *Generator {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return &Generator{client: client, language: language}
}

// Configured reports whether a provider client is attached.
func (g *Generator) Configured() bool {
	return g != nil && g.client != nil
}

// GenerateAnalysis asks the model for strengths, gaps and recommendations.
func (g *Generator) GenerateAnalysis(ctx context.Context, in Input) (*Analysis, error) {
	var out Analysis
	if err := g.generate(ctx, analysisTemplate, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateActionPlan asks the model for a phased 90-day plan.
func (g *Generator) GenerateActionPlan(ctx context.Context, in Input) (*ActionPlan, error) {
	var out ActionPlan
	if err := g.generate(ctx, actionPlanTemplate, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Prompt renders the named prompt for in. Exposed for previewing prompts.
func (g *Generator) Prompt(name string, in Input) (string, error) {
	language := DefaultLanguage
	if g != nil && g.language != "" {
		language = g.language
	}
	data := struct {
		Company    string
		Role       string
		Overall    float64
		Level      string
		Language   string
		Dimensions []DimensionScore
		Weakest    []DimensionScore
		Strongest  []DimensionScore
	}{
		Company:    in.Company,
		Role:       in.Role,
		Overall:    in.Scores.Overall,
		Level:      in.Level,
		Language:   language,
		Dimensions: in.Dimensions(),
		Weakest:    in.Weakest(),
		Strongest:  in.Strongest(),
	}
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

func (g *Generator) generate(ctx context.Context, name string, in Input, out any) error {
	if !g.Configured() {
		return ErrUnconfigured
	}
	prompt, err := g.Prompt(name, in)
	if err != nil {
		return err
	}
	reply, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if err := decodeReply(reply, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// decodeReply parses a JSON object reply, tolerating a surrounding code fence.
func decodeReply(reply string, out any) error {
	body := stripCodeFence(strings.TrimSpace(reply))
	if !strings.HasPrefix(body, "{") {
		return fmt.Errorf("reply is not a JSON object")
	}
	return json.Unmarshal([]byte(body), out)
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
