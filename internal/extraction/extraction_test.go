package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/docfields/internal/evidence"
	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/prompts"
	"github.com/jackzampolin/docfields/internal/prompts/extract"
	"github.com/jackzampolin/docfields/internal/providers"
	"github.com/jackzampolin/docfields/internal/response"
)

type memoryRuns struct {
	mu      sync.Mutex
	history map[string][]Status
	last    map[string]Run
}

func newMemoryRuns() *memoryRuns {
	return &memoryRuns{history: map[string][]Status{}, last: map[string]Run{}}
}

func (m *memoryRuns) SaveRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[run.ID] = append(m.history[run.ID], run.Status)
	m.last[run.ID] = *run
	return nil
}

func invoiceSchema() *fieldschema.Schema {
	return &fieldschema.Schema{Fields: []fieldschema.Field{
		{Name: "company_info", Type: fieldschema.TypeMap, Fields: []fieldschema.Field{
			{Name: "name", DisplayName: "Company name"},
			{Name: "address"},
		}},
		{Name: "items", Type: fieldschema.TypeList, Items: &fieldschema.ItemSchema{
			Type: fieldschema.TypeMap,
			Fields: []fieldschema.Field{
				{Name: "description"},
				{Name: "quantity"},
			},
		}},
	}}
}

const invoiceResponse = "```json\n" + `{"company_info":{"name":"Acme Corp","address":""},"items":[{"description":"Widget","quantity":"3"}],"indices":{"company_info":{"name":[0],"address":[]},"items":[{"description":[1],"quantity":[2]}]}}` + "\n```"

func pageImages(n int) []evidence.Image {
	images := make([]evidence.Image, n)
	for i := range images {
		images[i] = evidence.Image{Path: "page.png", Data: []byte{byte(i)}, Format: "png"}
	}
	return images
}

func twoPageOCR() *evidence.OCRResult {
	return evidence.NewOCRResult([]evidence.Page{
		{Number: 1, Words: []evidence.Token{{ID: 0, Content: "Acme Corp"}, {ID: 1, Content: "Widget"}}},
		{Number: 2, Words: []evidence.Token{{ID: 2, Content: "3"}}},
	})
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		images   int
		mode     PageMode
		evidence bool
		want     extract.Strategy
	}{
		{1, PageModeCombined, true, extract.SingleWithEvidence},
		{1, PageModeCombined, false, extract.SingleNoEvidence},
		{3, PageModeCombined, true, extract.MultiWithEvidence},
		{3, PageModeCombined, false, extract.MultiNoEvidence},
		{3, PageModeIndividual, true, extract.SingleWithEvidence},
		{3, PageModeIndividual, false, extract.SingleNoEvidence},
		{0, PageModeCombined, false, extract.SingleNoEvidence},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectStrategy(tt.images, tt.mode, tt.evidence),
			"images=%d mode=%s evidence=%v", tt.images, tt.mode, tt.evidence)
	}
}

func TestParsePageMode(t *testing.T) {
	m, err := ParsePageMode("")
	require.NoError(t, err)
	assert.Equal(t, PageModeCombined, m)

	m, err = ParsePageMode("individual")
	require.NoError(t, err)
	assert.Equal(t, PageModeIndividual, m)

	_, err = ParsePageMode("sideways")
	assert.Error(t, err)
}

func TestRun_Transition(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		run := NewRun("invoices", "a.png")
		require.NoError(t, run.Transition(StatusProcessing))
		require.NoError(t, run.Transition(StatusCompleted))
		assert.NotNil(t, run.CompletedAt)
	})

	t.Run("rejected transitions", func(t *testing.T) {
		tests := []struct {
			from, to Status
		}{
			{StatusPending, StatusCompleted},
			{StatusPending, StatusPending},
			{StatusProcessing, StatusPending},
			{StatusProcessing, StatusProcessing},
			{StatusCompleted, StatusProcessing},
			{StatusCompleted, StatusFailed},
			{StatusFailed, StatusProcessing},
			{StatusFailed, StatusCompleted},
		}
		for _, tt := range tests {
			run := &Run{Status: tt.from}
			err := run.Transition(tt.to)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
			assert.Equal(t, tt.from, run.Status)
		}
	})

	t.Run("failed from pending", func(t *testing.T) {
		run := NewRun("invoices", "")
		require.NoError(t, run.Fail(errors.New("boom")))
		assert.Equal(t, StatusFailed, run.Status)
		assert.Equal(t, "boom", run.Error)
	})
}

func TestRunner_SingleWithEvidence(t *testing.T) {
	llm := providers.NewMockClient()
	llm.QueueResponse(invoiceResponse)
	runs := newMemoryRuns()

	runner, err := NewRunner(Config{LLM: llm, Store: runs})
	require.NoError(t, err)

	run, res, err := runner.Run(context.Background(), Request{
		App:          "invoices",
		Document:     "invoice.png",
		Schema:       invoiceSchema(),
		Instructions: "Dates are YYYY-MM-DD.",
		Images:       pageImages(1),
		OCR:          twoPageOCR(),
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, extract.SingleWithEvidence, run.Strategy)
	assert.Empty(t, run.Error)
	assert.JSONEq(t, `{"company_info":{"name":"Acme Corp","address":""},"items":[{"description":"Widget","quantity":"3"}]}`, string(run.Values))
	assert.JSONEq(t, `{"company_info":{"name":[0],"address":[]},"items":[{"description":[1],"quantity":[2]}]}`, string(run.Indices))
	assert.NotEmpty(t, run.UserPromptHash)
	require.NotNil(t, run.Usage)
	assert.Equal(t, providers.MockClientName, run.Usage.Provider)

	assert.Equal(t, []Status{StatusPending, StatusProcessing, StatusCompleted}, runs.history[run.ID])

	req := llm.LastRequest()
	require.NotNil(t, req)
	require.Len(t, req.Messages, 2)
	user := req.Messages[1]
	assert.Len(t, user.Images, 1)
	assert.True(t, user.ImagesFirst)
	assert.Contains(t, user.Content, "Dates are YYYY-MM-DD.")
	assert.Contains(t, user.Content, `"content":"Acme Corp"`)
	// first page only
	assert.NotContains(t, user.Content, `{"id":2,"content":"3"}`)
}

func TestRunner_MultiPageCombined(t *testing.T) {
	llm := providers.NewMockClient()
	llm.QueueResponse(invoiceResponse)

	runner, err := NewRunner(Config{LLM: llm, Request: extract.RequestOptions{Structured: true}})
	require.NoError(t, err)

	run, _, err := runner.Run(context.Background(), Request{
		App:    "invoices",
		Schema: invoiceSchema(),
		Images: pageImages(2),
		OCR:    twoPageOCR(),
	})
	require.NoError(t, err)
	assert.Equal(t, extract.MultiWithEvidence, run.Strategy)
	assert.Equal(t, 2, run.PageCount)

	req := llm.LastRequest()
	user := req.Messages[1]
	assert.Len(t, user.Images, 2)
	assert.False(t, user.ImagesFirst)
	assert.Contains(t, user.Content, "### Page 2")
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_schema", req.ResponseFormat.Type)
}

func TestRunner_VisionOnly(t *testing.T) {
	llm := providers.NewMockClient()
	llm.QueueResponse(invoiceResponse)

	runner, err := NewRunner(Config{LLM: llm})
	require.NoError(t, err)

	run, _, err := runner.Run(context.Background(), Request{
		App:    "invoices",
		Schema: invoiceSchema(),
		Images: pageImages(1),
	})
	require.NoError(t, err)
	assert.Equal(t, extract.SingleNoEvidence, run.Strategy)
	assert.NotContains(t, llm.LastRequest().Messages[1].Content, "## OCR result")
}

func TestRunner_InvalidJSONCompletesWithError(t *testing.T) {
	llm := providers.NewMockClient()
	llm.QueueResponse("I could not read this document.")

	runner, err := NewRunner(Config{LLM: llm})
	require.NoError(t, err)

	run, res, err := runner.Run(context.Background(), Request{
		App:    "invoices",
		Schema: invoiceSchema(),
		Images: pageImages(1),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, response.ErrorMessage, run.Error)

	var formatErr *response.ResponseFormatError
	assert.True(t, errors.As(res.Err, &formatErr))
	assert.JSONEq(t, `{"error":"`+response.ErrorMessage+`"}`, string(run.Values))
	assert.JSONEq(t, `{}`, string(run.Indices))
	require.NotEmpty(t, run.Issues)
	assert.Equal(t, res.Err.Error(), run.Issues[len(run.Issues)-1])
	assert.Contains(t, run.Issues[len(run.Issues)-1], "invalid character 'I'")
}

func TestRunner_Failures(t *testing.T) {
	t.Run("schema error before any run", func(t *testing.T) {
		llm := providers.NewMockClient()
		runs := newMemoryRuns()
		runner, err := NewRunner(Config{LLM: llm, Store: runs})
		require.NoError(t, err)

		run, _, err := runner.Run(context.Background(), Request{
			Schema: &fieldschema.Schema{},
			Images: pageImages(1),
		})
		var schemaErr *fieldschema.SchemaError
		assert.True(t, errors.As(err, &schemaErr))
		assert.Nil(t, run)
		assert.Empty(t, runs.history)
		assert.Zero(t, llm.RequestCount())
	})

	t.Run("no images", func(t *testing.T) {
		llm := providers.NewMockClient()
		runs := newMemoryRuns()
		runner, err := NewRunner(Config{LLM: llm, Store: runs})
		require.NoError(t, err)

		run, _, err := runner.Run(context.Background(), Request{Schema: invoiceSchema()})
		var unavailable *evidence.EvidenceUnavailableError
		assert.True(t, errors.As(err, &unavailable))
		require.NotNil(t, run)
		assert.Equal(t, StatusFailed, run.Status)
		assert.Equal(t, []Status{StatusPending, StatusFailed}, runs.history[run.ID])
		assert.Zero(t, llm.RequestCount())
	})

	t.Run("model failure", func(t *testing.T) {
		llm := providers.NewMockClient()
		llm.ShouldFail = true
		runs := newMemoryRuns()
		runner, err := NewRunner(Config{LLM: llm, Store: runs})
		require.NoError(t, err)

		run, _, err := runner.Run(context.Background(), Request{Schema: invoiceSchema(), Images: pageImages(1)})
		require.Error(t, err)
		assert.Equal(t, StatusFailed, run.Status)
		assert.True(t, strings.HasPrefix(run.Error, "model call failed"))
		assert.Equal(t, []Status{StatusPending, StatusProcessing, StatusFailed}, runs.history[run.ID])
	})

	t.Run("runner requires llm", func(t *testing.T) {
		_, err := NewRunner(Config{})
		assert.Error(t, err)
	})
}

func TestRunner_PromptOverride(t *testing.T) {
	llm := providers.NewMockClient()
	llm.QueueResponse(invoiceResponse)

	overrides := prompts.NewMemoryOverrides()
	_, userKey := extract.PromptKeys(extract.SingleNoEvidence)
	require.NoError(t, overrides.Set("invoices", userKey, "Custom targets:\n{{.Targets}}", ""))

	resolver := prompts.NewResolver(overrides, nil)
	extract.RegisterPrompts(resolver)

	runner, err := NewRunner(Config{LLM: llm, Resolver: resolver})
	require.NoError(t, err)

	_, _, err = runner.Run(context.Background(), Request{App: "invoices", Schema: invoiceSchema(), Images: pageImages(1)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(llm.LastRequest().Messages[1].Content, "Custom targets:\n1. "))
}

func TestRunner_RunPages(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseText = invoiceResponse
	runs := newMemoryRuns()

	runner, err := NewRunner(Config{LLM: llm, Store: runs})
	require.NoError(t, err)

	results, err := runner.RunPages(context.Background(), Request{
		App:      "invoices",
		Document: "scan.pdf",
		Schema:   invoiceSchema(),
		Images:   pageImages(2),
		OCR:      twoPageOCR(),
	}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i, pr := range results {
		require.NoError(t, pr.Err)
		assert.Equal(t, i+1, pr.Page)
		assert.Equal(t, StatusCompleted, pr.Run.Status)
		assert.Equal(t, extract.SingleWithEvidence, pr.Run.Strategy)
	}
	assert.Equal(t, "scan.pdf#page=2", results[1].Run.Document)
	assert.EqualValues(t, 2, llm.RequestCount())

	var values map[string]any
	require.NoError(t, json.Unmarshal(results[0].Run.Values, &values))
	assert.Contains(t, values, "company_info")
}

func TestJoinInstructions(t *testing.T) {
	assert.Equal(t, "", JoinInstructions())
	assert.Equal(t, "Dates are YYYY-MM-DD.", JoinInstructions("  ", "Dates are YYYY-MM-DD.\n"))
	assert.Equal(t, "App rules.\n\nDocument rules.", JoinInstructions("App rules.", "", "Document rules."))
}
