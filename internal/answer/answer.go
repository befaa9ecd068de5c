// Package answer turns a question plus retrieved context into a grounded
// response from the configured chat model. The model is only shown the
// retrieved chunks; the system prompt instructs it to refuse rather than
// invent when the context does not contain the answer.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/askdocs/askdocs-go/internal/budget"
	"github.com/askdocs/askdocs-go/internal/rag"
)

const systemPrompt = `You are a documentation assistant. Answer the user's question using ONLY the
context sections provided below. Rules:

- If the context does not contain the answer, say you could not find it in
  the indexed documents. Never invent facts.
- Cite the source document name (e.g. "according to guide.md") when you use
  a section.
- Be concise and direct. Answer in the language of the question.`

// ChatModel is the narrow generation surface the answerer needs. All eino
// chat models satisfy it.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Answerer generates answers grounded in retrieved context.
type Answerer struct {
	model ChatModel
	log   *slog.Logger
}

// New constructs an Answerer over the given chat model.
func New(m ChatModel, log *slog.Logger) (*Answerer, error) {
	if m == nil {
		return nil, fmt.Errorf("answer: chat model must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Answerer{model: m, log: log}, nil
}

// Answer builds the prompt from the retrieved results and generates a
// response. With no results it short-circuits to a fixed not-found reply
// instead of spending a model call.
func (a *Answerer) Answer(ctx context.Context, question string, results []rag.Result) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("answer: question must not be empty")
	}
	if len(results) == 0 {
		return "I could not find anything about that in the indexed documents.", nil
	}

	// Least relevant sections are dropped first when the context would
	// overflow the model's window.
	fitted := budget.FitResults(results, budget.DefaultMaxContextTokens)
	if len(fitted) < len(results) {
		a.log.Debug("context trimmed to token budget",
			slog.Int("kept", len(fitted)),
			slog.Int("dropped", len(results)-len(fitted)),
		)
	}
	results = fitted

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.SystemMessage("Context sections:\n\n" + rag.FormatContext(results)),
		schema.UserMessage(question),
	}

	a.log.Debug("generating answer",
		slog.Int("context_sections", len(results)),
		slog.Int("question_chars", len(question)),
	)

	resp, err := a.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("answer: generation failed: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("answer: model returned an empty response")
	}
	return resp.Content, nil
}
