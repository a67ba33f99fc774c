// Package answering grounds a question in the owner's completed documents and
// records the resulting question/answer pair.
package answering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"study-backend/internal/documents"
	"study-backend/internal/gateway"
	"study-backend/internal/questions"
	"study-backend/internal/shared/metrics"
	"study-backend/internal/shared/telemetry"
	"study-backend/internal/shared/util"
)

var (
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrNoKnowledgeBase  = errors.New("no completed documents to answer from")
	ErrGenerationFailed = errors.New("answer generation failed")
)

const (
	// StoredContextLimit bounds Question.ContextUsed, in characters.
	StoredContextLimit = 5000
	// DisplayContextLimit bounds the context returned to the caller, in characters.
	DisplayContextLimit = 2000

	// FallbackAnswer replaces a missing or empty answer from the model.
	FallbackAnswer = "I couldn't generate an answer. Please try again."

	contextSeparator = "\n\n---\n\n"
)

// QuestionStore is the slice of questions.Repo the pipeline writes through.
type QuestionStore interface {
	Create(ctx context.Context, q questions.Question) (questions.Question, error)
}

// Result is what the caller gets back from a successful ask.
type Result struct {
	QuestionID   string
	QuestionText string
	Answer       string
	Confidence   questions.Confidence
	// Context is the assembled context cut to DisplayContextLimit.
	Context     string
	DocumentIDs []string
	CreatedDate time.Time
}

// Pipeline assembles context, invokes the model once and persists the Question.
type Pipeline struct {
	Gateway   gateway.Invoker
	Questions QuestionStore
	// MaxContextChars caps the context embedded in the prompt. Zero means no cap.
	MaxContextChars int
}

// NewPipeline constructs a Pipeline.
func NewPipeline(gw gateway.Invoker, store QuestionStore, maxContextChars int) *Pipeline {
	return &Pipeline{Gateway: gw, Questions: store, MaxContextChars: maxContextChars}
}

// BuildContext renders documents with text as "[Document: title]\ntext" blocks
// joined by a fixed separator, in the given order.
func BuildContext(docs []documents.Document) string {
	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.ExtractedText == "" {
			continue
		}
		blocks = append(blocks, "[Document: "+doc.Title+"]\n"+doc.ExtractedText)
	}
	return strings.Join(blocks, contextSeparator)
}

// BuildPrompt wraps the context and the verbatim question in the answering instructions.
func BuildPrompt(material, question string) string {
	var b strings.Builder
	b.WriteString("You are a study assistant. Answer the student's question using only the study material below.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. Base your answer solely on the provided material. Do not use outside knowledge.\n")
	b.WriteString("2. If the material does not contain the answer, say clearly that it is not covered in the uploaded documents.\n")
	b.WriteString("3. Be concise. Use bullet points or numbered lists where they make the answer clearer.\n\n")
	b.WriteString("Study material:\n")
	b.WriteString(material)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

func answerSchema() *gateway.Schema {
	return gateway.Object(map[string]*gateway.Schema{
		"answer":     gateway.String("The answer to the question, grounded in the study material"),
		"confidence": gateway.String("How well the material supports the answer", questions.ConfidenceValues...),
	})
}

// Answer runs the pipeline over docs, which should be the owner's completed
// documents in display order. A gateway error persists nothing. Request
// cancellation does not abort an ask that has started.
func (p *Pipeline) Answer(ctx context.Context, ownerID, questionText string, docs []documents.Document) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	questionText = strings.TrimSpace(questionText)
	if questionText == "" {
		return Result{}, ErrEmptyQuestion
	}
	if len(docs) == 0 {
		metrics.IncAnswerNoKnowledgeBase()
		return Result{}, ErrNoKnowledgeBase
	}

	full := BuildContext(docs)
	documentIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		documentIDs = append(documentIDs, doc.ID)
	}

	out, err := p.Gateway.Invoke(ctx, gateway.InvokeRequest{
		Prompt:         BuildPrompt(util.TruncateRunes(full, p.MaxContextChars), questionText),
		ResponseSchema: answerSchema(),
	})
	if err != nil {
		metrics.IncAnswerFailed()
		telemetry.Error("answer.failed", map[string]any{
			"owner_id":       ownerID,
			"document_count": len(docs),
			"error":          err,
		})
		return Result{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	answer := gateway.StringField(out, "answer")
	if !gateway.HasText(answer) {
		metrics.IncAnswerFallback()
		answer = FallbackAnswer
	}
	confidence, _ := questions.ParseConfidence(gateway.StringField(out, "confidence"))

	saved, err := p.Questions.Create(ctx, questions.Question{
		OwnerID:      ownerID,
		QuestionText: questionText,
		ContextUsed:  util.TruncateRunes(full, StoredContextLimit),
		AIAnswer:     answer,
		Confidence:   confidence,
		DocumentIDs:  documentIDs,
	})
	if err != nil {
		return Result{}, fmt.Errorf("save question: %w", err)
	}

	metrics.IncAnswerCompleted()
	metrics.ObserveAnswerDurationMs(telemetry.SinceMs(start))
	telemetry.Info("answer.completed", map[string]any{
		"question_id":    saved.ID,
		"owner_id":       ownerID,
		"document_count": len(docs),
		"context_chars":  len([]rune(full)),
		"confidence":     confidence,
		"fallback":       answer == FallbackAnswer,
		"duration_ms":    telemetry.SinceMs(start),
	})

	return Result{
		QuestionID:   saved.ID,
		QuestionText: saved.QuestionText,
		Answer:       answer,
		Confidence:   confidence,
		Context:      util.TruncateRunes(full, DisplayContextLimit),
		DocumentIDs:  documentIDs,
		CreatedDate:  saved.CreatedDate,
	}, nil
}
