package gitdict

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	openai "github.com/sashabaranov/go-openai"
)

const dedupToolName = "check_duplicate"

// DedupResult explains why a draft was kept or dropped
type DedupResult struct {
	IsDuplicate bool   `json:"is_duplicate"`
	Reason      string `json:"reason"`
	DuplicateID int64  `json:"duplicate_id,omitempty"` // stored question it repeats, 0 for an earlier draft
}

// dedupEntry is a question already accepted, labelled Q<id> when stored and
// D<n> when it is an earlier draft of the batch
type dedupEntry struct {
	label         string
	text          string
	choices       [4]string
	correctChoice int
	explanation   string
}

// QuestionDedup rejects drafted questions that repeat a stored question or an
// earlier draft of the same batch. Texts that match after case folding and
// punctuation removal are duplicates outright; with a model attached, the
// remaining drafts are also checked for reworded repeats.
type QuestionDedup struct {
	seen     map[string]int64
	accepted []dedupEntry
	drafts   int

	client *openai.Client
	model  string
	opts   *options
}

// NewQuestionDedup seeds a text-only deduplicator with the stored questions
func NewQuestionDedup(existing []QuizQuestion, opts ...Option) *QuestionDedup {
	qd := &QuestionDedup{
		seen: make(map[string]int64, len(existing)),
		opts: applyOptions(opts),
	}
	for _, q := range existing {
		qd.seen[normalizeQuestion(q.Text)] = q.ID
		qd.accepted = append(qd.accepted, dedupEntry{
			label:         fmt.Sprintf("Q%d", q.ID),
			text:          q.Text,
			choices:       q.Choices,
			correctChoice: q.CorrectChoice,
			explanation:   q.Explanation,
		})
	}
	return qd
}

// NewDedup returns a deduplicator that asks the drafter's model about
// reworded repeats
func (d *QuestionDrafter) NewDedup(existing []QuizQuestion) *QuestionDedup {
	qd := NewQuestionDedup(existing)
	qd.client = d.client
	qd.model = d.model
	qd.opts = d.opts
	return qd
}

// CheckDuplicate reports whether draft repeats a known question. Unique
// drafts are remembered so a later repeat is rejected.
func (qd *QuestionDedup) CheckDuplicate(ctx context.Context, draft NewQuestion) (DedupResult, error) {
	key := normalizeQuestion(draft.Text)
	if key == "" {
		return DedupResult{IsDuplicate: true, Reason: "empty question text"}, nil
	}
	if id, ok := qd.seen[key]; ok {
		if id == 0 {
			return DedupResult{IsDuplicate: true, Reason: "repeats an earlier draft"}, nil
		}
		return DedupResult{IsDuplicate: true, Reason: "repeats an existing question", DuplicateID: id}, nil
	}

	result := DedupResult{Reason: "unique"}
	if qd.client != nil && len(qd.accepted) > 0 {
		var err error
		result, err = qd.askModel(ctx, draft)
		if err != nil {
			return DedupResult{}, err
		}
	}
	if !result.IsDuplicate {
		qd.remember(key, draft)
	}
	VerboseLog("draft %q: duplicate=%v, reason=%s", draft.Text, result.IsDuplicate, result.Reason)
	return result, nil
}

// Filter keeps the drafts that repeat neither stored questions nor each
// other, preserving order. It returns the kept drafts and the number dropped.
// A draft whose model check fails is kept; the admin still reviews it.
func (qd *QuestionDedup) Filter(ctx context.Context, drafts []NewQuestion) ([]NewQuestion, int) {
	kept := make([]NewQuestion, 0, len(drafts))
	for _, d := range drafts {
		result, err := qd.CheckDuplicate(ctx, d)
		if err != nil {
			qd.opts.logger.Warn("duplicate check failed, keeping draft", "question", d.Text, "error", err)
			qd.remember(normalizeQuestion(d.Text), d)
			kept = append(kept, d)
			continue
		}
		if result.IsDuplicate {
			continue
		}
		kept = append(kept, d)
	}
	return kept, len(drafts) - len(kept)
}

func (qd *QuestionDedup) remember(key string, draft NewQuestion) {
	qd.drafts++
	qd.seen[key] = 0
	qd.accepted = append(qd.accepted, dedupEntry{
		label:         fmt.Sprintf("D%d", qd.drafts),
		text:          draft.Text,
		choices:       draft.Choices,
		correctChoice: draft.CorrectChoice,
		explanation:   draft.Explanation,
	})
}

func (qd *QuestionDedup) askModel(ctx context.Context, draft NewQuestion) (DedupResult, error) {
	var existing strings.Builder
	existing.WriteString("Existing accepted questions:\n\n")
	for _, e := range qd.accepted {
		writeDedupEntry(&existing, e)
	}

	var candidate strings.Builder
	candidate.WriteString("New question to check:\n\n")
	writeDedupEntry(&candidate, dedupEntry{
		label:         "NEW",
		text:          draft.Text,
		choices:       draft.Choices,
		correctChoice: draft.CorrectChoice,
		explanation:   draft.Explanation,
	})

	prompt := existing.String() + candidate.String() + buildEvaluationCriteria()
	VerboseLog("LLM request (%s):\n%s", dedupToolName, prompt)

	resp, err := qd.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: qd.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an expert at detecting duplicate quiz questions. Compare the new question against existing questions and determine if it's a duplicate.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        dedupToolName,
						Description: "Check if the new question is a duplicate of any existing question",
						Parameters: map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"reason": map[string]interface{}{
									"type":        "string",
									"description": "Explanation for the decision",
								},
								"is_duplicate": map[string]interface{}{
									"type":        "boolean",
									"description": "Whether the new question is a duplicate",
								},
								"duplicate_id": map[string]interface{}{
									"type":        "string",
									"description": "ID of the duplicate question if found (empty if not a duplicate)",
								},
							},
							"required": []string{"reason", "is_duplicate"},
						},
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: dedupToolName},
			},
		},
	)
	if err != nil {
		return DedupResult{}, fmt.Errorf("failed to check duplicate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return DedupResult{}, fmt.Errorf("no response from model")
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return DedupResult{}, fmt.Errorf("no tool calls in response")
	}
	toolCall := choice.Message.ToolCalls[0]
	VerboseLog("LLM response (%s):\n%s", toolCall.Function.Name, toolCall.Function.Arguments)
	if toolCall.Function.Name != dedupToolName {
		return DedupResult{}, fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}

	var toolArgs struct {
		Reason      string `json:"reason"`
		IsDuplicate bool   `json:"is_duplicate"`
		DuplicateID string `json:"duplicate_id"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
		return DedupResult{}, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	result := DedupResult{IsDuplicate: toolArgs.IsDuplicate, Reason: toolArgs.Reason}
	if result.IsDuplicate && strings.HasPrefix(toolArgs.DuplicateID, "Q") {
		// a label the model made up leaves the id at 0
		result.DuplicateID, _ = strconv.ParseInt(toolArgs.DuplicateID[1:], 10, 64)
	}
	return result, nil
}

func writeDedupEntry(sb *strings.Builder, e dedupEntry) {
	correct := ClampChoice(e.correctChoice)
	sb.WriteString(fmt.Sprintf("ID: %s\n", e.label))
	sb.WriteString(fmt.Sprintf("Question: %s\n", e.text))
	sb.WriteString("Options:\n")
	for i, option := range e.choices {
		marker := " "
		if i == correct {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s%d. %s\n", marker, i+1, option))
	}
	sb.WriteString(fmt.Sprintf("Correct Answer: %d\n", correct+1))
	if e.explanation != "" {
		sb.WriteString(fmt.Sprintf("Explanation: %s\n", e.explanation))
	}
	sb.WriteString("\n")
}

func buildEvaluationCriteria() string {
	return `Evaluation criteria for duplicates:

1. EXACT DUPLICATES: Same question text, same options, same correct answer
2. NEAR-DUPLICATES:
   - Same concept tested but different wording
   - Same question with minor rephrasing
   - Questions that test the same knowledge point about the same Git command
3. NOT DUPLICATES:
   - Different commands or concepts, even within the same term
   - Same command but a genuinely different aspect (what it does vs. when to avoid it)

Use the ` + dedupToolName + ` tool and set duplicate_id to the ID of the matching question.`
}

func normalizeQuestion(text string) string {
	var sb strings.Builder
	space := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteRune(r)
		default:
			space = true
		}
	}
	return sb.String()
}
