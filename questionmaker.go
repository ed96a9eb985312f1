package gitdict

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const draftToolName = "submit_questions"

// QuestionDrafter drafts quiz questions about glossary terms with an OpenAI
// chat model. Drafts are never stored directly; an admin submits them through
// QuizStore.InsertQuestion.
type QuestionDrafter struct {
	client *openai.Client
	model  string
	opts   *options
}

// NewQuestionDrafter creates a drafter using client. An empty model selects
// gpt-4o-mini.
func NewQuestionDrafter(client *openai.Client, model string, opts ...Option) *QuestionDrafter {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &QuestionDrafter{client: client, model: model, opts: applyOptions(opts)}
}

// NewQuestionDrafterFromKey creates a drafter talking to the public OpenAI API
func NewQuestionDrafterFromKey(apiKey, model string, opts ...Option) *QuestionDrafter {
	return NewQuestionDrafter(openai.NewClient(apiKey), model, opts...)
}

// DraftQuestions asks for n questions about term. Drafts that do not have
// exactly four choices or fail validation are dropped.
func (d *QuestionDrafter) DraftQuestions(ctx context.Context, term Term, n int) ([]NewQuestion, error) {
	if n <= 0 {
		n = 1
	}
	d.opts.logger.Info("drafting quiz questions", "term", term.ID, "count", n, "model", d.model)
	prompt := buildDraftPrompt(term, n)
	VerboseLog("LLM request (%s):\n%s", draftToolName, prompt)

	resp, err := d.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: d.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You write multiple choice questions for people learning Git. Every question has exactly 4 options.",
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
						Name:        draftToolName,
						Description: "Submit drafted quiz questions",
						Parameters: map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"questions": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"question_text": map[string]interface{}{
												"type":        "string",
												"description": "The question text",
											},
											"choices": map[string]interface{}{
												"type":        "array",
												"items":       map[string]interface{}{"type": "string"},
												"description": "Exactly 4 answer choices",
											},
											"correct_choice": map[string]interface{}{
												"type":        "integer",
												"description": "1-based position of the correct choice",
											},
											"explanation": map[string]interface{}{
												"type":        "string",
												"description": "Why the correct choice is right",
											},
										},
										"required": []string{"question_text", "choices", "correct_choice", "explanation"},
									},
								},
							},
							"required": []string{"questions"},
						},
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: draftToolName},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to draft questions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool calls in response")
	}
	toolCall := choice.Message.ToolCalls[0]
	VerboseLog("LLM response (%s):\n%s", toolCall.Function.Name, toolCall.Function.Arguments)
	if toolCall.Function.Name != draftToolName {
		return nil, fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}

	var toolArgs struct {
		Questions []struct {
			Text          string   `json:"question_text"`
			Choices       []string `json:"choices"`
			CorrectChoice int      `json:"correct_choice"`
			Explanation   string   `json:"explanation"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	drafts := make([]NewQuestion, 0, len(toolArgs.Questions))
	for _, q := range toolArgs.Questions {
		if len(q.Choices) != 4 {
			VerboseLog("dropping draft with %d choices: %q", len(q.Choices), q.Text)
			continue
		}
		draft := NewQuestion{
			Text:          q.Text,
			CorrectChoice: q.CorrectChoice,
			Explanation:   q.Explanation,
		}
		copy(draft.Choices[:], q.Choices)
		if err := draft.Validate(); err != nil {
			VerboseLog("dropping invalid draft %q: %v", q.Text, err)
			continue
		}
		drafts = append(drafts, draft.Trimmed())
	}

	d.opts.logger.Info("drafted quiz questions", "term", term.ID, "received", len(toolArgs.Questions), "kept", len(drafts))
	return drafts, nil
}

func buildDraftPrompt(term Term, n int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Write %d multiple choice questions about the Git term %q.\n\n", n, term.Name))
	sb.WriteString("Reference material:\n")
	sb.WriteString(term.ShortDescription)
	sb.WriteString("\n")
	if term.FullDescription != "" {
		sb.WriteString(term.FullDescription)
		sb.WriteString("\n")
	}
	for _, ex := range term.Examples {
		sb.WriteString("Example: ")
		sb.WriteString(ex)
		sb.WriteString("\n")
	}

	sb.WriteString("\nRequirements:\n")
	sb.WriteString("- Each question must have exactly 4 choices\n")
	sb.WriteString("- correct_choice is the 1-based position of the right choice\n")
	sb.WriteString("- Wrong choices should be plausible\n")
	sb.WriteString("- Do not give the answer away in the question text\n")
	sb.WriteString("- Use the " + draftToolName + " tool to return your questions\n")

	return sb.String()
}
