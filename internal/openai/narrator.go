package openai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = `You explain one-day Value-at-Risk results to an individual investor.
Use plain language and at most 6 short bullet points. State what the numbers mean as a loss
threshold at the given confidence, compare the historical and parametric figures, and mention
any excluded instruments or warnings. Do not give trading advice and do not invent numbers.`

// Narrator turns a VaR summary into a short plain-language commentary.
type Narrator struct {
	cli   oa.Client
	model string
}

func NewNarrator(apiKey string, opts ...option.RequestOption) *Narrator {
	client := oa.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Narrator{cli: client, model: defaultModel}
}

func (n *Narrator) Explain(ctx context.Context, summary string) (string, error) {
	summary = sanitize(summary)
	if summary == "" {
		return "", errors.New("empty summary")
	}
	resp, err := n.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: n.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage("Explain these VaR results:\n" + summary),
		},
		MaxTokens: oa.Int(600), // keep it within one telegram message
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var reURL = regexp.MustCompile(`https?://\S+`)

// sanitize strips links and caps the prompt size.
func sanitize(text string) string {
	text = strings.TrimSpace(reURL.ReplaceAllString(text, ""))
	if len(text) > 4000 {
		text = text[:4000]
	}
	return text
}
