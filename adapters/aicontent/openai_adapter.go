// Package aicontent generates media metadata fields from transcripts with
// the OpenAI chat-completion API.
package aicontent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/config"
	"github.com/agrostream/studio-api/pkg/logger"
)

// Prompts reference the platform's editorial line: educational agronomy and
// livestock video content.
const basePrompt = "You are an expert in agronomy, livestock farming and digital marketing. " +
	"Your goal is to help create engaging, educational content for an agricultural video platform."

// The host truncates long transcripts before prompting; enough context for
// metadata, small enough to stay inside the model's input budget.
const maxTranscriptChars = 15000

type openAIAdapter struct {
	client *openai.Client
	model  string
	log    logger.Logger
}

func NewOpenAIAdapter(cfg config.Config, log logger.Logger) (service.Generator, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("openai api_key has not been configured")
	}
	model := cfg.OpenAI.Model
	if model == "" {
		model = openai.GPT4o
	}

	log.Info("OpenAI content generator initialized")
	return &openAIAdapter{
		client: openai.NewClient(cfg.OpenAI.APIKey),
		model:  model,
		log:    log,
	}, nil
}

func (a *openAIAdapter) Generate(ctx context.Context, transcript string, kind service.FieldKind) (string, error) {
	systemPrompt, userPrompt, err := buildPrompts(transcript, kind)
	if err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.7,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no chat choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	text = strings.Trim(text, `"`)
	return text, nil
}

func buildPrompts(transcript string, kind service.FieldKind) (string, string, error) {
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars]
	}

	var systemSuffix, task string
	switch kind {
	case service.FieldTitle:
		systemSuffix = " Generate an engaging, short title (60 characters max) optimized for SEO and video platforms."
		task = "Generate 1 title option for a video."
	case service.FieldDescription:
		systemSuffix = " Generate a detailed description for a video/educational platform. Use emojis sparingly."
		task = "Generate a 2-3 paragraph description."
	case service.FieldSummary:
		systemSuffix = " Generate a structured summary in Markdown format (bullets, headers)."
		task = "Create an educational summary based on the transcript."
	default:
		return "", "", fmt.Errorf("unknown field kind %q", kind)
	}

	userPrompt := fmt.Sprintf("%s\n\nTranscript:\n%q", task, transcript)
	return basePrompt + systemSuffix, userPrompt, nil
}
