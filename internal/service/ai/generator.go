package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coauthor/backend/internal/config"
	"github.com/coauthor/backend/internal/model/story"
)

// fallback shown when generation fails for any reason. The single choice is a
// retry affordance so the story is never left with no way forward.
const (
	fallbackContent = "The ink has run dry momentarily. Please try regenerating."
	fallbackChoice  = "Try again"
)

// Gateway is the boundary to the external generation service. One invocation
// makes exactly one outbound call; no retries.
type Gateway struct {
	chatModel model.ChatModel
	logger    zerolog.Logger
}

// NewGateway builds the gateway from configuration.
func NewGateway(ctx context.Context, cfg config.AIConfig) (*Gateway, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewGatewayWithModel(chatModel), nil
}

// NewGatewayWithModel wraps an existing chat model. Used by tests.
func NewGatewayWithModel(chatModel model.ChatModel) *Gateway {
	return &Gateway{
		chatModel: chatModel,
		logger:    log.With().Str("component", "gateway").Logger(),
	}
}

// Generate compiles the request and asks the model for the next segment.
// On failure it returns the degraded fallback segment together with the
// error, so callers can keep the story moving or roll back as their
// transition requires.
func (g *Gateway) Generate(ctx context.Context, setup story.Setup, history []story.Message, memories []story.Memory, freeInput string) (story.Segment, error) {
	turns := CompilePrompt(setup, history, activeOnly(memories), freeInput)
	input := append([]*schema.Message{schema.SystemMessage(systemDirective)}, turns...)

	reply, err := g.chatModel.Generate(ctx, input)
	if err != nil {
		g.logger.Error().Err(err).Int("turns", len(turns)).Msg("generation call failed")
		return fallbackSegment(), fmt.Errorf("generation failed: %w", err)
	}

	seg, err := parseSegment(reply.Content)
	if err != nil {
		g.logger.Error().Err(err).Msg("structured payload rejected")
		return fallbackSegment(), fmt.Errorf("malformed generation payload: %w", err)
	}

	g.logger.Debug().Int("turns", len(turns)).Int("choices", len(seg.Choices)).Msg("segment generated")
	return seg, nil
}

func activeOnly(memories []story.Memory) []story.Memory {
	out := make([]story.Memory, 0, len(memories))
	for _, m := range memories {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}

// structuredReply mirrors the JSON shape the system directive demands.
type structuredReply struct {
	StorySegment string   `json:"story_segment"`
	Choices      []string `json:"choices"`
}

// parseSegment decodes the model reply. A surrounding markdown code fence is
// tolerated; an empty narrative or empty choice list is rejected.
func parseSegment(raw string) (story.Segment, error) {
	trimmed := stripCodeFence(strings.TrimSpace(raw))
	if trimmed == "" {
		return story.Segment{}, fmt.Errorf("empty reply")
	}

	var reply structuredReply
	if err := json.Unmarshal([]byte(trimmed), &reply); err != nil {
		return story.Segment{}, fmt.Errorf("decode reply: %w", err)
	}

	if strings.TrimSpace(reply.StorySegment) == "" {
		return story.Segment{}, fmt.Errorf("missing story_segment")
	}
	if len(reply.Choices) == 0 {
		return story.Segment{}, fmt.Errorf("missing choices")
	}

	return story.Segment{Content: reply.StorySegment, Choices: reply.Choices}, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func fallbackSegment() story.Segment {
	return story.Segment{
		Content: fallbackContent,
		Choices: []string{fallbackChoice},
	}
}
