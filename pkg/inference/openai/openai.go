package openai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"storystream/pkg/config"
	inferencetypes "storystream/pkg/inference/types"
	"storystream/pkg/relay"
)

// Client streams story completions from the OpenAI chat completions API.
// Deltas are re-encoded into the same fragment wire shape the Bedrock
// backend produces, so the client contract does not depend on the backend.
type Client struct {
	client osdk.Client
	cfg    config.InferenceConfig
	log    *slog.Logger
}

// New builds an OpenAI streamer. OPENAI_API_KEY must be set.
func New(cfg config.InferenceConfig, log *slog.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY must be set for the openai backend")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		client: osdk.NewClient(option.WithAPIKey(apiKey)),
		cfg:    cfg,
		log:    log.With("component", "inference.openai"),
	}, nil
}

// StreamStory starts a streaming chat completion for the story request.
func (c *Client) StreamStory(ctx context.Context, request inferencetypes.StoryRequest) (relay.FrameStream, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, osdk.ChatCompletionNewParams{
		Model: osdk.ChatModel(c.cfg.Model),
		Messages: []osdk.ChatCompletionMessageParamUnion{
			osdk.UserMessage(inferencetypes.UserPrompt(request.StoryType)),
		},
		MaxTokens:   osdk.Int(int64(c.cfg.MaxTokens)),
		Temperature: osdk.Float(c.cfg.Temperature),
		TopP:        osdk.Float(c.cfg.TopP),
	})
	if err := stream.Err(); err != nil {
		return nil, err
	}
	c.log.Debug("Chat completion stream opened", "model", c.cfg.Model)

	return &frameStream{stream: stream}, nil
}

// frameStream adapts chat completion chunks to the relay frame contract.
type frameStream struct {
	stream *ssestream.Stream[osdk.ChatCompletionChunk]
}

func (s *frameStream) Next(ctx context.Context) (relay.Frame, error) {
	if err := ctx.Err(); err != nil {
		return relay.Frame{}, err
	}

	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			// Usage-only chunks carry no delta; they are not part of the
			// fragment sequence.
			continue
		}

		payload, err := relay.EncodeFragment(fragmentFromChoice(chunk.Choices[0]))
		if err != nil {
			return relay.Frame{}, err
		}

		return relay.Frame{Kind: relay.FrameChunk, Payload: payload}, nil
	}

	if err := s.stream.Err(); err != nil {
		return relay.Frame{}, err
	}

	return relay.Frame{}, io.EOF
}

func (s *frameStream) Close() error {
	return s.stream.Close()
}

func fragmentFromChoice(choice osdk.ChatCompletionChunkChoice) relay.Fragment {
	fragment := relay.Fragment{
		Kind: "completion",
		Text: choice.Delta.Content,
	}
	if choice.FinishReason != "" {
		reason := choice.FinishReason
		fragment.StopReason = &reason
	}

	return fragment
}
