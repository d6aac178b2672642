package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"storystream/pkg/config"
	inferencetypes "storystream/pkg/inference/types"
	"storystream/pkg/relay"
)

// Client streams story completions from Amazon Bedrock via
// InvokeModelWithResponseStream.
type Client struct {
	client *bedrockruntime.Client
	cfg    config.InferenceConfig
	log    *slog.Logger
}

// claudeRequest is the Anthropic Claude text-completion request body.
type claudeRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float64  `json:"temperature"`
	TopK              int      `json:"top_k"`
	TopP              float64  `json:"top_p"`
	StopSequences     []string `json:"stop_sequences"`
}

// New builds a Bedrock streamer from a shared cold-start AWS config.
func New(cfg config.InferenceConfig, awsCfg aws.Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		client: bedrockruntime.NewFromConfig(awsCfg),
		cfg:    cfg,
		log:    log.With("component", "inference.bedrock"),
	}
}

// StreamStory issues the streaming invocation and adapts the SDK event
// stream into a relay.FrameStream.
func (c *Client) StreamStory(ctx context.Context, request inferencetypes.StoryRequest) (relay.FrameStream, error) {
	body, err := json.Marshal(claudeRequest{
		Prompt:            inferencetypes.Prompt(request.StoryType),
		MaxTokensToSample: c.cfg.MaxTokens,
		Temperature:       c.cfg.Temperature,
		TopK:              c.cfg.TopK,
		TopP:              c.cfg.TopP,
		StopSequences:     inferencetypes.StopSequences(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal model request: %w", err)
	}

	startedAt := time.Now()
	output, err := c.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(c.cfg.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke model with response stream: %w", err)
	}
	c.log.Debug("Model stream opened", "model", c.cfg.Model, "duration_ms", time.Since(startedAt).Milliseconds())

	return &frameStream{stream: output.GetStream()}, nil
}

// frameStream adapts the Bedrock event stream to the relay frame contract.
type frameStream struct {
	stream *bedrockruntime.InvokeModelWithResponseStreamEventStream
}

func (s *frameStream) Next(ctx context.Context) (relay.Frame, error) {
	select {
	case <-ctx.Done():
		return relay.Frame{}, ctx.Err()
	case event, ok := <-s.stream.Events():
		if !ok {
			if err := s.stream.Err(); err != nil {
				return relay.Frame{}, fmt.Errorf("bedrock stream: %w", err)
			}
			return relay.Frame{}, io.EOF
		}

		switch value := event.(type) {
		case *bedrocktypes.ResponseStreamMemberChunk:
			return relay.Frame{Kind: relay.FrameChunk, Payload: value.Value.Bytes}, nil
		default:
			// Surface the concrete type; the ingest worker treats any
			// non-chunk frame as a protocol violation.
			return relay.Frame{Kind: relay.FrameKind(fmt.Sprintf("%T", event))}, nil
		}
	}
}

func (s *frameStream) Close() error {
	return s.stream.Close()
}
