package inference

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"storystream/pkg/config"
	"storystream/pkg/inference/bedrock"
	"storystream/pkg/inference/openai"
	inferencetypes "storystream/pkg/inference/types"
	"storystream/pkg/relay"
)

// Streamer starts one streamed story generation and hands back the open
// frame stream. Implementations must not buffer the whole response.
type Streamer interface {
	StreamStory(ctx context.Context, request inferencetypes.StoryRequest) (relay.FrameStream, error)
}

// New resolves the configured inference backend.
func New(cfg *config.Config, awsCfg aws.Config, log *slog.Logger) (Streamer, error) {
	backend := cfg.Inference.Backend

	slog.Default().With("component", "inference.factory").Debug("Resolving inference backend", "backend", backend)

	switch backend {
	case "bedrock":
		return bedrock.New(cfg.Inference, awsCfg, log), nil
	case "openai":
		return openai.New(cfg.Inference, log)
	default:
		return nil, fmt.Errorf("unsupported inference backend: %s", backend)
	}
}
