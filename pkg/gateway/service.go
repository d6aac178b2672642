package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"storystream/pkg/inference"
	inferencetypes "storystream/pkg/inference/types"
	"storystream/pkg/relay"
)

// SinkFactory builds a push sink bound to one callback endpoint. The
// endpoint depends on the inbound event's domain and stage, so sinks are
// created per invocation.
type SinkFactory func(endpoint string) relay.Sink

// Service handles one API Gateway WebSocket proxy event per invocation:
// lifecycle routes are acknowledged, default-route messages start a story
// pipeline that relays inference fragments back to the caller's connection.
type Service struct {
	streamer inference.Streamer
	sinks    SinkFactory
	pipeline *relay.Pipeline
	log      *slog.Logger
}

// NewService wires the gateway from its collaborators.
func NewService(streamer inference.Streamer, sinks SinkFactory, capacity int, log *slog.Logger) (*Service, error) {
	if streamer == nil {
		return nil, errors.New("inference streamer is required")
	}
	if sinks == nil {
		return nil, errors.New("sink factory is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		streamer: streamer,
		sinks:    sinks,
		pipeline: relay.NewPipeline(capacity, log),
		log:      log.With("component", "gateway.service"),
	}, nil
}

// HandleEvent is the Lambda entrypoint. Lifecycle and pipeline successes
// return 200, an unrecognized route returns 400 "Unknown route", and every
// other failure surfaces as an invocation error.
func (s *Service) HandleEvent(ctx context.Context, event events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connection, err := ConnectionContextFromEvent(event)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	log := s.log.With("request_id", uuid.NewString(), "connection_id", connection.ConnectionID)

	switch DecideRoute(event.RequestContext.RouteKey) {
	case RouteConnect:
		log.Info("New connection")
		return events.APIGatewayProxyResponse{StatusCode: 200, Body: "Connected...: $connect"}, nil

	case RouteDisconnect:
		log.Info("Connection closed")
		return events.APIGatewayProxyResponse{StatusCode: 200, Body: "Disconnected...: $disconnect"}, nil

	case RouteDefault:
		if err := s.handleDefault(ctx, log, connection, event.Body); err != nil {
			return events.APIGatewayProxyResponse{}, err
		}
		return events.APIGatewayProxyResponse{StatusCode: 200, Body: "Message processed...: $default"}, nil

	default:
		log.Warn("Unknown route", "route_key", event.RequestContext.RouteKey)
		return events.APIGatewayProxyResponse{StatusCode: 400, Body: "Unknown route"}, nil
	}
}

// handleDefault parses the story request, opens the inference stream, and
// relays every fragment to the caller's connection in order.
func (s *Service) handleDefault(ctx context.Context, log *slog.Logger, connection ConnectionContext, body string) error {
	request, err := parseStoryRequest(body)
	if err != nil {
		return err
	}
	log.Info("Story requested", "story_type", request.StoryType)

	stream, err := s.streamer.StreamStory(ctx, request)
	if err != nil {
		return fmt.Errorf("start story stream: %w", err)
	}

	sink := s.sinks(connection.PushEndpoint())
	if err := s.pipeline.Run(ctx, stream, sink, connection.ConnectionID); err != nil {
		log.Error("Story pipeline failed", "category", relay.CategoryFromError(err), "error", err)
		return err
	}

	log.Info("Story relayed")
	return nil
}

func parseStoryRequest(body string) (inferencetypes.StoryRequest, error) {
	if strings.TrimSpace(body) == "" {
		return inferencetypes.StoryRequest{}, relay.NewError(relay.ErrorInput, "missing request body")
	}

	var request inferencetypes.StoryRequest
	if err := json.Unmarshal([]byte(body), &request); err != nil {
		return inferencetypes.StoryRequest{}, relay.WrapError(relay.ErrorInput, "parse request body", err)
	}
	if strings.TrimSpace(request.StoryType) == "" {
		return inferencetypes.StoryRequest{}, relay.NewError(relay.ErrorInput, "storyType is required")
	}

	return request, nil
}
