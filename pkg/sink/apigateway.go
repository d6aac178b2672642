package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

// APIGateway pushes payloads to a WebSocket client through the API Gateway
// Management API. One instance serves one callback endpoint (domain+stage);
// the connection id is chosen per push.
type APIGateway struct {
	client *apigatewaymanagementapi.Client
	log    *slog.Logger
}

// NewAPIGateway builds a push sink for the given callback endpoint from a
// shared cold-start AWS config.
func NewAPIGateway(awsCfg aws.Config, endpoint string, log *slog.Logger) *APIGateway {
	if log == nil {
		log = slog.Default()
	}

	client := apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &APIGateway{
		client: client,
		log:    log.With("component", "sink.apigateway"),
	}
}

// Push posts one payload to the connection. Any failure is fatal to the
// caller's pipeline; there is no retry, a stale connection included.
func (s *APIGateway) Push(ctx context.Context, connectionID string, payload []byte) error {
	_, err := s.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	if err == nil {
		return nil
	}

	var gone *apigwtypes.GoneException
	if errors.As(err, &gone) {
		s.log.Warn("Client connection is gone", "connection_id", connectionID)
		return fmt.Errorf("connection %s gone: %w", connectionID, err)
	}

	return fmt.Errorf("post to connection %s: %w", connectionID, err)
}
