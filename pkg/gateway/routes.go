package gateway

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"storystream/pkg/relay"
)

// RouteDecision classifies the inbound event's route key. The set is
// closed; anything outside it is RouteUnknown, never a silent fallthrough.
type RouteDecision int

const (
	RouteUnknown RouteDecision = iota
	RouteConnect
	RouteDisconnect
	RouteDefault
)

const (
	routeKeyConnect    = "$connect"
	routeKeyDisconnect = "$disconnect"
	routeKeyDefault    = "$default"
)

// DecideRoute maps a WebSocket route key to a RouteDecision.
func DecideRoute(routeKey string) RouteDecision {
	switch routeKey {
	case routeKeyConnect:
		return RouteConnect
	case routeKeyDisconnect:
		return RouteDisconnect
	case routeKeyDefault:
		return RouteDefault
	default:
		return RouteUnknown
	}
}

// ConnectionContext is the per-invocation connection identity extracted
// from the request context. It is never persisted.
type ConnectionContext struct {
	ConnectionID string
	Domain       string
	Stage        string
}

// ConnectionContextFromEvent extracts the connection identity, failing
// fast with an input error before any pipeline work when a field is absent.
func ConnectionContextFromEvent(event events.APIGatewayWebsocketProxyRequest) (ConnectionContext, error) {
	requestContext := event.RequestContext

	connectionID := strings.TrimSpace(requestContext.ConnectionID)
	if connectionID == "" {
		return ConnectionContext{}, relay.NewError(relay.ErrorInput, "missing connection id")
	}

	domain := strings.TrimSpace(requestContext.DomainName)
	if domain == "" {
		return ConnectionContext{}, relay.NewError(relay.ErrorInput, "missing domain name")
	}

	stage := strings.TrimSpace(requestContext.Stage)
	if stage == "" {
		return ConnectionContext{}, relay.NewError(relay.ErrorInput, "missing stage")
	}

	return ConnectionContext{
		ConnectionID: connectionID,
		Domain:       domain,
		Stage:        stage,
	}, nil
}

// PushEndpoint builds the API Gateway Management API callback endpoint for
// this connection's domain and stage.
func (c ConnectionContext) PushEndpoint() string {
	return "https://" + c.Domain + "/" + c.Stage
}
