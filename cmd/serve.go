package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"storystream/pkg/config"
	"storystream/pkg/gateway"
	"storystream/pkg/inference"
	"storystream/pkg/logger"
	"storystream/pkg/relay"
	"storystream/pkg/sink"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay as a Lambda handler",
	Long:  "Starts the Lambda runtime and handles API Gateway WebSocket proxy events, one pipeline per default-route message.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.serve")

		// Clients are built once at cold start; only the per-connection
		// callback endpoint varies between invocations.
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithDefaultRegion(cfg.AWS.Region))
		if err != nil {
			log.Error("Failed to load AWS configuration", "error", err)
			return
		}

		streamer, err := inference.New(cfg, awsCfg, appLogger)
		if err != nil {
			log.Error("Failed to initialize inference backend", "error", err)
			return
		}

		sinks := func(endpoint string) relay.Sink {
			return sink.NewAPIGateway(awsCfg, endpoint, appLogger)
		}

		service, err := gateway.NewService(streamer, sinks, cfg.Relay.Capacity, appLogger)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Relay handler started", "backend", cfg.Inference.Backend, "model", cfg.Inference.Model, "capacity", cfg.Relay.Capacity)
		lambda.Start(service.HandleEvent)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
