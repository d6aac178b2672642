package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"storystream/pkg/config"
	"storystream/pkg/inference"
	inferencetypes "storystream/pkg/inference/types"
	"storystream/pkg/logger"
	"storystream/pkg/relay"
	"storystream/pkg/sink"
)

var storyType string

var storyCmd = &cobra.Command{
	Use:   "story [story type]",
	Short: "Stream one story to stdout",
	Long:  "Runs the same ingest/dispatch pipeline used by the Lambda handler, with stdout standing in for the WebSocket connection.",
	Run: func(cmd *cobra.Command, args []string) {
		requested := resolveStoryType(args)
		if requested == "" {
			fmt.Println("a story type is required, for example: storystream story \"a brave gopher\"")
			return
		}

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

		ctx := context.Background()
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithDefaultRegion(cfg.AWS.Region))
		if err != nil {
			fmt.Printf("failed to load AWS configuration: %v\n", err)
			return
		}

		streamer, err := inference.New(cfg, awsCfg, appLogger)
		if err != nil {
			fmt.Printf("failed to initialize inference backend: %v\n", err)
			return
		}

		stream, err := streamer.StreamStory(ctx, inferencetypes.StoryRequest{StoryType: requested})
		if err != nil {
			fmt.Printf("failed to start story stream: %v\n", err)
			return
		}

		pipeline := relay.NewPipeline(cfg.Relay.Capacity, appLogger)
		if err := pipeline.Run(ctx, stream, sink.NewWriter(os.Stdout), "stdout"); err != nil {
			fmt.Printf("\nstory pipeline failed: %v\n", err)
			return
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(storyCmd)
	storyCmd.Flags().StringVarP(&storyType, "type", "t", "", "story type to request")
}

func resolveStoryType(args []string) string {
	if value := strings.TrimSpace(storyType); value != "" {
		return value
	}

	if len(args) == 0 {
		return ""
	}

	return strings.TrimSpace(strings.Join(args, " "))
}
