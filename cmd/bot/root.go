package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultConfigFile = "config.yaml"

// newRootCmd builds the command tree. Running the binary without a
// subcommand starts the bot.
func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "intent-bot",
		Short: "Telegram bot that answers by intent",
		Long: `intent-bot classifies incoming Telegram messages into intents with a
pre-trained model, replies with one of the intent's responses and optionally
records the conversation for a small web dashboard.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file (missing file is ignored)")

	root.AddCommand(newRunCmd(&cfgFile))
	root.AddCommand(newClassifyCmd())
	return root
}

func newRunCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Telegram bot and the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), *cfgFile)
		},
	}
}

// newLogger builds a production logger unless mode asks for development output.
func newLogger(mode string) (*zap.Logger, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "dev", "development":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
