package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xaenox/intent-bot/internal/classifier"
	"go.uber.org/zap"
)

// newClassifyCmd runs the artifact classifier over its arguments without
// touching Telegram or the store.
func newClassifyCmd() *cobra.Command {
	var modelPath string

	cmd := &cobra.Command{
		Use:   "classify <text...>",
		Short: "Print the intent tag and a response for the given text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := classifier.LoadArtifact(modelPath)
			if err != nil {
				return err
			}
			clf := classifier.FromArtifact(artifact, zap.NewNop())

			tag, err := clf.Tag(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tag: %s\n", tag)
			fmt.Fprintf(out, "response: %s\n", clf.Respond(tag))
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "model/intents.json", "path to the intent model artifact")
	return cmd
}
