package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadhook/internal/pipeline"
)

var transformPayload string

var transformCmd = &cobra.Command{
	Use:   "transform [file]",
	Short: "Convert a Zapier lead payload to the PCM CRM shape",
	Long:  "Reads a structured Zapier/Thumbtack payload from a file, --payload or stdin and prints the lead exactly as it would be sent to the CRM.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransform(cmd.InOrStdin(), cmd.OutOrStdout(), args, transformPayload, time.Now())
	},
}

func runTransform(in io.Reader, out io.Writer, args []string, inline string, now time.Time) error {
	raw, err := readPayload(in, args, inline)
	if err != nil {
		return err
	}
	return writeResult(out, "json", pipeline.TransformZapier(raw, now))
}

func init() {
	transformCmd.Flags().StringVar(&transformPayload, "payload", "", "inline JSON payload instead of a file")
	rootCmd.AddCommand(transformCmd)
}
