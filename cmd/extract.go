package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadhook/internal/pipeline"
)

var (
	extractPayload string
	extractFormat  string
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Run the email lead extractor on a payload",
	Long:  "Reads an inbound email payload (a JSON object in Mailgun, SendGrid or generic shape) from a file, --payload or stdin and prints the normalized message, classification and extracted lead.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("offline"); err != nil {
			return err
		}
		ex := pipeline.Extractor{ServiceType: cfg.Business.ServiceType}
		return runExtract(cmd.InOrStdin(), cmd.OutOrStdout(), args, extractPayload, extractFormat, ex)
	},
}

func runExtract(in io.Reader, out io.Writer, args []string, inline, format string, ex pipeline.Extractor) error {
	payload, err := readPayload(in, args, inline)
	if err != nil {
		return err
	}
	return writeResult(out, format, ex.ProcessEmail(payload))
}

// readPayload loads a JSON object from inline text, the named file, or in.
func readPayload(in io.Reader, args []string, inline string) (map[string]any, error) {
	var data []byte
	var err error
	switch {
	case inline != "":
		data = []byte(inline)
	case len(args) == 1 && args[0] != "-":
		data, err = os.ReadFile(args[0])
		if err != nil {
			return nil, eris.Wrap(err, "read payload file")
		}
	default:
		data, err = io.ReadAll(in)
		if err != nil {
			return nil, eris.Wrap(err, "read payload from stdin")
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, eris.Wrap(err, "parse payload")
	}
	if payload == nil {
		return nil, eris.New("parse payload: expected a JSON object")
	}
	return payload, nil
}

func writeResult(out io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

func init() {
	extractCmd.Flags().StringVar(&extractPayload, "payload", "", "inline JSON payload instead of a file")
	extractCmd.Flags().StringVar(&extractFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(extractCmd)
}
