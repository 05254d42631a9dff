package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var extractSchema string

// schemasCmd lists the extraction schemas the daemon supports
var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the extraction schemas paneld supports",
	RunE:  runSchemas,
}

// extractCmd runs structured extraction over text from a file or stdin
var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract structured data from a file or stdin",
	Long: `Extract structured data from free text using the paneld daemon.

Examples:
  # Extract deal data from a file
  panelctl extract --schema deal_flow pitch.txt

  # Extract from stdin
  pbpaste | panelctl extract --schema network -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractSchema, "schema", "deal_flow", "extraction schema type")
}

// ExtractRequest matches internal/server extractRequest
type ExtractRequest struct {
	Text       string `json:"text"`
	SchemaType string `json:"schema_type"`
}

// runSchemas handles the schemas command
func runSchemas(cmd *cobra.Command, args []string) error {
	env, err := getEnvelope("/v1/schemas")
	if err != nil {
		return err
	}
	if !env.success() {
		return fmt.Errorf("schemas request failed: %s", env.errorString())
	}

	schemas, _ := env["schemas"].([]any)
	for _, raw := range schemas {
		schema, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("%-20v %v\n", schema["value"], schema["display_name"])
	}
	return nil
}

// runExtract handles the extract command
func runExtract(cmd *cobra.Command, args []string) error {
	var content []byte
	var err error

	// Read input from file or stdin
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}

	if len(content) == 0 {
		return fmt.Errorf("no text to extract from")
	}

	reqJSON, err := json.Marshal(ExtractRequest{
		Text:       string(content),
		SchemaType: extractSchema,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	env, err := postEnvelope("/v1/extract", bytes.NewReader(reqJSON))
	if err != nil {
		return err
	}
	if !env.success() {
		return fmt.Errorf("extraction failed: %s", env.errorString())
	}

	out, err := json.MarshalIndent(env["extracted_data"], "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format extracted data: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
