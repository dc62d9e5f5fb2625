package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	apprender "github.com/ROJSUWAN/n8n-video-renderer/application/render"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/queue"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	renderInput  string
	renderOutput string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one request synchronously",
	Long: `Render a request body (the JSON that n8n posts to /render) without the
HTTP server. The video is uploaded to the configured storage and notifiers
run as usual.

Examples:
  n8n-video-renderer render --input request.json
  n8n-video-renderer render --input request.json --output ./PTT.mp4
  cat request.json | n8n-video-renderer render --input -`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderInput, "input", "i", "", "Request JSON file, or - for stdin (required)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Also write the MP4 to this path")
	renderCmd.MarkFlagRequired("input")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	req, err := readRequest(renderInput, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.preflight(ctx); err != nil {
		return err
	}

	// Nothing is enqueued: RenderNow runs in this goroutine
	submitter := apprender.NewSubmitter(c.store, queue.NewMemory(1, 1, zerolog.Nop()), c.service, c.uploads.Destination())
	return RunRenderWithDependencies(ctx, submitter, req, renderOutput, os.Stdout)
}

// RunRenderWithDependencies runs the render command with injected dependencies (for testing)
func RunRenderWithDependencies(ctx context.Context, submitter *apprender.Submitter, req *render.Request, outputPath string, out OutputWriter) error {
	fmt.Fprintf(out, "Rendering %d scene(s) for %s...\n", len(req.Data), req.StockSymbol)

	job, res, err := submitter.RenderNow(ctx, req, outputPath != "")
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, res.Video, 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(out, "Saved: %s\n", outputPath)
	}

	fmt.Fprintf(out, "Job: %s\n", job.ID)
	fmt.Fprintf(out, "File: %s\n", res.Filename)
	fmt.Fprintf(out, "URL: %s\n", res.URL)
	return nil
}

func readRequest(path string, stdin io.Reader) (*render.Request, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}

	var req render.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &req, nil
}
