package cmd

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"photo-grouper/internal/models"
	"photo-grouper/internal/services"

	"github.com/spf13/cobra"
)

func newGroupCmd() *cobra.Command {
	var provider, description string

	cmd := &cobra.Command{
		Use:   "group <files...>",
		Short: "Group local photos and print the result as JSON",
		Example: `  # Group photos with the configured provider
  photo-grouper group photos/*.jpg

  # Offline run: byte-identical photos are grouped together
  photo-grouper group --provider stub a.jpg b.jpg a-copy.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{
				provider:  provider,
				logOutput: cmd.ErrOrStderr(),
				logFormat: "text",
			})
			if err != nil {
				return err
			}

			uploads, err := readUploads(args, a.cfg.Processing.MaxImageBytes)
			if err != nil {
				return err
			}

			out, runErr := a.pipeline().Run(cmd.Context(), uploads, description)
			response := models.BatchResponse{
				Success:       runErr == nil,
				BatchID:       out.BatchID,
				Results:       out.Results,
				TotalFiles:    out.TotalFiles,
				RejectedFiles: out.Rejected,
			}
			if response.Results == nil {
				response.Results = []models.ProductResult{}
			}
			if runErr != nil {
				response.Error = runErr.Error()
				response.RawResponse = services.RawResponse(runErr)
			} else {
				response.ProcessedCount = len(out.Items)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(response); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Model provider: claude, openai, gemini or stub (overrides MODEL_PROVIDER)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Seller notes passed to the model as context")

	return cmd
}

// readUploads loads local files as if they had been uploaded. Files over
// limit are not read so admission can reject them by size.
func readUploads(paths []string, limit int64) ([]models.Upload, error) {
	uploads := make([]models.Upload, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}

		upload := models.Upload{
			Filename:    filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Size:        info.Size(),
		}
		if info.Size() <= limit {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			upload.Data = data
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}
