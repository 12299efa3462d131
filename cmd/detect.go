package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	app "leafscan/internal/application"
	"leafscan/internal/domain/entity"
)

type detectReport struct {
	Image       string             `json:"image"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Detections  []entity.Detection `json:"detections"`
	Annotated   string             `json:"annotated,omitempty"`
	RecordID    string             `json:"record_id,omitempty"`
	Description string             `json:"description,omitempty"`
}

func newDetectCmd(envFile *string) *cobra.Command {
	var (
		out    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Analyse a single leaf image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := setup(*envFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					log.WithError(err).Warn("close model")
				}
			}()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			result, err := c.InspectionService.Analyze(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("process image: %w", err)
			}

			if out != "" && result.Result.HasDetections {
				if err := os.WriteFile(out, result.Annotated, 0o644); err != nil {
					return fmt.Errorf("write annotated image: %w", err)
				}
			}

			w := cmd.OutOrStdout()
			if asJSON {
				report := toReport(args[0], out, result)
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			if !result.Result.HasDetections {
				fmt.Fprintln(w, "No diseases detected in the image.")
				return nil
			}

			fmt.Fprintln(w, "Detected Diseases:")
			fmt.Fprint(w, app.Summary(result.Result.Detections))
			if result.Description != nil && result.Description.Text != "" {
				fmt.Fprintf(w, "\nRecommendations:\n%s\n", result.Description.Text)
			}
			if out != "" {
				fmt.Fprintf(w, "\nAnnotated image: %s\n", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write annotated JPEG to this path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print result as JSON")
	return cmd
}

func toReport(path, out string, result *app.InspectionOutput) detectReport {
	report := detectReport{
		Image:      path,
		Width:      result.Result.ImageWidth,
		Height:     result.Result.ImageHeight,
		Detections: result.Result.Detections,
		RecordID:   result.RecordID,
	}
	if report.Detections == nil {
		report.Detections = []entity.Detection{}
	}
	if out != "" && result.Result.HasDetections {
		report.Annotated = out
	}
	if result.Description != nil {
		report.Description = result.Description.Text
	}
	return report
}
