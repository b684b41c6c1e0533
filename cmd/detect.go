package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"plant-rover/internal/app"
	img "plant-rover/internal/image"
	"plant-rover/internal/leaf"
)

func detectCommand(opts *options) *cobra.Command {
	var out string
	var minArea float64

	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Run leaf detection on one image",
		Long:  "Identify the leaf species in an image and estimate its water content. Prints the result as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if minArea > 0 {
				cfg.Detection = cfg.Detection.WithMinContourArea(minArea)
			}
			cfg.Detection = cfg.Detection.WithAnnotate(out != "")

			holder, err := app.LoadCatalog(cmd.Context(), cfg, opts.log)
			if err != nil {
				return err
			}

			frame, err := img.LoadMat(args[0])
			if err != nil {
				return err
			}
			defer frame.Close()

			det := leaf.NewDetector(cfg.Detection, leaf.TemplateMatcher{}, opts.log)
			res, err := det.Detect(&frame, holder.Load())
			if err != nil {
				return err
			}

			if out != "" {
				if !gocv.IMWrite(out, frame) {
					return fmt.Errorf("failed to write %s", out)
				}
				opts.log.Info("annotated frame written", zap.String("path", out))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the annotated frame to this path")
	cmd.Flags().Float64Var(&minArea, "min-area", 0, "Override the minimum contour area in pixels")

	return cmd
}
