// Command watercal builds species store entries from calibration data.
//
// Fit a water model from lab samples (CSV columns: hue, saturation, water):
//
//	watercal water --species basil --store config/water_models.json samples.csv
//
// Derive a color profile from a leaf patch in a photo:
//
//	watercal profile --species basil --rect 120,80,40,40 --store config/hsv.json leaf.png
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	img "plant-rover/internal/image"
	"plant-rover/internal/leaf"
	"plant-rover/internal/species"
	"plant-rover/pkg/colorutil"
)

func main() {
	root := &cobra.Command{
		Use:           "watercal",
		Short:         "Calibrate plant-rover species stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(waterCommand(), profileCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "watercal: %v\n", err)
		os.Exit(1)
	}
}

func waterCommand() *cobra.Command {
	var name, store string

	cmd := &cobra.Command{
		Use:   "water <samples.csv>",
		Short: "Fit a water model by least squares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			samples, err := readSamples(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			model, err := species.FitWaterModel(samples)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: water = %.4f*hue + %.4f*saturation + %.4f (%d samples)\n",
				name, model.A, model.B, model.C, len(samples))

			if store == "" {
				return nil
			}
			models, err := loadExisting(store, species.LoadWaterModels)
			if err != nil {
				return err
			}
			all := models.All()
			all[name] = model
			return species.WriteWaterModels(store, all)
		},
	}

	cmd.Flags().StringVarP(&name, "species", "s", "", "Species name")
	cmd.Flags().StringVar(&store, "store", "", "Water model file to update")
	_ = cmd.MarkFlagRequired("species")
	return cmd
}

func profileCommand() *cobra.Command {
	var name, store, rect, tol string

	cmd := &cobra.Command{
		Use:   "profile <image>",
		Short: "Derive an HSV color profile from a leaf patch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRect(rect)
			if err != nil {
				return err
			}
			t, err := parseHSV(tol)
			if err != nil {
				return fmt.Errorf("tolerance: %w", err)
			}

			frame, err := img.LoadMat(args[0])
			if err != nil {
				return err
			}
			defer frame.Close()

			sample, err := leaf.SampleHSV(frame, r)
			if err != nil {
				return err
			}
			p := species.ProfileFromSample(name, sample, t)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: sample %s, profile %s .. %s\n", name, sample, p.Lower, p.Upper)

			if store == "" {
				return nil
			}
			existing, err := loadExisting(store, species.LoadProfiles)
			if err != nil {
				return err
			}
			return species.WriteProfiles(store, upsertProfile(existing.All(), p))
		},
	}

	cmd.Flags().StringVarP(&name, "species", "s", "", "Species name")
	cmd.Flags().StringVar(&rect, "rect", "", "Leaf patch as x,y,width,height")
	cmd.Flags().StringVar(&tol, "tolerance", "10,60,60", "Half-width of the profile as h,s,v")
	cmd.Flags().StringVar(&store, "store", "", "Color profile file to update")
	_ = cmd.MarkFlagRequired("species")
	_ = cmd.MarkFlagRequired("rect")
	return cmd
}

// loadExisting loads a store, treating a missing file as empty.
func loadExisting[T any](path string, load func(string) (*T, error)) (*T, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return load(path)
}

// upsertProfile replaces the profile with the same species in place, or
// appends it. Position matters: earlier profiles win ties.
func upsertProfile(profiles []species.ColorProfile, p species.ColorProfile) []species.ColorProfile {
	for i := range profiles {
		if profiles[i].Species == p.Species {
			profiles[i] = p
			return profiles
		}
	}
	return append(profiles, p)
}

// readSamples parses hue,saturation,water rows. A first row that does not
// parse as numbers is treated as a header.
func readSamples(r io.Reader) ([]species.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var samples []species.Sample
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		vals, err := parseFloats(rec)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, species.Sample{Hue: vals[0], Saturation: vals[1], WaterContent: vals[2]})
	}
	return samples, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated values, got %q", n, s)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseRect(s string) (image.Rectangle, error) {
	v, err := parseInts(s, 4)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("rect: %w", err)
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("rect: width and height must be positive")
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

func parseHSV(s string) (colorutil.HSV, error) {
	v, err := parseInts(s, 3)
	if err != nil {
		return colorutil.HSV{}, err
	}
	return colorutil.HSVFromSlice(v)
}
