package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/polandar/mara-calc/internal/domain/model"
	"github.com/polandar/mara-calc/internal/domain/race"
)

type predictFlags struct {
	time1, dist1, cond1 string
	time2, dist2, cond2 string
	mileage             float64
}

func newPredictCmd(opts *options) *cobra.Command {
	f := &predictFlags{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict a marathon time from one or two races",
		Example: `  maracalc predict --time1 0:40:00 --dist1 10k --cond1 average --mileage 30
  maracalc predict --time1 1:30:00 --dist1 half --cond1 fast --time2 0:19:30 --dist2 5k`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}

			p, release, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer release()

			in.Mileage = p.DefaultMileage()
			if cmd.Flags().Changed("mileage") {
				in.Mileage = f.mileage
			}

			out, err := p.Predict(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return printPrediction(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&f.time1, "time1", "", "race 1 time as h:mm:ss")
	cmd.Flags().StringVar(&f.dist1, "dist1", "", "race 1 distance: 5k, 5mi, 10k, 10mi, half")
	cmd.Flags().StringVar(&f.cond1, "cond1", "", "race 1 conditions: average, fast, difficult")
	cmd.Flags().StringVar(&f.time2, "time2", "", "optional race 2 time as h:mm:ss")
	cmd.Flags().StringVar(&f.dist2, "dist2", "", "race 2 distance")
	cmd.Flags().StringVar(&f.cond2, "cond2", "", "race 2 conditions (default average)")
	cmd.Flags().Float64Var(&f.mileage, "mileage", 0, "weekly training mileage")
	return cmd
}

func (f *predictFlags) input() (model.Input, error) {
	primary, err := parseRace(f.time1, f.dist1, f.cond1)
	if err != nil {
		return model.Input{}, fmt.Errorf("race 1: %w", err)
	}
	secondary, err := parseRace(f.time2, f.dist2, f.cond2)
	if err != nil {
		return model.Input{}, fmt.Errorf("race 2: %w", err)
	}
	return model.Input{Primary: primary, Secondary: secondary}, nil
}

func parseRace(t, dist, cond string) (model.RaceInput, error) {
	d, err := race.ParseDistance(dist)
	if err != nil {
		return model.RaceInput{}, err
	}
	c, err := race.ParseCondition(cond)
	if err != nil {
		return model.RaceInput{}, err
	}
	return model.RaceInput{Time: t, Distance: d, Condition: c}, nil
}

func printPrediction(w io.Writer, p model.Prediction) error {
	var err error
	switch p.Status {
	case model.StatusPredicted:
		_, err = fmt.Fprintf(w, "Predicted marathon: %s (%s model)\n", p.Display, p.Mode)
	case model.StatusIncomplete:
		_, err = fmt.Fprintf(w, "Incomplete: %s\n", p.Reason)
	default:
		_, err = fmt.Fprintf(w, "Predicted marathon: %s (%s)\n", p.Display, p.Reason)
	}
	return err
}
