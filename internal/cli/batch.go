package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/polandar/mara-calc/internal/adapters/validation"
	"github.com/polandar/mara-calc/internal/domain/model"
)

// BatchFile is the YAML document accepted by the batch command.
//
//	items:
//	  - time1: "0:40:00"
//	    dist1: 10k
//	    cond1: average
//	    mileage: 30
type BatchFile struct {
	Items []BatchEntry `yaml:"items" validate:"required,min=1,dive"`
}

// BatchEntry is one prediction request in a batch file.
type BatchEntry struct {
	Time1   string   `yaml:"time1" validate:"max=32"`
	Dist1   string   `yaml:"dist1" validate:"omitempty,distance"`
	Cond1   string   `yaml:"cond1" validate:"omitempty,condition"`
	Time2   string   `yaml:"time2" validate:"max=32"`
	Dist2   string   `yaml:"dist2" validate:"omitempty,distance"`
	Cond2   string   `yaml:"cond2" validate:"omitempty,condition"`
	Mileage *float64 `yaml:"mileage" validate:"omitempty,gte=0"`
}

// ErrBatchFile wraps failures to read or validate a batch file.
var ErrBatchFile = errors.New("invalid batch file")

// LoadBatchFile decodes and validates a batch document.
func LoadBatchFile(r io.Reader, v *validator.Validate) (*BatchFile, error) {
	var f BatchFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrBatchFile)
		}
		return nil, fmt.Errorf("%w: %w", ErrBatchFile, err)
	}
	if err := v.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBatchFile, validation.Message(err))
	}
	return &f, nil
}

// Inputs converts the entries to service inputs, filling omitted mileage.
func (f *BatchFile) Inputs(defaultMileage float64) ([]model.Input, error) {
	inputs := make([]model.Input, len(f.Items))
	for i, e := range f.Items {
		primary, err := parseRace(e.Time1, e.Dist1, e.Cond1)
		if err != nil {
			return nil, fmt.Errorf("item %d race 1: %w", i, err)
		}
		secondary, err := parseRace(e.Time2, e.Dist2, e.Cond2)
		if err != nil {
			return nil, fmt.Errorf("item %d race 2: %w", i, err)
		}
		in := model.Input{Mileage: defaultMileage, Primary: primary, Secondary: secondary}
		if e.Mileage != nil {
			in.Mileage = *e.Mileage
		}
		inputs[i] = in
	}
	return inputs, nil
}

func newBatchCmd(opts *options, v *validator.Validate) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file.yaml>",
		Short: "Predict every entry of a YAML batch file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()

			f, err := LoadBatchFile(fh, v)
			if err != nil {
				return err
			}

			p, release, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer release()

			inputs, err := f.Inputs(p.DefaultMileage())
			if err != nil {
				return err
			}
			items, err := p.PredictBatch(cmd.Context(), inputs)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			return printBatch(cmd.OutOrStdout(), items)
		},
	}
}

func printBatch(w io.Writer, items []model.BatchItem) error {
	for _, item := range items {
		var err error
		switch {
		case item.Error != "":
			_, err = fmt.Fprintf(w, "%d\terror\t%s\n", item.Index+1, item.Error)
		case item.Prediction.Status == model.StatusIncomplete:
			_, err = fmt.Fprintf(w, "%d\t%s\t%s\n", item.Index+1, item.Prediction.Status, item.Prediction.Reason)
		default:
			_, err = fmt.Fprintf(w, "%d\t%s\t%s\n", item.Index+1, item.Prediction.Status, item.Prediction.Display)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
