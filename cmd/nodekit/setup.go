package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/born-ml/nodekit/internal/datasets/mnist"
	"github.com/born-ml/nodekit/internal/notebook"
	"github.com/born-ml/nodekit/internal/tensor"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Seed the PRNG, load the dataset and print the four arrays",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "key     %v (seed %d)\n", s.Key, cfg.Seed)
		for _, b := range []struct {
			name string
			a    *tensor.Array[uint8]
		}{
			{"x_train", s.XTrain}, {"y_train", s.YTrain},
			{"x_test", s.XTest}, {"y_test", s.YTest},
		} {
			fmt.Fprintf(out, "%-7s %-16v uint8  %s values\n", b.name, b.a.Shape(), humanize.Comma(int64(b.a.Size())))
		}
		return nil
	},
}

// newSession runs notebook.Setup with download progress on stderr.
func newSession(cmd *cobra.Command) (*notebook.Session, error) {
	return notebook.Setup(cmd.Context(), cfg, logger, mnist.WithProgress(cmd.ErrOrStderr()))
}
