package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/nodekit/internal/plot"
	"github.com/born-ml/nodekit/internal/random"
)

var (
	previewOut    string
	previewCount  int
	previewCols   int
	previewSplit  string
	previewRandom bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render a grid of digits to a PNG file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		split := s.Train()
		switch previewSplit {
		case "train":
		case "test":
			split = s.Test()
		default:
			return fmt.Errorf("unknown split %q (want train or test)", previewSplit)
		}

		n := min(previewCount, split.Len())
		indices := make([]int, n)
		if previewRandom {
			indices = random.Permutation(random.FoldIn(s.Key, 1), split.Len())[:n]
		} else {
			for i := range indices {
				indices[i] = i
			}
		}
		sub, err := split.Subset(indices)
		if err != nil {
			return err
		}
		if err := plot.SaveGrid(previewOut, sub.Images, sub.Labels.Data(), previewCols); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d %s digits to %s\n", n, previewSplit, previewOut)
		return nil
	},
}

func init() {
	flags := previewCmd.Flags()
	flags.StringVarP(&previewOut, "out", "o", "digits.png", "Output PNG path")
	flags.IntVarP(&previewCount, "count", "n", 16, "Number of digits")
	flags.IntVar(&previewCols, "cols", 8, "Digits per row")
	flags.StringVar(&previewSplit, "split", "train", "Split to preview: train or test")
	flags.BoolVar(&previewRandom, "random", false, "Pick digits at random instead of the first ones")
}
