package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/born-ml/nodekit/internal/datasets/mnist"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and verify the dataset without loading it",
	Long: `Downloads the MNIST files into the cache directory and checks their
SHA-256 digests. Files already cached with the right digest are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []mnist.Option{
			mnist.WithSource(mnist.Source(cfg.Dataset.Source)),
			mnist.WithCacheDir(cfg.Dataset.CacheDir),
			mnist.WithLogger(logger),
			mnist.WithProgress(cmd.ErrOrStderr()),
		}
		if cfg.Dataset.Origin != "" {
			opts = append(opts, mnist.WithOrigin(cfg.Dataset.Origin))
		}
		train, test, err := mnist.LoadData(cmd.Context(), opts...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		entries, err := os.ReadDir(cfg.Dataset.CacheDir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || e.IsDir() {
				continue
			}
			fmt.Fprintf(out, "%-28s %8s\n", filepath.Join(cfg.Dataset.CacheDir, e.Name()), humanize.Bytes(uint64(info.Size())))
		}
		fmt.Fprintf(out, "verified %s training and %s test examples\n",
			humanize.Comma(int64(train.Len())), humanize.Comma(int64(test.Len())))
		return nil
	},
}
