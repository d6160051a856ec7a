package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/nodekit/internal/nn"
	"github.com/born-ml/nodekit/internal/optim"
	"github.com/born-ml/nodekit/internal/plot"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/train"
)

var trainFlags struct {
	model      string
	epochs     int
	batchSize  int
	lr         float32
	width      int
	depth      int
	activation string
	solver     string
	steps      int
	limit      int
	outDir     string
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train an MLP or neural-ODE digit classifier",
	Long: `Trains a classifier with Adam, drawing a progress bar per epoch and
reporting test accuracy. Each run gets an ID; the loss curve (loss.png)
and the parameters (model.safetensors) are written to <out-dir>/<run-id>/.

Models:
  mlp   784 -> width (x depth) -> 10
  node  784 -> width -> neural ODE block -> 10`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	flags := trainCmd.Flags()
	flags.StringVar(&trainFlags.model, "model", "mlp", "Model: mlp or node")
	flags.IntVar(&trainFlags.epochs, "epochs", 1, "Training epochs")
	flags.IntVar(&trainFlags.batchSize, "batch-size", 128, "Batch size")
	flags.Float32Var(&trainFlags.lr, "lr", 1e-3, "Adam learning rate")
	flags.IntVar(&trainFlags.width, "width", 64, "Hidden width")
	flags.IntVar(&trainFlags.depth, "depth", 1, "Hidden layers (of the vector field for node)")
	flags.StringVar(&trainFlags.activation, "activation", "relu", "Hidden activation")
	flags.StringVar(&trainFlags.solver, "solver", "rk4", "ODE solver for node")
	flags.IntVar(&trainFlags.steps, "steps", 4, "ODE steps for node")
	flags.IntVar(&trainFlags.limit, "limit", 0, "Train on the first n examples only")
	flags.StringVar(&trainFlags.outDir, "out-dir", "", "Run output directory (default: $NODEKIT_HOME/runs)")
}

// applyTrainFlags copies explicitly set train flags over the loaded config.
func applyTrainFlags(cmd *cobra.Command) {
	t := &cfg.Train
	set := cmd.Flags().Changed
	if set("model") {
		t.Model = trainFlags.model
	}
	if set("epochs") {
		t.Epochs = trainFlags.epochs
	}
	if set("batch-size") {
		t.BatchSize = trainFlags.batchSize
	}
	if set("lr") {
		t.LearningRate = trainFlags.lr
	}
	if set("width") {
		t.Width = trainFlags.width
	}
	if set("depth") {
		t.Depth = trainFlags.depth
	}
	if set("activation") {
		t.Activation = trainFlags.activation
	}
	if set("solver") {
		t.Solver = trainFlags.solver
	}
	if set("steps") {
		t.Steps = trainFlags.steps
	}
	if set("limit") {
		t.Limit = trainFlags.limit
	}
	if set("out-dir") {
		t.OutDir = trainFlags.outDir
	}
}

func runTrain(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	tc := cfg.Train

	trainSplit := s.Train()
	if tc.Limit > 0 && tc.Limit < trainSplit.Len() {
		indices := make([]int, tc.Limit)
		for i := range indices {
			indices[i] = i
		}
		if trainSplit, err = trainSplit.Subset(indices); err != nil {
			return err
		}
	}

	modelKey, shuffleKey := random.Split2(s.Key)
	model, err := train.NewClassifier(modelKey, tc)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "model %s with %s parameters, %s training examples\n",
		tc.Model, humanize.Comma(int64(nn.Count(model))), humanize.Comma(int64(trainSplit.Len())))

	h, err := train.Fit(cmd.Context(), model, trainSplit, s.Test(), train.Options{
		Epochs:    tc.Epochs,
		BatchSize: tc.BatchSize,
		Optimizer: optim.Adam(optim.AdamConfig{LR: tc.LearningRate}),
		Key:       shuffleKey,
		Logger:    logger,
		Progress:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	runDir := filepath.Join(tc.OutDir, h.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	lossPath := filepath.Join(runDir, "loss.png")
	if err := plot.SaveLines(lossPath, "training loss", "step", "loss",
		plot.Series{Name: tc.Model, Y: h.Loss}); err != nil {
		return err
	}
	modelPath := filepath.Join(runDir, "model.safetensors")
	final := h.TestAccuracy[len(h.TestAccuracy)-1]
	if err := nn.Save(modelPath, model, map[string]string{
		"run":           h.RunID,
		"model":         tc.Model,
		"epochs":        strconv.Itoa(tc.Epochs),
		"test_accuracy": strconv.FormatFloat(final, 'f', 4, 64),
	}); err != nil {
		return err
	}
	logger.Info("run saved", zap.String("dir", runDir))

	fmt.Fprintf(out, "run %s: test accuracy %.2f%% after %d epochs in %s\n",
		h.RunID, final*100, tc.Epochs, h.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "loss curve: %s\ncheckpoint: %s\n", lossPath, modelPath)
	return nil
}
