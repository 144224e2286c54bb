// Command autoencoder builds 1-D audio autoencoders from a YAML model
// description and runs audio through them.
//
// Usage:
//
//	autoencoder inspect -c model.yaml
//	autoencoder reconstruct -c model.yaml -o out/ a.wav b.flac
//	autoencoder stft -n 1024 input.wav
//	autoencoder mel --n-mels 80 input.wav > mel.csv
//	autoencoder encode -c model.yaml input.wav latent.f16
//
// Without -c a small tanh-bottleneck model is used. Weights are drawn from
// the model seed, so outputs demonstrate shapes and data flow rather than
// trained reconstructions.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	seed       uint64
	train      bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "autoencoder",
		Short:         "1-D convolutional audio autoencoder toolkit",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetOutput(cmd.ErrOrStderr())
			logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			if g.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML model description")
	pf.Uint64Var(&g.seed, "seed", 1, "seed for sampling in bottlenecks")
	pf.BoolVar(&g.train, "train", false, "run forward passes in training mode")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newInspectCmd(g),
		newReconstructCmd(g),
		newSTFTCmd(g),
		newMelCmd(g),
		newEncodeCmd(g),
	)
	return root
}
