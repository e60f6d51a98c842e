package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PrejudiceDDH/voteensemble/pkg/ensemble"
	"github.com/PrejudiceDDH/voteensemble/pkg/learners"
)

var lrCmd = &cobra.Command{
	Use:   "lr",
	Short: "Run the two-phase selector on a least squares regression problem",
	Long: "lr fits ordinary least squares coefficients on random subsamples and selects the most " +
		"stable fit. Regression coefficients cannot be deduplicated, so only ROVE applies.",
	RunE: runLR,
}

func init() {
	lrCmd.Flags().Int("features", 3, "number of regression feature columns")
	addROVEFlags(lrCmd)
}

func runLR(cmd *cobra.Command, args []string) error {
	runner, seed, err := newRunner(cmd)
	if err != nil {
		return err
	}

	rows, _ := cmd.Flags().GetInt("rows")
	noise, _ := cmd.Flags().GetFloat64("noise")
	features, _ := cmd.Flags().GetInt("features")
	sample := learners.GenerateRegressionData(rows, features, noise, seed)
	log.Info().
		Int("rows", rows).
		Int("features", features).
		Uint64("seed", seed).
		Msg("generated regression sample")

	name := "lr_rove"
	var opts []ensemble.Option
	if split, _ := cmd.Flags().GetBool("data-split"); split {
		name = "lr_rove_split"
		opts = append(opts, ensemble.WithDataSplit())
	}
	_, err = runner.RunROVE(name, learners.LinearRegression{}, sample, roveParams(cmd), opts...)
	return err
}
