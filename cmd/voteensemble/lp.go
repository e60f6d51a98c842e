package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PrejudiceDDH/voteensemble/pkg/ensemble"
	"github.com/PrejudiceDDH/voteensemble/pkg/learners"
)

var lpCmd = &cobra.Command{
	Use:   "lp",
	Short: "Run both selectors on a two-product allocation problem",
	RunE:  runLP,
}

func init() {
	lpCmd.Flags().Float64("first-mean", 0.2, "mean cost of the first product")
	lpCmd.Flags().Float64("second-mean", 0.8, "mean cost of the second product")
	lpCmd.Flags().Int("b", 200, "majority voting subsample count")
	lpCmd.Flags().Int("k", 0, "majority voting subsample size (0 = auto)")
	addROVEFlags(lpCmd)
}

func runLP(cmd *cobra.Command, args []string) error {
	runner, seed, err := newRunner(cmd)
	if err != nil {
		return err
	}

	rows, _ := cmd.Flags().GetInt("rows")
	noise, _ := cmd.Flags().GetFloat64("noise")
	firstMean, _ := cmd.Flags().GetFloat64("first-mean")
	secondMean, _ := cmd.Flags().GetFloat64("second-mean")
	sample := learners.GenerateProgramData(rows, []float64{firstMean, secondMean}, noise, seed)
	log.Info().
		Int("rows", rows).
		Float64("first_mean", firstMean).
		Float64("second_mean", secondMean).
		Uint64("seed", seed).
		Msg("generated allocation sample")

	b, _ := cmd.Flags().GetInt("b")
	k, _ := cmd.Flags().GetInt("k")
	if _, err := runner.RunMoVE("lp_move", learners.LinearProgram{}, sample, ensemble.MoVEParams{B: b, K: k}); err != nil {
		return err
	}

	name := "lp_rove"
	var opts []ensemble.Option
	if split, _ := cmd.Flags().GetBool("data-split"); split {
		name = "lp_rove_split"
		opts = append(opts, ensemble.WithDataSplit())
	}
	_, err = runner.RunROVE(name, learners.LinearProgram{}, sample, roveParams(cmd), opts...)
	return err
}
