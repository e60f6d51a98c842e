package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/PrejudiceDDH/voteensemble/internal/config"
	"github.com/PrejudiceDDH/voteensemble/internal/experiment"
	"github.com/PrejudiceDDH/voteensemble/pkg/ensemble"
)

var rootCmd = &cobra.Command{
	Use:   "voteensemble",
	Short: "Subsample voting selectors for decision problems",
	Long: "voteensemble trains a learner on many random subsamples and selects the most stable " +
		"candidate, either by majority voting (MoVE) or by two-phase epsilon-optimal voting (ROVE).",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Int("rows", 10000, "number of synthetic sample rows")
	rootCmd.PersistentFlags().Float64("noise", 1.0, "standard deviation of the synthetic noise")
	rootCmd.PersistentFlags().Uint64("seed", 0, "seed for data generation and subsampling (default: current time)")

	rootCmd.AddCommand(lpCmd)
	rootCmd.AddCommand(lrCmd)
}

// newRunner loads the environment configuration and builds an experiment
// runner. The resolved seed pins both the synthetic data and the selector
// draws, falling back to the current time when --seed was not given.
func newRunner(cmd *cobra.Command) (*experiment.Runner, uint64, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, 0, err
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	if !cmd.Flags().Changed("seed") {
		seed = uint64(time.Now().UnixNano())
	}
	return experiment.NewRunner(cfg, ensemble.WithSeed(seed)), seed, nil
}

// addROVEFlags registers the two-phase tuning flags shared by every
// subcommand.
func addROVEFlags(c *cobra.Command) {
	c.Flags().Int("b1", 50, "phase one subsample count")
	c.Flags().Int("b2", 200, "phase two subsample count")
	c.Flags().Int("k1", 0, "phase one subsample size (0 = auto)")
	c.Flags().Int("k2", 0, "phase two subsample size (0 = auto)")
	c.Flags().Float64("epsilon", -1, "optimality gap threshold (negative = auto-calibrate)")
	c.Flags().Float64("auto-epsilon-prob", 0.5, "target probability for automatic epsilon calibration")
	c.Flags().Bool("data-split", false, "train and evaluate on disjoint sample halves")
}

func roveParams(cmd *cobra.Command) ensemble.ROVEParams {
	params := ensemble.DefaultROVEParams()
	params.B1, _ = cmd.Flags().GetInt("b1")
	params.B2, _ = cmd.Flags().GetInt("b2")
	params.K1, _ = cmd.Flags().GetInt("k1")
	params.K2, _ = cmd.Flags().GetInt("k2")
	params.Epsilon, _ = cmd.Flags().GetFloat64("epsilon")
	params.AutoEpsilonProb, _ = cmd.Flags().GetFloat64("auto-epsilon-prob")
	return params
}
