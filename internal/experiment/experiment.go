// Package experiment runs the ensemble selectors on full samples, times the
// runs and writes one JSON report per run.
package experiment

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/PrejudiceDDH/voteensemble/internal/config"
	"github.com/PrejudiceDDH/voteensemble/pkg/ensemble"
)

// Report is one selector run's outcome.
type Report struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Selector  string    `json:"selector"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Params    any       `json:"params"`
	Candidate []float64 `json:"candidate"`
	ElapsedMS int64     `json:"elapsed_ms"`
	StartedAt time.Time `json:"started_at"`
}

// Runner executes selector runs with shared environment-derived options.
// With a report directory configured, every run leaves a report_<id>.json
// behind.
type Runner struct {
	reportDir string
	options   []ensemble.Option
}

// NewRunner derives selector options from the environment configuration.
// Extra options, such as a fixed seed, apply to every run after the derived
// ones.
func NewRunner(cfg *config.AppConfig, extra ...ensemble.Option) *Runner {
	options := []ensemble.Option{
		ensemble.WithLearnParallelism(cfg.LearnParallelism),
		ensemble.WithEvalParallelism(cfg.EvalParallelism),
	}
	if cfg.ResultsDir != "" {
		options = append(options, ensemble.WithStorageDir(cfg.ResultsDir))
	}
	if cfg.KeepResults {
		options = append(options, ensemble.WithKeepStoredResults())
	}
	options = append(options, extra...)
	return &Runner{reportDir: cfg.ReportDir, options: options}
}

// RunMoVE executes one majority-voting run.
func (r *Runner) RunMoVE(name string, learner ensemble.Learner, sample *mat.Dense, params ensemble.MoVEParams) (*Report, error) {
	selector, err := ensemble.NewMoVE(learner, r.options...)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", name, err)
	}
	return r.run(name, "move", sample, params, func() (ensemble.Candidate, error) {
		return selector.RunWith(sample, params)
	})
}

// RunROVE executes one two-phase run. Per-run options, such as
// ensemble.WithDataSplit, stack on top of the runner's.
func (r *Runner) RunROVE(name string, learner ensemble.Learner, sample *mat.Dense, params ensemble.ROVEParams, opts ...ensemble.Option) (*Report, error) {
	selector, err := ensemble.NewROVE(learner, append(slices.Clone(r.options), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", name, err)
	}
	return r.run(name, "rove", sample, params, func() (ensemble.Candidate, error) {
		return selector.RunWith(sample, params)
	})
}

func (r *Runner) run(name, selector string, sample *mat.Dense, params any, exec func() (ensemble.Candidate, error)) (*Report, error) {
	rows, cols := 0, 0
	if sample != nil {
		rows, cols = sample.Dims()
	}
	started := time.Now()

	candidate, err := exec()
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", name, err)
	}

	report := &Report{
		ID:        uuid.NewString(),
		Name:      name,
		Selector:  selector,
		Rows:      rows,
		Cols:      cols,
		Params:    params,
		Candidate: candidate,
		ElapsedMS: time.Since(started).Milliseconds(),
		StartedAt: started.UTC(),
	}
	log.Info().
		Str("experiment", name).
		Str("selector", selector).
		Int("rows", rows).
		Interface("params", params).
		Int64("elapsed_ms", report.ElapsedMS).
		Floats64("candidate", candidate).
		Msg("experiment finished")

	if err := r.writeReport(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Runner) writeReport(report *Report) error {
	if r.reportDir == "" {
		return nil
	}
	if err := os.MkdirAll(r.reportDir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	data, err := sonic.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", report.ID, err)
	}
	path := filepath.Join(r.reportDir, fmt.Sprintf("report_%s.json", report.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", report.ID, err)
	}
	log.Info().Str("path", path).Msg("experiment report written")
	return nil
}
