package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/ace-go/pkg/adapt"
	"github.com/XiaoConstantine/ace-go/pkg/config"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/llms"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	"github.com/XiaoConstantine/ace-go/pkg/playbook"
	"github.com/XiaoConstantine/ace-go/pkg/roles"
)

var (
	configPath  string
	samplesPath string
	online      bool
)

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "ace.yaml", "path to the YAML config file")
	runCmd.Flags().StringVarP(&samplesPath, "samples", "s", "", "path to the JSON samples file (required)")
	runCmd.Flags().BoolVar(&online, "online", false, "consume each sample exactly once instead of looping over epochs")
	_ = runCmd.MarkFlagRequired("samples")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an adaptation loop over a samples file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoop(cmd.Context())
	},
}

// taskSample is one entry of the samples file: the sample itself plus the
// expected answer the built-in exact-match evaluator judges against.
type taskSample struct {
	Question string                 `json:"question"`
	Context  string                 `json:"context,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Expected string                 `json:"expected"`
}

func runLoop(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(cfg.LogLevel),
		Outputs:  []logging.Output{logging.NewConsoleOutput(true)},
	}))
	logger := logging.GetLogger()

	tasks, err := loadSamples(samplesPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Playbook)
	if err != nil {
		return err
	}
	defer store.Close()

	pb := playbook.New()
	if snap, err := store.Load(); err != nil {
		return err
	} else if snap != nil {
		pb.Restore(*snap)
		logger.Info(ctx, "restored playbook: %s", pb.Stats())
	}

	llm, err := llms.NewLLM(cfg.ProviderSettings())
	if err != nil {
		return err
	}

	adapter := adapt.New(pb, llm, exactMatchEvaluator(tasks),
		adapt.WithMaxAttempts(cfg.Loop.MaxRetries),
		adapt.WithRefinementRounds(cfg.Loop.ReflectionRounds),
		adapt.WithReflectionWindow(cfg.Loop.ReflectionWindow),
	)

	samples := make([]adapt.Sample, len(tasks))
	for i, task := range tasks {
		samples[i] = adapt.Sample{
			Question: task.Question,
			Context:  task.Context,
			Metadata: task.Metadata,
		}
	}

	var records []adapt.StepRecord
	if online {
		records, err = adapter.RunOnline(ctx, samples)
	} else {
		records, err = adapter.RunOffline(ctx, samples, cfg.Loop.Epochs)
	}
	// Persist whatever the loop managed to learn before reporting failure.
	if saveErr := store.Save(pb.Snapshot()); saveErr != nil {
		logger.Error(ctx, "failed to persist playbook: %v", saveErr)
	}
	if err != nil {
		return err
	}

	logger.Info(ctx, "completed %d steps: %s", len(records), pb.Stats())
	fmt.Println(pb.Render())
	return nil
}

func loadSamples(path string) ([]taskSample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read samples file"),
			errors.Fields{"path": path})
	}

	var tasks []taskSample
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse samples file"),
			errors.Fields{"path": path})
	}
	if len(tasks) == 0 {
		return nil, errors.New(errors.InvalidInput, "samples file contains no samples")
	}
	return tasks, nil
}

// exactMatchEvaluator judges attempts by case-insensitive comparison with
// the sample's expected answer, matching samples to tasks by question text.
func exactMatchEvaluator(tasks []taskSample) adapt.Evaluator {
	expected := make(map[string]string, len(tasks))
	for _, task := range tasks {
		expected[task.Question] = task.Expected
	}

	return adapt.EvaluatorFunc(func(ctx context.Context, sample adapt.Sample, attempt *roles.Attempt) (adapt.Evaluation, error) {
		want := expected[sample.Question]
		got := strings.TrimSpace(attempt.FinalAnswer)
		if strings.EqualFold(got, want) {
			return adapt.Evaluation{
				Feedback:    "correct",
				GroundTruth: want,
				Metrics:     map[string]float64{"score": 1},
			}, nil
		}
		return adapt.Evaluation{
			Feedback:    fmt.Sprintf("incorrect: answered %q", got),
			GroundTruth: want,
			Metrics:     map[string]float64{"score": 0},
		}, nil
	})
}

func openStore(cfg config.PlaybookConfig) (playbook.Store, error) {
	if cfg.Backend == "sqlite" {
		return playbook.NewSQLiteStore(cfg.Path)
	}
	return playbook.NewFileStore(cfg.Path), nil
}
