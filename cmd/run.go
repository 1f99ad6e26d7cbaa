package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/triagekit/resume-triage/internal/ai/gemini"
	"github.com/triagekit/resume-triage/internal/audit"
	"github.com/triagekit/resume-triage/internal/executor"
	"github.com/triagekit/resume-triage/internal/gate"
	"github.com/triagekit/resume-triage/internal/logger"
	"github.com/triagekit/resume-triage/internal/secrets"
	"github.com/triagekit/resume-triage/internal/triage"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultSourceDir      = "./data/inbox"
	defaultJobDescription = "./data/job_description.txt"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the resume triage loop",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("source", "s", "", "directory with resume .txt files")
	runCmd.Flags().String("job-description", "", "path to the job description file")
	runCmd.Flags().String("audit-log", "", "path to the audit log file")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation, accept every recommendation")

	viper.BindPFlag("source", runCmd.Flags().Lookup("source"))
	viper.BindPFlag("job-description", runCmd.Flags().Lookup("job-description"))
	viper.BindPFlag("audit-log", runCmd.Flags().Lookup("audit-log"))
	viper.BindPFlag("auto-approve", runCmd.Flags().Lookup("auto-approve"))
}

// run is the main command for the cli.
func run(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	logger.Info("starting the resume triage agent", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.AI.Gemini.APIKeyFile,
		Env:  apiKeyEnv,
	})
	if err != nil {
		logger.Fatal("loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY (a .env file works) or ai.gemini.api-key-file in the configuration"),
		)
	}

	sourceDir := askPath("Enter path to resumes folder", config.Source, defaultSourceDir, logger)
	jobDescPath := askPath("Enter path to Job Description file", config.JobDescription, defaultJobDescription, logger)

	source, err := triage.NewSource(sourceDir, jobDescPath)
	if err != nil {
		logger.Fatal("validating inputs", zap.Error(err))
	}

	files, err := source.List()
	if err != nil {
		logger.Fatal("scanning resume directory", zap.Error(err))
	}

	if len(files) == 0 {
		logger.Info("exiting", zap.String("reason", "no resumes found"))
		return
	}

	logger.Info("found resumes to process", zap.Int("count", len(files)))

	if provider := strings.TrimSpace(strings.ToLower(config.AI.Provider)); provider != "" && provider != "gemini" {
		logger.Fatal("unsupported ai provider", zap.String("provider", config.AI.Provider))
	}

	generator, err := gemini.NewGenerator(
		ctx,
		apiKey,
		config.AI.Gemini.Model,
		config.AI.Gemini.MaxRetries,
		config.AI.Gemini.Timeout,
		logger.With(zap.String("provider", "gemini")),
	)
	if err != nil {
		logger.Fatal("building the gemini generator", zap.Error(err))
	}

	planner := gemini.NewPlanner(
		generator,
		config.AI.InterviewThreshold,
		config.AI.Gemini.MaxLogLength,
		logger.With(zap.String("model", generator.Model())),
	)

	auditLog := audit.NewLog(viper.GetString("audit-log"), runID)

	session := triage.NewSession(source, triage.Deps{
		Planner:  planner,
		Gate:     gate.NewConsole(viper.GetBool("auto-approve")),
		Executor: executor.New(auditLog, logger),
		Logger:   logger,
	})

	summary, err := session.Run(ctx)
	if err != nil {
		logger.Fatal("triage aborted", zap.Error(err))
	}

	logger.Info("agent shutting down",
		zap.Int("processed", summary.Processed),
		zap.Int("moved", summary.Moved),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Bool("stopped_by_user", summary.Stopped),
		zap.String("audit_log", auditLog.Path()),
	)
}

// askPath resolves an input path: configuration wins, otherwise the
// human is prompted with a default.
func askPath(label, configured, fallback string, logger *zap.Logger) string {
	if v := strings.TrimSpace(configured); v != "" {
		return v
	}

	prompt := promptui.Prompt{
		Label:   label,
		Default: fallback,
	}

	answer, err := prompt.Run()
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	if answer = strings.TrimSpace(answer); answer == "" {
		return fallback
	}
	return answer
}
