package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ModelDir              string
	ORTLibraryPath        string
	ModelInputName        string
	ModelOutputName       string
	DatabaseURL           string
	SQLitePath            string
	SlackWebhookURL       string
	BatchConcurrency      int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ModelDir, "model-dir", "./models", "directory holding the <category>_triage_model.onnx files")
	fs.StringVar(&c.ORTLibraryPath, "ort-library-path", "", "path to the onnxruntime shared library (empty = platform default)")
	fs.StringVar(&c.ModelInputName, "model-input-name", "float_input", "ONNX graph input name of the classifiers")
	fs.StringVar(&c.ModelOutputName, "model-output-name", "probabilities", "ONNX graph output name holding class probabilities")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for the visit store")
	fs.StringVar(&c.SQLitePath, "sqlite-path", "", "SQLite database file for the visit store (empty with no database URL = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for referral notifications")
	fs.IntVar(&c.BatchConcurrency, "batch-concurrency", 4, "parallel pipeline runs per batch request (1..64)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// the service cannot start without its classifiers
	if c.ModelDir == "" {
		errs = append(errs, errors.New("MODEL_DIR is required"))
	}
	if c.ModelInputName == "" {
		errs = append(errs, errors.New("MODEL_INPUT_NAME is required"))
	}
	if c.ModelOutputName == "" {
		errs = append(errs, errors.New("MODEL_OUTPUT_NAME is required"))
	}

	// one persistent store at most
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		errs = append(errs, errors.New("DATABASE_URL and SQLITE_PATH are mutually exclusive"))
	}

	if c.BatchConcurrency <= 0 || c.BatchConcurrency > 64 {
		errs = append(errs, fmt.Errorf("invalid BATCH_CONCURRENCY %d (must be 1..64)", c.BatchConcurrency))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
