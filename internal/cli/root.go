// Package cli implements the gene-ledger CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/gene-ledger/internal/config"
	gerrors "github.com/rcliao/gene-ledger/internal/errors"
	"github.com/rcliao/gene-ledger/internal/logging"
	"github.com/rcliao/gene-ledger/internal/normalize"
	"github.com/rcliao/gene-ledger/internal/store"
)

var (
	dbPath     string
	configPath string
	verbosity  int
	quiet      bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "gene-ledger",
	Short: "Content-addressed ledger of source code genes",
	Long: "Deduplicates source fragments by normalized fingerprint, records how they evolve, " +
		"and reconstructs files from the genes on record. Every command prints one JSON object.",
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runRoot,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $GENE_LEDGER_DB or ~/.gene-ledger/genes.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.gene-ledger/config.*)")
	RootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logging")

	RootCmd.CompletionOptions.DisableDefaultCmd = true
	RootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return emitErr(cmd, gerrors.Wrap(gerrors.InvalidInput, "invalid flags", err))
	})
}

// Execute runs RootCmd. It returns an error only when the store could not
// be opened or output could not be written.
func Execute() error {
	return RootCmd.Execute()
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return emitErr(cmd, gerrors.Newf(gerrors.InvalidInput, "Unknown command: %s", args[0]))
	}

	var names []string
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() {
			names = append(names, c.Use)
		}
	}
	sort.Strings(names)
	return emitErr(cmd, gerrors.Newf(gerrors.InvalidInput,
		"Usage: gene-ledger <command> [args...]; commands: %s", strings.Join(names, ", ")))
}

// envelope is the single JSON object every command prints.
type envelope struct {
	Success bool              `json:"success"`
	Result  any               `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    gerrors.ErrorCode `json:"code,omitempty"`
}

func emit(cmd *cobra.Command, result any) error {
	return write(cmd, envelope{Success: true, Result: result})
}

// emitErr prints err as a failure payload. The returned error is non-nil
// only when writing fails.
func emitErr(cmd *cobra.Command, err error) error {
	return write(cmd, envelope{Success: false, Error: gerrors.Message(err), Code: gerrors.CodeOf(err)})
}

func write(cmd *cobra.Command, env envelope) error {
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		b, _ = json.Marshal(envelope{Success: false, Error: err.Error(), Code: gerrors.InternalError})
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(b)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// session is an opened store plus the configuration it was built from.
type session struct {
	store *store.SQLiteStore
	cfg   *config.Config
	log   *slog.Logger
}

func (s *session) Close() error {
	return s.store.Close()
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := logging.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = logging.LevelFromVerbosity(verbosity, quiet)
	}
	if cfg.Logging.Format == "json" {
		return logging.NewJSON(cmd.ErrOrStderr(), level)
	}
	return logging.New(cmd.ErrOrStderr(), level)
}

// openSession loads configuration and opens the store. On failure it has
// already printed the error payload; the caller returns the error so the
// process exits non-zero.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		gerr := gerrors.Wrap(gerrors.InvalidInput, "load config", err)
		if werr := emitErr(cmd, gerr); werr != nil {
			return nil, werr
		}
		return nil, gerr
	}
	if dbPath != "" {
		cfg.StorePath = dbPath
	}

	log := newLogger(cmd, cfg)
	s, err := store.NewSQLiteStore(store.Options{
		Path:              cfg.StorePath,
		Normalize:         normalize.Options{StrictStarComments: cfg.StrictStarComments},
		MutationThreshold: &cfg.MutationThreshold,
		RefactorThreshold: &cfg.RefactorThreshold,
		Logger:            log,
	})
	if err != nil {
		log.Error("open store failed", "path", cfg.StorePath, "error", err)
		if werr := emitErr(cmd, err); werr != nil {
			return nil, werr
		}
		return nil, err
	}
	log.Debug("store opened", "path", s.Path())
	return &session{store: s, cfg: cfg, log: log}, nil
}

// withSession opens the store, runs fn and prints its result or error.
func withSession(cmd *cobra.Command, fn func(s *session) (any, error)) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := fn(s)
	if err != nil {
		s.log.Warn("command failed", "command", cmd.Name(), "error", err)
		return emitErr(cmd, err)
	}
	return emit(cmd, result)
}

// usageErr prints a missing-argument payload.
func usageErr(cmd *cobra.Command, msg string) error {
	return emitErr(cmd, gerrors.New(gerrors.InvalidInput, msg))
}
