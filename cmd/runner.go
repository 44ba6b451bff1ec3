package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"spotidedup/internal/repositories"
	"spotidedup/internal/shared"
	"spotidedup/internal/spotify"
	"spotidedup/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
	input  io.Reader
	engine *tasks.Engine
	db     *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
	Input  io.Reader
	Engine *tasks.Engine // preset engine, used in tests
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
		input:  opts.Input,
		engine: opts.Engine,
	}
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		checkCommand, deleteCommand, historyCommand, authCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensureEngine lazily wires the token manager, API client and scan recorder.
// The database is optional for read paths: if it cannot be opened the run
// proceeds without a token store or scan history.
func (r *Runner) ensureEngine() *tasks.Engine {
	if r.engine != nil {
		return r.engine
	}

	var store spotify.TokenStore
	var history tasks.ScanRecorder
	if db, err := r.openDatabase(); err == nil {
		store = repositories.NewTokenRepository(db)
		history = repositories.NewScanRepository(db)
	} else {
		r.logger.Warn("running without database", "error", err)
	}

	creds := r.config.Credentials.Spotify
	tokens := spotify.NewTokenManager(spotify.TokenManagerOpts{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RefreshToken: creds.RefreshToken,
		Store:        store,
		Logger:       r.logger,
	})

	client := spotify.NewClient(spotify.ClientOpts{
		Tokens:     tokens,
		Logger:     r.logger,
		PageSize:   r.config.Client.PageSize,
		MaxRetries: r.config.Client.MaxRetries,
		RateLimit:  r.config.Client.RateLimit,
	})

	r.engine = tasks.NewEngine(client, history, r.logger)
	return r.engine
}

// openDatabase opens the configured sqlite database and applies migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	if r.config.Database.Path == "" {
		return nil, fmt.Errorf("no database path configured")
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := repositories.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	r.db = db
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
