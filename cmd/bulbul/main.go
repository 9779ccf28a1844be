package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/RyanBlaney/sonido-bulbul/config"
	"github.com/RyanBlaney/sonido-bulbul/logging"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Config   string `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	LogLevel string `help:"Log level (debug, info, warn, error); overrides the config file"`
	DB       string `type:"path" default:"bulbul.db" help:"SQLite database holding scored rounds"`

	Score      ScoreCmd      `cmd:"" help:"Score one round recording"`
	Session    SessionCmd    `cmd:"" help:"Show the rounds and status of a session"`
	History    HistoryCmd    `cmd:"" help:"List scored rounds, newest first"`
	NewSession NewSessionCmd `cmd:"" help:"Print a fresh session id"`
	Version    VersionCmd    `cmd:"" help:"Show version information"`
}

// runtime is what every subcommand receives after global flags are applied
type runtime struct {
	cfg    *config.Config
	dbPath string
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("bulbul"),
		kong.Description("Scores bird-song contest rounds from recordings"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
	)

	rt, err := cli.setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx.FatalIfErrorf(ctx.Run(rt))
}

func (c *CLI) setup() (*runtime, error) {
	cfg := config.DefaultConfig()
	if c.Config != "" {
		loaded, err := config.Load(c.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	levelName := cfg.LogLevel
	if c.LogLevel != "" {
		levelName = c.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	// stdout carries the JSON result, logs go to stderr
	logging.SetGlobalLogger(logging.NewLogger(os.Stderr, os.Stderr, level))

	return &runtime{cfg: cfg, dbPath: c.DB}, nil
}

type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("bulbul %s\n", version)
	return nil
}
