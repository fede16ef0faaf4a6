package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/huangang/cdashconf/internal/config"
	"github.com/huangang/cdashconf/pkg/logger"
)

type command struct {
	name  string
	usage string
	run   func(a *app, args []string) error
}

var commands = []command{
	{"show", "print the effective configuration with secrets masked", runShow},
	{"init", "write the default configuration to the config path", runInit},
	{"check", "validate the configuration and reach the configured services", runCheck},
	{"paths", "create the backup and upload directories", runPaths},
	{"import-php", "merge a legacy config.local.php into the configuration", runImportPHP},
	{"cleanup", "remove expired files from the backup directory once", runCleanup},
	{"maintain", "run the backup cleanup scheduler until interrupted", runMaintain},
}

// app carries what every command needs: the config path and, once loaded,
// the configuration itself.
type app struct {
	configPath string
	cfg        *config.Config
}

func (a *app) load() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	a.cfg = cfg
	return cfg, nil
}

func (a *app) path() string {
	if a.configPath == "" {
		return "config.yaml"
	}
	return a.configPath
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [-config path] <command> [args]\n\nCommands:\n", os.Args[0])
	for _, c := range commands {
		fmt.Fprintf(out, "  %-11s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML configuration file (default config.yaml)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	a := &app{configPath: *configPath}
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(a, flag.Args()[1:]); err != nil {
			logger.Error().Err(err).Str("command", name).Msg("command failed")
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}
