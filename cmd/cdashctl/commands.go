package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/huangang/cdashconf/internal/config"
	"github.com/huangang/cdashconf/internal/services"
	"github.com/huangang/cdashconf/pkg/logger"
	"gopkg.in/yaml.v3"
)

type derivedPaths struct {
	BackupDir  string `yaml:"backup_dir"`
	LogFile    string `yaml:"log_file"`
	UploadPath string `yaml:"upload_path"`
}

type showOutput struct {
	config.Config `yaml:",inline"`
	Derived       derivedPaths `yaml:"derived"`
}

func runShow(a *app, args []string) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	out := showOutput{
		Config: *cfg.Redacted(),
		Derived: derivedPaths{
			BackupDir:  cfg.BackupDir(),
			LogFile:    cfg.LogFile(),
			UploadPath: cfg.UploadPath(),
		},
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(out)
}

func runInit(a *app, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := a.path()
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists, use -force to overwrite", path)
	}

	cfg := config.Defaults("")
	if err := cfg.Save(path); err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("Default configuration written")
	return nil
}

func runPaths(a *app, args []string) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.BackupDir(), cfg.UploadPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		logger.Info().Str("dir", dir).Msg("Directory ready")
	}
	return nil
}

func runImportPHP(a *app, args []string) error {
	fs := flag.NewFlagSet("import-php", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print the result instead of saving it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: import-php [-dry-run] <config.local.php>")
	}

	// The saved file must not capture environment overrides.
	cfg, err := config.LoadFile(a.path())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Log.Level)

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := config.ImportPHP(f, cfg, os.Getenv)
	if err != nil {
		return err
	}

	for _, s := range report.Skipped {
		logger.Warn().Str("setting", s.Name).Str("reason", s.Reason).Msg("Skipped")
	}
	logger.Infof("Imported %d settings, skipped %d", len(report.Applied), len(report.Skipped))

	if *dryRun {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg.Redacted())
	}
	if err := cfg.Save(a.path()); err != nil {
		return err
	}
	logger.Info().Str("path", a.path()).Msg("Configuration saved")
	return nil
}

func runCleanup(a *app, args []string) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	removed, err := services.NewBackupCleaner(cfg).Run()
	if err != nil {
		return err
	}
	logger.Infof("Removed %d expired files from %s", removed, cfg.BackupDir())
	return nil
}

func runMaintain(a *app, args []string) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	if err := logger.InitFile(cfg.Log.Level, cfg.LogFile(), cfg.Log.MaxSizeMB); err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleaner := services.NewBackupCleaner(cfg)
	if err := cleaner.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	cleaner.Stop()
	logger.Info().Msg("Scheduler stopped")
	return nil
}
