package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/icyseptember2237/jshell"
	"github.com/icyseptember2237/jshell/internal/config"
)

var (
	cfgFile    string
	envFile    string
	engineType string
	debug      bool
	noTCPIP    bool

	rootCmd = &cobra.Command{
		Use:   "jsh [script] [args...]",
		Short: "Scriptable shell with loadable native modules",
		Long: `jsh runs the boot scripts from JSBOOT/ (or JSBOOT.ZIP) and then the
given script. Scripts load native modules with LoadLibrary(name); every
loaded module is shut down when the shell exits.`,
		Args:              cobra.MinimumNArgs(1),
		PersistentPreRunE: loadEnv,
		RunE:              runScript,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./jsh.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&engineType, "engine", "", "script engine: js or lua")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noTCPIP, "no-tcpip", false, "disable networking modules in scripts")

	rootCmd.AddCommand(checkCmd)
}

// Execute runs the root command and exits with the script's status code.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(jshell.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func loadEnv(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	return nil
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return nil, err
	}
	if engineType != "" {
		cfg.Engine = engineType
	}
	if debug {
		cfg.Debug = true
	}
	if noTCPIP {
		cfg.NoTCPIP = true
	}
	return cfg, cfg.Validate()
}

// newLogger writes to the configured log file and falls back to stderr when
// it cannot be opened.
func newLogger(cfg *config.Config) (*log.Logger, io.Closer) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			return jshell.NewLogger(f, cfg.Debug), f
		}
	}
	return jshell.NewLogger(os.Stderr, cfg.Debug), io.NopCloser(os.Stderr)
}

func newLoader(cfg *config.Config, fs afero.Fs) jshell.Loader {
	switch cfg.Loader {
	case config.LoaderGo:
		return jshell.NewGoLoader(fs)
	case config.LoaderPlugin:
		return jshell.NewPluginLoader()
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	logger, closer := newLogger(cfg)
	defer closer.Close()

	fs := afero.NewOsFs()
	sh, err := jshell.New(jshell.Options{
		EngineType:  cfg.Engine,
		Fs:          fs,
		Loader:      newLoader(cfg, fs),
		LibraryPath: cfg.LibraryPath,
		BootDir:     cfg.BootDir,
		BootArchive: cfg.BootArchive,
		Logger:      logger,
		Stdout:      cmd.OutOrStdout(),
		NoNetwork:   cfg.NoTCPIP,
	})
	if err != nil {
		return err
	}
	defer sh.Close()

	if err := sh.Namespace().ExposeProperty("args", args[1:]); err != nil {
		return err
	}
	if err := sh.Boot(); err != nil {
		return &ExitError{Code: exitRuntimeError, Err: err}
	}

	status, err := sh.RunFile(args[0])
	switch status {
	case jshell.StatusSuccess:
		return nil
	case jshell.StatusCompileError:
		return &ExitError{Code: exitCompileError, Err: err}
	case jshell.StatusFileNotFound:
		return &ExitError{Code: exitFileNotFound, Err: err}
	}
	return &ExitError{Code: exitRuntimeError, Err: err}
}
