// Package main provides the ideogram-genes command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/ideogram-genes/internal/config"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var cfgFile string

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, new(*usageError)), strings.HasPrefix(err.Error(), "unknown command"):
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fmt.Fprint(os.Stderr, root.UsageString())
		return ExitUsage
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
}

// usageError marks command-line mistakes so run can exit with ExitUsage.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ideogram-genes",
		Short: "Resolve gene lists and draw them on a chromosome ideogram",
		Long: `ideogram-genes resolves gene names against a remote annotation service and
shows the resolved genes on a human chromosome ideogram.`,
		Example: `  # Resolve the genes in a file (one name per line)
  ideogram-genes resolve genes.txt

  # Pick a gene and print JSON
  ideogram-genes resolve --select KRAS --format json genes.txt

  # Serve the viewer API
  ideogram-genes serve --addr :8080`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return &usageError{err: errors.New("a command is required")}
		},
	}
	root.SetVersionTemplate("ideogram-genes version {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/"+config.FileName+")")
	pf.String("assembly", "", "Genome assembly: GRCh38 or GRCh37")
	pf.String("orientation", "", "Ideogram orientation: vertical or horizontal")
	pf.String("service-host", "", "Annotation service host")
	pf.Int("service-port", 0, "Annotation service port")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	bindFlag(pf.Lookup("assembly"), "assembly")
	bindFlag(pf.Lookup("orientation"), "orientation")
	bindFlag(pf.Lookup("service-host"), "service.host")
	bindFlag(pf.Lookup("service-port"), "service.port")
	bindFlag(pf.Lookup("log-level"), "log.level")

	root.AddCommand(newResolveCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newAssembliesCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig reads the config file (if any) and environment overrides into
// the global viper instance.
func initConfig() error {
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.SetConfigFile(filepath.Join(home, config.FileName))
	}
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if cfgFile != "" {
				return fmt.Errorf("reading config %s: %w", cfgFile, err)
			}
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, &usageError{err: err}
	}
	return cfg, nil
}
