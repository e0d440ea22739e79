// Command debroot assembles Debian binary packages from staged directory trees.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/etnz/debroot/deb"
	"github.com/etnz/debroot/manifest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// version is the semantic version (set via -ldflags).
	version = "dev"

	cfgFile string
	verbose bool
	logger  = log.NewWithOptions(os.Stderr, log.Options{Prefix: "debroot"})
	cfg     = viper.New()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "debroot",
		Short: "Assemble Debian packages from a staged directory tree",
		Long: `debroot builds .deb packages without dpkg-deb or fakeroot.

The payload is a destroot directory; ownership and modes come from the
package definition, so packages are built as an unprivileged user.

Settings are read from flags, from DEBROOT_* environment variables and
from an optional debroot.yaml in the working directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./debroot.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().String("compression", "gzip", "tarball compression: gzip, xz, zstd or none")
	root.PersistentFlags().Int("workers", 1, "number of files hashed concurrently")
	root.PersistentFlags().Int64("source-date-epoch", 0, "pin modification times to this unix time (also SOURCE_DATE_EPOCH)")
	root.PersistentFlags().Int("wrap-width", deb.DefaultWrapWidth, "description wrap column, 0 disables wrapping")
	root.PersistentFlags().String("temp-dir", "", "directory used to stage tarballs")
	root.PersistentFlags().Bool("strict-arch", false, "reject architectures unknown to dpkg in every package")

	root.AddCommand(newBuildCmd(), newPackageCmd(), newInspectCmd(), newVersionCmd())
	return root
}

// initConfig binds flags, environment and the optional config file. The
// flags of the running command are bound, persistent and local alike.
func initConfig(cmd *cobra.Command) error {
	if err := cfg.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg.SetEnvPrefix("DEBROOT")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()
	if err := cfg.BindEnv("source-date-epoch", "DEBROOT_SOURCE_DATE_EPOCH", "SOURCE_DATE_EPOCH"); err != nil {
		return err
	}

	if cfgFile != "" {
		cfg.SetConfigFile(cfgFile)
	} else {
		cfg.SetConfigName("debroot")
		cfg.AddConfigPath(".")
	}
	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	} else {
		logger.Debug("config loaded", "path", cfg.ConfigFileUsed())
	}

	if verbose || cfg.GetBool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}
	return nil
}

// assemblerOptions turns the configuration into assembler options.
func assemblerOptions() ([]deb.Option, error) {
	c, err := deb.ParseCompression(cfg.GetString("compression"))
	if err != nil {
		return nil, err
	}
	opts := []deb.Option{
		deb.WithLogger(logger),
		deb.WithCompression(c),
		deb.WithWorkers(cfg.GetInt("workers")),
		deb.WithWrapWidth(cfg.GetInt("wrap-width")),
		deb.WithTempDir(cfg.GetString("temp-dir")),
	}
	if epoch := cfg.GetInt64("source-date-epoch"); epoch > 0 {
		opts = append(opts, deb.WithModTime(time.Unix(epoch, 0).UTC()))
	}
	return opts, nil
}

// manifestOptions turns the configuration into manifest load options.
func manifestOptions() []manifest.Option {
	return []manifest.Option{
		manifest.WithLogger(logger),
		manifest.WithStrictArch(cfg.GetBool("strict-arch")),
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "debroot %s\n", version)
		},
	}
}
