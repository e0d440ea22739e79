package main

import (
	"fmt"
	"io"

	"github.com/etnz/debroot/manifest"
	"github.com/spf13/cobra"
)

// printEvents returns a listener writing one JSON event per line.
func printEvents(w io.Writer) manifest.Listener {
	return func(e fmt.Stringer) {
		fmt.Fprintln(w, e)
	}
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [buildfile]",
		Short: "Build every package listed in a build file",
		Long: `Build every package listed in a build file (default build.yaml).

The build file is YAML, TOML or JSON depending on its extension. Each
package is written to the output directory under its standard filename
unless its definition sets one. One JSON event per line is printed as the
build progresses.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "build.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			opts, err := assemblerOptions()
			if err != nil {
				return err
			}

			b, err := manifest.NewBuildFile(path, manifestOptions()...)
			if err != nil {
				return err
			}
			if output := cfg.GetString("output"); output != "" {
				if err := b.SetOutput(output); err != nil {
					return err
				}
			}
			results, err := b.Compile(printEvents(cmd.OutOrStdout()), opts...)
			if err != nil {
				return err
			}
			logger.Info("build complete", "packages", len(results))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "override the output directory of the build file")
	return cmd
}

func newPackageCmd() *cobra.Command {
	var defines map[string]string
	cmd := &cobra.Command{
		Use:   "package <pkgfile>",
		Short: "Build a single package definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := assemblerOptions()
			if err != nil {
				return err
			}
			pkg, err := manifest.LoadPackage(args[0], cfg.GetString("distribution"), cfg.GetString("prefix"), defines, manifestOptions()...)
			if err != nil {
				return err
			}
			info, res, err := pkg.Build(cfg.GetString("output"), opts...)
			if err != nil {
				return err
			}
			printEvents(cmd.OutOrStdout())(manifest.EventPackageBuilt{
				FilePath:      pkg.FilePath(),
				Path:          res.Path,
				Package:       info.Name().String(),
				Version:       info.Version().String(),
				Architecture:  info.Architecture().String(),
				InstalledSize: res.InstalledSize,
				Size:          res.Size,
				Digest:        res.Digest.String(),
			})
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", ".", "output directory")
	cmd.Flags().String("distribution", "", "target distribution, available to templates")
	cmd.Flags().String("prefix", "", "prefix of relative permission and conffile paths")
	cmd.Flags().StringToStringVarP(&defines, "define", "D", nil, "define template variables (KEY=VAL)")
	return cmd
}
