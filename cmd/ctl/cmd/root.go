package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/encapdoc"
	"github.com/jpfielding/encapdoc.go/pkg/logging"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logFile io.Closer
	cmd := &cobra.Command{
		Use:           "encapdoc",
		Short:         "convert CDA, PDF and 3D model documents into DICOM encapsulated documents",
		Long:          "encapdoc wraps a document into a DICOM encapsulated document instance, carrying patient, study and series metadata from flags, a config file, the environment, an existing series file and, for CDA, the document itself.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel, _ := cmd.Flags().GetString("log-level")
			jsonLogs, _ := cmd.Flags().GetBool("log-json")
			path, _ := cmd.Flags().GetString("log-file")

			// Parse log level
			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stderr
			if path != "" {
				f := logging.FileWriter(path, logging.FileOptions{})
				logFile = f
				w = io.MultiWriter(os.Stderr, f)
			}
			slog.SetDefault(logging.Logger(w, jsonLogs, level))
			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				logFile.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return errors.WithHint(errors.Mark(err, encapdoc.ErrUsage), "see "+c.CommandPath()+" --help")
	})
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewDumpCmd(ctx),
	)
	for _, kind := range encapdoc.DocumentKinds {
		cmd.AddCommand(NewEncapCmd(ctx, kind))
	}
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.Bool("log-json", false, "Log as JSON")
	pf.String("log-file", "", "Also log to this file, rotated by size")
	pf.String("config", "", "YAML or TOML file holding flag values")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(gitsha)
		},
	}
	return cmd
}
