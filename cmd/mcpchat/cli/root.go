// Package cli implements the mcpchat command line using cobra.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "cli")

const version = "0.1.0"

// flags are shared by all commands.
type flags struct {
	config   string
	model    string
	servers  []string
	maxTurns int
	logLevel string
	builtin  bool
}

var logLevels = map[string]xlog.LogLevel{
	"error":   xlog.ERROR,
	"warning": xlog.WARNING,
	"info":    xlog.INFO,
	"debug":   xlog.DEBUG,
}

// NewRootCmd returns the mcpchat command tree.
func NewRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "mcpchat",
		Short:         "Chat with a language model that calls MCP tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setLogLevel(cmd, f.logLevel)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "Configuration file: YAML, JSON or TOML")
	pf.StringVarP(&f.model, "model", "m", "", "Model name, overrides the configured one")
	pf.StringArrayVarP(&f.servers, "server", "s", nil, "MCP server as name=spec, can be repeated")
	pf.IntVar(&f.maxTurns, "max-turns", -1, "Maximum model turns per query, 0 for no limit")
	pf.StringVar(&f.logLevel, "log-level", "error", "Log level: error, warning, info or debug")
	pf.BoolVar(&f.builtin, "builtin", true, "Offer the built-in tools")

	root.AddCommand(newChatCmd(f))
	root.AddCommand(newToolsCmd(f))
	root.AddCommand(newSessionsCmd(f))
	return root
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setLogLevel(cmd *cobra.Command, level string) error {
	l, ok := logLevels[strings.ToLower(level)]
	if !ok {
		return errors.Newf("invalid log level %q", level)
	}
	xlog.SetFormatter(xlog.NewStringFormatter(cmd.ErrOrStderr()))
	xlog.SetGlobalLogLevel(l)
	return nil
}
