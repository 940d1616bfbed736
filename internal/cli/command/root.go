package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shadowhome-go/internal/cli/config"
	"github.com/yndnr/shadowhome-go/internal/cli/connection"
	"github.com/yndnr/shadowhome-go/internal/cli/output"
	"github.com/yndnr/shadowhome-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	info := buildinfo.Get()
	return &cli.App{
		Name:    "shadowhome-cli",
		Usage:   "ShadowHome wallet session command-line tool",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			WalletCommand(),
			VerifyCommand(),
			KeystoreCommand(),
			ConfigCommand(),
			SystemCommand(),
		},
		Before: func(c *cli.Context) error {
			if _, err := output.ParseFormat(c.String("output")); err != nil {
				return err
			}
			return nil
		},
	}
}

// globalFlags returns the global CLI flags. Server, token and TLS flags
// have no default so that unset flags fall back to the CLI config file.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "ShadowHome server URL (e.g., http://localhost:5380)",
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "API token for authentication",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "CA certificate for verifying the server",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file",
			Value:   config.DefaultConfigPath(),
		},
	}
}

// GlobalFlags holds the effective global settings.
type GlobalFlags struct {
	config.Settings

	Wide       bool
	ConfigPath string
}

// ParseGlobalFlags resolves global flags against the CLI config file and
// SHADOWHOME_CLI_* environment variables.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := map[string]string{
		"server":  c.String("server"),
		"token":   c.String("token"),
		"ca-file": c.String("ca-file"),
		"output":  c.String("output"),
	}
	if c.IsSet("insecure") {
		flags["insecure"] = fmt.Sprint(c.Bool("insecure"))
	}

	return &GlobalFlags{
		Settings:   config.Merge(cfg, config.Environ(), flags),
		Wide:       c.Bool("wide"),
		ConfigPath: path,
	}, nil
}

// EnsureConnected returns an HTTP client for the configured server.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, err
	}
	return connection.NewHTTPClient(connection.Options{
		Server:   flags.Server,
		Token:    flags.Token,
		CAFile:   flags.CAFile,
		Insecure: flags.Insecure,
	})
}

// commandContext returns the context for one request.
func commandContext(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

// printResult writes data in the selected output format.
func printResult(c *cli.Context, data any) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, flags.Wide).Format(writer(c), data)
}

// isTableOutput reports whether human-oriented output is selected.
func isTableOutput(c *cli.Context) bool {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return true
	}
	format, err := output.ParseFormat(flags.Output)
	return err != nil || format == output.FormatTable
}

func writer(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func errWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
