package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	cliconfig "github.com/yndnr/shadowhome-go/internal/cli/config"
	"github.com/yndnr/shadowhome-go/internal/infra/confloader"
	serverconfig "github.com/yndnr/shadowhome-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "cli",
				Usage: "CLI local configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show the effective CLI settings",
						Action: configCLIShow,
					},
					{
						Name:      "set-connection",
						Usage:     "Create or update a connection profile",
						ArgsUsage: "NAME",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "url", Usage: "Server URL"},
							&cli.StringFlag{Name: "api-token", Usage: "API token"},
							&cli.StringFlag{Name: "ca", Usage: "CA certificate file"},
							&cli.BoolFlag{Name: "skip-verify", Usage: "Skip TLS certificate verification"},
							&cli.BoolFlag{Name: "use", Usage: "Make it the current connection"},
						},
						Action: configCLISetConnection,
					},
					{
						Name:      "use",
						Usage:     "Select the current connection profile",
						ArgsUsage: "NAME",
						Action:    configCLIUse,
					},
				},
			},
			{
				Name:  "server",
				Usage: "Server configuration",
				Subcommands: []*cli.Command{
					{
						Name:      "test",
						Usage:     "Validate a server configuration file",
						ArgsUsage: "FILE",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "show",
								Usage: "Print the merged configuration as YAML with secrets masked",
							},
						},
						Action: configServerTest,
					},
				},
			},
		},
	}
}

func configCLIShow(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	token := "(none)"
	if flags.Token != "" {
		token = "****"
	}
	view := struct {
		ConfigFile string `json:"config_file"`
		Server     string `json:"server"`
		Token      string `json:"token"`
		CAFile     string `json:"ca_file"`
		Insecure   bool   `json:"insecure"`
		Output     string `json:"output"`
	}{flags.ConfigPath, flags.Server, token, flags.CAFile, flags.Insecure, flags.Output}
	return printResult(c, view)
}

func configCLISetConnection(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one NAME argument")
	}
	name := c.Args().First()
	path := c.String("config")

	cfg, err := cliconfig.Load(path)
	if err != nil {
		return err
	}

	conn := cfg.Connections[name]
	if c.IsSet("url") {
		conn.Server = c.String("url")
	}
	if c.IsSet("api-token") {
		conn.Token = c.String("api-token")
	}
	if c.IsSet("ca") {
		conn.CAFile = c.String("ca")
	}
	if c.IsSet("skip-verify") {
		conn.Insecure = c.Bool("skip-verify")
	}
	cfg.Connections[name] = conn
	if c.Bool("use") || cfg.CurrentConnection == "" {
		cfg.CurrentConnection = name
	}

	if err := cliconfig.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(writer(c), "Saved connection %q to %s\n", name, path)
	return nil
}

func configCLIUse(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one NAME argument")
	}
	name := c.Args().First()
	path := c.String("config")

	cfg, err := cliconfig.Load(path)
	if err != nil {
		return err
	}
	if _, ok := cfg.Connections[name]; !ok {
		return fmt.Errorf("unknown connection %q", name)
	}
	cfg.CurrentConnection = name
	if err := cliconfig.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(writer(c), "Using connection %q\n", name)
	return nil
}

func configServerTest(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one FILE argument")
	}
	path := c.Args().First()

	cfg := serverconfig.Default()
	if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
		return err
	}
	if err := serverconfig.Verify(cfg); err != nil {
		return fmt.Errorf("%s is invalid:\n%w", path, err)
	}

	if c.Bool("show") {
		enc := yaml.NewEncoder(writer(c))
		enc.SetIndent(2)
		if err := enc.Encode(serverconfig.Sanitize(cfg)); err != nil {
			return err
		}
		return enc.Close()
	}
	fmt.Fprintf(writer(c), "✓ %s is valid\n", path)
	return nil
}
