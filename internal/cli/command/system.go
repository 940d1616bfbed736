package command

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shadowhome-go/internal/infra/buildinfo"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server health and version",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check server health",
				Action: systemHealth,
			},
			{
				Name:   "ready",
				Usage:  "Check server readiness and provider availability",
				Action: systemReady,
			},
			{
				Name:   "version",
				Usage:  "Show client and server versions",
				Action: systemVersion,
			},
		},
	}
}

func systemHealth(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	var result healthView
	if err := client.Call(commandContext(c), http.MethodGet, "/health", nil, &result); err != nil {
		PrintError("health check failed: %v", err)
		return fmt.Errorf("server unhealthy")
	}

	if !isTableOutput(c) {
		return printResult(c, result)
	}
	w := writer(c)
	if result.Status == "healthy" {
		fmt.Fprintf(w, "✓ Server is healthy\n")
	} else {
		fmt.Fprintf(w, "✗ Server is unhealthy: %s\n", result.Status)
	}
	fmt.Fprintf(w, "  Target:  %s\n", client.BaseURL())
	fmt.Fprintf(w, "  Version: %s\n", result.Build.Version)
	return nil
}

func systemReady(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	var result readyView
	if err := client.Call(commandContext(c), http.MethodGet, "/ready", nil, &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func systemVersion(c *cli.Context) error {
	type versionView struct {
		Component string `json:"component"`
		Version   string `json:"version"`
		Commit    string `json:"commit"`
		BuildTime string `json:"build_time"`
		GoVersion string `json:"go_version,omitempty"`
	}

	local := buildinfo.Get()
	views := []versionView{{"client", local.Version, local.Commit, local.BuildTime, local.GoVersion}}

	if client, err := EnsureConnected(c); err == nil {
		var h healthView
		if err := client.Call(commandContext(c), http.MethodGet, "/health", nil, &h); err == nil {
			views = append(views, versionView{"server", h.Build.Version, h.Build.Commit, h.Build.BuildTime, h.Build.GoVersion})
		}
	}
	return printResult(c, views)
}
