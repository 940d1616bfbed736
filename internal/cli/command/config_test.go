package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/shadowhome-go/internal/cli/config"
)

// runWithConfig runs the app against a fixed CLI config path.
func runWithConfig(t *testing.T, path string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr strings.Builder
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"shadowhome-cli", "--config", path}, args...))
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestConfigCLI_Profiles(t *testing.T) {
	for _, key := range []string{cliconfig.EnvServer, cliconfig.EnvToken, cliconfig.EnvOutput} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "cli.yaml")

	res := runWithConfig(t, path, "config", "cli", "set-connection", "--url", "https://hub.local:5380", "--api-token", "abc123", "home")
	res.mustContain(t, `Saved connection "home"`)

	res = runWithConfig(t, path, "config", "cli", "set-connection", "--url", "http://lab:5380", "lab")
	res.mustContain(t, `Saved connection "lab"`)

	cfg, err := cliconfig.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentConnection != "home" {
		t.Errorf("first profile should become current, got %q", cfg.CurrentConnection)
	}

	res = runWithConfig(t, path, "-o", "json", "config", "cli", "show")
	res.mustContain(t, `"server": "https://hub.local:5380"`, `"token": "****"`)
	if strings.Contains(res.stdout, "abc123") {
		t.Error("token leaked in config show")
	}

	res = runWithConfig(t, path, "config", "cli", "use", "lab")
	res.mustContain(t, `Using connection "lab"`)

	res = runWithConfig(t, path, "-o", "json", "config", "cli", "show")
	res.mustContain(t, `"server": "http://lab:5380"`, `"token": "(none)"`)

	res = runWithConfig(t, path, "config", "cli", "use", "missing")
	if res.err == nil {
		t.Error("use of unknown profile should fail")
	}
}

func TestConfigServerTest(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.yaml")
	invalid := filepath.Join(dir, "invalid.yaml")

	if err := os.WriteFile(valid, []byte("server:\n  http:\n    auth_token: supersecret\nwallet:\n  provider: bridge\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(invalid, []byte("wallet:\n  provider: carrier-pigeon\nlog:\n  level: loud\n"), 0600); err != nil {
		t.Fatal(err)
	}

	// A bare section name in the environment must not replace the section.
	t.Setenv("SHADOWHOME_SERVER", "http://hub.local:5380")

	res := runCLI(t, nil, "config", "server", "test", valid)
	res.mustContain(t, "is valid")

	res = runCLI(t, nil, "config", "server", "test", "--show", valid)
	res.mustContain(t, "provider: bridge")
	if strings.Contains(res.stdout, "supersecret") {
		t.Error("auth token should be masked")
	}

	res = runCLI(t, nil, "config", "server", "test", invalid)
	if res.err == nil {
		t.Fatal("invalid config should fail")
	}
	for _, want := range []string{"provider", "level"} {
		if !strings.Contains(res.err.Error(), want) {
			t.Errorf("error should report %q: %v", want, res.err)
		}
	}
}
