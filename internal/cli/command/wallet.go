package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shadowhome-go/internal/cli/connection"
	"github.com/yndnr/shadowhome-go/internal/cli/output"
)

// WalletCommand returns the wallet subcommand group.
func WalletCommand() *cli.Command {
	return &cli.Command{
		Name:    "wallet",
		Aliases: []string{"w"},
		Usage:   "Wallet session commands",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the current wallet session",
				Action: walletStatus,
			},
			{
				Name:   "connect",
				Usage:  "Connect and authenticate the wallet",
				Action: walletOperation("connect", "Waiting for wallet approval"),
			},
			{
				Name:    "authenticate",
				Aliases: []string{"auth"},
				Usage:   "Sign a fresh challenge with the connected wallet",
				Action:  walletOperation("authenticate", "Waiting for signature"),
			},
			{
				Name:   "disconnect",
				Usage:  "Disconnect the wallet",
				Action: walletOperation("disconnect", "Disconnecting"),
			},
			{
				Name:   "challenge",
				Usage:  "Show the challenge the wallet would sign now",
				Action: walletChallenge,
			},
			{
				Name:  "events",
				Usage: "List recent session transitions",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of events (1-1000)",
						Value:   50,
					},
				},
				Action: walletEvents,
			},
			{
				Name:   "watch",
				Usage:  "Stream session changes until interrupted",
				Action: walletWatch,
			},
		},
	}
}

func walletStatus(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	var view walletView
	if err := client.Call(commandContext(c), http.MethodGet, "/v1/wallet", nil, &view); err != nil {
		return err
	}
	return printResult(c, view)
}

// walletOperation runs a POST /v1/wallet/<op>. On failure the session state
// the server reports is printed before the error is returned.
func walletOperation(op, waiting string) cli.ActionFunc {
	return func(c *cli.Context) error {
		client, err := EnsureConnected(c)
		if err != nil {
			return err
		}

		var spinner *output.Spinner
		if isTableOutput(c) {
			spinner = output.NewSpinner(errWriter(c), waiting)
			spinner.Start()
		}

		var view walletView
		err = client.Call(commandContext(c), http.MethodPost, "/v1/wallet/"+op, nil, &view)
		if err != nil {
			if spinner != nil {
				spinner.Fail(op + " failed")
			}
			var apiErr *connection.APIError
			if errors.As(err, &apiErr) && len(apiErr.Details) > 0 {
				var left walletView
				if json.Unmarshal(apiErr.Details, &left) == nil && left.State != "" {
					if perr := printResult(c, left); perr != nil {
						return perr
					}
				}
			}
			return err
		}

		if spinner != nil {
			spinner.Success(view.State)
		}
		return printResult(c, view)
	}
}

func walletChallenge(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	var ch challengeView
	if err := client.Call(commandContext(c), http.MethodGet, "/v1/wallet/challenge", nil, &ch); err != nil {
		return err
	}

	if isTableOutput(c) {
		fmt.Fprintln(writer(c), ch.Message)
		return nil
	}
	return printResult(c, ch)
}

func walletEvents(c *cli.Context) error {
	limit := c.Int("limit")
	if limit < 1 || limit > 1000 {
		return fmt.Errorf("--limit must be between 1 and 1000, got %d", limit)
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var events eventsView
	if err := client.Call(commandContext(c), http.MethodGet, "/v1/wallet/events?"+q.Encode(), nil, &events); err != nil {
		return err
	}

	if isTableOutput(c) {
		if len(events.Items) == 0 {
			fmt.Fprintln(writer(c), "No events recorded.")
			return nil
		}
		return printResult(c, events.Items)
	}
	return printResult(c, events)
}

func walletWatch(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx := commandContext(c)
	conn, err := client.DialStream(ctx, "/v1/wallet/stream")
	if err != nil {
		return err
	}
	defer conn.Close()

	table := isTableOutput(c)
	w := writer(c)
	err = connection.ReadStream(ctx, conn, func(f streamFrame) error {
		if !table {
			return printResult(c, f)
		}
		s := f.Data
		line := fmt.Sprintf("%s  v%-4d %-15s", s.UpdatedAt.Local().Format(time.TimeOnly), s.Version, s.State)
		if s.Identity != "" {
			line += "  " + s.Identity
		}
		if s.Loading {
			line += "  (pending)"
		}
		if s.LastError != nil {
			line += "  " + s.LastError.String()
		}
		fmt.Fprintln(w, line)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
