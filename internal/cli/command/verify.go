package command

import (
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"
)

// VerifyCommand returns the verify command.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify a detached signature against a public key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "signature",
				Usage:    "Signature (hex, base58 or base64)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "message",
				Usage: "Signed message text",
			},
			&cli.StringFlag{
				Name:  "message-file",
				Usage: "Read the signed message from a file",
			},
			&cli.StringFlag{
				Name:     "identity",
				Usage:    "Base58 public key of the signer",
				Required: true,
			},
		},
		Action: verifySignature,
	}
}

func verifySignature(c *cli.Context) error {
	message := c.String("message")
	if path := c.String("message-file"); path != "" {
		if message != "" {
			return fmt.Errorf("--message and --message-file are mutually exclusive")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		message = string(data)
	}
	if message == "" {
		return fmt.Errorf("one of --message or --message-file is required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	req := verifyRequest{
		Signature: c.String("signature"),
		Message:   message,
		Identity:  c.String("identity"),
	}
	var res verifyView
	if err := client.Call(commandContext(c), http.MethodPost, "/v1/signatures/verify", req, &res); err != nil {
		return err
	}

	if !isTableOutput(c) {
		return printResult(c, res)
	}
	if res.Valid {
		fmt.Fprintln(writer(c), "✓ Signature is valid")
		return nil
	}
	fmt.Fprintln(writer(c), "✗ Signature is NOT valid")
	return cli.Exit("", 2)
}
