package command

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/core/service"
	"github.com/yndnr/shadowhome-go/internal/provider/software"
	"github.com/yndnr/shadowhome-go/pkg/crypto/adaptive"
	"github.com/yndnr/shadowhome-go/pkg/sigverify"
)

// PassphraseEnv is read when no passphrase file is given. It matches the
// server's wallet.software.passphrase environment override.
const PassphraseEnv = "SHADOWHOME_WALLET_SOFTWARE_PASSPHRASE"

// KeystoreCommand returns the keystore subcommand group.
func KeystoreCommand() *cli.Command {
	passphraseFlag := &cli.StringFlag{
		Name:  "passphrase-file",
		Usage: "Read the passphrase from a file (default: $" + PassphraseEnv + ")",
	}

	return &cli.Command{
		Name:    "keystore",
		Aliases: []string{"ks"},
		Usage:   "Software wallet keystore commands",
		Subcommands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "Generate accounts into a new encrypted keystore",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					passphraseFlag,
					&cli.IntFlag{
						Name:  "accounts",
						Usage: "Number of accounts to generate",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: keystoreNew,
			},
			{
				Name:      "show",
				Usage:     "Show the public part of a keystore",
				ArgsUsage: "FILE",
				Action:    keystoreShow,
			},
			{
				Name:      "sign",
				Usage:     "Sign a message with the active keystore account",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					passphraseFlag,
					&cli.StringFlag{
						Name:     "message",
						Usage:    "Message text to sign",
						Required: true,
					},
				},
				Action: keystoreSign,
			},
		},
	}
}

// keystoreView is the printed summary of a keystore.
type keystoreView struct {
	File      string   `json:"file"`
	Version   int      `json:"version"`
	Cipher    string   `json:"cipher"`
	KDF       string   `json:"kdf"`
	Accounts  []string `json:"accounts"`
	CreatedAt string   `json:"created_at"`
}

func keystoreNew(c *cli.Context) error {
	path, err := keystorePath(c)
	if err != nil {
		return err
	}
	n := c.Int("accounts")
	if n < 1 {
		return fmt.Errorf("--accounts must be at least 1")
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	pass, err := readPassphrase(c)
	if err != nil {
		return err
	}

	w, err := software.Generate(n)
	if err != nil {
		return err
	}
	if err := software.SaveKeystore(path, pass, w, adaptive.DefaultKDFParams()); err != nil {
		return fmt.Errorf("save keystore: %w", err)
	}
	return printKeystore(c, path)
}

func keystoreShow(c *cli.Context) error {
	path, err := keystorePath(c)
	if err != nil {
		return err
	}
	return printKeystore(c, path)
}

func keystoreSign(c *cli.Context) error {
	path, err := keystorePath(c)
	if err != nil {
		return err
	}
	pass, err := readPassphrase(c)
	if err != nil {
		return err
	}

	w, err := software.LoadKeystore(path, pass, software.WithApprover(software.AutoApprove()))
	if err != nil {
		return err
	}

	ctx := commandContext(c)
	identity, err := w.Connect(ctx, service.ConnectOptions{})
	if err != nil {
		return err
	}
	defer w.Disconnect(ctx)

	signed, err := w.SignMessage(ctx, []byte(c.String("message")), domain.ChallengeEncoding)
	if err != nil {
		return err
	}

	result := struct {
		Identity  string `json:"identity"`
		Signature string `json:"signature"`
	}{
		Identity:  identity.String(),
		Signature: sigverify.EncodeSignature(signed.Signature),
	}
	return printResult(c, result)
}

func printKeystore(c *cli.Context, path string) error {
	info, err := software.ReadKeystoreInfo(path)
	if err != nil {
		return err
	}

	view := keystoreView{
		File:      path,
		Version:   info.Version,
		Cipher:    string(info.Cipher),
		KDF:       info.KDF,
		CreatedAt: info.CreatedAt.Local().Format("2006-01-02 15:04:05"),
	}
	for _, id := range info.Accounts {
		view.Accounts = append(view.Accounts, id.String())
	}
	return printResult(c, view)
}

func keystorePath(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.New("expected exactly one FILE argument")
	}
	return c.Args().First(), nil
}

// readPassphrase reads --passphrase-file or the environment. Trailing
// newlines are stripped from files.
func readPassphrase(c *cli.Context) ([]byte, error) {
	if path := c.String("passphrase-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		pass := strings.TrimRight(string(data), "\r\n")
		if pass == "" {
			return nil, fmt.Errorf("passphrase file %s is empty", path)
		}
		return []byte(pass), nil
	}
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return []byte(pass), nil
	}
	return nil, fmt.Errorf("no passphrase: set $%s or use --passphrase-file", PassphraseEnv)
}
