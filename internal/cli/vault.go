package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/pkg/vault"
)

const passphraseEnv = "PACKWRAP_PASSPHRASE"

type vaultFlags struct {
	user       string
	label      string
	passphrase string
}

// resolve returns the vault, the canonical user and the passphrase.
func (f *vaultFlags) resolve() (*vault.Vault, string, string, error) {
	if f.user == "" {
		return nil, "", "", errors.New("--user is required")
	}
	pass := f.passphrase
	if pass == "" {
		pass = os.Getenv(passphraseEnv)
	}
	if pass == "" {
		return nil, "", "", fmt.Errorf("passphrase missing: use --passphrase or %s", passphraseEnv)
	}
	return vault.New(f.label), models.CanonicalUsername(f.user), pass, nil
}

func newVaultCmd(opts *options) *cobra.Command {
	flags := &vaultFlags{}

	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Seal or open courier credentials",
	}
	cmd.PersistentFlags().StringVar(&flags.user, "user", "", "account username the credentials belong to")
	cmd.PersistentFlags().StringVar(&flags.label, "label", "steadfast", "service label mixed into the salt")
	cmd.PersistentFlags().StringVar(&flags.passphrase, "passphrase", "", "vault passphrase (defaults to $"+passphraseEnv+")")

	cmd.AddCommand(&cobra.Command{
		Use:   "seal",
		Short: `Seal {"apiKey","secretKey"} JSON read from stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, user, pass, err := flags.resolve()
			if err != nil {
				return err
			}

			var creds models.CourierCredentials
			if err := json.NewDecoder(cmd.InOrStdin()).Decode(&creds); err != nil {
				return fmt.Errorf("read credentials: %w", err)
			}
			if !creds.Complete() {
				return errors.New("apiKey and secretKey are required")
			}

			sealed, err := v.Seal(pass, user, creds)
			if err != nil {
				return err
			}
			opts.log.Debug("credentials sealed")
			return printJSON(cmd, sealed)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "open",
		Short: "Open a sealed {v,iv,ct,ts} blob read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, user, pass, err := flags.resolve()
			if err != nil {
				return err
			}

			var sealed vault.Sealed
			if err := json.NewDecoder(cmd.InOrStdin()).Decode(&sealed); err != nil {
				return fmt.Errorf("read sealed payload: %w", err)
			}

			var creds models.CourierCredentials
			if err := v.Open(pass, user, sealed, &creds); err != nil {
				return err
			}
			return printJSON(cmd, creds)
		},
	})

	return cmd
}
