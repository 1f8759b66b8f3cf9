package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"verox/go-wallet/internal/biometric"
	"verox/go-wallet/internal/wallet"
)

type walletView struct {
	Address     string `json:"address" yaml:"address"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	Path        string `json:"path" yaml:"path"`
	CreatedAt   string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	PrivateKey  string `json:"private_key,omitempty" yaml:"private_key,omitempty"`
}

func newWalletView(w *wallet.Wallet) walletView {
	return walletView{
		Address:     w.Address,
		Fingerprint: wallet.Fingerprint(w.Address),
		Path:        w.Path,
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
	}
}

func newWalletCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Create, unlock and back up wallets",
	}
	cmd.AddCommand(
		newWalletCreateCmd(opts),
		newWalletUnlockCmd(opts),
		newWalletListCmd(opts),
		newWalletChangePassphraseCmd(opts),
		newWalletExportMnemonicCmd(opts),
		newWalletImportCmd(opts),
	)
	return cmd
}

func newWalletCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "create",
		Aliases: []string{"init"},
		Short:   "Generate a new wallet and seal it under a passphrase",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			pass, err := opts.readNewPassphrase(cmd, passphraseSource{
				file:   opts.passphraseFile,
				env:    envPassphrase,
				prompt: "New passphrase: ",
			})
			if err != nil {
				return err
			}
			w, err := rt.Wallets.Create(pass)
			if err != nil {
				return err
			}
			view := newWalletView(w)
			return opts.render(cmd.OutOrStdout(), view, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s Wallet created\n", color.GreenString("✓"))
				fmt.Fprintf(out, "  Address:     %s\n", view.Address)
				fmt.Fprintf(out, "  Fingerprint: %s\n", view.Fingerprint)
				fmt.Fprintf(out, "  Keystore:    %s\n", view.Path)
			})
		},
	}
}

func newWalletUnlockCmd(opts *rootOptions) *cobra.Command {
	var (
		address        string
		withBiometric  bool
		showPrivateKey bool
	)
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Open a wallet keystore with its passphrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if withBiometric {
				verdict, err := rt.Biometric.Verify(cmd.Context())
				if err != nil {
					return err
				}
				if verdict != biometric.VerdictVerified {
					return biometric.ErrDenied
				}
			}
			pass, err := opts.readPassphrase(cmd, passphraseSource{
				file:   opts.passphraseFile,
				env:    envPassphrase,
				prompt: "Passphrase: ",
			})
			if err != nil {
				return err
			}
			var w *wallet.Wallet
			if address == "" {
				w, err = rt.Wallets.Unlock(pass)
			} else {
				w, err = rt.Wallets.UnlockAddress(address, pass)
			}
			if err != nil {
				return err
			}
			view := newWalletView(w)
			if showPrivateKey {
				view.PrivateKey = w.PrivateKeyHex()
			}
			return opts.render(cmd.OutOrStdout(), view, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s Wallet unlocked\n", color.GreenString("✓"))
				fmt.Fprintf(out, "  Address:     %s\n", view.Address)
				fmt.Fprintf(out, "  Fingerprint: %s\n", view.Fingerprint)
				if view.PrivateKey != "" {
					fmt.Fprintf(out, "  Private key: %s\n", view.PrivateKey)
				}
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Wallet address (default: first keystore)")
	cmd.Flags().BoolVar(&withBiometric, "biometric", false, "Require biometric verification before unlocking")
	cmd.Flags().BoolVar(&showPrivateKey, "show-private-key", false, "Print the private key")
	return cmd
}

func newWalletListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List wallet keystores without decrypting them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			wallets, err := rt.Wallets.List()
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), wallets, func() {
				out := cmd.OutOrStdout()
				if len(wallets) == 0 {
					fmt.Fprintln(out, "No wallets found.")
					return
				}
				fmt.Fprintf(out, "%-44s %-20s %s\n", "ADDRESS", "FINGERPRINT", "KEYSTORE")
				for _, w := range wallets {
					fmt.Fprintf(out, "%-44s %-20s %s\n", w.Address, w.Fingerprint, w.Path)
				}
			})
		},
	}
}

func newWalletChangePassphraseCmd(opts *rootOptions) *cobra.Command {
	var (
		address           string
		newPassphraseFile string
	)
	cmd := &cobra.Command{
		Use:   "change-passphrase",
		Short: "Re-seal a wallet under a new passphrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			oldPass, err := opts.readPassphrase(cmd, passphraseSource{
				file:   opts.passphraseFile,
				env:    envPassphrase,
				prompt: "Current passphrase: ",
			})
			if err != nil {
				return err
			}
			newPass, err := opts.readNewPassphrase(cmd, passphraseSource{
				file:   newPassphraseFile,
				env:    envNewPassphrase,
				prompt: "New passphrase: ",
			})
			if err != nil {
				return err
			}
			if err := rt.Wallets.ChangePassphrase(address, oldPass, newPass); err != nil {
				return err
			}
			result := map[string]any{"changed": true}
			return opts.render(cmd.OutOrStdout(), result, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Passphrase changed\n", color.GreenString("✓"))
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Wallet address (default: first keystore)")
	cmd.Flags().StringVar(&newPassphraseFile, "new-passphrase-file", "", "Read the new passphrase from this file")
	return cmd
}

func newWalletExportMnemonicCmd(opts *rootOptions) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "export-mnemonic",
		Short: "Print the 24-word backup phrase of a wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			pass, err := opts.readPassphrase(cmd, passphraseSource{
				file:   opts.passphraseFile,
				env:    envPassphrase,
				prompt: "Passphrase: ",
			})
			if err != nil {
				return err
			}
			mnemonic, err := rt.Wallets.ExportMnemonic(address, pass)
			if err != nil {
				return err
			}
			result := map[string]string{"mnemonic": mnemonic}
			return opts.render(cmd.OutOrStdout(), result, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, color.YellowString("Anyone with these words controls the wallet. Store them offline."))
				fmt.Fprintln(out, mnemonic)
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Wallet address (default: first keystore)")
	return cmd
}

func newWalletImportCmd(opts *rootOptions) *cobra.Command {
	var mnemonicFile string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a wallet from its backup phrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			var mnemonic string
			if mnemonicFile != "" {
				data, err := os.ReadFile(mnemonicFile)
				if err != nil {
					return invalidInput("read mnemonic file: %v", err)
				}
				mnemonic = string(data)
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "Mnemonic: ")
				if mnemonic, err = opts.readLine(cmd); err != nil {
					return err
				}
			}
			pass, err := opts.readNewPassphrase(cmd, passphraseSource{
				file:   opts.passphraseFile,
				env:    envPassphrase,
				prompt: "New passphrase: ",
			})
			if err != nil {
				return err
			}
			w, err := rt.Wallets.Import(strings.TrimSpace(mnemonic), pass)
			if err != nil {
				return err
			}
			view := newWalletView(w)
			return opts.render(cmd.OutOrStdout(), view, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s Wallet imported\n", color.GreenString("✓"))
				fmt.Fprintf(out, "  Address:     %s\n", view.Address)
				fmt.Fprintf(out, "  Fingerprint: %s\n", view.Fingerprint)
			})
		},
	}
	cmd.Flags().StringVar(&mnemonicFile, "mnemonic-file", "", "Read the mnemonic from this file")
	return cmd
}
