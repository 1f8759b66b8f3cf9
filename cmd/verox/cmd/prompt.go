package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"verox/go-wallet/internal/securestore"
	"verox/go-wallet/internal/wallet"
)

const (
	envPassphrase    = "VEROX_PASSPHRASE"
	envNewPassphrase = "VEROX_NEW_PASSPHRASE"
)

// passphraseSource names where one passphrase comes from: a file flag, an
// environment variable, then the terminal (or one line of stdin when it is
// not a terminal).
type passphraseSource struct {
	file   string
	env    string
	prompt string
}

func (o *rootOptions) readPassphrase(cmd *cobra.Command, src passphraseSource) ([]byte, error) {
	if src.file != "" {
		data, err := os.ReadFile(src.file)
		if err != nil {
			return nil, invalidInput("read passphrase file: %v", err)
		}
		pass := bytes.TrimRight(data, "\r\n")
		if len(pass) == 0 {
			return nil, wallet.ErrPassphraseRequired
		}
		return pass, nil
	}
	if v := os.Getenv(src.env); v != "" {
		return []byte(v), nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), src.prompt)
		pass, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		if len(pass) == 0 {
			return nil, wallet.ErrPassphraseRequired
		}
		return pass, nil
	}
	line, err := o.readLine(cmd)
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, wallet.ErrPassphraseRequired
	}
	return []byte(line), nil
}

// readNewPassphrase asks twice on a terminal and fails when the answers differ.
func (o *rootOptions) readNewPassphrase(cmd *cobra.Command, src passphraseSource) ([]byte, error) {
	pass, err := o.readPassphrase(cmd, src)
	if err != nil {
		return nil, err
	}
	f, ok := cmd.InOrStdin().(*os.File)
	if src.file != "" || os.Getenv(src.env) != "" || !ok || !term.IsTerminal(int(f.Fd())) {
		return pass, nil
	}
	confirm, err := o.readPassphrase(cmd, passphraseSource{env: src.env, prompt: "Repeat passphrase: "})
	if err != nil {
		securestore.Zero(pass)
		return nil, err
	}
	defer securestore.Zero(confirm)
	if !bytes.Equal(pass, confirm) {
		securestore.Zero(pass)
		return nil, invalidInput("passphrases do not match")
	}
	return pass, nil
}

func (o *rootOptions) readLine(cmd *cobra.Command) (string, error) {
	line, err := o.input(cmd).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
