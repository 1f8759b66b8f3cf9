package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"verox/go-wallet/internal/biometric"
	"verox/go-wallet/internal/keystore"
	"verox/go-wallet/internal/securestore"
	"verox/go-wallet/internal/wallet"
)

// Exit codes.
const (
	ExitSuccess     = 0 // Operation completed successfully
	ExitGeneral     = 1 // Unknown/unhandled error
	ExitAuth        = 2 // Wrong passphrase or biometric denied
	ExitUnavailable = 3 // No usable biometric method
	ExitNotFound    = 4 // No keystore or no registration
	ExitLocked      = 5 // Backoff after failed attempts
	ExitCorrupt     = 6 // Keystore file is unusable
)

const (
	CodeInvalidPassphrase    = "INVALID_PASSPHRASE"
	CodePassphraseRequired   = "PASSPHRASE_REQUIRED"
	CodeLocked               = "LOCKED"
	CodeWalletNotFound       = "WALLET_NOT_FOUND"
	CodeCorruptKeystore      = "CORRUPT_KEYSTORE"
	CodeStorageFailure       = "STORAGE_FAILURE"
	CodeInvalidMnemonic      = "INVALID_MNEMONIC"
	CodeBiometricUnavailable = "BIOMETRIC_UNAVAILABLE"
	CodeNotRegistered        = "BIOMETRIC_NOT_REGISTERED"
	CodeDenied               = "BIOMETRIC_DENIED"
	CodeTimedOut             = "BIOMETRIC_TIMED_OUT"
	CodeCancelled            = "BIOMETRIC_CANCELLED"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeInternalError        = "INTERNAL_ERROR"
)

// CLIError is a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"`
}

func (e *CLIError) Error() string {
	return e.Message
}

// toCLIError classifies err. A tampered keystore also surfaces as
// INVALID_PASSPHRASE; the cipher cannot tell the two apart.
func toCLIError(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	switch {
	case errors.Is(err, wallet.ErrInvalidPassphrase):
		return &CLIError{Code: CodeInvalidPassphrase, Message: "invalid passphrase", Hint: "Check the passphrase and try again", Retryable: true, ExitCode: ExitAuth}
	case errors.Is(err, wallet.ErrPassphraseRequired):
		return &CLIError{Code: CodePassphraseRequired, Message: err.Error(), Hint: "Pass --passphrase-file or set VEROX_PASSPHRASE", ExitCode: ExitGeneral}
	case errors.Is(err, wallet.ErrLocked):
		return &CLIError{Code: CodeLocked, Message: err.Error(), Hint: "Wait before retrying", Retryable: true, ExitCode: ExitLocked}
	case errors.Is(err, wallet.ErrInvalidMnemonic), errors.Is(err, wallet.ErrMnemonicRequired):
		return &CLIError{Code: CodeInvalidMnemonic, Message: err.Error(), Hint: "Enter all 24 words separated by spaces", ExitCode: ExitGeneral}
	case errors.Is(err, keystore.ErrNotFound):
		return &CLIError{Code: CodeWalletNotFound, Message: "no wallet keystore found", Hint: "Create one with 'verox wallet create'", ExitCode: ExitNotFound}
	case errors.Is(err, keystore.ErrInvalidAddress):
		return &CLIError{Code: CodeInvalidInput, Message: err.Error(), ExitCode: ExitGeneral}
	case errors.Is(err, securestore.ErrCorruptKeystore):
		return &CLIError{Code: CodeCorruptKeystore, Message: "wallet keystore is unusable", Hint: "Restore it from a backup or import the mnemonic", ExitCode: ExitCorrupt}
	case errors.Is(err, keystore.ErrStorageIO), errors.Is(err, biometric.ErrVaultIO):
		return &CLIError{Code: CodeStorageFailure, Message: err.Error(), Hint: "Check permissions of the data directory", Retryable: true, ExitCode: ExitGeneral}
	case errors.Is(err, biometric.ErrCapabilityUnavailable):
		return &CLIError{Code: CodeBiometricUnavailable, Message: err.Error(), Hint: "Enroll a fingerprint or unlock with the passphrase", ExitCode: ExitUnavailable}
	case errors.Is(err, biometric.ErrNotRegistered):
		return &CLIError{Code: CodeNotRegistered, Message: err.Error(), Hint: "Run 'verox biometric register' first", ExitCode: ExitNotFound}
	case errors.Is(err, biometric.ErrDenied):
		return &CLIError{Code: CodeDenied, Message: err.Error(), Retryable: true, ExitCode: ExitAuth}
	case errors.Is(err, biometric.ErrTimedOut):
		return &CLIError{Code: CodeTimedOut, Message: err.Error(), Hint: "Try again or unlock with the passphrase", Retryable: true, ExitCode: ExitAuth}
	case errors.Is(err, biometric.ErrCancelled):
		return &CLIError{Code: CodeCancelled, Message: err.Error(), Retryable: true, ExitCode: ExitAuth}
	default:
		return &CLIError{Code: CodeInternalError, Message: err.Error(), ExitCode: ExitGeneral}
	}
}

func invalidInput(format string, args ...any) *CLIError {
	return &CLIError{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...), ExitCode: ExitGeneral}
}

// FormatError renders err as JSON for -o json, as a single line otherwise.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}
	output := color.New(color.FgRed, color.Bold).Sprintf("Error [%s]:", err.Code) + " " + err.Message
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

func printError(w io.Writer, err *CLIError, outputFormat string) {
	fmt.Fprintln(w, FormatError(err, outputFormat))
}
