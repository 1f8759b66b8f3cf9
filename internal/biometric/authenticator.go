package biometric

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"verox/go-wallet/internal/metrics"
	"verox/go-wallet/internal/platform/logging"
)

const (
	componentName = "biometric"

	registerReason = "Register biometric authentication for Verox Wallet"
	verifyReason   = "Authenticate to access your Verox Wallet"
)

type AuthenticatorOptions struct {
	Probe   Probe
	Gate    *Gate
	Vault   Vault
	Secret  string
	Method  string
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Authenticator registers, verifies and removes the installation-wide
// biometric registration.
type Authenticator struct {
	probe   Probe
	gate    *Gate
	vault   Vault
	secret  string
	method  string
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func NewAuthenticator(opts AuthenticatorOptions) (*Authenticator, error) {
	if opts.Probe == nil || opts.Gate == nil || opts.Vault == nil {
		return nil, errors.New("biometric: probe, gate and vault are required")
	}
	if opts.Secret == "" {
		return nil, errors.New("biometric: registration secret is required")
	}
	a := &Authenticator{
		probe:   opts.Probe,
		gate:    opts.Gate,
		vault:   opts.Vault,
		secret:  opts.Secret,
		method:  opts.Method,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if a.logger == nil {
		a.logger = logging.Discard()
	}
	if a.method == "" {
		a.method = MethodName()
	}
	if a.timeout <= 0 {
		a.timeout = DefaultPromptTimeout
	}
	return a, nil
}

func (a *Authenticator) Method() string {
	return a.method
}

// Register prompts the user and stores the secret when the prompt succeeds.
// Any other outcome is returned as its error and leaves the vault untouched.
func (a *Authenticator) Register(ctx context.Context) error {
	if err := a.requireCapability(ctx); err != nil {
		a.record("register", err)
		return err
	}
	outcome := a.gate.Prompt(ctx, registerReason, a.timeout)
	if !outcome.OK() {
		err := outcome.Err()
		a.record("register", err)
		return err
	}
	if err := a.vault.Store(a.secret); err != nil {
		a.record("register", err)
		return err
	}
	a.record("register", nil)
	a.logger.Info("biometric registered", "component", componentName, "operation", "register", "method", a.method)
	return nil
}

// Verify requires a stored registration, prompts, and then checks the
// stored secret again. A rejected prompt or a changed secret is a Denied
// verdict, not an error.
func (a *Authenticator) Verify(ctx context.Context) (Verdict, error) {
	if _, err := a.vault.Retrieve(); err != nil {
		a.record("verify", err)
		return VerdictDenied, err
	}
	if err := a.requireCapability(ctx); err != nil {
		a.record("verify", err)
		return VerdictDenied, err
	}

	outcome := a.gate.Prompt(ctx, verifyReason, a.timeout)
	switch outcome.Kind {
	case OutcomeSuccess:
	case OutcomeDenied:
		a.metrics.BiometricOp("verify", "denied")
		a.logger.Warn("biometric prompt rejected", "component", componentName, "operation", "verify", "reason", outcome.Reason)
		return VerdictDenied, nil
	default:
		err := outcome.Err()
		a.record("verify", err)
		return VerdictDenied, err
	}

	stored, err := a.vault.Retrieve()
	if err != nil && !errors.Is(err, ErrNotRegistered) {
		a.record("verify", err)
		return VerdictDenied, err
	}
	if err != nil || subtle.ConstantTimeCompare([]byte(stored), []byte(a.secret)) != 1 {
		a.metrics.BiometricOp("verify", "denied")
		a.logger.Warn("biometric registration secret mismatch", "component", componentName, "operation", "verify")
		return VerdictDenied, nil
	}
	a.metrics.BiometricOp("verify", "verified")
	return VerdictVerified, nil
}

// Unregister removes the stored secret. Removing nothing succeeds.
func (a *Authenticator) Unregister() error {
	err := a.vault.Delete()
	a.record("unregister", err)
	if err == nil {
		a.logger.Info("biometric unregistered", "component", componentName, "operation", "unregister")
	}
	return err
}

// Status reports the method, the current capability and whether a secret is
// stored. It never prompts.
func (a *Authenticator) Status(ctx context.Context) Status {
	st := Status{Method: a.method, Capability: State(ctx, a.probe)}
	_, err := a.vault.Retrieve()
	switch {
	case err == nil:
		st.Registered = true
	case !errors.Is(err, ErrNotRegistered):
		st.Error = err.Error()
	}
	return st
}

func (a *Authenticator) requireCapability(ctx context.Context) error {
	ok, err := a.probe.IsAvailable(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, ctxErr)
		}
		return fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCapabilityUnavailable, a.method)
	}
	return nil
}

func (a *Authenticator) record(operation string, err error) {
	a.metrics.BiometricOp(operation, resultLabel(err))
	if err != nil {
		a.logger.Warn("biometric operation failed",
			"component", componentName,
			"operation", operation,
			"error", err.Error())
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrCapabilityUnavailable):
		return "unavailable"
	case errors.Is(err, ErrDenied):
		return "denied"
	case errors.Is(err, ErrTimedOut):
		return "timed_out"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrVaultIO):
		return "vault_error"
	default:
		return "error"
	}
}
