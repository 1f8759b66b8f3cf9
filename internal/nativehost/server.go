// Package nativehost serves the browser extension over the native messaging
// protocol on stdin/stdout. Private keys never cross this boundary.
package nativehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"verox/go-wallet/internal/biometric"
	"verox/go-wallet/internal/keystore"
	"verox/go-wallet/internal/metrics"
	"verox/go-wallet/internal/platform/logging"
	"verox/go-wallet/internal/platform/ratelimiter"
	"verox/go-wallet/internal/securestore"
	"verox/go-wallet/internal/wallet"
)

const componentName = "native_host"

const (
	ActionCreateWallet        = "create_wallet"
	ActionUnlockWallet        = "unlock_wallet"
	ActionRegisterBiometric   = "register_biometric"
	ActionVerifyBiometric     = "verify_biometric"
	ActionUnregisterBiometric = "unregister_biometric"
	ActionBiometricStatus     = "biometric_status"
	ActionGetWalletInfo       = "get_wallet_info"
)

type WalletService interface {
	Create(passphrase []byte) (*wallet.Wallet, error)
	Unlock(passphrase []byte) (*wallet.Wallet, error)
	UnlockAddress(address string, passphrase []byte) (*wallet.Wallet, error)
	List() ([]wallet.Summary, error)
}

type Authenticator interface {
	Register(ctx context.Context) error
	Verify(ctx context.Context) (biometric.Verdict, error)
	Unregister() error
	Status(ctx context.Context) biometric.Status
	Method() string
}

type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Options struct {
	Wallets         WalletService
	Biometric       Authenticator
	Logger          *slog.Logger
	Metrics         *metrics.Recorder
	Limiter         *ratelimiter.MapLimiter
	MaxMessageBytes int
	Now             func() time.Time
}

type Server struct {
	wallets   WalletService
	biometric Authenticator
	logger    *slog.Logger
	metrics   *metrics.Recorder
	limiter   *ratelimiter.MapLimiter
	maxBytes  int
	now       func() time.Time
}

func NewServer(opts Options) (*Server, error) {
	if opts.Wallets == nil {
		return nil, errors.New("nativehost: wallet service is required")
	}
	s := &Server{
		wallets:   opts.Wallets,
		biometric: opts.Biometric,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		limiter:   opts.Limiter,
		maxBytes:  opts.MaxMessageBytes,
		now:       opts.Now,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.maxBytes <= 0 {
		s.maxBytes = DefaultMaxMessageBytes
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Serve answers messages from r on w until r is exhausted or ctx is done.
// An oversized or truncated message ends the session with an error.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		raw, err := ReadMessage(r, s.maxBytes)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.logger.Error("native message read failed", "component", componentName, "error", err.Error())
			return err
		}
		resp := s.Handle(ctx, raw)
		out, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := WriteMessage(w, out); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// Handle decodes and dispatches one message.
func (s *Server) Handle(ctx context.Context, raw []byte) Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.metrics.NativeRequest("invalid", "error")
		return failure("failed to parse message: " + err.Error())
	}
	action := strings.TrimSpace(req.Action)
	if !knownActions[action] {
		action = unknownAction
	}
	correlationID := uuid.NewString()
	started := s.now()

	if wait := s.limiter.RetryAfter(action, started); wait > 0 {
		s.metrics.NativeRequest(action, "rate_limited")
		s.logWarn(action, correlationID, "native request rate limited", "retry_after_ms", wait.Milliseconds())
		return failure(fmt.Sprintf("rate limited, retry in %s", wait.Round(time.Millisecond)))
	}

	s.logInfo(action, correlationID, "native request")
	data, err := s.dispatch(ctx, action, req.Data)
	if err != nil {
		s.metrics.NativeRequest(action, "error")
		s.logWarn(action, correlationID, "native request failed",
			"error", err.Error(),
			"latency_ms", s.now().Sub(started).Milliseconds())
		return failure(publicMessage(err))
	}
	s.metrics.NativeRequest(action, "ok")
	s.logInfo(action, correlationID, "native response", "latency_ms", s.now().Sub(started).Milliseconds())
	return Response{Success: true, Data: data}
}

var errUnknownAction = errors.New("unknown action")

// unknownAction is the shared limiter key and metrics label for every
// action name outside knownActions.
const unknownAction = "unknown"

var knownActions = map[string]bool{
	ActionCreateWallet:        true,
	ActionUnlockWallet:        true,
	ActionRegisterBiometric:   true,
	ActionVerifyBiometric:     true,
	ActionUnregisterBiometric: true,
	ActionBiometricStatus:     true,
	ActionGetWalletInfo:       true,
}

func (s *Server) dispatch(ctx context.Context, action string, raw json.RawMessage) (any, error) {
	switch action {
	case ActionCreateWallet:
		return s.createWallet(raw)
	case ActionUnlockWallet:
		return s.unlockWallet(ctx, raw)
	case ActionGetWalletInfo:
		return s.walletInfo()
	case ActionRegisterBiometric, ActionVerifyBiometric, ActionUnregisterBiometric, ActionBiometricStatus:
		if s.biometric == nil {
			return nil, biometric.ErrCapabilityUnavailable
		}
		return s.dispatchBiometric(ctx, action)
	default:
		return nil, errUnknownAction
	}
}

type passphraseRequest struct {
	Passphrase       string `json:"passphrase"`
	Address          string `json:"address,omitempty"`
	RequireBiometric bool   `json:"require_biometric,omitempty"`
}

func decodePassphraseRequest(raw json.RawMessage) (passphraseRequest, error) {
	var req passphraseRequest
	if len(raw) == 0 || string(raw) == "null" {
		return req, wallet.ErrPassphraseRequired
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("%w: %v", errInvalidData, err)
	}
	return req, nil
}

var errInvalidData = errors.New("invalid request data")

type walletData struct {
	Address     string `json:"address"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"created_at,omitempty"`
	Unlocked    bool   `json:"unlocked,omitempty"`
}

func (s *Server) createWallet(raw json.RawMessage) (any, error) {
	req, err := decodePassphraseRequest(raw)
	if err != nil {
		return nil, err
	}
	w, err := s.wallets.Create([]byte(req.Passphrase))
	if err != nil {
		return nil, err
	}
	return walletData{
		Address:     w.Address,
		Fingerprint: wallet.Fingerprint(w.Address),
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *Server) unlockWallet(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decodePassphraseRequest(raw)
	if err != nil {
		return nil, err
	}
	if req.RequireBiometric {
		if s.biometric == nil {
			return nil, biometric.ErrCapabilityUnavailable
		}
		verdict, err := s.biometric.Verify(ctx)
		if err != nil {
			return nil, err
		}
		if verdict != biometric.VerdictVerified {
			return nil, biometric.ErrDenied
		}
	}
	var w *wallet.Wallet
	if strings.TrimSpace(req.Address) == "" {
		w, err = s.wallets.Unlock([]byte(req.Passphrase))
	} else {
		w, err = s.wallets.UnlockAddress(req.Address, []byte(req.Passphrase))
	}
	if err != nil {
		return nil, err
	}
	return walletData{
		Address:     w.Address,
		Fingerprint: wallet.Fingerprint(w.Address),
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
		Unlocked:    true,
	}, nil
}

func (s *Server) walletInfo() (any, error) {
	wallets, err := s.wallets.List()
	if err != nil {
		return nil, err
	}
	info := map[string]any{"wallets": wallets}
	if len(wallets) > 0 {
		info["address"] = wallets[0].Address
		info["fingerprint"] = wallets[0].Fingerprint
	}
	return info, nil
}

func (s *Server) dispatchBiometric(ctx context.Context, action string) (any, error) {
	method := s.biometric.Method()
	switch action {
	case ActionRegisterBiometric:
		if err := s.biometric.Register(ctx); err != nil {
			return nil, err
		}
		return map[string]any{"registered": true, "method": method}, nil
	case ActionVerifyBiometric:
		verdict, err := s.biometric.Verify(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"verified": verdict == biometric.VerdictVerified, "method": method}, nil
	case ActionUnregisterBiometric:
		if err := s.biometric.Unregister(); err != nil {
			return nil, err
		}
		return map[string]any{"registered": false, "method": method}, nil
	default:
		return s.biometric.Status(ctx), nil
	}
}

// publicMessage keeps paths and platform detail out of responses.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, errUnknownAction):
		return "unknown action"
	case errors.Is(err, errInvalidData):
		return err.Error()
	case errors.Is(err, wallet.ErrPassphraseRequired):
		return wallet.ErrPassphraseRequired.Error()
	case errors.Is(err, wallet.ErrInvalidPassphrase):
		return wallet.ErrInvalidPassphrase.Error()
	case errors.Is(err, wallet.ErrLocked):
		return err.Error()
	case errors.Is(err, keystore.ErrNotFound):
		return "wallet not found"
	case errors.Is(err, keystore.ErrInvalidAddress):
		return "invalid wallet address"
	case errors.Is(err, securestore.ErrCorruptKeystore):
		return "wallet keystore is unusable"
	case errors.Is(err, keystore.ErrStorageIO):
		return "wallet storage failure"
	case errors.Is(err, biometric.ErrNotRegistered):
		return biometric.ErrNotRegistered.Error()
	case errors.Is(err, biometric.ErrCapabilityUnavailable):
		return biometric.ErrCapabilityUnavailable.Error()
	case errors.Is(err, biometric.ErrDenied):
		return biometric.ErrDenied.Error()
	case errors.Is(err, biometric.ErrTimedOut):
		return biometric.ErrTimedOut.Error()
	case errors.Is(err, biometric.ErrCancelled):
		return biometric.ErrCancelled.Error()
	case errors.Is(err, biometric.ErrVaultIO):
		return "biometric vault failure"
	default:
		return "internal error"
	}
}

func failure(message string) Response {
	return Response{Success: false, Error: message}
}

func (s *Server) logInfo(operation, correlationID, message string, attrs ...any) {
	base := []any{
		"component", componentName,
		"operation", operation,
		"correlation_id", correlationID,
	}
	s.logger.Info(message, append(base, attrs...)...)
}

func (s *Server) logWarn(operation, correlationID, message string, attrs ...any) {
	base := []any{
		"component", componentName,
		"operation", operation,
		"correlation_id", correlationID,
	}
	s.logger.Warn(message, append(base, attrs...)...)
}
