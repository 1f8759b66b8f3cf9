package biometric

import (
	"context"
	"errors"
	"testing"
	"time"
)

const testSecret = "verox_biometric_authenticated_secret_key_v2"

func newTestAuthenticator(t *testing.T, native *fakeNative, vault Vault) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(AuthenticatorOptions{
		Probe:   NewNativeProbe(native),
		Gate:    NewGate(native, nil, nil),
		Vault:   vault,
		Secret:  testSecret,
		Method:  native.Name(),
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("new authenticator failed: %v", err)
	}
	return a
}

func TestRegisterVerifyUnregister(t *testing.T) {
	native := &fakeNative{available: true, evaluate: answer(Outcome{Kind: OutcomeSuccess})}
	vault := NewMemoryVault()
	a := newTestAuthenticator(t, native, vault)
	ctx := context.Background()

	if err := a.Register(ctx); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	stored, err := vault.Retrieve()
	if err != nil || stored != testSecret {
		t.Fatalf("vault must hold the secret, got %q, %v", stored, err)
	}

	verdict, err := a.Verify(ctx)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if verdict != VerdictVerified {
		t.Fatalf("expected verified, got %v", verdict)
	}

	if err := a.Unregister(); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	if err := a.Unregister(); err != nil {
		t.Fatalf("second unregister must be a no-op, got %v", err)
	}
	if _, err := a.Verify(ctx); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered after unregister, got %v", err)
	}
}

func TestRegisterWithoutCapability(t *testing.T) {
	native := &fakeNative{available: false, evaluate: answer(Outcome{Kind: OutcomeSuccess})}
	vault := NewMemoryVault()
	a := newTestAuthenticator(t, native, vault)

	if err := a.Register(context.Background()); !errors.Is(err, ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
	if native.callCount() != 0 {
		t.Fatal("no prompt may be shown without capability")
	}
	if _, err := vault.Retrieve(); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("vault must stay empty, got %v", err)
	}
}

func TestRegisterFailuresLeaveVaultUntouched(t *testing.T) {
	cases := []struct {
		outcome Outcome
		want    error
	}{
		{Outcome{Kind: OutcomeDenied, Reason: "no match"}, ErrDenied},
		{Outcome{Kind: OutcomeCancelled}, ErrCancelled},
		{Outcome{Kind: OutcomeUnavailable}, ErrCapabilityUnavailable},
	}
	for _, tc := range cases {
		native := &fakeNative{available: true, evaluate: answer(tc.outcome)}
		vault := NewMemoryVault()
		a := newTestAuthenticator(t, native, vault)
		if err := a.Register(context.Background()); !errors.Is(err, tc.want) {
			t.Fatalf("%v: expected %v, got %v", tc.outcome.Kind, tc.want, err)
		}
		if _, err := vault.Retrieve(); !errors.Is(err, ErrNotRegistered) {
			t.Fatalf("%v: vault must stay empty", tc.outcome.Kind)
		}
	}
}

func TestVerifySecretMismatchIsDenied(t *testing.T) {
	native := &fakeNative{available: true, evaluate: answer(Outcome{Kind: OutcomeSuccess})}
	vault := NewMemoryVault()
	if err := vault.Store("someone-else"); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	a := newTestAuthenticator(t, native, vault)

	verdict, err := a.Verify(context.Background())
	if err != nil {
		t.Fatalf("mismatch must not be an error, got %v", err)
	}
	if verdict != VerdictDenied {
		t.Fatalf("expected denied, got %v", verdict)
	}
}

func TestVerifySecretVanishedDuringPrompt(t *testing.T) {
	vault := NewMemoryVault()
	native := &fakeNative{available: true}
	native.evaluate = func(_ string, done func(Outcome)) error {
		_ = vault.Delete()
		done(Outcome{Kind: OutcomeSuccess})
		return nil
	}
	if err := vault.Store(testSecret); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	a := newTestAuthenticator(t, native, vault)
	verdict, err := a.Verify(context.Background())
	if err != nil || verdict != VerdictDenied {
		t.Fatalf("expected denied verdict, got %v, %v", verdict, err)
	}
}

func TestVerifyPromptOutcomes(t *testing.T) {
	t.Run("denied prompt is a verdict", func(t *testing.T) {
		native := &fakeNative{available: true, evaluate: answer(Outcome{Kind: OutcomeDenied})}
		vault := NewMemoryVault()
		_ = vault.Store(testSecret)
		verdict, err := newTestAuthenticator(t, native, vault).Verify(context.Background())
		if err != nil || verdict != VerdictDenied {
			t.Fatalf("expected denied verdict, got %v, %v", verdict, err)
		}
	})
	t.Run("timeout is an error", func(t *testing.T) {
		native := &fakeNative{available: true}
		vault := NewMemoryVault()
		_ = vault.Store(testSecret)
		a := newTestAuthenticator(t, native, vault)
		a.timeout = 20 * time.Millisecond
		if _, err := a.Verify(context.Background()); !errors.Is(err, ErrTimedOut) {
			t.Fatalf("expected ErrTimedOut, got %v", err)
		}
	})
	t.Run("capability lost after registration", func(t *testing.T) {
		native := &fakeNative{available: false}
		vault := NewMemoryVault()
		_ = vault.Store(testSecret)
		if _, err := newTestAuthenticator(t, native, vault).Verify(context.Background()); !errors.Is(err, ErrCapabilityUnavailable) {
			t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
		}
	})
	t.Run("probe failure", func(t *testing.T) {
		native := &fakeNative{probeErr: errors.New("hardware gone")}
		vault := NewMemoryVault()
		_ = vault.Store(testSecret)
		if _, err := newTestAuthenticator(t, native, vault).Verify(context.Background()); !errors.Is(err, ErrCapabilityUnavailable) {
			t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
		}
	})
}

func TestStatus(t *testing.T) {
	native := &fakeNative{available: true, evaluate: answer(Outcome{Kind: OutcomeSuccess})}
	vault := NewMemoryVault()
	a := newTestAuthenticator(t, native, vault)

	st := a.Status(context.Background())
	if st.Registered || st.Capability != CapabilityAvailable || st.Method != "Fake Biometric" {
		t.Fatalf("unexpected status before register: %+v", st)
	}
	if err := a.Register(context.Background()); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if st := a.Status(context.Background()); !st.Registered {
		t.Fatalf("expected registered status, got %+v", st)
	}
	if native.callCount() != 1 {
		t.Fatalf("status must not prompt, calls=%d", native.callCount())
	}
}

func TestNewAuthenticatorValidates(t *testing.T) {
	if _, err := NewAuthenticator(AuthenticatorOptions{}); err == nil {
		t.Fatal("expected error for missing collaborators")
	}
	native := &fakeNative{}
	_, err := NewAuthenticator(AuthenticatorOptions{
		Probe: NewNativeProbe(native),
		Gate:  NewGate(native, nil, nil),
		Vault: NewMemoryVault(),
	})
	if err == nil {
		t.Fatal("expected error for missing secret")
	}
}
