package wallet

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"verox/go-wallet/internal/keystore"
	"verox/go-wallet/internal/securestore"
	"verox/go-wallet/internal/testutil/fsperm"
)

var fastParams = securestore.KDFParams{Time: 1, MemoryKB: 64, Threads: 1}

func newTestService(t *testing.T, now func() time.Time) (*Service, *securestore.Cipher, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "keystore")
	c, err := securestore.NewCipher(fastParams)
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}
	svc, err := NewService(Options{
		Store:      keystore.New(dir, ".dat"),
		Cipher:     c,
		MaxBackoff: 32 * time.Second,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	return svc, c, dir
}

func TestCreateThenUnlockRecoversKey(t *testing.T) {
	svc, _, dir := newTestService(t, nil)

	created, err := svc.Create([]byte("correct-horse"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(created.Address, "0x") || len(created.Address) != 42 {
		t.Fatalf("unexpected address: %s", created.Address)
	}
	wantPath := filepath.Join(dir, created.Address+".dat")
	if created.Path != wantPath {
		t.Fatalf("keystore written to %s, want %s", created.Path, wantPath)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Fatalf("keystore file missing: %v", err)
	}
	fsperm.AssertPrivateDirPerm(t, dir)
	fsperm.AssertPrivateFilePerm(t, wantPath)

	unlocked, err := svc.Unlock([]byte("correct-horse"))
	if err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if unlocked.PrivateKeyHex() != created.PrivateKeyHex() {
		t.Fatal("unlock must recover the original private key")
	}
	if unlocked.Address != created.Address {
		t.Fatalf("unexpected address after unlock: %s", unlocked.Address)
	}
	if !unlocked.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at changed: %v vs %v", unlocked.CreatedAt, created.CreatedAt)
	}
}

func TestWrongPassphraseLeavesFileUnchanged(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	created, err := svc.Create([]byte("correct-horse"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	before, err := os.ReadFile(created.Path)
	if err != nil {
		t.Fatalf("read keystore failed: %v", err)
	}

	if _, err := svc.UnlockAddress(created.Address, []byte("wrong-pass")); !errors.Is(err, ErrInvalidPassphrase) {
		t.Fatalf("expected ErrInvalidPassphrase, got %v", err)
	}

	after, err := os.ReadFile(created.Path)
	if err != nil {
		t.Fatalf("read keystore failed: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("failed unlock must not modify the keystore")
	}
}

func TestUnlockLockoutBackoff(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(t, func() time.Time { return now })
	created, err := svc.Create([]byte("good-pass"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Unlock([]byte("wrong-pass")); !errors.Is(err, ErrInvalidPassphrase) {
		t.Fatalf("expected ErrInvalidPassphrase, got %v", err)
	}
	if _, err := svc.Unlock([]byte("good-pass")); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if got := svc.retryAfter(created.Path, now); got != time.Second {
		t.Fatalf("expected 1s retry window, got %v", got)
	}

	now = now.Add(2 * time.Second)
	if _, err := svc.Unlock([]byte("good-pass")); err != nil {
		t.Fatalf("expected unlock after backoff, got %v", err)
	}
	if got := svc.retryAfter(created.Path, now); got != 0 {
		t.Fatalf("successful unlock must reset backoff, got %v", got)
	}
}

func TestFailedAttemptBackoffCaps(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0}, {1, time.Second}, {2, 2 * time.Second}, {3, 4 * time.Second},
		{6, 32 * time.Second}, {20, 32 * time.Second},
	}
	for _, tc := range cases {
		if got := failedAttemptBackoff(tc.attempt, 32*time.Second); got != tc.want {
			t.Fatalf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
	if got := failedAttemptBackoff(3, 0); got != 0 {
		t.Fatalf("zero max must disable backoff, got %v", got)
	}
}

func TestChangePassphrase(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	created, err := svc.Create([]byte("old-pass"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	before, _ := os.ReadFile(created.Path)

	if err := svc.ChangePassphrase("", []byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatalf("change passphrase failed: %v", err)
	}
	after, _ := os.ReadFile(created.Path)
	if bytes.Equal(before, after) {
		t.Fatal("re-sealing must produce a new blob")
	}

	unlocked, err := svc.UnlockAddress(created.Address, []byte("new-pass"))
	if err != nil {
		t.Fatalf("unlock with new passphrase failed: %v", err)
	}
	if unlocked.PrivateKeyHex() != created.PrivateKeyHex() {
		t.Fatal("key must survive passphrase change")
	}
	if _, err := svc.UnlockAddress(created.Address, []byte("old-pass")); !errors.Is(err, ErrInvalidPassphrase) {
		t.Fatalf("old passphrase must stop working, got %v", err)
	}
}

func TestChangePassphraseRewritesRenamedKeystoreInPlace(t *testing.T) {
	svc, _, dir := newTestService(t, nil)
	created, err := svc.Create([]byte("old-pass"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	renamed := filepath.Join(filepath.Dir(created.Path), strings.ToLower(created.Address)+".dat")
	if err := os.Rename(created.Path, renamed); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	if err := svc.ChangePassphrase("", []byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatalf("change passphrase failed: %v", err)
	}
	wallets, err := svc.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(wallets) != 1 || wallets[0].Path != renamed {
		t.Fatalf("expected the renamed keystore to be rewritten in place, got %+v (dir %s)", wallets, dir)
	}
	if _, err := svc.Unlock([]byte("old-pass")); !errors.Is(err, ErrInvalidPassphrase) {
		t.Fatalf("old passphrase must stop working, got %v", err)
	}
	unlocked, err := svc.UnlockAddress(created.Address, []byte("new-pass"))
	if err != nil {
		t.Fatalf("unlock by checksum address failed: %v", err)
	}
	if unlocked.Path != renamed || unlocked.PrivateKeyHex() != created.PrivateKeyHex() {
		t.Fatalf("unexpected wallet after re-seal: %s", unlocked.Path)
	}
}

func TestMnemonicExportImport(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	created, err := svc.Create([]byte("pass-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	mnemonic, err := svc.ExportMnemonic(created.Address, []byte("pass-1"))
	if err != nil {
		t.Fatalf("export mnemonic failed: %v", err)
	}
	if words := strings.Fields(mnemonic); len(words) != 24 {
		t.Fatalf("expected 24 words, got %d", len(words))
	}

	other, _, _ := newTestService(t, nil)
	imported, err := other.Import("  "+strings.ToUpper(mnemonic)+"\n", []byte("pass-2"))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if imported.Address != created.Address || imported.PrivateKeyHex() != created.PrivateKeyHex() {
		t.Fatal("import must reproduce the same key")
	}
}

func TestInvalidInputs(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	if _, err := svc.Create([]byte("   ")); !errors.Is(err, ErrPassphraseRequired) {
		t.Fatalf("expected ErrPassphraseRequired, got %v", err)
	}
	if _, err := svc.Unlock([]byte("x")); !errors.Is(err, keystore.ErrNotFound) {
		t.Fatalf("expected keystore.ErrNotFound, got %v", err)
	}
	if _, err := svc.Import("not a mnemonic", []byte("p")); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
	if _, err := svc.Import(" ", []byte("p")); !errors.Is(err, ErrMnemonicRequired) {
		t.Fatalf("expected ErrMnemonicRequired, got %v", err)
	}
	if _, err := NewService(Options{}); err == nil {
		t.Fatal("expected error for missing store")
	}
}

func TestPassphraseIsZeroed(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	pass := []byte("correct-horse")
	if _, err := svc.Create(pass); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !bytes.Equal(pass, make([]byte, len(pass))) {
		t.Fatal("caller passphrase must be zeroed after use")
	}
}

func TestCorruptKeystores(t *testing.T) {
	svc, c, dir := newTestService(t, nil)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	short := filepath.Join(dir, "0x0000000000000000000000000000000000000001.dat")
	if err := os.WriteFile(short, []byte("c2hvcnQ="), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := svc.Unlock([]byte("pass")); !errors.Is(err, securestore.ErrCorruptKeystore) {
		t.Fatalf("expected ErrCorruptKeystore for short blob, got %v", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key failed: %v", err)
	}
	payload := newPayload(key, time.Now())
	payload.Address = "0x0000000000000000000000000000000000000002"
	plaintext, _ := json.Marshal(payload)
	blob, err := c.Encrypt([]byte("pass"), plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	mismatched := filepath.Join(dir, payload.Address+".dat")
	if err := os.WriteFile(mismatched, blob, 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := svc.UnlockAddress(payload.Address, []byte("pass")); !errors.Is(err, securestore.ErrCorruptKeystore) {
		t.Fatalf("expected ErrCorruptKeystore for mismatched key, got %v", err)
	}
}

func TestListAndFingerprint(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	if got, err := svc.List(); err != nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v, %v", got, err)
	}
	created, err := svc.Create([]byte("pass"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	list, err := svc.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || list[0].Address != created.Address {
		t.Fatalf("unexpected list: %+v", list)
	}
	fp := Fingerprint(created.Address)
	if list[0].Fingerprint != fp || !strings.HasPrefix(fp, "vx1") {
		t.Fatalf("unexpected fingerprint: %s", list[0].Fingerprint)
	}
	if Fingerprint(strings.ToLower(created.Address)) != fp {
		t.Fatal("fingerprint must ignore address case")
	}
}
