package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verox/go-wallet/internal/biometric"
	"verox/go-wallet/internal/wallet"
)

type stubNative struct {
	available bool
	outcome   biometric.Outcome
}

func (stubNative) Name() string                 { return "Stub" }
func (n stubNative) CanEvaluate() (bool, error) { return n.available, nil }
func (n stubNative) Evaluate(_ string, done func(biometric.Outcome)) error {
	done(n.outcome)
	return nil
}

var approving = stubNative{available: true, outcome: biometric.Outcome{Kind: biometric.OutcomeSuccess}}

func setupEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"VEROX_CONFIG", "VEROX_KEYSTORE_DIR", "VEROX_VAULT_BACKEND", "VEROX_METRICS_TEXTFILE",
		"VEROX_BIOMETRIC_TIMEOUT", envPassphrase, envNewPassphrase,
	} {
		t.Setenv(key, "")
	}
	t.Setenv("VEROX_KDF_TIME", "1")
	t.Setenv("VEROX_KDF_MEMORY_KB", "64")
	t.Setenv("VEROX_KDF_THREADS", "1")
	t.Setenv("VEROX_LOG_LEVEL", "error")
	dir := t.TempDir()
	t.Setenv("VEROX_DATA_DIR", dir)
	return dir
}

func writePassphrase(t *testing.T, dir, name, pass string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(pass+"\n"), 0o600))
	return path
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, opts *rootOptions, stdin string, args ...string) result {
	t.Helper()
	if opts == nil {
		opts = &rootOptions{native: approving}
	}
	root := newRootCmd(opts)
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := execute(context.Background(), root, opts)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestVersionCommand(t *testing.T) {
	res := run(t, nil, "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "verox version=")
}

func TestUnsupportedOutputFormat(t *testing.T) {
	setupEnv(t)
	res := run(t, nil, "", "wallet", "list", "-o", "xml")
	require.Error(t, res.err)
	assert.Equal(t, CodeInvalidInput, toCLIError(res.err).Code)
}

func TestWalletLifecycle(t *testing.T) {
	dir := setupEnv(t)
	passFile := writePassphrase(t, t.TempDir(), "pass", "correct horse battery")

	res := run(t, nil, "", "wallet", "create", "--passphrase-file", passFile, "-o", "json")
	require.NoError(t, res.err)
	var created walletView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &created))
	assert.True(t, strings.HasPrefix(created.Address, "0x"))
	assert.Equal(t, filepath.Join(dir, "keystore", created.Address+".dat"), created.Path)
	assert.Empty(t, created.PrivateKey)

	res = run(t, nil, "", "wallet", "list", "-o", "json")
	require.NoError(t, res.err)
	var listed []map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.Address, listed[0]["address"])
	assert.Equal(t, created.Fingerprint, listed[0]["fingerprint"])

	res = run(t, nil, "", "wallet", "unlock", "--passphrase-file", passFile, "-o", "json")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, "private_key")

	res = run(t, nil, "", "wallet", "unlock", "--address", created.Address, "--show-private-key", "--passphrase-file", passFile, "-o", "yaml")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "private_key: 0x")
}

func TestWalletCreateReadsStdinLine(t *testing.T) {
	setupEnv(t)
	res := run(t, nil, "from-stdin\n", "wallet", "create")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Wallet created")

	res = run(t, nil, "from-stdin\n", "wallet", "unlock")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Wallet unlocked")
}

func TestWalletPassphraseFromEnv(t *testing.T) {
	setupEnv(t)
	t.Setenv(envPassphrase, "env-secret")
	require.NoError(t, run(t, nil, "", "wallet", "create").err)
	require.NoError(t, run(t, nil, "", "wallet", "unlock").err)
}

func TestWrongPassphraseMapsToAuthExit(t *testing.T) {
	setupEnv(t)
	require.NoError(t, run(t, nil, "right\n", "wallet", "create").err)

	res := run(t, nil, "wrong\n", "wallet", "unlock")
	require.Error(t, res.err)
	cliErr := toCLIError(res.err)
	assert.Equal(t, CodeInvalidPassphrase, cliErr.Code)
	assert.Equal(t, ExitAuth, cliErr.ExitCode)
}

func TestFailedCommandStillWritesMetricsTextfile(t *testing.T) {
	dir := setupEnv(t)
	textfile := filepath.Join(dir, "verox.prom")
	t.Setenv("VEROX_METRICS_TEXTFILE", textfile)
	require.NoError(t, run(t, nil, "right\n", "wallet", "create").err)

	res := run(t, nil, "wrong\n", "wallet", "unlock")
	require.ErrorIs(t, res.err, wallet.ErrInvalidPassphrase)
	prom, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `result="invalid_passphrase"`)
}

func TestEmptyPassphraseRejected(t *testing.T) {
	setupEnv(t)
	res := run(t, nil, "\n", "wallet", "create")
	require.Error(t, res.err)
	assert.Equal(t, CodePassphraseRequired, toCLIError(res.err).Code)
}

func TestUnlockWithoutWalletMapsToNotFound(t *testing.T) {
	setupEnv(t)
	res := run(t, nil, "anything\n", "wallet", "unlock")
	require.Error(t, res.err)
	cliErr := toCLIError(res.err)
	assert.Equal(t, CodeWalletNotFound, cliErr.Code)
	assert.Equal(t, ExitNotFound, cliErr.ExitCode)
}

func TestChangePassphrase(t *testing.T) {
	setupEnv(t)
	tmp := t.TempDir()
	oldFile := writePassphrase(t, tmp, "old", "old-pass")
	newFile := writePassphrase(t, tmp, "new", "new-pass")
	require.NoError(t, run(t, nil, "", "wallet", "create", "--passphrase-file", oldFile).err)

	res := run(t, nil, "", "wallet", "change-passphrase", "--passphrase-file", oldFile, "--new-passphrase-file", newFile, "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"changed": true`)

	res = run(t, nil, "", "wallet", "unlock", "--passphrase-file", oldFile)
	assert.Equal(t, ExitAuth, toCLIError(res.err).ExitCode)
	require.NoError(t, run(t, nil, "", "wallet", "unlock", "--passphrase-file", newFile).err)
}

func TestExportAndImportMnemonic(t *testing.T) {
	setupEnv(t)
	passFile := writePassphrase(t, t.TempDir(), "pass", "backup-pass")

	res := run(t, nil, "", "wallet", "create", "--passphrase-file", passFile, "-o", "json")
	require.NoError(t, res.err)
	var created walletView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &created))

	res = run(t, nil, "", "wallet", "export-mnemonic", "--passphrase-file", passFile, "-o", "json")
	require.NoError(t, res.err)
	var exported map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &exported))
	require.Len(t, strings.Fields(exported["mnemonic"]), 24)

	restoreDir := t.TempDir()
	res = run(t, nil, exported["mnemonic"]+"\nrestored-pass\n", "wallet", "import", "--data-dir", restoreDir, "-o", "json")
	require.NoError(t, res.err)
	var imported walletView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &imported))
	assert.Equal(t, created.Address, imported.Address)
	assert.Equal(t, filepath.Join(restoreDir, "keystore", created.Address+".dat"), imported.Path)
}

func TestImportRejectsBadMnemonic(t *testing.T) {
	setupEnv(t)
	res := run(t, nil, "not a real mnemonic\npass\n", "wallet", "import")
	require.Error(t, res.err)
	assert.Equal(t, CodeInvalidMnemonic, toCLIError(res.err).Code)
}

func TestBiometricCommands(t *testing.T) {
	setupEnv(t)
	vault := biometric.NewMemoryVault()
	opts := func() *rootOptions { return &rootOptions{native: approving, vaultOverride: vault} }

	res := run(t, opts(), "", "biometric", "status", "-o", "json")
	require.NoError(t, res.err)
	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &st))
	assert.Equal(t, "available", st["capability"])
	assert.Equal(t, false, st["registered"])

	res = run(t, opts(), "", "biometric", "verify")
	assert.Equal(t, ExitNotFound, toCLIError(res.err).ExitCode)

	require.NoError(t, run(t, opts(), "", "biometric", "register").err)

	res = run(t, opts(), "", "biometric", "verify", "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"verdict": "verified"`)

	require.NoError(t, run(t, opts(), "pass\n", "wallet", "create").err)
	require.NoError(t, run(t, opts(), "pass\n", "wallet", "unlock", "--biometric").err)

	require.NoError(t, run(t, opts(), "", "biometric", "unregister").err)
	require.NoError(t, run(t, opts(), "", "biometric", "unregister").err)
	res = run(t, opts(), "", "biometric", "status", "-o", "yaml")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "registered: false")
}

func TestBiometricDeniedMapsToAuthExit(t *testing.T) {
	setupEnv(t)
	vault := biometric.NewMemoryVault()
	require.NoError(t, run(t, &rootOptions{native: approving, vaultOverride: vault}, "", "biometric", "register").err)

	refusing := stubNative{available: true, outcome: biometric.Outcome{Kind: biometric.OutcomeDenied, Reason: "no match"}}
	res := run(t, &rootOptions{native: refusing, vaultOverride: vault}, "", "biometric", "verify")
	require.Error(t, res.err)
	cliErr := toCLIError(res.err)
	assert.Equal(t, CodeDenied, cliErr.Code)
	assert.Equal(t, ExitAuth, cliErr.ExitCode)
}

func TestBiometricUnavailableMapsToExit(t *testing.T) {
	setupEnv(t)
	res := run(t, &rootOptions{native: stubNative{}, vaultOverride: biometric.NewMemoryVault()}, "", "biometric", "register")
	require.Error(t, res.err)
	cliErr := toCLIError(res.err)
	assert.Equal(t, CodeBiometricUnavailable, cliErr.Code)
	assert.Equal(t, ExitUnavailable, cliErr.ExitCode)
}

func TestFormatErrorJSON(t *testing.T) {
	out := FormatError(&CLIError{Code: CodeLocked, Message: "locked", Retryable: true}, "json")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, CodeLocked, decoded["code"])
	assert.Equal(t, true, decoded["retryable"])
	assert.NotContains(t, decoded, "ExitCode")
}
