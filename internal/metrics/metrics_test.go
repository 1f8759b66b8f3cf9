package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.WalletOp("unlock", "ok")
	r.WalletOp("unlock", "ok")
	r.WalletOp("unlock", "invalid_passphrase")
	r.Prompt("timed_out")
	r.BiometricOp("verify", "denied")
	r.NativeRequest("create_wallet", "ok")
	r.CryptoDuration("open", time.Now())

	if got := testutil.ToFloat64(r.walletOps.WithLabelValues("unlock", "ok")); got != 2 {
		t.Fatalf("expected 2 successful unlocks, got %v", got)
	}
	if got := testutil.ToFloat64(r.prompts.WithLabelValues("timed_out")); got != 1 {
		t.Fatalf("expected 1 timed out prompt, got %v", got)
	}
	if got := testutil.CollectAndCount(r.cryptoSeconds); got != 1 {
		t.Fatalf("expected 1 histogram series, got %d", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.WalletOp("create", "ok")
	r.Prompt("success")
	r.CryptoDuration("seal", time.Now())
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil recorder write failed: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.BiometricOp("register", "ok")
	path := filepath.Join(t.TempDir(), "verox.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile failed: %v", err)
	}
	if !strings.Contains(string(data), `verox_biometric_operations_total{operation="register",result="ok"} 1`) {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
}
