package compliance

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_keywords: [rate]\n"), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	c := NewClassifier(p)
	require.False(t, c.Classify("tell me about escrow", Hint{}).Blocked)

	w := NewPolicyWatcher(path, c)
	w.debounce = 20 * time.Millisecond
	var reloads int32
	w.OnReload(func(*Policy) { atomic.AddInt32(&reloads, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("rate_keywords: [rate, escrow]\n"), 0o600))

	assert.Eventually(t, func() bool {
		return c.Classify("tell me about escrow", Hint{}).Blocked
	}, 2*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&reloads), int32(1))
}

func TestPolicyWatcher_KeepsPolicyOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_keywords: [rate, escrow]\n"), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	c := NewClassifier(p)

	require.NoError(t, os.WriteFile(path, []byte("rate_keywords: [oops"), 0o600))
	NewPolicyWatcher(path, c).reload()

	assert.Same(t, p, c.Policy())
	assert.True(t, c.Classify("tell me about escrow", Hint{}).Blocked)
}

func TestPolicyWatcher_KeepsPolicyWhenFileMoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_keywords: [rate, escrow]\n"), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	c := NewClassifier(p)

	require.NoError(t, os.Rename(path, path+".bak"))
	NewPolicyWatcher(path, c).reload()

	assert.Same(t, p, c.Policy())
	assert.True(t, c.Classify("tell me about escrow", Hint{}).Blocked)
}
