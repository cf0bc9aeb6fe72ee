package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
)

func TestTestNotifyCommandDisabledWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications are disabled")
}

func TestTestNotifyCommandPublishes(t *testing.T) {
	env := setupCLITestEnv(t)

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	content := fmt.Sprintf(
		"[paths]\nlog_dir = %q\ncache_dir = %q\n\n[notifications]\nntfy_topic = %q\n",
		env.cfg.Paths.LogDir,
		env.cfg.Paths.CacheDir,
		server.URL+"/galley-test",
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if hits.Load() != 1 {
		t.Fatalf("expected one notification request, got %d", hits.Load())
	}
}
