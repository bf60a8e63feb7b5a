package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func newServeTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "serve"}
	c.Flags().Int("port", 8000, "")
	c.Flags().String("host", "0.0.0.0", "")
	if err := c.Flags().Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return c
}

func TestResolveServeHostPort(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		envHost  string
		envPort  string
		wantHost string
		wantPort int
	}{
		{"defaults", nil, "", "", "0.0.0.0", 8000},
		{"flags", []string{"--host", "127.0.0.1", "--port", "9000"}, "", "", "127.0.0.1", 9000},
		{"env overrides flags", []string{"--port", "9000"}, "10.0.0.1", "8081", "10.0.0.1", 8081},
		{"invalid env port ignored", nil, "", "abc", "0.0.0.0", 8000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOST", tc.envHost)
			t.Setenv("PORT", tc.envPort)

			port, host := resolveServeHostPort(newServeTestCommand(t, tc.args...))
			if host != tc.wantHost || port != tc.wantPort {
				t.Errorf("got %s:%d, want %s:%d", host, port, tc.wantHost, tc.wantPort)
			}
		})
	}
}

func TestAnnotatedPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"group.jpg", "recognized_group.jpg"},
		{filepath.Join("photos", "class.png"), filepath.Join("photos", "recognized_class.jpg")},
		{"noext", "recognized_noext.jpg"},
	}

	for _, tc := range tests {
		if got := annotatedPath(tc.in); got != tc.want {
			t.Errorf("annotatedPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestServeUntilStopped_WaitsForShutdown(t *testing.T) {
	stop := make(chan os.Signal, 1)
	serverClosed := make(chan struct{})
	var drained atomic.Bool

	start := func() error {
		stop <- syscall.SIGTERM
		<-serverClosed
		return nil
	}
	shutdown := func() {
		// Start returns before in-flight requests are drained.
		close(serverClosed)
		time.Sleep(50 * time.Millisecond)
		drained.Store(true)
	}

	if err := serveUntilStopped(stop, start, shutdown); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !drained.Load() {
		t.Error("returned before shutdown finished")
	}
}

func TestServeUntilStopped_StartError(t *testing.T) {
	stop := make(chan os.Signal)
	called := false

	err := serveUntilStopped(stop, func() error {
		return errors.New("address in use")
	}, func() { called = true })

	if err == nil || err.Error() != "starting server: address in use" {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("shutdown ran without a signal")
	}
}
