package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/tendant/simple-translator/internal/poller"
)

func TestExecuteClosesAppWhenCommandFails(t *testing.T) {
	ta, pub := newTestApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ta.metrics = &http.Server{Handler: http.NewServeMux(), ReadHeaderTimeout: time.Second}
	served := make(chan error, 1)
	go func() { served <- ta.metrics.Serve(ln) }()

	a = ta
	t.Cleanup(func() {
		a = nil
		rootCmd.SetArgs(nil)
	})
	rootCmd.SetArgs([]string{"watch", "missing-job"})

	err = execute(context.Background(), rootCmd)
	if !errors.Is(err, poller.ErrRetriesExhausted) {
		t.Fatalf("expected the watch failure, got %v", err)
	}
	if a != nil {
		t.Fatal("app was not released after a failed command")
	}

	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("unexpected metrics server error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server was not shut down")
	}

	var failed int
	for _, s := range pub.subjects {
		if s == "jobs.translation.failed" {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("expected one failure event, got %v", pub.subjects)
	}
}
