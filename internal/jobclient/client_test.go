package jobclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tendant/simple-translator/pkg/schema"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCreateJobSendsParameters(t *testing.T) {
	var gotMethod, gotPath, gotLength string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotLength = r.URL.Query().Get("video_length")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"job_id":"abc"}`)
	})

	id, err := c.CreateJob(context.Background(), schema.CreateJobRequest{VideoLength: 5})
	if err != nil {
		t.Fatalf("CreateJob returned error: %v", err)
	}
	if id != "abc" {
		t.Fatalf("unexpected job id: %s", id)
	}
	if gotMethod != http.MethodPost || gotPath != "/jobs" || gotLength != "5" {
		t.Fatalf("unexpected request: %s %s video_length=%s", gotMethod, gotPath, gotLength)
	}
}

func TestCreateJobRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "video_length must be positive", http.StatusUnprocessableEntity)
	})

	_, err := c.CreateJob(context.Background(), schema.CreateJobRequest{VideoLength: -1})
	var creationErr *CreationError
	if !errors.As(err, &creationErr) {
		t.Fatalf("expected CreationError, got %v", err)
	}
	if creationErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status code: %d", creationErr.StatusCode)
	}
}

func TestCreateJobMissingID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := c.CreateJob(context.Background(), schema.CreateJobRequest{VideoLength: 1})
	var creationErr *CreationError
	if !errors.As(err, &creationErr) {
		t.Fatalf("expected CreationError, got %v", err)
	}
}

func TestCreateJobUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = c.CreateJob(context.Background(), schema.CreateJobRequest{VideoLength: 1})
	var creationErr *CreationError
	if !errors.As(err, &creationErr) {
		t.Fatalf("expected CreationError, got %v", err)
	}
}

func TestGetStatusReturnsFullBody(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"result":"completed","data":{"lang":"fr"}}`)
	})

	payload, err := c.GetStatus(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}
	if gotPath != "/status/abc" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if payload.JobID != "abc" || payload.Result != "completed" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	data, ok := payload.Body["data"].(map[string]any)
	if !ok || data["lang"] != "fr" {
		t.Fatalf("body not preserved: %#v", payload.Body)
	}
}

func TestGetStatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantTarget error
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail":"Job not found"}`, http.StatusNotFound)
			},
			wantTarget: ErrJobNotFound,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"result":`)
			},
		},
		{
			name: "missing result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"state":"pending"}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.GetStatus(context.Background(), "abc")

			var protocolErr *ProtocolError
			if !errors.As(err, &protocolErr) {
				t.Fatalf("expected ProtocolError, got %v", err)
			}
			if tt.wantTarget != nil && !errors.Is(err, tt.wantTarget) {
				t.Fatalf("expected %v, got %v", tt.wantTarget, err)
			}
			if !IsRetryable(err) {
				t.Fatalf("protocol errors should be retryable: %v", err)
			}
		})
	}
}

func TestGetStatusTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = c.GetStatus(context.Background(), "abc")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !IsRetryable(err) {
		t.Fatal("transport errors should be retryable")
	}
}

func TestIsRetryableIgnoresCancellation(t *testing.T) {
	err := &TransportError{Op: "get status", Err: context.Canceled}
	if IsRetryable(err) {
		t.Fatal("canceled requests must not be retried")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("localhost:8000"); err == nil {
		t.Fatal("expected error for relative base url")
	}
}
