package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Endpoint:     endpoint,
		APIKey:       "test-key",
		Timeout:      5 * time.Second,
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "k"}); err == nil {
		t.Error("missing endpoint accepted")
	}
	if _, err := NewClient(Config{Endpoint: "http://x"}); err == nil {
		t.Error("missing API key accepted")
	}
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/upload" {
			t.Errorf("path = %s, want /v2/upload", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("Authorization = %q, want test-key", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn/audio/1"})
	}))
	defer srv.Close()

	handle, err := testClient(t, srv.URL).Upload(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if handle != "https://cdn/audio/1" {
		t.Fatalf("handle = %q", handle)
	}
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := testClient(t, srv.URL).Upload(context.Background(), []byte("audio")); err == nil {
		t.Fatal("Upload succeeded on 500")
	}
}

func TestTranscribePollsToCompletion(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			var req transcriptRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.AudioURL != "https://cdn/audio/1" {
				t.Errorf("audio_url = %q", req.AudioURL)
			}
			if req.LanguageCode != "en" {
				t.Errorf("language_code = %q", req.LanguageCode)
			}
			json.NewEncoder(w).Encode(transcriptResponse{ID: "t1", Status: "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/t1":
			if polls.Add(1) < 3 {
				json.NewEncoder(w).Encode(transcriptResponse{ID: "t1", Status: "processing"})
				return
			}
			json.NewEncoder(w).Encode(transcriptResponse{ID: "t1", Status: "completed", Text: "hello world"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	text, err := testClient(t, srv.URL).Transcribe(context.Background(), "https://cdn/audio/1", "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q", text)
	}
	if polls.Load() < 3 {
		t.Fatalf("polled %d times, want >= 3", polls.Load())
	}
}

func TestTranscribeEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(transcriptResponse{ID: "t1", Status: "queued"})
			return
		}
		json.NewEncoder(w).Encode(transcriptResponse{ID: "t1", Status: "completed", Text: ""})
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Transcribe(context.Background(), "h", "en")
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("err = %v, want ErrEmptyTranscript", err)
	}
}

func TestTranscribeJobError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(transcriptResponse{ID: "t1", Status: "queued"})
			return
		}
		json.NewEncoder(w).Encode(transcriptResponse{ID: "t1", Status: "error", Error: "bad audio"})
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Transcribe(context.Background(), "h", "en")
	if err == nil {
		t.Fatal("Transcribe succeeded on API error status")
	}
}

func TestTranscribeContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(transcriptResponse{ID: "t1", Status: "queued"})
			return
		}
		fmt.Fprint(w, `{"id":"t1","status":"processing"}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(t, srv.URL).Transcribe(ctx, "h", "en")
	if err == nil {
		t.Fatal("Transcribe did not stop on context cancellation")
	}
}
