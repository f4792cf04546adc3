package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordingSender struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingSender) Name() string { return "recording" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCycleReportEventFilter(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier([]Sender{sender}, []string{EventError}, testLogger())

	n.CycleReport(context.Background(), []string{"all good"}, []string{"sink down"})

	if len(sender.titles) != 1 || sender.titles[0] != "Error" {
		t.Errorf("titles = %v, want only the error report", sender.titles)
	}
}

func TestCycleReportUnfiltered(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	n.CycleReport(context.Background(), []string{"done"}, nil)

	if len(sender.titles) != 1 || sender.titles[0] != "Information" {
		t.Errorf("titles = %v", sender.titles)
	}
}

func TestDiscordSenderClampsContent(t *testing.T) {
	var got struct {
		Content string `json:"content"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	long := strings.Repeat("x", 5000)
	if err := sender.Send(context.Background(), "Information", long); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(got.Content) > discordContentLimit {
		t.Errorf("content length = %d, want <= %d", len(got.Content), discordContentLimit)
	}
	if !strings.HasPrefix(got.Content, "**Information**") {
		t.Errorf("content prefix = %q", got.Content[:20])
	}
}

func TestDiscordSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m"); err == nil {
		t.Fatal("Send succeeded on 429")
	}
}
