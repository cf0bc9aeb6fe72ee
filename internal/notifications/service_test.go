package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"galley/internal/config"
	"galley/internal/notifications"
)

// ntfyRecorder stands in for an ntfy server and records every push it
// receives.
type ntfyRecorder struct {
	srv *httptest.Server

	mu     sync.Mutex
	pushes []recordedPush
}

type recordedPush struct {
	title    string
	body     string
	tags     string
	priority string
}

func newNtfyRecorder(t *testing.T, status int) *ntfyRecorder {
	rec := &ntfyRecorder{}
	rec.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("push used method %s, want POST", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read push body: %v", err)
		}
		rec.mu.Lock()
		rec.pushes = append(rec.pushes, recordedPush{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		rec.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(rec.srv.Close)
	return rec
}

func (rec *ntfyRecorder) received() []recordedPush {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recordedPush(nil), rec.pushes...)
}

func TestPublishIsNoopWithoutTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventRenderCompleted, notifications.Payload{"document": "paper.qmd"}); err != nil {
		t.Fatalf("publish without a topic: %v", err)
	}
}

func TestPublishFormatsNtfyPushes(t *testing.T) {
	cases := []struct {
		name    string
		event   notifications.Event
		payload notifications.Payload
		want    recordedPush
	}{
		{
			name:    "render started",
			event:   notifications.EventRenderStarted,
			payload: notifications.Payload{"document": "paper.qmd"},
			want: recordedPush{
				title: "Galley - Render Started",
				body:  "Started rendering: paper.qmd",
				tags:  "galley,render,started",
			},
		},
		{
			name:  "render completed",
			event: notifications.EventRenderCompleted,
			payload: notifications.Payload{
				"document": "paper.qmd",
				"duration": "42s",
				"outputs":  "paper.pdf",
			},
			want: recordedPush{
				title: "Galley - Render Complete",
				body:  "📄 Render complete: paper.qmd in 42s\nOutputs: paper.pdf",
				tags:  "galley,render,completed",
			},
		},
		{
			name:  "render failed",
			event: notifications.EventRenderFailed,
			payload: notifications.Payload{
				"document": "paper.qmd",
				"error":    "quarto exited with status 1",
			},
			want: recordedPush{
				title:    "Galley - Render Failed",
				body:     "❌ Render failed for paper.qmd: quarto exited with status 1",
				tags:     "galley,render,failed",
				priority: "high",
			},
		},
		{
			name:    "restore completed",
			event:   notifications.EventRestoreCompleted,
			payload: notifications.Payload{"summary": "lockfile in sync"},
			want: recordedPush{
				title: "Galley - Packages Restored",
				body:  "📦 Package library restored: lockfile in sync",
				tags:  "galley,restore,completed",
			},
		},
		{
			name:  "spelling findings",
			event: notifications.EventSpellFindings,
			payload: notifications.Payload{
				"words":     "12",
				"documents": "3",
			},
			want: recordedPush{
				title: "Galley - Spelling Review",
				body:  "✍️ 12 unknown words in 3 files",
				tags:  "galley,spelling,review",
			},
		},
		{
			name:  "test",
			event: notifications.EventTest,
			want: recordedPush{
				title:    "Galley - Test",
				body:     "🧪 Notification system test",
				tags:     "galley,test",
				priority: "low",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := newNtfyRecorder(t, http.StatusOK)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = rec.srv.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("publish: %v", err)
			}

			got := rec.received()
			if len(got) != 1 {
				t.Fatalf("server saw %d pushes, want 1", len(got))
			}
			if got[0] != tc.want {
				t.Fatalf("push = %+v\nwant %+v", got[0], tc.want)
			}
		})
	}
}

func TestPublishDropsDisabledCategories(t *testing.T) {
	rec := newNtfyRecorder(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = rec.srv.URL
	cfg.Notifications.Render = false
	cfg.Notifications.Restore = false
	cfg.Notifications.Spelling = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventRenderStarted,
		notifications.EventRenderCompleted,
		notifications.EventRenderFailed,
		notifications.EventRestoreCompleted,
		notifications.EventRestoreFailed,
		notifications.EventSpellClean,
		notifications.EventSpellFindings,
		notifications.EventSpellFailed,
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("suppressed event %s returned error: %v", event, err)
		}
	}

	if got := rec.received(); len(got) != 0 {
		t.Fatalf("disabled categories still produced %d pushes", len(got))
	}
}

func TestPublishSurfacesServerErrors(t *testing.T) {
	rec := newNtfyRecorder(t, http.StatusServiceUnavailable)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = rec.srv.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("a non-2xx response should surface as an error")
	}
}
