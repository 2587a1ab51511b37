package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fineplay-930/apply/internal/application"
	"github.com/fineplay-930/apply/internal/export"
	"github.com/fineplay-930/apply/internal/logging"
	"github.com/fineplay-930/apply/internal/notify"
)

// recordingSender captures every message instead of sending it.
type recordingSender struct {
	mu       sync.Mutex
	messages []notify.Message
	ctxErr   error
	err      error
}

func (r *recordingSender) Send(ctx context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	r.ctxErr = ctx.Err()
	return r.err
}

func (r *recordingSender) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// failingBuilder always fails to export.
type failingBuilder struct{}

func (failingBuilder) Description() string { return "broken" }

func (failingBuilder) Build(context.Context, *application.Application, time.Time) (*export.Artifact, error) {
	return nil, errors.New("disk full")
}

func testApplication(starters, subs int) *application.Application {
	mk := func(prefix string, n int) []application.Player {
		out := make([]application.Player, n)
		for i := range out {
			out[i] = application.Player{Name: fmt.Sprintf("%s %d", prefix, i+1), Position: "DF", Number: fmt.Sprint(i + 1)}
		}
		return out
	}
	return &application.Application{
		Plan:        "basic",
		MatchDate:   "2026-10-18",
		KickoffTime: "14:00",
		Location:    "Seoul",
		HomeTeam:    "FC Home",
		AwayTeam:    "FC Away",
		VideoURL1:   "https://video.example/1",
		Formation:   "4-4-2",
		Players:     mk("Starter", starters),
		Substitutes: mk("Sub", subs),
	}
}

func newTestService(t *testing.T, builder export.Builder, sender notify.Sender) *Service {
	t.Helper()
	s := NewService(builder, sender, "ops@example.com", nil)
	s.now = func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "sub-123" }
	return s
}

func TestSubmit_RosterTooSmall_NoSideEffects(t *testing.T) {
	tests := []struct {
		starters, subs int
	}{
		{0, 0},
		{10, 0},
		{5, 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d+%d", tt.starters, tt.subs), func(t *testing.T) {
			base := t.TempDir()
			sender := &recordingSender{}
			s := newTestService(t, &export.WorkbookBuilder{TempDir: base}, sender)

			_, err := s.Submit(context.Background(), testApplication(tt.starters, tt.subs))
			if !errors.Is(err, application.ErrRosterTooSmall) {
				t.Fatalf("Submit() error = %v, want ErrRosterTooSmall", err)
			}
			if sender.calls() != 0 {
				t.Errorf("sender calls = %d, want 0", sender.calls())
			}
			if entries, _ := os.ReadDir(base); len(entries) != 0 {
				t.Errorf("temp entries = %d, want 0", len(entries))
			}
		})
	}
}

func TestSubmit_Workbook(t *testing.T) {
	base := t.TempDir()
	sender := &recordingSender{}
	s := newTestService(t, &export.WorkbookBuilder{TempDir: base}, sender)

	receipt, err := s.Submit(context.Background(), testApplication(11, 0))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if receipt.SentTo != "ops@example.com" || receipt.SubmissionID != "sub-123" {
		t.Errorf("receipt = %+v", receipt)
	}

	if sender.calls() != 1 {
		t.Fatalf("sender calls = %d, want 1", sender.calls())
	}
	msg := sender.messages[0]
	if msg.To != "ops@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if MailSubject != "[Fine Play] 신규 분석 신청 접수" {
		t.Errorf("MailSubject = %q", MailSubject)
	}
	if msg.Subject != MailSubject {
		t.Errorf("Subject = %q, want %q", msg.Subject, MailSubject)
	}
	for _, want := range []string{"sub-123", "FC Home vs FC Away", "2026-10-18 14:00", "선발 11명, 교체 0명", "첨부된 엑셀 파일을 확인해주세요."} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("Body missing %q:\n%s", want, msg.Body)
		}
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "fineplay_application_FC Home_20261014_090000.xlsx" {
		t.Errorf("attachments = %+v", msg.Attachments)
	}
	if len(msg.Attachments[0].Content) == 0 {
		t.Error("attachment content is empty")
	}

	if entries, _ := os.ReadDir(base); len(entries) != 0 {
		t.Errorf("temp entries after Submit = %d, want 0", len(entries))
	}
}

func TestSubmit_CSV(t *testing.T) {
	sender := &recordingSender{}
	s := newTestService(t, export.CSVBuilder{}, sender)

	if _, err := s.Submit(context.Background(), testApplication(9, 3)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	msg := sender.messages[0]
	if len(msg.Attachments) != 2 {
		t.Fatalf("attachments = %d, want 2", len(msg.Attachments))
	}
	if !strings.HasPrefix(msg.Body, "신규 분석 신청이 접수되었습니다.") {
		t.Errorf("Body = %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "첨부된 CSV 파일을 확인해주세요.") {
		t.Errorf("Body = %q", msg.Body)
	}
}

func TestSubmit_SendFailureStillCleansUp(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"missing key", notify.ErrMissingAPIKey, "CFG001"},
		{"provider rejects", &notify.DeliveryError{StatusCode: 401, Body: "unauthorized"}, "MAIL001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			sender := &recordingSender{err: tt.err}
			s := newTestService(t, &export.WorkbookBuilder{TempDir: base}, sender)

			_, err := s.Submit(context.Background(), testApplication(11, 0))
			if !errors.Is(err, tt.err) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.err)
			}
			if got := Classify(err).Code; got != tt.code {
				t.Errorf("Classify() Code = %q, want %q", got, tt.code)
			}
			if entries, _ := os.ReadDir(base); len(entries) != 0 {
				t.Errorf("temp entries = %d, want 0", len(entries))
			}
		})
	}
}

func TestSubmit_ExportFailure(t *testing.T) {
	sender := &recordingSender{}
	s := newTestService(t, failingBuilder{}, sender)

	_, err := s.Submit(context.Background(), testApplication(11, 0))
	if !errors.Is(err, ErrExportFailed) {
		t.Fatalf("Submit() error = %v, want ErrExportFailed", err)
	}
	if sender.calls() != 0 {
		t.Errorf("sender calls = %d, want 0", sender.calls())
	}
}

func TestSubmit_SendIgnoresRequestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sender := &recordingSender{}
	s := newTestService(t, export.CSVBuilder{}, sender)

	builder := cancelAfterBuild{Builder: export.CSVBuilder{}, cancel: cancel}
	s.builder = builder

	if _, err := s.Submit(ctx, testApplication(11, 0)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sender.ctxErr != nil {
		t.Errorf("send context error = %v, want nil", sender.ctxErr)
	}
}

// cancelAfterBuild cancels the request context once the export exists.
type cancelAfterBuild struct {
	export.Builder
	cancel context.CancelFunc
}

func (b cancelAfterBuild) Build(ctx context.Context, app *application.Application, at time.Time) (*export.Artifact, error) {
	a, err := b.Builder.Build(ctx, app, at)
	b.cancel()
	return a, err
}

func TestSubmit_LimiterFull(t *testing.T) {
	sender := &recordingSender{}
	limiter := NewSubmitLimiter(1, 50*time.Millisecond)
	s := NewService(export.CSVBuilder{}, sender, "ops@example.com", limiter)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&logs, "info", "json"))
	defer slog.SetDefault(prev)

	_, err := s.Submit(context.Background(), testApplication(11, 0))
	if !errors.Is(err, ErrTooManySubmissions) {
		t.Fatalf("Submit() error = %v, want ErrTooManySubmissions", err)
	}
	if sender.calls() != 0 {
		t.Errorf("sender calls = %d, want 0", sender.calls())
	}
	if out := logs.String(); !strings.Contains(out, `"msg":"submission slots exhausted"`) || !strings.Contains(out, `"active":1`) {
		t.Errorf("log = %q, want slots exhausted warning with active=1", out)
	}
}
