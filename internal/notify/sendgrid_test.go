package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// sendPayload mirrors the parts of the v3 mail body the tests inspect.
type sendPayload struct {
	Personalizations []struct {
		To []struct {
			Email string `json:"email"`
		} `json:"to"`
	} `json:"personalizations"`
	From struct {
		Email string `json:"email"`
	} `json:"from"`
	Subject string `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
	Attachments []struct {
		Content     string `json:"content"`
		Type        string `json:"type"`
		Filename    string `json:"filename"`
		Disposition string `json:"disposition"`
	} `json:"attachments"`
}

type recorder struct {
	calls   atomic.Int32
	status  int
	payload sendPayload
	auth    string
	path    string
	method  string
	delay   time.Duration
}

func (rec *recorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.calls.Add(1)
		rec.auth = r.Header.Get("Authorization")
		rec.path = r.URL.Path
		rec.method = r.Method

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &rec.payload); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}

		if rec.delay > 0 {
			time.Sleep(rec.delay)
		}
		w.WriteHeader(rec.status)
		if rec.status >= 300 {
			io.WriteString(w, `{"errors":[{"message":"The from address does not match a verified Sender Identity"}]}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testMessage() Message {
	return Message{
		To:      "ops@example.com",
		Subject: "[Fine Play] 신규 분석 신청 접수",
		Body:    "첨부된 엑셀 파일을 확인해주세요.",
		Attachments: []Attachment{
			{Filename: "a.csv", Content: []byte("\ufefftype,name\nstarter,김민수\n"), MIMEType: "text/csv; charset=utf-8"},
			{Filename: "b.csv", Content: []byte("x"), MIMEType: "text/csv; charset=utf-8"},
		},
	}
}

func TestSend_Success(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusAccepted} {
		rec := &recorder{status: status}
		srv := rec.server(t)

		s := NewSendGrid(Options{APIKey: "SG.key", From: "apply@example.com", BaseURL: srv.URL})
		msg := testMessage()
		if err := s.Send(context.Background(), msg); err != nil {
			t.Fatalf("status %d: Send() error = %v", status, err)
		}

		if rec.calls.Load() != 1 {
			t.Fatalf("provider calls = %d, want 1", rec.calls.Load())
		}
		if rec.method != http.MethodPost || rec.path != "/v3/mail/send" {
			t.Errorf("request = %s %s, want POST /v3/mail/send", rec.method, rec.path)
		}
		if rec.auth != "Bearer SG.key" {
			t.Errorf("Authorization = %q, want %q", rec.auth, "Bearer SG.key")
		}

		p := rec.payload
		if len(p.Personalizations) != 1 || len(p.Personalizations[0].To) != 1 || p.Personalizations[0].To[0].Email != "ops@example.com" {
			t.Errorf("personalizations = %+v", p.Personalizations)
		}
		if p.From.Email != "apply@example.com" {
			t.Errorf("from = %q, want %q", p.From.Email, "apply@example.com")
		}
		if p.Subject != msg.Subject {
			t.Errorf("subject = %q, want %q", p.Subject, msg.Subject)
		}
		if len(p.Content) != 1 || p.Content[0].Type != "text/plain" || p.Content[0].Value != msg.Body {
			t.Errorf("content = %+v", p.Content)
		}

		if len(p.Attachments) != len(msg.Attachments) {
			t.Fatalf("attachments = %d, want %d", len(p.Attachments), len(msg.Attachments))
		}
		for i, a := range p.Attachments {
			decoded, err := base64.StdEncoding.DecodeString(a.Content)
			if err != nil {
				t.Fatalf("attachment %d is not base64: %v", i, err)
			}
			if string(decoded) != string(msg.Attachments[i].Content) {
				t.Errorf("attachment %d content = %q, want %q", i, decoded, msg.Attachments[i].Content)
			}
			if a.Filename != msg.Attachments[i].Filename || a.Type != msg.Attachments[i].MIMEType {
				t.Errorf("attachment %d = %s (%s)", i, a.Filename, a.Type)
			}
			if a.Disposition != "attachment" {
				t.Errorf("attachment %d disposition = %q, want attachment", i, a.Disposition)
			}
		}
	}
}

func TestSend_MissingAPIKey(t *testing.T) {
	rec := &recorder{status: http.StatusAccepted}
	srv := rec.server(t)

	s := NewSendGrid(Options{BaseURL: srv.URL})
	err := s.Send(context.Background(), testMessage())

	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Send() error = %v, want ErrMissingAPIKey", err)
	}
	if got := rec.calls.Load(); got != 0 {
		t.Errorf("provider calls = %d, want 0", got)
	}
}

func TestSend_ProviderRejects(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError, http.StatusCreated} {
		rec := &recorder{status: status}
		srv := rec.server(t)

		err := NewSendGrid(Options{APIKey: "SG.key", BaseURL: srv.URL}).Send(context.Background(), testMessage())

		var derr *DeliveryError
		if !errors.As(err, &derr) {
			t.Fatalf("status %d: Send() error = %v, want *DeliveryError", status, err)
		}
		if derr.StatusCode != status {
			t.Errorf("StatusCode = %d, want %d", derr.StatusCode, status)
		}
		if rec.calls.Load() != 1 {
			t.Errorf("status %d: provider calls = %d, want 1 (no retry)", status, rec.calls.Load())
		}
	}
}

func TestSend_Timeout(t *testing.T) {
	rec := &recorder{status: http.StatusAccepted, delay: 200 * time.Millisecond}
	srv := rec.server(t)

	s := NewSendGrid(Options{APIKey: "SG.key", BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	err := s.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("Send() expected timeout error")
	}

	var derr *DeliveryError
	if errors.As(err, &derr) {
		t.Errorf("timeout reported as DeliveryError: %v", err)
	}
}

func TestNewSendGrid_Defaults(t *testing.T) {
	s := NewSendGrid(Options{})
	if s.From() != DefaultFrom {
		t.Errorf("From() = %q, want %q", s.From(), DefaultFrom)
	}
	if s.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", s.baseURL, DefaultBaseURL)
	}
	if s.client.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", s.client.HTTPClient.Timeout, DefaultTimeout)
	}
}
