package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fineplay-930/apply/internal/application"
	"github.com/fineplay-930/apply/internal/export"
	"github.com/fineplay-930/apply/internal/logging"
	"github.com/fineplay-930/apply/internal/notify"
	"github.com/google/uuid"
)

// MailSubject is the subject of every application email.
const MailSubject = "[Fine Play] 신규 분석 신청 접수"

// Receipt is returned for a delivered application.
type Receipt struct {
	SubmissionID string
	SentTo       string
}

// Service turns validated applications into operations emails.
type Service struct {
	builder   export.Builder
	sender    notify.Sender
	recipient string
	limiter   *SubmitLimiter

	now   func() time.Time
	newID func() string
}

// NewService creates a Service that exports with builder and mails the
// result to recipient through sender. A nil limiter means no cap on
// concurrent submissions.
func NewService(builder export.Builder, sender notify.Sender, recipient string, limiter *SubmitLimiter) *Service {
	return &Service{
		builder:   builder,
		sender:    sender,
		recipient: recipient,
		limiter:   limiter,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Submit checks the roster, builds the export and emails it.
//
// Nothing is exported or sent when the roster is too small. The export is
// released before Submit returns, whether or not the send succeeded. The
// send ignores cancellation of ctx so a client disconnect cannot abort a
// delivery already in flight; the provider timeout bounds it instead.
func (s *Service) Submit(ctx context.Context, app *application.Application) (*Receipt, error) {
	if err := app.CheckRoster(); err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			if errors.Is(err, ErrTooManySubmissions) {
				logging.FromContext(ctx).Warn("submission slots exhausted",
					"active", s.limiter.ActiveCount(),
				)
			}
			return nil, err
		}
		defer s.limiter.Release()
	}

	id := s.newID()
	createdAt := s.now().UTC()
	logger := logging.WithFields(ctx,
		"submission_id", id,
		"home_team", app.HomeTeam,
		"away_team", app.AwayTeam,
	)

	artifact, err := s.builder.Build(ctx, app, createdAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	defer func() {
		if err := artifact.Close(); err != nil {
			logger.Warn("export cleanup failed", "error", err)
		}
	}()

	msg := notify.Message{
		To:          s.recipient,
		Subject:     MailSubject,
		Body:        s.body(id, app),
		Attachments: attachments(artifact),
	}

	start := time.Now()
	if err := s.sender.Send(context.WithoutCancel(ctx), msg); err != nil {
		return nil, fmt.Errorf("send application email: %w", err)
	}

	logger.Info("application sent",
		"to", s.recipient,
		"attachments", len(msg.Attachments),
		"total_players", app.TotalPlayers(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Receipt{SubmissionID: id, SentTo: s.recipient}, nil
}

// body renders the plain-text email body.
func (s *Service) body(id string, app *application.Application) string {
	var b strings.Builder
	b.WriteString("신규 분석 신청이 접수되었습니다.\n\n")
	fmt.Fprintf(&b, "접수 번호: %s\n", id)
	fmt.Fprintf(&b, "경기: %s vs %s\n", app.HomeTeam, app.AwayTeam)
	fmt.Fprintf(&b, "일시: %s %s\n", app.MatchDate, app.KickoffTime)
	fmt.Fprintf(&b, "장소: %s\n", app.Location)
	fmt.Fprintf(&b, "플랜: %s\n", app.Plan)
	fmt.Fprintf(&b, "선수: 선발 %d명, 교체 %d명\n\n", len(app.Players), len(app.Substitutes))
	fmt.Fprintf(&b, "첨부된 %s 파일을 확인해주세요.\n", s.builder.Description())
	return b.String()
}

func attachments(a *export.Artifact) []notify.Attachment {
	out := make([]notify.Attachment, len(a.Attachments))
	for i, att := range a.Attachments {
		out[i] = notify.Attachment{
			Filename: att.Filename,
			Content:  att.Content,
			MIMEType: att.MIMEType,
		}
	}
	return out
}
