package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/pkg/mailer/templates"
)

type sentMail struct{ to, subject, text, html string }

type outbox struct {
	sent []sentMail
	err  error
}

func (o *outbox) Send(_ context.Context, to, subject, text, html string) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, sentMail{to, subject, text, html})
	return nil
}

func TestActivityNotifier_MailsSignIns(t *testing.T) {
	box := &outbox{}
	n := application.NewActivityNotifier(box, templates.Brand{AppName: "Journal", CompanyName: "Diary Co"}, time.UTC, nil)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, n.Handle(ctx, entity.Activity{Kind: entity.ActivitySignedIn, UserID: "u1", Email: "kabilan.diary@example.com", At: at}))
	require.NoError(t, n.Handle(ctx, entity.Activity{Kind: entity.ActivitySignedOut, UserID: "u1", Email: "kabilan.diary@example.com", At: at}))
	require.NoError(t, n.Handle(ctx, entity.Activity{Kind: entity.ActivityEntryCreated, UserID: "u1", EntryID: "e1", At: at}))
	require.NoError(t, n.Handle(ctx, entity.Activity{Kind: entity.ActivitySignedIn, UserID: "u2", At: at}))

	require.Len(t, box.sent, 1)
	assert.Equal(t, "kabilan.diary@example.com", box.sent[0].to)
	assert.Equal(t, "New sign-in to your Journal", box.sent[0].subject)
	assert.Contains(t, box.sent[0].text, "01 May 2024, 09:00")
	assert.Contains(t, box.sent[0].text, "-- Diary Co")
	assert.NotEmpty(t, box.sent[0].html)
}

func TestActivityNotifier_SendFailure(t *testing.T) {
	n := application.NewActivityNotifier(&outbox{err: errors.New("mailgun down")}, templates.Brand{}, nil, nil)
	err := n.Handle(context.Background(), entity.Activity{Kind: entity.ActivitySignedIn, Email: "a@example.com", At: time.Now()})
	assert.ErrorContains(t, err, "mailgun down")
}
