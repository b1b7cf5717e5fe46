package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
	"github.com/oksasatya/go-ddd-diary/pkg/mailer"
	"github.com/oksasatya/go-ddd-diary/pkg/mailer/templates"
)

// ActivityNotifier mails the account owner when their account signs in.
// Other activity kinds are acknowledged without mail.
type ActivityNotifier struct {
	Sender   mailer.Sender
	Brand    templates.Brand
	Location *time.Location
	Logger   *logrus.Logger
}

func NewActivityNotifier(sender mailer.Sender, brand templates.Brand, loc *time.Location, logger *logrus.Logger) *ActivityNotifier {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &ActivityNotifier{Sender: sender, Brand: brand, Location: loc, Logger: logger}
}

func (n *ActivityNotifier) Handle(ctx context.Context, a entity.Activity) error {
	log := n.Logger.WithFields(logrus.Fields{"kind": a.Kind, "user_id": a.UserID})
	if a.Kind != entity.ActivitySignedIn {
		log.Debug("activity needs no mail")
		return nil
	}
	if a.Email == "" {
		log.Warn("sign-in activity without email")
		return nil
	}

	data := templates.NewSignInData(n.Brand, a.Email, templates.WithTime(a.At, n.Location))
	subject, text, html, err := templates.Render(templates.SignInNotification, data)
	if err != nil {
		return fmt.Errorf("render sign-in mail: %w", err)
	}
	job := mailer.EmailJob{To: a.Email, Subject: subject, Text: text, HTML: html}
	if err := job.Deliver(ctx, n.Sender); err != nil {
		return fmt.Errorf("send sign-in mail: %w", err)
	}
	log.Info("sign-in notification sent")
	return nil
}
