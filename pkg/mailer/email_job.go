package mailer

import "context"

// EmailJob is a rendered email ready to hand to a Sender.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// Deliver sends the job through s.
func (j EmailJob) Deliver(ctx context.Context, s Sender) error {
	return s.Send(ctx, j.To, j.Subject, j.Text, j.HTML)
}
