package templates

import "time"

// Brand is the sender identity printed in every email.
type Brand struct {
	CompanyName string
	AppName     string
	AppURL      string
	LogoURL     string
	SupportURL  string
}

// Option pattern
type Option func(*EmailData)

// WithTime stamps the activity time, rendered in loc (UTC when nil).
func WithTime(t time.Time, loc *time.Location) Option {
	return func(d *EmailData) {
		if loc == nil {
			loc = time.UTC
		}
		local := t.In(loc)
		d.TimeAt = local
		d.Time = local.Format("02 January 2006, 15:04")
		d.Timezone = loc.String()
	}
}

// NewBaseEmailData fills the brand fields, then applies opts.
func NewBaseEmailData(b Brand, typ, email string, opts ...Option) EmailData {
	d := EmailData{
		Email: email,
		Type:  typ,

		CompanyName: b.CompanyName,
		AppName:     b.AppName,
		AppURL:      b.AppURL,
		LogoURL:     b.LogoURL,
		SupportURL:  b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewSignInData(b Brand, email string, opts ...Option) EmailData {
	return NewBaseEmailData(b, SignInNotification, email, opts...)
}
