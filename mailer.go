package membership

import (
	"crypto/tls"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/dajohi/goemail"
)

// Mailer delivers outbound email. Sends are fire-and-forget from the
// registration path: failures are logged, never surfaced to the caller.
type Mailer interface {
	IsEnabled() bool
	Send(to, subject, htmlBody string) error
}

// NoopMailer drops all mail. Used in tests and mail-disabled deploys.
type NoopMailer struct{}

func (NoopMailer) IsEnabled() bool           { return false }
func (NoopMailer) Send(_, _, _ string) error { return nil }

// SMTPMailer sends through an SMTP relay from a preset address.
type SMTPMailer struct {
	smtp        *goemail.SMTP
	mailName    string
	mailAddress string
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer dials nothing; it validates configuration and prepares
// the client. host is "server:port"; emailAddress may carry a display
// name ("Membership Desk <no-reply@example.org>").
func NewSMTPMailer(host, user, password, emailAddress string, skipVerify bool) (*SMTPMailer, error) {
	h := fmt.Sprintf("smtps://%v:%v@%v", user, password, host)
	u, err := url.Parse(h)
	if err != nil {
		return nil, err
	}

	a, err := mail.ParseAddress(emailAddress)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: skipVerify,
	}

	smtp, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, err
	}

	return &SMTPMailer{
		smtp:        smtp,
		mailName:    a.Name,
		mailAddress: a.Address,
	}, nil
}

func (c *SMTPMailer) IsEnabled() bool { return true }

func (c *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := goemail.NewHTMLMessage(c.mailAddress, subject, htmlBody)
	msg.SetName(c.mailName)
	msg.AddTo(to)
	return c.smtp.Send(msg)
}

// VerificationEmail renders the confirmation message for a pending
// registration.
func VerificationEmail(clientURL, token string) (subject, body string) {
	verifyURL := fmt.Sprintf("%s/verify-email/%s", clientURL, token)
	subject = "Confirm your registration"
	body = fmt.Sprintf(`<h1>Welcome!</h1>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="%s">Confirm my registration</a></p>
<p>If the button does not work, copy this link: %s</p>
<p>The link expires in 24 hours.</p>`, verifyURL, verifyURL)
	return subject, body
}
