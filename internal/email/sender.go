package email

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`
<p>Hi {{.DisplayName}},</p>
<p>Welcome to Mingle! Confirm your email address to finish setting up your account:</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>The link is valid for 24 hours. If you did not sign up, you can ignore this message.</p>
`))

var passwordResetTmpl = template.Must(template.New("reset").Parse(`
<p>Hi {{.DisplayName}},</p>
<p>We received a request to reset your password:</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>The link is valid for 1 hour and can be used once. If you did not request this, your password is unchanged.</p>
`))

// Sender delivers account emails over SMTP.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSender(host string, port int, username, password, from string) *Sender {
	return &Sender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *Sender) SendVerificationEmail(to, displayName, link string) error {
	body, err := render(verificationTmpl, displayName, link)
	if err != nil {
		return err
	}
	return s.send(to, "Verify your email address", body)
}

func (s *Sender) SendPasswordResetEmail(to, displayName, link string) error {
	body, err := render(passwordResetTmpl, displayName, link)
	if err != nil {
		return err
	}
	return s.send(to, "Password reset request", body)
}

func (s *Sender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	return s.dialer.DialAndSend(m)
}

func render(tmpl *template.Template, displayName, link string) (string, error) {
	buf := new(bytes.Buffer)
	err := tmpl.Execute(buf, struct {
		DisplayName string
		Link        string
	}{displayName, link})
	if err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}
