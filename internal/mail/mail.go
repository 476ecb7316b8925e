package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// Message is one outbound HTML email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

const verificationSubject = "Your sign-in link"

var verificationTemplate = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
<p>Hi,</p>
<p>Click the link below to sign in. It expires in {{.Minutes}} minutes and can only be used once.</p>
<p><a href="{{.URL}}">Sign in</a></p>
<p>If the button does not work, paste this address into your browser:<br>{{.URL}}</p>
<p>If you did not ask for this email you can ignore it.</p>
</body>
</html>
`))

// VerificationMessage builds the magic-link email for to.
func VerificationMessage(to, verifyURL string, validFor int) (Message, error) {
	var body bytes.Buffer
	err := verificationTemplate.Execute(&body, struct {
		URL     string
		Minutes int
	}{verifyURL, validFor})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render verification email: %w", err)
	}

	return Message{
		To:       to,
		Subject:  verificationSubject,
		HTMLBody: body.String(),
	}, nil
}
