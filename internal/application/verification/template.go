package verification

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/auth-actions/internal/domain"
)

var emailTmpl = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 40px; border-radius: 8px; }
    .header { text-align: center; margin-bottom: 30px; }
    .logo { font-size: 24px; font-weight: bold; color: #221910; text-transform: uppercase; letter-spacing: 2px; }
    .content { color: #333333; line-height: 1.6; }
    .code-block { background-color: #f8f9fa; border: 1px solid #e9ecef; border-radius: 4px; padding: 20px; text-align: center; margin: 30px 0; }
    .code { font-size: 32px; font-weight: bold; letter-spacing: 8px; color: #FF6B00; }
    .footer { margin-top: 40px; text-align: center; color: #888888; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><div class="logo">{{.AppName}}</div></div>
    <div class="content">
      <h2>Verification Request</h2>
      <p>Hello,</p>
      <p>Use the code below to complete your authentication process:</p>
      <div class="code-block"><div class="code">{{.Code}}</div></div>
      <p>This code will expire in {{.Minutes}} minutes.</p>
      <p>If you didn't request this, you can safely ignore this email.</p>
    </div>
    <div class="footer">&copy; {{.Year}} {{.AppName}}. All rights reserved.</div>
  </div>
</body>
</html>
`))

type emailData struct {
	AppName string
	Code    string
	Minutes int
	Year    int
}

func renderEmail(appName, code string, ttl time.Duration, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, emailData{
		AppName: appName,
		Code:    code,
		Minutes: int(ttl.Minutes()),
		Year:    now.Year(),
	})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

func subjectFor(appName string, purpose domain.Purpose) string {
	if purpose == domain.PurposeReset {
		return "Reset your password"
	}
	return fmt.Sprintf("Welcome to %s - Verify your email", appName)
}
