package mail

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

var otpTmpl = template.Must(template.New("otp").Parse(
	`Hello {{.Name}},

Your {{.Purpose}} code is {{.Code}}. It expires in {{.Minutes}} minutes.

If you did not request this, you can ignore this message.
`))

var reminderTmpl = template.Must(template.New("reminder").Parse(
	`Hello {{.Name}},

This is a reminder that the drill "{{.Title}}" starts on {{.StartsAt}}{{if .Location}} at {{.Location}}{{end}}.

Please arrive on time for attendance check-in.
`))

func render(t *template.Template, data any) string {
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return fmt.Sprint(data)
	}
	return b.String()
}

// OTPMessage builds the one-time code mail for login, verification and reset.
func OTPMessage(to, name, code, purpose string, ttl time.Duration) Message {
	return Message{
		To:      []string{to},
		Subject: "Your " + purpose + " code",
		Text: render(otpTmpl, map[string]any{
			"Name": name, "Code": code, "Purpose": purpose, "Minutes": int(ttl.Minutes()),
		}),
	}
}

func EventReminderMessage(to, name, title, location string, startsAt time.Time) Message {
	return Message{
		To:      []string{to},
		Subject: "Reminder: " + title,
		Text: render(reminderTmpl, map[string]any{
			"Name": name, "Title": title, "Location": location,
			"StartsAt": startsAt.Format("Mon, 02 Jan 2006 15:04 MST"),
		}),
	}
}

func EventCancelledMessage(to, name, title string) Message {
	return Message{
		To:      []string{to},
		Subject: "Cancelled: " + title,
		Text:    fmt.Sprintf("Hello %s,\n\nThe drill %q has been cancelled. Your registration is closed.\n", name, title),
	}
}

func CertificateIssuedMessage(to, name, eventTitle, number, verifyCode string) Message {
	return Message{
		To:      []string{to},
		Subject: "Certificate issued: " + eventTitle,
		Text: fmt.Sprintf("Hello %s,\n\nYour certificate %s for %q is ready.\nVerification code: %s\n",
			name, number, eventTitle, verifyCode),
	}
}
