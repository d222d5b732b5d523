package mail

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
)

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

func (m Message) HasRecipients() bool { return len(m.To) > 0 }

// Sender delivers mail. Implementations send synchronously; callers that
// must not block wrap the call in SendAsync.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var defaultSender Sender

func Default() Sender {
	if defaultSender == nil {
		defaultSender = NewConsoleSender()
	}
	return defaultSender
}

func SetDefault(s Sender) { defaultSender = s }

// NewFromConfig picks console, smtp or sendgrid from MAIL_DRIVER.
func NewFromConfig(c configs.Config) (Sender, error) {
	from := FromAddress{Name: c.MailFromName, Address: c.MailFromAddress}
	switch c.MailDriver {
	case "", "console":
		return NewConsoleSender(), nil
	case "smtp":
		if c.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required for MAIL_DRIVER=smtp")
		}
		return &SMTPSender{
			Host: c.SMTPHost, Port: c.SMTPPort,
			Username: c.SMTPUsername, Password: c.SMTPPassword,
			From: from, SubjectPrefix: "[" + c.AppName + "] ",
		}, nil
	case "sendgrid":
		if c.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required for MAIL_DRIVER=sendgrid")
		}
		return &SendGridSender{Key: c.SendGridAPIKey, From: from, SubjectPrefix: "[" + c.AppName + "] "}, nil
	default:
		return nil, fmt.Errorf("unsupported MAIL_DRIVER %q", c.MailDriver)
	}
}

// SendAsync fires the message on a goroutine and only logs failures.
func SendAsync(s Sender, msg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Send(ctx, msg); err != nil {
			zap.L().Warn("mail delivery failed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		}
	}()
}

type FromAddress struct {
	Name    string
	Address string
}

/* ===============================
   Console
=================================*/

// ConsoleSender logs messages and keeps them in memory.
type ConsoleSender struct {
	mu   sync.Mutex
	Sent []Message
}

func NewConsoleSender() *ConsoleSender { return &ConsoleSender{} }

func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	if !msg.HasRecipients() {
		return nil
	}
	s.mu.Lock()
	s.Sent = append(s.Sent, msg)
	s.mu.Unlock()
	zap.L().Info("mail (console)", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.String("text", msg.Text))
	return nil
}

func (s *ConsoleSender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.Sent...)
}

func (s *ConsoleSender) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Sent) == 0 {
		return Message{}, false
	}
	return s.Sent[len(s.Sent)-1], true
}

/* ===============================
   SMTP
=================================*/

type SMTPSender struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          FromAddress
	SubjectPrefix string
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	if !msg.HasRecipients() {
		return nil
	}
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	return smtp.SendMail(addr, auth, s.From.Address, msg.To, s.build(msg))
}

func (s *SMTPSender) build(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.From.Name, s.From.Address)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s%s\r\n", s.SubjectPrefix, msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.HTML != "" {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(msg.HTML)
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(msg.Text)
	}
	return b.Bytes()
}

/* ===============================
   SendGrid
=================================*/

type SendGridSender struct {
	Key           string
	From          FromAddress
	SubjectPrefix string
}

func (s *SendGridSender) Send(_ context.Context, msg Message) error {
	if !msg.HasRecipients() {
		return nil
	}
	p := sgmail.NewPersonalization()
	p.Subject = s.SubjectPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(s.From.Name, s.From.Address))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	req := sendgrid.GetRequest(s.Key, "/v3/mail/send", "https://api.sendgrid.com")
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)
	res, err := sendgrid.API(req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
