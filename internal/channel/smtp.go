package channel

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	gomail "github.com/wneessen/go-mail"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// SMTPSender delivers email touches over SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	noTLS    bool
	now      func() time.Time
}

// NewSMTPSender creates an SMTPSender from the smtp config section.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		fromName: cfg.FromName,
		noTLS:    cfg.NoTLS,
		now:      time.Now,
	}
}

func (s *SMTPSender) buildMsg(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.fromName, s.from); err != nil {
		return nil, eris.Wrap(err, "smtp: from")
	}
	if msg.ToName != "" {
		if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
			return nil, eris.Wrap(err, "smtp: to")
		}
	} else if err := m.To(msg.To); err != nil {
		return nil, eris.Wrap(err, "smtp: to")
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (model.DeliveryResult, error) {
	m, err := s.buildMsg(msg)
	if err != nil {
		return model.DeliveryResult{}, err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTimeout(15 * time.Second),
	}
	if s.noTLS {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.NoTLS))
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return model.DeliveryResult{}, eris.Wrap(err, "smtp: client")
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return model.DeliveryResult{}, eris.Wrap(err, "smtp: send")
	}

	return model.DeliveryResult{
		MessageID:  m.GetMessageID(),
		Channel:    model.ChannelEmail,
		AcceptedAt: s.now().UTC(),
	}, nil
}
