package inbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"go-clinic/internal/config"
	"go-clinic/pkg/apperrors"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// ErrChannelDisabled is returned when no provider is configured for a channel.
var ErrChannelDisabled = apperrors.New("CHANNEL_DISABLED", 503, "channel is not configured")

// Outbound is a single message handed to a provider.
type Outbound struct {
	To      string
	Subject string
	Body    string
}

// Provider delivers messages for one channel and returns the provider's message id.
type Provider interface {
	Send(ctx context.Context, msg Outbound) (string, error)
}

// Providers maps channels to their configured provider.
type Providers map[Channel]Provider

func (p Providers) For(ch Channel) (Provider, error) {
	provider, ok := p[ch]
	if !ok || provider == nil {
		return nil, ErrChannelDisabled
	}
	return provider, nil
}

// NewProviders builds the providers the configuration enables.
func NewProviders(cfg *config.Config, logger *zap.Logger) Providers {
	providers := Providers{}
	if cfg.SMSGatewayURL != "" {
		providers[ChannelSMS] = NewGateway(cfg.SMSGatewayURL, cfg.SMSGatewayToken, logger.Named("sms"))
	}
	if cfg.WhatsAppGatewayURL != "" {
		providers[ChannelWhatsApp] = NewGateway(cfg.WhatsAppGatewayURL, cfg.WhatsAppGatewayToken, logger.Named("whatsapp"))
	}
	if cfg.SMTPHost != "" {
		providers[ChannelEmail] = &SMTPProvider{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}
	}
	logger.Info("Inbox providers configured", zap.Int("count", len(providers)))
	return providers
}

// Gateway posts messages to an HTTP SMS or WhatsApp gateway.
type Gateway struct {
	URL    string
	Token  string
	Client *http.Client
}

type gatewayRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type gatewayResponse struct {
	ID string `json:"id"`
}

func NewGateway(url, token string, logger *zap.Logger) *Gateway {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	retryClient.Logger = leveledLogger{logger.Sugar()}

	return &Gateway{URL: url, Token: token, Client: retryClient.StandardClient()}
}

func (g *Gateway) Send(ctx context.Context, msg Outbound) (string, error) {
	payload, err := json.Marshal(gatewayRequest{To: msg.To, Body: msg.Body})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	return out.ID, nil
}

// leveledLogger routes retryablehttp logs to zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

type SMTPProvider struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (p *SMTPProvider) Send(_ context.Context, msg Outbound) (string, error) {
	var auth smtp.Auth
	if p.Username != "" {
		auth = smtp.PlainAuth("", p.Username, p.Password, p.Host)
	}
	subject := msg.Subject
	if subject == "" {
		subject = "Message from your clinic"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", p.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.Body)

	send := p.send
	if send == nil {
		send = smtp.SendMail
	}
	addr := fmt.Sprintf("%s:%d", p.Host, p.Port)
	if err := send(addr, auth, p.From, []string{msg.To}, []byte(b.String())); err != nil {
		return "", err
	}
	return "", nil
}
