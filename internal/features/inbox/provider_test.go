package inbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"

	"go-clinic/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGatewayRetriesAndReturnsID(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body gatewayRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, gatewayRequest{To: "+15550100", Body: "hi"}, body)
		_, _ = w.Write([]byte(`{"id":"gw-42"}`))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "tok", zap.NewNop())
	id, err := g.Send(context.Background(), Outbound{To: "+15550100", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "gw-42", id)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGatewayClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad number"))
	}))
	defer srv.Close()

	_, err := NewGateway(srv.URL, "", zap.NewNop()).Send(context.Background(), Outbound{To: "1", Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400: bad number")
}

func TestSMTPProviderFormatsMessage(t *testing.T) {
	var gotAddr string
	var gotMsg []byte
	p := &SMTPProvider{Host: "mail.local", Port: 2525, From: "clinic@example.com"}
	p.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, "clinic@example.com", from)
		assert.Equal(t, []string{"jane@example.com"}, to)
		return nil
	}

	_, err := p.Send(context.Background(), Outbound{To: "jane@example.com", Body: "See you tomorrow"})
	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	text := string(gotMsg)
	assert.Contains(t, text, "Subject: Message from your clinic\r\n")
	assert.True(t, strings.HasSuffix(text, "\r\n\r\nSee you tomorrow"))
}

func TestNewProvidersOnlyConfiguredChannels(t *testing.T) {
	providers := NewProviders(&config.Config{SMSGatewayURL: "http://sms.local", SMTPHost: "mail.local"}, zap.NewNop())
	_, err := providers.For(ChannelSMS)
	assert.NoError(t, err)
	_, err = providers.For(ChannelEmail)
	assert.NoError(t, err)
	_, err = providers.For(ChannelWhatsApp)
	assert.ErrorIs(t, err, ErrChannelDisabled)
}
