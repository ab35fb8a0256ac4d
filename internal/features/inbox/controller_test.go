package inbox

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-clinic/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWebhookApp(f *fixture) *fiber.App {
	app := fiber.New()
	ctrl := NewInboxController(f.svc, f.hub, zap.NewNop())
	NewInboxApi(ctrl, &config.Config{}).Setup(app)
	return app
}

func TestWebhookSignature(t *testing.T) {
	f := newFixture()
	app := newWebhookApp(f)
	body := `{"tenant":"sunrise","from":"+15550100","body":"Running late","provider_id":"p-9"}`

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", hex.EncodeToString(Sign([]byte("other"), []byte(body))), http.StatusUnauthorized},
		{"valid", hex.EncodeToString(Sign([]byte(testSecret), []byte(body))), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/inbox/webhooks/sms", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
	assert.Len(t, f.repo.messages, 1)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	app := newWebhookApp(newFixture())
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/inbox/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
