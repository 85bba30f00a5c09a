package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/orderbot/sheetsync/internal/application/dispatcher"
	"github.com/orderbot/sheetsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, d *dispatcher.Dispatcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewVerifier("tok", zap.NewNop()), d, "cli_self", zap.NewNop())

	r := gin.New()
	r.POST("/webhook/event", h.HandleEvent)
	r.POST("/webhook/card", h.HandleCardAction)
	return r
}

func TestHandler_AnswersChallenge(t *testing.T) {
	r := newTestRouter(t, dispatcher.New(zap.NewNop()))

	body := `{"type":"url_verification","challenge":"abc","token":"tok"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/event", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"challenge":"abc"`)
}

func TestHandler_RejectsChallengeWithWrongToken(t *testing.T) {
	r := newTestRouter(t, dispatcher.New(zap.NewNop()))

	body := `{"type":"url_verification","challenge":"abc","token":"wrong"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/event", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_DispatchesMessageEvent(t *testing.T) {
	d := dispatcher.New(zap.NewNop())
	received := make(chan *dispatcher.Event, 1)
	d.Register(models.EventMessageNew, func(ctx context.Context, evt *dispatcher.Event) error {
		received <- evt
		return nil
	})
	r := newTestRouter(t, d)

	body := `{
		"header": {"event_id": "evt-1", "event_type": "im.message.receive_v1", "create_time": "1757000000000"},
		"event": {
			"sender": {"sender_type": "user", "sender_id": {"open_id": "ou_abc"}},
			"message": {"message_id": "om_1", "chat_id": "oc_1", "message_type": "text", "content": "{\"text\":\"acme big 3\"}"}
		}
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/event", strings.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	select {
	case evt := <-received:
		assert.Equal(t, "acme big 3", evt.Message.Text)
	case <-time.After(time.Second):
		t.Fatal("event was not dispatched")
	}
}

func TestHandler_UnsupportedEventTypeStillOK(t *testing.T) {
	r := newTestRouter(t, dispatcher.New(zap.NewNop()))

	body := `{"header": {"event_id": "evt-2", "event_type": "contact.user.updated_v3"}, "event": {}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/event", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_DispatchesCardAction(t *testing.T) {
	d := dispatcher.New(zap.NewNop())
	received := make(chan *dispatcher.Event, 1)
	d.Register(models.EventCardAction, func(ctx context.Context, evt *dispatcher.Event) error {
		received <- evt
		return nil
	})
	r := newTestRouter(t, d)

	body := `{"uuid":"trig-1","open_message_id":"om_p1","open_chat_id":"oc_1","action":{"value":{"payload":"{}"}}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/card", strings.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	select {
	case evt := <-received:
		assert.Equal(t, "trig-1", evt.Action.TriggerID)
	case <-time.After(time.Second):
		t.Fatal("card action was not dispatched")
	}
}

func TestHandler_BadCardPayloadRejected(t *testing.T) {
	r := newTestRouter(t, dispatcher.New(zap.NewNop()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/card", strings.NewReader(`{"action":{}}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
