package lifecycle

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voiceagent-platform/internal/deadletter"

	"github.com/gin-gonic/gin"
)

func newWebhookRouter(h *harness, dl *deadletter.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/webhook/retell", NewWebhookHandler(h.reconciler, dl).Handle)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/retell", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookBadJSON(t *testing.T) {
	h := newHarness(t)
	r := newWebhookRouter(h, nil)

	w := postWebhook(t, r, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unparsable body, got %d", w.Code)
	}
}

func TestWebhookHappyPath(t *testing.T) {
	h := newHarness(t)
	r := newWebhookRouter(h, nil)

	c := h.trigger(t)
	body := fmt.Sprintf(`{
		"event": "call_started",
		"call": {
			"call_id": "retell-abc",
			"metadata": {"call_id": %q},
			"from_number": "+14155550100",
			"to_number": "+15551234567",
			"start_timestamp": 1715000000000
		}
	}`, c.ID)

	w := postWebhook(t, r, body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("expected ok status, got %s", w.Body.String())
	}
}

func TestWebhookUnprocessableEventAckedAndDeadLettered(t *testing.T) {
	h := newHarness(t)
	dlRepo := deadletter.NewMemoryRepo()
	r := newWebhookRouter(h, deadletter.NewService(dlRepo))

	// Valid JSON, valid event kind, but no call_id metadata.
	body := `{
		"event": "call_ended",
		"call": {
			"call_id": "retell-xyz",
			"metadata": {},
			"transcript": "Agent: hello",
			"disconnection_reason": "user_hangup"
		}
	}`

	w := postWebhook(t, r, body)
	if w.Code != http.StatusOK {
		t.Fatalf("unprocessable events must still be acknowledged, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error"`) {
		t.Fatalf("expected error status, got %s", w.Body.String())
	}

	records := dlRepo.Records()
	if len(records) != 1 {
		t.Fatalf("expected one dead-letter record, got %d", len(records))
	}
	if records[0].EventKind != "call_ended" || records[0].RetellCallID != "retell-xyz" {
		t.Fatalf("dead-letter record misattributed: %+v", records[0])
	}
}

func TestWebhookUnknownEventAcked(t *testing.T) {
	h := newHarness(t)
	r := newWebhookRouter(h, nil)

	w := postWebhook(t, r, `{"event": "call_transferred", "call": {"call_id": "retell-1"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unknown events must be acknowledged, got %d", w.Code)
	}
}
