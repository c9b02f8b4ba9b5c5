package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qms/hospital-service/internal/hub"

	"github.com/rs/zerolog"
)

type deadlineRecorder struct {
	*httptest.ResponseRecorder
	deadlines []time.Time
}

func (w *deadlineRecorder) SetWriteDeadline(deadline time.Time) error {
	w.deadlines = append(w.deadlines, deadline)
	return nil
}

func TestRealtimeHandlerLiftsWriteDeadline(t *testing.T) {
	handler := NewRealtimeHandler(hub.New(zerolog.Nop()), zerolog.Nop())
	w := &deadlineRecorder{ResponseRecorder: httptest.NewRecorder()}
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/realtime/info", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if len(w.deadlines) != 1 || !w.deadlines[0].IsZero() {
		t.Fatalf("expected write deadline cleared once, got %v", w.deadlines)
	}
}
