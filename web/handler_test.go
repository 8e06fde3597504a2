package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"parley/history"
	"parley/pipeline"
	"parley/station"
)

// fakeSession drives the controller directly, without capture or providers.
type fakeSession struct {
	controller *station.Controller
	hist       *history.Log
	stopped    bool
}

func (s *fakeSession) Activate(id station.ID) error { return s.controller.Activate(id) }

func (s *fakeSession) Deactivate(id station.ID) { s.controller.Deactivate(id) }

func (s *fakeSession) StopAll() {
	s.stopped = true
	for _, id := range []station.ID{station.A, station.B} {
		s.controller.Deactivate(id)
	}
}

func (s *fakeSession) ResetSession() { s.hist.Reset() }

func newTestHandler(t *testing.T) (*Handler, *fakeSession) {
	t.Helper()
	logger := log.New(io.Discard)
	a := station.Config{SourceLanguage: "en", TargetLanguage: "es", SpeechRate: 1.0}
	b := station.Config{SourceLanguage: "es", TargetLanguage: "en", SpeechRate: 1.0}
	controller, err := station.NewController(a, b, logger)
	if err != nil {
		t.Fatal(err)
	}
	session := &fakeSession{controller: controller, hist: history.NewLog()}
	h := NewHandler(session, controller, session.hist, pipeline.NewEvents(), NewCaptions(), logger)
	return h, session
}

func do(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestStationsSnapshot(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/stations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []station.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Station != station.A || got[1].Station != station.B {
		t.Errorf("snapshot = %+v", got)
	}
	for _, s := range got {
		if s.State != station.Idle {
			t.Errorf("station %s = %s, want idle", s.Station, s.State)
		}
	}
}

func TestActivateAndSwitch(t *testing.T) {
	h, session := newTestHandler(t)

	if rec := do(t, h, http.MethodPost, "/stations/A/activate", ""); rec.Code != http.StatusOK {
		t.Fatalf("activate A = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/stations/B/activate", ""); rec.Code != http.StatusOK {
		t.Fatalf("activate B = %d", rec.Code)
	}
	if got := session.controller.State(station.A); got != station.Idle {
		t.Errorf("A = %s, want idle after switch", got)
	}
	if got := session.controller.State(station.B); got != station.Listening {
		t.Errorf("B = %s", got)
	}

	if rec := do(t, h, http.MethodPost, "/stations/C/activate", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown station = %d, want 404", rec.Code)
	}
}

func TestActivateBusyStationConflicts(t *testing.T) {
	h, session := newTestHandler(t)

	if err := session.controller.Activate(station.A); err != nil {
		t.Fatal(err)
	}
	if err := session.controller.BeginProcessing(station.A); err != nil {
		t.Fatal(err)
	}

	rec := do(t, h, http.MethodPost, "/stations/A/activate", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestSetConfig(t *testing.T) {
	h, session := newTestHandler(t)

	body := `{"sourceLanguage":"fr","targetLanguage":"en","accent":"fr-CA","speechRate":1.2}`
	rec := do(t, h, http.MethodPut, "/stations/A/config", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	cfg := session.controller.Config(station.A)
	if cfg.SourceLanguage != "fr" || cfg.Accent != "fr-CA" || cfg.SpeechRate != 1.2 {
		t.Errorf("config = %+v", cfg)
	}

	t.Run("rejected while busy", func(t *testing.T) {
		if err := session.controller.Activate(station.A); err != nil {
			t.Fatal(err)
		}
		if err := session.controller.BeginProcessing(station.A); err != nil {
			t.Fatal(err)
		}
		rec := do(t, h, http.MethodPut, "/stations/A/config", body)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("invalid rate", func(t *testing.T) {
		bad := `{"sourceLanguage":"fr","targetLanguage":"en","speechRate":3.0}`
		rec := do(t, h, http.MethodPut, "/stations/B/config", bad)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/stations/B/config", "{")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHistoryEndpoints(t *testing.T) {
	h, session := newTestHandler(t)
	session.hist.Append(history.Entry{
		ID:        "e1",
		Timestamp: time.Now(),
		Station:   station.A,
		Original:  "hello",
		Status:    history.StatusOK,
	})

	rec := do(t, h, http.MethodGet, "/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []history.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Original != "hello" {
		t.Errorf("entries = %+v", entries)
	}

	if rec := do(t, h, http.MethodDelete, "/history", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if session.hist.Len() != 0 {
		t.Error("history survived delete")
	}
}

func TestStop(t *testing.T) {
	h, session := newTestHandler(t)
	if err := session.controller.Activate(station.A); err != nil {
		t.Fatal(err)
	}

	rec := do(t, h, http.MethodPost, "/stop", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if !session.stopped {
		t.Error("session not stopped")
	}
	if got := session.controller.State(station.A); got != station.Idle {
		t.Errorf("A = %s", got)
	}
}

func TestEventsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	h.events.Record(pipeline.RecognitionFailed, station.A, "timeout")

	rec := do(t, h, http.MethodGet, "/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var events []pipeline.ErrorEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Kind != pipeline.RecognitionFailed {
		t.Errorf("events = %+v", events)
	}
}

func TestCaptionsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	h.captions.Update(pipeline.Caption{Station: station.A, Original: "hello", Translated: "hola"})

	rec := do(t, h, http.MethodGet, "/captions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var captions []pipeline.Caption
	if err := json.Unmarshal(rec.Body.Bytes(), &captions); err != nil {
		t.Fatal(err)
	}
	if len(captions) != 1 || captions[0].Translated != "hola" {
		t.Errorf("captions = %+v", captions)
	}

	// An empty caption retires the slot.
	h.captions.Update(pipeline.Caption{Station: station.A})
	rec = do(t, h, http.MethodGet, "/captions", "")
	captions = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &captions); err != nil {
		t.Fatal(err)
	}
	if len(captions) != 0 {
		t.Errorf("captions = %+v, want empty", captions)
	}
}

func TestIndexRenders(t *testing.T) {
	h, session := newTestHandler(t)
	session.hist.Append(history.Entry{
		ID:        "e1",
		Timestamp: time.Now(),
		Station:   station.B,
		Original:  "buenos dias",
		Status:    history.StatusOK,
	})

	rec := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "buenos dias") {
		t.Error("index missing history entry")
	}
}
