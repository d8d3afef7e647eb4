package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/api/apitest"
	"github.com/vango-dev/gigmarket/pkg/confirm"
	"github.com/vango-dev/gigmarket/pkg/notify"
	"github.com/vango-dev/gigmarket/pkg/session"
	"github.com/vango-dev/gigmarket/pkg/views"
)

const timeout = 2 * time.Second

// harness serves sessions for one backend the way the server does.
type harness struct {
	t        *testing.T
	backend  *apitest.Backend
	store    *session.MemoryStore
	manager  *session.Manager
	server   *httptest.Server
	sessions chan *session.Session
}

func newHarness(t *testing.T, cfg session.ManagerConfig) *harness {
	t.Helper()
	backend := apitest.New(t)
	backend.Profiles["e1"] = &api.Profile{ID: "e1", Name: "Acme", Role: api.RoleEmployer}
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("l%02d", i)
		backend.Listings[id] = api.Listing{
			ID:        id,
			Kind:      api.KindJob,
			Title:     fmt.Sprintf("Engineer %02d", i),
			OwnerID:   "e1",
			Status:    api.StatusOpen,
			CreatedAt: time.Date(2026, 3, i, 9, 0, 0, 0, time.UTC),
		}
	}

	store := session.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	manager := session.NewManager(store, cfg, nil)
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	h := &harness{
		t:        t,
		backend:  backend,
		store:    store,
		manager:  manager,
		sessions: make(chan *session.Session, 8),
	}
	client := backend.Client(t)
	upgrader := websocket.Upgrader{}

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		rec, resumed, err := manager.Open(r.Context(), session.OpenRequest{
			SessionID: q.Get("resume"),
			UserID:    q.Get("user"),
			Role:      api.Role(q.Get("role")),
			IP:        "127.0.0.1",
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sess := session.New(conn, rec, session.Options{
			Env:     views.Env{Client: client},
			Resumed: resumed,
			OnClose: manager.Detach,
		})
		if err := manager.Register(sess, "127.0.0.1"); err != nil {
			sess.Close()
			return
		}
		if err := sess.Start(r.Context()); err == nil {
			h.sessions <- sess
		}
	}))
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) dial(query url.Values) (*websocket.Conn, *http.Response, error) {
	u := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?" + query.Encode()
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		h.t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func (h *harness) connect(query url.Values) *websocket.Conn {
	h.t.Helper()
	conn, _, err := h.dial(query)
	if err != nil {
		h.t.Fatalf("dial: %v", err)
	}
	return conn
}

func employer() url.Values {
	return url.Values{"user": {"e1"}, "role": {string(api.RoleEmployer)}}
}

// next reads messages until one of type typ arrives.
func next(t *testing.T, conn *websocket.Conn, typ string) session.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		var msg session.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func decode[T any](t *testing.T, msg session.Message) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		t.Fatalf("decode %s: %v", msg.Type, err)
	}
	return v
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(session.Message{Type: typ, Data: raw}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// state is the part of a dashboard snapshot the tests look at.
type state struct {
	Seq       uint64 `json:"seq"`
	Dashboard struct {
		Role  api.Role `json:"role"`
		Views struct {
			Listings struct {
				Query string `json:"query"`
				Rows  struct {
					Total int `json:"total"`
				} `json:"rows"`
			} `json:"listings"`
		} `json:"views"`
	} `json:"dashboard"`
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_HelloAndState(t *testing.T) {
	h := newHarness(t, session.ManagerConfig{})
	conn := h.connect(employer())

	hello := decode[session.Hello](t, next(t, conn, session.TypeHello))
	if hello.SessionID == "" || hello.UserID != "e1" || hello.Role != api.RoleEmployer || hello.Resumed {
		t.Errorf("hello = %+v", hello)
	}

	st := decode[state](t, next(t, conn, session.TypeState))
	if st.Seq == 0 || st.Dashboard.Role != api.RoleEmployer {
		t.Errorf("state = %+v", st)
	}
	if st.Dashboard.Views.Listings.Rows.Total != 3 {
		t.Errorf("listings total = %d, want 3", st.Dashboard.Views.Listings.Rows.Total)
	}
	if stats := h.manager.Stats(); stats.Connected != 1 {
		t.Errorf("Connected = %d, want 1", stats.Connected)
	}
}

func TestSession_DeleteAsksForConfirmation(t *testing.T) {
	h := newHarness(t, session.ManagerConfig{})
	conn := h.connect(employer())
	next(t, conn, session.TypeState)

	send(t, conn, session.TypeIntent, views.Intent{View: "listings", Action: "delete", Args: map[string]string{"id": "l01"}})

	modal := decode[map[string]any](t, next(t, conn, session.TypeModal))
	if modal["id"] != "confirm-delete" || modal["open"] != true {
		t.Errorf("modal = %v, want confirm-delete open", modal)
	}
	req := decode[confirm.Request](t, next(t, conn, session.TypeConfirm))
	if req.ID == "" || req.Prompt.ConfirmButtonText != "Delete" {
		t.Fatalf("confirm request = %+v", req)
	}
	if len(h.backend.Writes()) != 0 {
		t.Fatal("write sent before confirmation")
	}

	send(t, conn, session.TypeConfirm, session.ConfirmAnswer{ID: req.ID, Confirmed: true})

	popup := decode[notify.Popup](t, next(t, conn, session.TypePopup))
	if popup.Icon != notify.IconSuccess || popup.Title != "Listing deleted" {
		t.Errorf("popup = %+v", popup)
	}
	writes := h.backend.Writes()
	if len(writes) != 1 || writes[0].Method != http.MethodDelete || writes[0].Path != "/listings/l01" {
		t.Errorf("writes = %+v", writes)
	}
}

func TestSession_DeclinedDeleteSendsNothing(t *testing.T) {
	h := newHarness(t, session.ManagerConfig{})
	conn := h.connect(employer())
	next(t, conn, session.TypeState)

	send(t, conn, session.TypeIntent, views.Intent{View: "listings", Action: "delete", Args: map[string]string{"id": "l02"}})
	req := decode[confirm.Request](t, next(t, conn, session.TypeConfirm))
	send(t, conn, session.TypeConfirm, session.ConfirmAnswer{ID: req.ID, Confirmed: false})

	closed := decode[map[string]any](t, next(t, conn, session.TypeModal))
	if closed["id"] != "confirm-delete" || closed["open"] == true {
		t.Errorf("modal = %v, want confirm-delete closed", closed)
	}
	if writes := h.backend.Writes(); len(writes) != 0 {
		t.Errorf("writes = %+v, want none", writes)
	}
}

func TestSession_InvalidMessages(t *testing.T) {
	h := newHarness(t, session.ManagerConfig{})
	conn := h.connect(employer())
	next(t, conn, session.TypeState)

	frames := []string{
		`{"type":"bogus"}`,
		`not json`,
		`{"type":"intent","data":{"view":"listings"}}`,
		`{"type":"intent","data":{"view":"starred","action":"toggle"}}`,
		`{"type":"modal","data":{"id":"no-such-dialog","open":true}}`,
	}
	for _, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write %s: %v", frame, err)
		}
		msg := decode[session.ErrorMessage](t, next(t, conn, session.TypeError))
		if msg.Code != "E203" {
			t.Errorf("%s: code = %q, want E203 (%s)", frame, msg.Code, msg.Message)
		}
	}

	// the session survives bad input
	send(t, conn, session.TypeIntent, views.Intent{View: "listings", Action: "filter", Args: map[string]string{"query": "engineer 02"}})
	eventually(t, "filtered state", func() bool {
		st := decode[state](t, next(t, conn, session.TypeState))
		return st.Dashboard.Views.Listings.Query == "engineer 02"
	})
}

func TestSession_MountFailureIsReported(t *testing.T) {
	h := newHarness(t, session.ManagerConfig{})
	h.backend.Fail(http.MethodGet, "/listings", http.StatusInternalServerError)

	conn := h.connect(employer())
	msg := decode[session.ErrorMessage](t, next(t, conn, session.TypeError))
	if msg.Code != "E202" {
		t.Errorf("code = %q, want E202 (%s)", msg.Code, msg.Message)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after a failed mount")
	}
	eventually(t, "session detached", func() bool {
		return h.manager.Stats().Connected == 0
	})
}
