package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/TeamRekursion/darkmoon-server/models/presence"
	"github.com/TeamRekursion/darkmoon-server/protocol"
	"github.com/TeamRekursion/darkmoon-server/room"
)

func newTestServer(t *testing.T) (*httptest.Server, *room.Room) {
	t.Helper()
	rm := room.CreateRoom()
	srv := httptest.NewServer(NewRouter(rm, Options{
		AllowedOrigins: []string{"http://localhost:3000", "https://deploy-preview-*--darkmoon-dev.netlify.app"},
	}, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, rm
}

func getJSON(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := getJSON(t, srv.URL+"/health")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", code, body)
	}
	if body["connections"] != float64(0) {
		t.Fatalf("connections = %v", body["connections"])
	}
}

func TestRootStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := getJSON(t, srv.URL+"/")
	if code != http.StatusOK || body["status"] != "running" || body["service"] != serviceName {
		t.Fatalf("unexpected status %d %v", code, body)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := getJSON(t, srv.URL+"/nope")
	if code != http.StatusNotFound || body["message"] != "Not Found" {
		t.Fatalf("unexpected response %d %v", code, body)
	}
}

func TestRoomInfo(t *testing.T) {
	srv, rm := newTestServer(t)
	code, body := getJSON(t, srv.URL+"/rooms/info")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	info, _ := body["room"].(map[string]interface{})
	if info["room_id"] != rm.RoomID.String() {
		t.Fatalf("room = %v", info)
	}
	state, _ := body["state"].(map[string]interface{})
	if state["isActive"] != false || state["mode"] != "none" {
		t.Fatalf("state = %v", state)
	}
}

func TestCORSWildcardOrigin(t *testing.T) {
	srv, _ := newTestServer(t)
	for origin, allowed := range map[string]bool{
		"https://deploy-preview-42--darkmoon-dev.netlify.app": true,
		"http://localhost:3000":                               true,
		"https://evil.example":                                false,
	} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		got := resp.Header.Get("Access-Control-Allow-Origin") == origin
		if got != allowed {
			t.Fatalf("origin %s allowed = %v, want %v", origin, got, allowed)
		}
	}
}

func dial(t *testing.T, srv *httptest.Server, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	return websocket.DefaultDialer.Dial(url, header)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := protocol.DecodeEnvelope(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestWebsocketJoinMoveAndLeave(t *testing.T) {
	srv, rm := newTestServer(t)

	conn, _, err := dial(t, srv, "?name=ann", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	env := readEnvelope(t, conn)
	if env.Type != protocol.MsgWelcome {
		t.Fatalf("first message = %s, want welcome", env.Type)
	}
	w, _ := protocol.DecodePayload[protocol.Welcome](env)

	env = readEnvelope(t, conn)
	snap, err := protocol.DecodePayload[presence.Snapshot](env)
	if err != nil || env.Type != protocol.MsgMove {
		t.Fatalf("expected move snapshot, got %s (%v)", env.Type, err)
	}
	if _, ok := snap[w.ID]; !ok || len(snap) != 1 {
		t.Fatalf("snapshot = %v", snap)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"move","payload":{"position":[4,5,6],"rotation":[0,0,0]}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	env = readEnvelope(t, conn)
	snap, _ = protocol.DecodePayload[presence.Snapshot](env)
	if snap[w.ID].Position[2] != 6 {
		t.Fatalf("move not applied: %v", snap)
	}
	if gs := rm.GameState(); len(gs.Players) != 1 || gs.Players[0].Name != "ann" {
		t.Fatalf("roster = %+v", gs.Players)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for rm.Connections() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client was not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	srv, rm := newTestServer(t)
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := dial(t, srv, "", header)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
	if rm.Connections() != 0 {
		t.Fatalf("rejected client was registered")
	}
}
