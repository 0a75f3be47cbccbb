package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// serve starts a websocket endpoint whose server side is handed to fn.
func serve(t *testing.T, fn func(*Client)) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		fn(NewClient(conn, zap.NewNop()))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPumpsEchoMessages(t *testing.T) {
	conn := serve(t, func(c *Client) {
		go c.WritePump()
		c.ReadPump(func(msg []byte) {
			_ = c.Send(append([]byte("echo:"), msg...))
		})
	})

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "echo:hi" {
		t.Fatalf("got %q", msg)
	}
}

func TestReadPumpReturnsWhenPeerCloses(t *testing.T) {
	done := make(chan struct{})
	conn := serve(t, func(c *Client) {
		c.ReadPump(func([]byte) {})
		if err := c.Send([]byte("late")); !errors.Is(err, ErrClosed) {
			t.Errorf("send after close: err = %v, want ErrClosed", err)
		}
		close(done)
	})

	conn.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("read pump did not return")
	}
}

func TestSendFailsWhenBufferFull(t *testing.T) {
	result := make(chan error, 1)
	serve(t, func(c *Client) {
		defer c.Close()
		var err error
		for i := 0; i <= sendBuffer; i++ {
			if err = c.Send([]byte("x")); err != nil {
				break
			}
		}
		result <- err
	})

	select {
	case err := <-result:
		if !errors.Is(err, ErrBufferFull) {
			t.Fatalf("err = %v, want ErrBufferFull", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
}
