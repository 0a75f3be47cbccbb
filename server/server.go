// Package server exposes the room over HTTP: the websocket endpoint plus
// a few JSON status routes.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/TeamRekursion/darkmoon-server/room"
	"github.com/TeamRekursion/darkmoon-server/transport"
)

const serviceName = "Multi WebSocket Server"

type Options struct {
	AllowedOrigins []string
}

// NewRouter wires the routes for rm behind CORS, access logging and
// panic recovery.
func NewRouter(rm *room.Room, opts Options, log *zap.Logger) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
	})
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if r.Header.Get("Origin") == "" {
				return true
			}
			return c.OriginAllowed(r)
		},
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
			"connections": rm.Connections(),
		})
	}).Methods(http.MethodGet)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"service":     serviceName,
			"status":      "running",
			"connections": rm.Connections(),
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		})
	}).Methods(http.MethodGet)

	router.HandleFunc("/rooms/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"room":  rm.Info(),
			"state": rm.GameState(),
		})
	}).Methods(http.MethodGet)

	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Info("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		client := transport.NewClient(conn, log)
		id := rm.Connect(client, r.URL.Query().Get("name"))
		go client.WritePump()
		client.ReadPump(func(msg []byte) {
			rm.Handle(id, msg)
		})
		rm.Disconnect(id)
	})

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "Not Found"})
	})
	router.MethodNotAllowedHandler = router.NotFoundHandler

	var h http.Handler = router
	h = c.Handler(h)
	h = accessLog(log, h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{log}))(h)
	h = handlers.ProxyHeaders(h)
	return h
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func accessLog(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", m.Code),
			zap.Int64("bytes", m.Written),
			zap.Duration("duration", m.Duration))
	})
}

type recoveryLogger struct {
	log *zap.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error("http handler panic", zap.String("panic", fmt.Sprint(v...)))
}
