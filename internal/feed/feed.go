// Package feed serves decoded telemetry and pipeline controls over HTTP.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/telemetry"
	"justapengu.in/telemetry/internal/capture"
	"justapengu.in/telemetry/internal/catalog"
	"justapengu.in/telemetry/internal/tail"
	"justapengu.in/telemetry/internal/transport"
	"justapengu.in/telemetry/pkg/f1"
)

type Logger = logrus.FieldLogger

// Service is the part of telemetry.Service the feed uses.
type Service interface {
	SubscribeLatest(size int) *transport.Subscription
	StartRecording() (*capture.Recording, error)
	StopRecording() (uint64, error)
	ActiveRecording() *capture.Recording
	Recordings() ([]*catalog.Recording, error)
	TailSnapshot() [][]byte
	Session() (uid uint64, count uint64)
}

const (
	writeWait = 10 * time.Second

	// packetQueueSize is the number of packets queued per websocket client. Slow clients skip
	// ahead to the latest packets.
	packetQueueSize = 128
)

type HTTP struct {
	address string
	service Service
	metrics http.Handler
	logger  Logger

	server   *http.Server
	upgrader websocket.Upgrader
}

// NewHTTP creates the feed. metrics serves /metrics and may be nil.
func NewHTTP(address string, service Service, metrics http.Handler, logger Logger) *HTTP {
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}

	return &HTTP{
		address: address,
		service: service,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Listen serves the feed until ctx is cancelled.
func (h *HTTP) Listen(ctx context.Context) error {
	h.logger.Infof("HTTP feed listening on: %s", h.address)

	h.server = &http.Server{
		Handler: h.Router(),
		Addr:    h.address,
	}

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			_ = h.Close()
		case <-stop:
		}
	}()

	err := h.server.ListenAndServe()

	if err == http.ErrServerClosed {
		return nil
	}

	return err
}

func (h *HTTP) Router() http.Handler {
	router := chi.NewRouter()
	router.Get("/packets", h.Packets)
	router.Get("/recording", h.Recording)
	router.Post("/recording", h.StartRecording)
	router.Delete("/recording", h.StopRecording)
	router.Get("/recordings", h.Recordings)
	router.Get("/tail", h.Tail)
	router.Get("/debug", h.Debug)
	router.Mount("/metrics", h.metrics)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.logger.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

// PacketMessage is the websocket representation of a decoded packet.
type PacketMessage struct {
	Type   string     `json:"Type"`
	Packet *f1.Packet `json:"Packet"`
}

func (h *HTTP) Packets(w http.ResponseWriter, r *http.Request) {
	// subscribed before the upgrade so the client receives everything published after its
	// handshake completes
	sub := h.service.SubscribeLatest(packetQueueSize)
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)

	if err != nil {
		h.logger.WithError(err).Debug("Could not upgrade packet feed connection")
		return
	}

	defer conn.Close()

	closed := make(chan struct{})

	go func() {
		defer close(closed)

		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	h.logger.Debugf("Packet feed client connected: %s", r.RemoteAddr)

	for {
		select {
		case <-closed:
			h.logger.Debugf("Packet feed client disconnected: %s", r.RemoteAddr)
			return
		case packet, ok := <-sub.Packets():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}

			data, err := json.Marshal(PacketMessage{Type: packet.Type().String(), Packet: packet})

			var unsupported *json.UnsupportedValueError

			if errors.As(err, &unsupported) {
				// NaN or Inf in a garbled packet, skip just this one
				h.logger.WithError(err).Debugf("Could not encode %s packet for packet feed", packet.Type())
				continue
			} else if err != nil {
				h.logger.WithError(err).Error("Could not encode packet for packet feed")
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.WithError(err).Debug("Could not write to packet feed client")
				return
			}
		}
	}
}

// RecordingStatus describes a recording.
type RecordingStatus struct {
	Active    bool      `json:"Active"`
	ID        string    `json:"ID,omitempty"`
	Path      string    `json:"Path,omitempty"`
	StartedAt time.Time `json:"StartedAt,omitempty"`
	Frames    uint64    `json:"Frames"`
	Error     string    `json:"Error,omitempty"`
}

func recordingStatus(rec *capture.Recording) *RecordingStatus {
	if rec == nil {
		return &RecordingStatus{}
	}

	status := &RecordingStatus{
		Active:    true,
		ID:        rec.ID().String(),
		Path:      rec.Path(),
		StartedAt: rec.StartedAt(),
		Frames:    rec.Frames(),
	}

	if err := rec.Err(); err != nil {
		status.Error = err.Error()
	}

	return status
}

func (h *HTTP) Recording(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, recordingStatus(h.service.ActiveRecording()))
}

func (h *HTTP) StartRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.StartRecording()

	if errors.Is(err, telemetry.ErrRecordingActive) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	} else if err != nil {
		h.logger.WithError(err).Error("Could not start recording")
		http.Error(w, "Could not start recording", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, recordingStatus(rec))
}

func (h *HTTP) StopRecording(w http.ResponseWriter, r *http.Request) {
	frames, err := h.service.StopRecording()

	if errors.Is(err, telemetry.ErrNoRecordingActive) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	status := &RecordingStatus{Frames: frames}
	code := http.StatusOK

	if err != nil {
		h.logger.WithError(err).Error("Recording stopped with an error")

		status.Error = err.Error()
		code = http.StatusInternalServerError
	}

	h.writeJSON(w, code, status)
}

func (h *HTTP) Recordings(w http.ResponseWriter, r *http.Request) {
	recordings, err := h.service.Recordings()

	if err != nil {
		h.logger.WithError(err).Error("Could not list recordings")
		http.Error(w, "Could not list recordings", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, recordings)
}

func (h *HTTP) Tail(w http.ResponseWriter, r *http.Request) {
	data, err := tail.Marshal(h.service.TailSnapshot())

	if err != nil {
		h.logger.WithError(err).Error("Could not encode packet tail")
		http.Error(w, "Could not encode packet tail", http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// SessionInfo is included in the debug bundle.
type SessionInfo struct {
	SessionUID string `json:"SessionUID"`
	Sessions   uint64 `json:"Sessions"`
}

func (h *HTTP) Debug(w http.ResponseWriter, r *http.Request) {
	uid, count := h.service.Session()
	recordings, _ := h.service.Recordings()

	w.Header().Add("Content-Disposition", fmt.Sprintf(`attachment;filename="f1telemetry_debug_bundle_%s.zip"`, time.Now().Format("2006-01-02_15_04")))
	w.Header().Add("Content-Type", "application/zip")

	err := tail.WriteBundle(w, h.service.TailSnapshot(), map[string]interface{}{
		"session.json":    SessionInfo{SessionUID: fmt.Sprintf("%016x", uid), Sessions: count},
		"recording.json":  recordingStatus(h.service.ActiveRecording()),
		"recordings.json": recordings,
	})

	if err != nil {
		h.logger.WithError(err).Error("Could not build debug information")
		http.Error(w, "Could not build debug information", http.StatusInternalServerError)
		return
	}
}

func (h *HTTP) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Debug("Could not write response")
	}
}

func (h *HTTP) Close() error {
	h.logger.Debugf("Closing HTTP feed")

	if h.server == nil {
		return nil
	}

	return h.server.Close()
}
