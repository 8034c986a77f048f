package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/artifact"
	"github.com/lexiqai/media-transcriber/internal/capture"
	"github.com/lexiqai/media-transcriber/internal/media"
	"github.com/lexiqai/media-transcriber/internal/session"
)

const (
	msgCopied          = "Text copied to clipboard"
	msgNothingToCopy   = "No text to copy"
	msgDownloaded      = "Text file downloaded"
	msgNothingToExport = "No text to download"
	msgRecordingSaved  = "Recording saved"
	msgNoRecording     = "No recording available"
	msgCaptureError    = "Microphone error: "
	msgCaptureDenied   = "Microphone access denied. Please allow microphone access."
	msgMissingFile     = "Please select a file first"
	msgFileTooLarge    = "File is too large"
)

// Controller is the session surface the web layer drives
type Controller interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Reset(ctx context.Context) error
	Clear(ctx context.Context) error
	Snapshot(ctx context.Context) (session.State, error)
	LoadSource(ctx context.Context, name, path string) error
	UseSource(ctx context.Context, src media.Source) error
	Announce(level session.Level, message string)
}

// Command is a client to server websocket message
type Command struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
}

// Options configures a Server
type Options struct {
	Controller Controller
	Hub        *Hub
	Recorder   *capture.Recorder
	UploadDir  string
	UploadMax  int64
	Now        func() time.Time
	Logger     zerolog.Logger
}

// Server exposes the controller over REST and websocket
type Server struct {
	ctrl      Controller
	hub       *Hub
	recorder  *capture.Recorder
	uploadDir string
	uploadMax int64
	now       func() time.Time
	logger    zerolog.Logger
}

// NewServer creates the HTTP surface
func NewServer(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.UploadDir == "" {
		opts.UploadDir = os.TempDir()
	}
	if opts.UploadMax <= 0 {
		opts.UploadMax = 500 << 20
	}
	return &Server{
		ctrl:      opts.Controller,
		hub:       opts.Hub,
		recorder:  opts.Recorder,
		uploadDir: opts.UploadDir,
		uploadMax: opts.UploadMax,
		now:       opts.Now,
		logger:    opts.Logger,
	}
}

// Register mounts every route on mux
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/api/source", s.post(s.handleSource))
	mux.HandleFunc("/api/start", s.post(s.action(s.ctrl.Start)))
	mux.HandleFunc("/api/pause", s.post(s.action(s.ctrl.Pause)))
	mux.HandleFunc("/api/reset", s.post(s.action(s.ctrl.Reset)))
	mux.HandleFunc("/api/clear", s.post(s.action(s.ctrl.Clear)))
	mux.HandleFunc("/api/state", s.get(s.handleState))
	mux.HandleFunc("/api/transcript", s.get(s.handleTranscript))
	mux.HandleFunc("/api/transcript/download", s.get(s.handleTranscriptDownload))
	mux.HandleFunc("/api/recording/download", s.get(s.handleRecordingDownload))
}

// HandleWS upgrades the connection and serves one UI client
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	c := s.hub.register(conn)
	defer s.hub.unregister(c)
	go c.writePump()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := r.Context()
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch messageType {
		case websocket.BinaryMessage:
			if s.recorder == nil {
				continue
			}
			if err := s.recorder.Write(message); err != nil {
				c.logger.Debug().Err(err).Msg("Dropping capture frame")
			}
		case websocket.TextMessage:
			var cmd Command
			if err := json.Unmarshal(message, &cmd); err != nil {
				c.logger.Error().Err(err).Msg("Failed to parse client message")
				continue
			}
			s.handleCommand(ctx, c.logger, cmd)
		}
	}
}

// handleCommand runs one client action. Controller failures are already
// surfaced as notifications, so they are only logged here.
func (s *Server) handleCommand(ctx context.Context, logger zerolog.Logger, cmd Command) {
	var err error
	switch cmd.Action {
	case "start":
		err = s.ctrl.Start(ctx)
	case "pause":
		err = s.ctrl.Pause(ctx)
	case "reset":
		err = s.ctrl.Reset(ctx)
	case "clear":
		err = s.ctrl.Clear(ctx)
	case "capture_start":
		err = s.startCapture(ctx)
	case "capture_stop":
		err = s.stopCapture(ctx)
	case "capture_error":
		msg := msgCaptureDenied
		if m := strings.TrimSpace(cmd.Message); m != "" {
			msg = msgCaptureError + m
		}
		s.ctrl.Announce(session.LevelError, msg)
	default:
		logger.Warn().Str("action", cmd.Action).Msg("Unknown client action")
		return
	}
	if err != nil {
		logger.Debug().Err(err).Str("action", cmd.Action).Msg("Client action failed")
	}
}

func (s *Server) startCapture(ctx context.Context) error {
	if s.recorder == nil {
		return fmt.Errorf("live capture not configured")
	}
	if err := s.recorder.Start(); err != nil && !errors.Is(err, capture.ErrAlreadyRecording) {
		return err
	}
	if err := s.ctrl.UseSource(ctx, s.recorder); err != nil {
		return err
	}
	if err := s.ctrl.Start(ctx); err != nil {
		// nothing would consume the frames
		_, _ = s.recorder.Stop()
		return err
	}
	return nil
}

func (s *Server) stopCapture(ctx context.Context) error {
	if s.recorder == nil {
		return fmt.Errorf("live capture not configured")
	}
	if err := s.ctrl.Pause(ctx); err != nil {
		return err
	}
	if _, err := s.recorder.Stop(); err != nil {
		return err
	}
	s.ctrl.Announce(session.LevelSuccess, msgRecordingSaved)
	return nil
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadMax)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgFileTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgMissingFile)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	path, err := s.saveUpload(file, name)
	if err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("Failed to store upload")
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	// decoded audio is held in memory
	defer os.Remove(path)

	if err := s.ctrl.LoadSource(r.Context(), name, path); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.handleState(w, r)
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	dst, err := os.CreateTemp(s.uploadDir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return dst.Name(), nil
}

func (s *Server) action(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		s.handleState(w, r)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if strings.TrimSpace(st.Transcript) == "" {
		writeError(w, http.StatusBadRequest, msgNothingToCopy)
		return
	}
	w.Header().Set("Content-Type", artifact.TranscriptContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, st.Transcript)
	s.ctrl.Announce(session.LevelSuccess, msgCopied)
}

func (s *Server) handleTranscriptDownload(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	payload, err := artifact.Transcript(st.Transcript)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNothingToExport)
		return
	}
	writeAttachment(w, artifact.TranscriptContentType, artifact.TranscriptFilename(s.now()), payload)
	s.ctrl.Announce(session.LevelSuccess, msgDownloaded)
}

func (s *Server) handleRecordingDownload(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		writeError(w, http.StatusNotFound, msgNoRecording)
		return
	}
	blob, at, ok := s.recorder.Recording()
	if !ok {
		writeError(w, http.StatusNotFound, msgNoRecording)
		return
	}
	writeAttachment(w, artifact.RecordingContentType, artifact.RecordingFilename(at), blob)
}

func (s *Server) post(h http.HandlerFunc) http.HandlerFunc {
	return method(http.MethodPost, h)
}

func (s *Server) get(h http.HandlerFunc) http.HandlerFunc {
	return method(http.MethodGet, h)
}

func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			w.Header().Set("Allow", m)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	}
}

// statusFor maps controller and media errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSource):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnsupported),
		errors.Is(err, session.ErrNoConnectivity),
		errors.Is(err, session.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, media.ErrUnsupportedMedia), errors.Is(err, media.ErrDecode):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
