package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/mediassist/internal/models"
	"github.com/xhad/mediassist/internal/types"
	"github.com/xhad/mediassist/pkg/fetcher"
	"github.com/xhad/mediassist/pkg/session"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

const NotReadyWarning = "⚠️ Please upload and process files first!"

// Message is the JSON frame exchanged over /ws. File carries upload bytes,
// base64 encoded on the wire.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	Name    string      `json:"name,omitempty"`
	File    []byte      `json:"file,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Entry struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// WSServer exposes one shared session. Actions from every connection are
// serialized, so one finishes before the next starts.
type WSServer struct {
	mu      sync.Mutex
	session *session.Session
	fetcher *fetcher.Fetcher
	logger  *zap.Logger
	timeout time.Duration
}

func NewWSServer(sess *session.Session, f *fetcher.Fetcher, logger *zap.Logger) *WSServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSServer{
		session: sess,
		fetcher: f,
		logger:  logger,
		timeout: 5 * time.Minute,
	}
}

func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Info("client connected", zap.String("remote", r.RemoteAddr), zap.String("session", s.session.ID()))

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.logger.Warn("malformed message", zap.Error(err))
				s.sendMessage(conn, "error", fmt.Sprintf("malformed message: %v", err))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("error reading message", zap.Error(err))
			}
			return
		}

		s.handleMessage(r.Context(), conn, msg)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := s.logger.With(zap.String("type", msg.Type))

	switch msg.Type {
	case "upload":
		upload := models.Upload{Name: msg.Name, Data: msg.File}
		if err := s.session.AddUpload(upload); err != nil {
			s.sendMessage(conn, "error", err.Error())
			return
		}
		log.Info("file added", zap.String("name", msg.Name), zap.Int("bytes", len(msg.File)))
		s.sendMessage(conn, "status", fmt.Sprintf("✅ %d file(s) added", len(s.session.Uploads())))

	case "fetch":
		if s.fetcher == nil {
			s.sendMessage(conn, "error", "fetching by url is disabled")
			return
		}
		uploads, err := s.fetcher.Fetch(ctx, msg.Content)
		if err != nil {
			log.Warn("fetch failed", zap.String("url", msg.Content), zap.Error(err))
			s.sendMessage(conn, "error", fmt.Sprintf("Failed to fetch %s: %v", msg.Content, err))
			return
		}
		for _, u := range uploads {
			if err := s.session.AddUpload(u); err != nil {
				s.sendMessage(conn, "error", err.Error())
				return
			}
		}
		s.sendMessage(conn, "status", fmt.Sprintf("✅ %d file(s) added", len(s.session.Uploads())))

	case "process":
		s.sendMessage(conn, "status", "Analyzing your documents...")
		report, err := s.session.Process(ctx)
		for _, skipped := range report.Skipped {
			s.sendMessage(conn, "warning", fmt.Sprintf("Skipped %s", skipped))
		}
		if err != nil {
			log.Error("processing failed", zap.Error(err))
			s.sendMessage(conn, "error", fmt.Sprintf("Processing failed: %v", err))
			return
		}
		log.Info("processing complete", zap.Int("files", report.Files), zap.Int("chunks", report.Chunks))
		s.sendMessage(conn, "status", fmt.Sprintf("🎉 Processing complete! %d chunks indexed", report.Chunks))

	case "ask":
		entry, err := s.session.Ask(ctx, msg.Content)
		if errors.Is(err, types.ErrNotReady) {
			s.sendMessage(conn, "warning", NotReadyWarning)
			return
		}
		if err != nil {
			log.Error("answer failed", zap.Error(err))
			s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", err))
			return
		}
		s.send(conn, Message{Type: "response", Content: entry.Text, Data: toEntry(entry)})

	case "history":
		history := s.session.History()
		entries := make([]Entry, len(history))
		for i, e := range history {
			entries[i] = toEntry(e)
		}
		s.send(conn, Message{Type: "history", Data: entries})

	case "reset":
		s.session.Reset()
		s.sendMessage(conn, "status", "Session cleared")

	default:
		s.sendMessage(conn, "error", fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func toEntry(e models.ConversationEntry) Entry {
	return Entry{ID: e.ID, Role: string(e.Role), Text: e.Text, Time: e.Clock()}
}

func (s *WSServer) sendMessage(conn *websocket.Conn, msgType string, content string) {
	s.send(conn, Message{Type: msgType, Content: content})
}

func (s *WSServer) send(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("error sending message", zap.Error(err))
	}
}
