package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lotuseval/placement-backend/internal/exam"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/response"
	"github.com/lotuseval/placement-backend/internal/service"
	ws "github.com/lotuseval/placement-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// observeInterval is how often the stream checks for timeouts to push.
const observeInterval = time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a session over WebSocket.
type WSHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(examService *service.ExamService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		examService: examService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:id/stream
// Accepts state|answer|next|back|submit|ping actions and pushes the session
// whenever a timeout moves it on.
func (h *WSHandler) SessionStream(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := h.examService.State(ctx, id)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", id).Logger()
	wsLog.Info().Msg("Candidate connected")

	s := &stream{conn: conn, log: wsLog}
	s.push(sess)

	msgs := make(chan ws.RequestPayload)
	go func() {
		defer close(msgs)
		for {
			var msg ws.RequestPayload
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(observeInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			h.dispatch(ctx, s, id, msg)

		case <-ticker.C:
			if s.finished {
				continue
			}
			sess, err := h.examService.State(ctx, id)
			if err != nil {
				wsLog.Error().Err(err).Msg("Observe failed")
				s.reportError(err)
				return
			}
			if s.changed(sess) {
				s.push(sess)
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, s *stream, id string, msg ws.RequestPayload) {
	var (
		sess *model.ExamSession
		err  error
	)

	switch msg.Action {
	case ws.ActionPing:
		_ = ws.WriteTyped(s.conn, ws.PongResponse{Event: ws.EventPong})
		return
	case ws.ActionState:
		sess, err = h.examService.State(ctx, id)
	case ws.ActionAnswer:
		if msg.Question == nil || msg.Option == nil {
			_ = ws.WriteError(s.conn, string(response.ErrValidation), "question and option are required")
			return
		}
		sess, err = h.examService.Answer(ctx, id, *msg.Question, *msg.Option)
	case ws.ActionNext:
		sess, err = h.examService.Next(ctx, id)
	case ws.ActionBack:
		sess, err = h.examService.Back(ctx, id)
	case ws.ActionSubmit:
		sess, err = h.examService.Submit(ctx, id)
	default:
		s.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		_ = ws.WriteError(s.conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		return
	}

	if err != nil {
		s.reportError(err)
		return
	}
	s.push(sess)
}

// stream tracks what the client last saw so ticks only push changes.
type stream struct {
	conn     *websocket.Conn
	log      zerolog.Logger
	current  int
	status   exam.Status
	finished bool
}

func (s *stream) changed(sess *model.ExamSession) bool {
	return sess.Current != s.current || sess.Status != s.status
}

func (s *stream) push(sess *model.ExamSession) {
	s.current, s.status = sess.Current, sess.Status
	event := ws.EventState
	if sess.Status == exam.StatusFinished {
		event = ws.EventFinished
		s.finished = true
	}
	if err := ws.WriteTyped(s.conn, ws.StateResponse{Event: event, Session: model.NewSessionView(*sess, time.Now())}); err != nil {
		s.log.Debug().Err(err).Msg("Write state failed")
	}
}

func (s *stream) reportError(err error) {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Session action failed")
	}
	_ = ws.WriteError(s.conn, string(f.code), response.GetMessage(f.code))
}
