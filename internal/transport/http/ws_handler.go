package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

const identityTimeout = 5 * time.Second

// TakeHandler hosts one quiz-taking session per WebSocket connection.
type TakeHandler struct {
	service  *app.QuizService
	auth     Authenticator
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewTakeHandler(service *app.QuizService, auth Authenticator, log *zap.Logger) *TakeHandler {
	return &TakeHandler{
		service: service,
		auth:    auth,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Name string `json:"name"`
}

type selectPayload struct {
	Option *int `json:"option"`
}

type authPayload struct {
	Token string `json:"token"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// connIdentity re-checks the token on every read so a logout or expiry is
// noticed at submission time.
type connIdentity struct {
	auth  Authenticator
	token string
}

func (c *connIdentity) Identity() (domain.User, bool) {
	if c.token == "" {
		return domain.User{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), identityTimeout)
	defer cancel()
	user, err := c.auth.Authenticate(ctx, c.token)
	if err != nil {
		return domain.User{}, false
	}
	return user, true
}

// submitter resolves the user at submit time so the stored result is owned
// by whoever holds the token then.
type submitter struct {
	service  *app.QuizService
	identity *connIdentity
}

func (s submitter) SubmitResult(ctx context.Context, result domain.AttemptResult) (domain.AttemptResult, error) {
	user, ok := s.identity.Identity()
	if !ok {
		return domain.AttemptResult{}, domain.ErrSessionExpired
	}
	return app.UserSubmitter{Service: s.service, User: user}.SubmitResult(ctx, result)
}

// ServeWS upgrades the request and drives a Taker from client messages.
func (h *TakeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		writeError(w, h.log, &domain.ValidationError{Field: "quizId", Reason: "quiz id required"})
		return
	}
	quiz, err := h.service.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	identity := &connIdentity{auth: h.auth, token: r.URL.Query().Get("token")}
	taker := app.NewTaker(quiz, identity, submitter{service: h.service, identity: identity})
	log := h.log.With(zap.String("quiz_id", quiz.ID))
	log.Debug("taking session opened", zap.String("phase", taker.Phase().String()))

	if err := conn.WriteJSON(outboundMessage[app.TakerSnapshot]{Type: "state", Payload: taker.Snapshot()}); err != nil {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		err := h.apply(r.Context(), taker, identity, inbound)
		if err != nil {
			log.Debug("taking step rejected", zap.String("type", inbound.Type), zap.Error(err))
			if werr := conn.WriteJSON(outboundMessage[errorPayload]{
				Type:    "error",
				Payload: errorPayload{Message: err.Error(), Kind: domain.Kind(err)},
			}); werr != nil {
				break
			}
		}
		if result, ok := taker.Result(); ok && inbound.Type == "advance" && err == nil {
			log.Info("attempt completed", zap.String("result_id", result.ID), zap.Int("score", result.Score))
			if werr := conn.WriteJSON(outboundMessage[domain.AttemptResult]{Type: "completed", Payload: result}); werr != nil {
				break
			}
		}
		if werr := conn.WriteJSON(outboundMessage[app.TakerSnapshot]{Type: "state", Payload: taker.Snapshot()}); werr != nil {
			break
		}
	}
}

func (h *TakeHandler) apply(ctx context.Context, taker *app.Taker, identity *connIdentity, msg inboundMessage) error {
	switch msg.Type {
	case "auth":
		var p authPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return err
		}
		identity.token = p.Token
		if !taker.Authenticate() {
			return domain.ErrSessionExpired
		}
		return nil
	case "start":
		var p startPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return err
		}
		return taker.Start(p.Name)
	case "select":
		var p selectPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			return err
		}
		if p.Option == nil {
			return domain.ErrOptionOutOfRange
		}
		return taker.Select(*p.Option)
	case "advance":
		return taker.Advance(ctx)
	case "retreat":
		return taker.Retreat()
	default:
		return &domain.ValidationError{Field: "type", Reason: "unsupported message type " + msg.Type}
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &domain.ValidationError{Field: "payload", Reason: "payload required"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &domain.ValidationError{Field: "payload", Reason: "invalid payload"}
	}
	return nil
}
