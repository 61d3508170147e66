package controllers

import (
	"context"
	"net/http"
	"roverchat/internal/models"
	pollIfaces "roverchat/internal/poll/interfaces"
	"roverchat/internal/providers"
	"roverchat/internal/realtime"
	"roverchat/internal/services"
	"roverchat/internal/structures"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const eventTimeout = 10 * time.Second

type SocketController struct {
	conf     structures.SocketConfig
	registry realtime.RegistryInterface
	replay   services.ReplayServiceInterface
	chat     services.ChatServiceInterface
	poll     pollIfaces.EngineInterface
	logger   providers.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewSocketController(
	conf *structures.Config,
	registry realtime.RegistryInterface,
	replay services.ReplayServiceInterface,
	chat services.ChatServiceInterface,
	poll pollIfaces.EngineInterface,
	logger providers.Logger,
) *SocketController {
	return &SocketController{
		conf:     conf.Socket,
		registry: registry,
		replay:   replay,
		chat:     chat,
		poll:     poll,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// handshakeOffset reads ?serverOffset=; anything unparseable or negative means "from the start".
func handshakeOffset(r *http.Request) int64 {
	offset, err := strconv.ParseInt(r.URL.Query().Get("serverOffset"), 10, 64)
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Serve upgrades GET /socket?serverOffset=<n>&recover=<sessionId> and runs the session until the client leaves.
func (sc *SocketController) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := sc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sc.logger.Warnf(providers.TypeSocket, "Upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	session := sc.registry.Register(handshakeOffset(r), r.URL.Query().Get("recover"))
	sc.logger.Infof(providers.TypeSocket, "Session %s connected from %s (offset=%d recovered=%t)",
		session.ID, r.RemoteAddr, session.LastKnownOffset, session.Recovered)

	frame, err := realtime.SessionFrame(session)
	sc.send(session, frame, err)
	sc.sendPollState(session)

	ctx := context.WithoutCancel(r.Context())
	var inflight sync.WaitGroup

	inflight.Add(1)
	go func() {
		defer inflight.Done()
		sc.replay.Replay(ctx, session)
	}()

	realtime.NewTransport(conn, session, sc.conf, sc.logger).Run(r.Context(), func(env realtime.Envelope) {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			sc.handle(ctx, session, env)
		}()
	})

	inflight.Wait()
	sc.registry.Unregister(session)
	sc.logger.Infof(providers.TypeSocket, "Session %s disconnected", session.ID)
}

// sendPollState tells a connecting client about a session that is already running.
func (sc *SocketController) sendPollState(session *realtime.Session) {
	state := sc.poll.State()
	if !state.Active {
		return
	}
	now := sc.now()
	var (
		frame realtime.Frame
		err   error
	)
	if state.Remaining(now) > 0 {
		frame, err = realtime.PollOpenFrame(state, now)
	} else {
		frame, err = realtime.PollClosedFrame(state.Session, nil)
	}
	sc.send(session, frame, err)
}

func (sc *SocketController) handle(ctx context.Context, session *realtime.Session, env realtime.Envelope) {
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	switch env.Event {
	case realtime.EventChatMessage:
		var in models.ChatInput
		if err := json.Unmarshal(env.Data, &in); err != nil {
			sc.logger.Debugf(providers.TypeChat, "Session %s sent undecodable message: %v", session.ID, err)
		}
		sc.ack(session, env.AckID, sc.chat.Submit(ctx, in))
	case realtime.EventUserVote:
		var in models.VoteInput
		if err := json.Unmarshal(env.Data, &in); err != nil {
			sc.logger.Debugf(providers.TypePoll, "Session %s sent undecodable vote: %v", session.ID, err)
			return
		}
		if ack, reply := sc.poll.SubmitVote(ctx, in); reply {
			sc.ack(session, env.AckID, ack)
		}
	default:
		sc.logger.Debugf(providers.GetLogTypeByEvent(env.Event), "Session %s sent unknown event %q", session.ID, env.Event)
	}
}

func (sc *SocketController) ack(session *realtime.Session, ackID uint64, ack models.Ack) {
	if ackID == 0 {
		return
	}
	frame, err := realtime.AckFrame(ackID, ack)
	sc.send(session, frame, err)
}

func (sc *SocketController) send(session *realtime.Session, frame realtime.Frame, err error) {
	if err != nil {
		sc.logger.Errorf(providers.TypeSocket, "Failed to encode frame for session %s: %v", session.ID, err)
		return
	}
	if err := session.Send(frame); err != nil {
		sc.logger.Debugf(providers.TypeSocket, "Session %s: %v", session.ID, err)
	}
}
