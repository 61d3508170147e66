package realtime

import (
	"fmt"
	"roverchat/internal/models"
	"time"

	"github.com/goccy/go-json"
)

// Event names carried in Envelope.Event.
const (
	EventSession     = "session"
	EventAck         = "ack"
	EventChatMessage = "chat message"
	EventUserVote    = "userVote"
	EventPollOpen    = "pollOpen"
	EventPollClosed  = "pollClosed"
)

// Envelope is the frame exchanged in both directions. AckID 0 means the
// sender does not expect an acknowledgement.
type Envelope struct {
	Event string          `json:"event"`
	AckID uint64          `json:"ackId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Frame is an encoded envelope queued for a session. Offset is the server
// offset of a chat message frame and 0 for anything else.
type Frame struct {
	Payload []byte
	Offset  int64
}

type sessionData struct {
	SessionID string `json:"sessionId"`
	Recovered bool   `json:"recovered"`
}

type chatData struct {
	Username     string `json:"username"`
	Content      string `json:"content"`
	ServerOffset int64  `json:"serverOffset"`
}

type pollOpenData struct {
	Session   int64 `json:"session"`
	Remaining int64 `json:"remaining"`
}

type pollClosedData struct {
	Session int64               `json:"session"`
	Winner  *models.TallyResult `json:"winner"`
}

func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("malformed frame: missing event")
	}
	return env, nil
}

func encode(event string, ackID uint64, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, AckID: ackID, Data: raw})
}

func SessionFrame(s *Session) (Frame, error) {
	payload, err := encode(EventSession, 0, sessionData{SessionID: s.ID, Recovered: s.Recovered})
	return Frame{Payload: payload}, err
}

func AckFrame(ackID uint64, ack models.Ack) (Frame, error) {
	payload, err := encode(EventAck, ackID, ack)
	return Frame{Payload: payload}, err
}

func ChatFrame(msg models.ChatMessage) (Frame, error) {
	payload, err := encode(EventChatMessage, 0, chatData{
		Username:     msg.Username,
		Content:      msg.Content,
		ServerOffset: msg.ID,
	})
	return Frame{Payload: payload, Offset: msg.ID}, err
}

func PollOpenFrame(state models.PollState, now time.Time) (Frame, error) {
	payload, err := encode(EventPollOpen, 0, pollOpenData{
		Session:   state.Session,
		Remaining: state.Remaining(now).Milliseconds(),
	})
	return Frame{Payload: payload}, err
}

// PollClosedFrame carries the winner when known; a nil winner encodes as null.
func PollClosedFrame(session int64, winner *models.TallyResult) (Frame, error) {
	payload, err := encode(EventPollClosed, 0, pollClosedData{Session: session, Winner: winner})
	return Frame{Payload: payload}, err
}
