package realtime

import (
	"roverchat/internal/models"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goldenFrames(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestFrames_Golden(t *testing.T) {
	started := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	state := models.PollState{Active: true, Session: 2, StartedAt: started, Duration: 30 * time.Second}

	session := newSession("8d3c1f7e-0000-4000-8000-000000000001", 0, true, 1, 1)

	cases := []struct {
		name  string
		build func() (Frame, error)
	}{
		{"session_frame", func() (Frame, error) { return SessionFrame(session) }},
		{"ack_ok", func() (Frame, error) { return AckFrame(3, models.AckOK()) }},
		{"ack_error", func() (Frame, error) { return AckFrame(4, models.AckError(models.AckMsgAlreadyVoted)) }},
		{"chat_message", func() (Frame, error) {
			return ChatFrame(models.ChatMessage{ID: 7, Username: "alice", Content: "first light on sol 1000", ClientOffset: "c-1"})
		}},
		{"poll_open", func() (Frame, error) { return PollOpenFrame(state, started.Add(10*time.Second)) }},
		{"poll_closed", func() (Frame, error) {
			return PollClosedFrame(2, &models.TallyResult{Value: "curiosity", Count: 3})
		}},
		{"poll_closed_empty", func() (Frame, error) { return PollClosedFrame(2, nil) }},
	}

	g := goldenFrames(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := tc.build()
			require.NoError(t, err)
			g.Assert(t, tc.name, f.Payload)
		})
	}
}

func TestChatFrame_CarriesOffset(t *testing.T) {
	f, err := ChatFrame(models.ChatMessage{ID: 42, Username: "bob", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), f.Offset)

	ack, err := AckFrame(1, models.AckOK())
	require.NoError(t, err)
	assert.Zero(t, ack.Offset)
}

func TestDecodeEnvelope_ChatMessage(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"chat message","ackId":9,"data":{"username":"alice","content":"hi","clientOffset":"c-1"}}`))
	require.NoError(t, err)

	assert.Equal(t, EventChatMessage, env.Event)
	assert.Equal(t, uint64(9), env.AckID)
	assert.JSONEq(t, `{"username":"alice","content":"hi","clientOffset":"c-1"}`, string(env.Data))
}

func TestDecodeEnvelope_NoAck(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"userVote","data":{}}`))
	require.NoError(t, err)
	assert.Zero(t, env.AckID)
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"event":`))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`{"data":{}}`))
	assert.Error(t, err)
}
