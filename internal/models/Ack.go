package models

// Ack is the direct acknowledgment returned to the sender of an inbound event.
type Ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

const (
	AckMsgIncompleteMessage = "Incomplete message"
	AckMsgStoreFailure      = "An error occurred"
	AckMsgAlreadyVoted      = "User has already voted"
	AckMsgDatabaseError     = "Database error"
)

func AckOK() Ack {
	return Ack{Success: true}
}

func AckError(msg string) Ack {
	return Ack{Success: false, Error: msg}
}
