package providers

import (
	"errors"
	"fmt"
	"roverchat/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

// Validate runs the struct tag rules, then the cross-field checks tags cannot express.
func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid configuration: %w", v.Errors)
	}

	if cv.conf.Socket.RecoveryBuffer < 0 {
		return errors.New("invalid configuration: socket.recoveryBuffer must not be negative")
	}
	if cv.conf.Socket.RecoveryWindow < 0 {
		return errors.New("invalid configuration: socket.recoveryWindow must not be negative")
	}
	if cv.conf.Poll.HistorySize < 0 {
		return errors.New("invalid configuration: poll.historySize must not be negative")
	}
	if cv.conf.Cache.Enabled && cv.conf.Cache.TTL < 0 {
		return errors.New("invalid configuration: cache.ttl must not be negative")
	}
	return nil
}
