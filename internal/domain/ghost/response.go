package ghost

import "time"

// Response is the reply envelope published on the caller's response
// channel. Exactly one Response is produced per consumed Command
// (spec §8 invariant).
type Response struct {
	CommandID string
	Success   bool
	Data      any
	Error     string
	Timestamp time.Time
}

// NewSuccess builds a successful Response carrying data.
func NewSuccess(commandID string, data any) Response {
	return Response{
		CommandID: commandID,
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewFailure builds a failed Response. err is rendered with Error().
func NewFailure(commandID string, err error) Response {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Response{
		CommandID: commandID,
		Success:   false,
		Error:     msg,
		Timestamp: time.Now(),
	}
}
