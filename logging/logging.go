package logging

import (
	"encoding/json"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/notepay/notepay/logger"
)

// Helper helps with writing logs to io.Writers.
// Helper implements the logger.Logger interface.
// Writing is done concurrently without blocking the current thread.
type Helper struct {
	callOnErr   func(error)
	callOnFatal func(error)
	writers     []io.Writer
}

// New creates a new Helper.
func New(callOnErr, callOnFatal func(error), writers ...io.Writer) Helper {
	return Helper{callOnErr: callOnErr, callOnFatal: callOnFatal, writers: writers}
}

// Debug writes a debug log.
func (h Helper) Debug(msg string) {
	h.write("debug", msg, h.callOnErr)
}

// Info writes an info log.
func (h Helper) Info(msg string) {
	h.write("info", msg, h.callOnErr)
}

// Warn writes a warning log.
func (h Helper) Warn(msg string) {
	h.write("warn", msg, h.callOnErr)
}

// Error writes an error log.
func (h Helper) Error(msg string) {
	h.write("error", msg, h.callOnErr)
}

// Fatal writes a fatal log.
func (h Helper) Fatal(msg string) {
	h.write("fatal", msg, h.callOnFatal)
}

func (h Helper) write(level, msg string, callOnErr func(error)) {
	l := logger.Log{
		ID:        primitive.NewObjectID(),
		Level:     level,
		Msg:       msg,
		CreatedAt: time.Now(),
	}
	go func() {
		raw, err := json.Marshal(&l)
		if err != nil {
			callOnErr(err)
			return
		}
		for _, w := range h.writers {
			if _, err := w.Write(raw); err != nil {
				callOnErr(err)
			}
		}
	}()
}
