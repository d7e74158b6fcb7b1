// Package relay transports structured log events from the isolated
// execution context back to the host. The channel is one-way and best-effort:
// no acknowledgment, no retry, no backpressure. Anything that does not match
// the console message shape is dropped before it is trusted.
package relay

import (
	"errors"

	"github.com/valyala/fastjson"

	"github.com/penlabhq/penlab/internal/shared/types"
)

// ChannelConsole is the well-known inbound channel name. The transport is
// shared infrastructure, so the host validates shape before trusting content.
const ChannelConsole = "console"

var (
	// ErrIgnore marks a message that is well-formed JSON but not a console
	// message. Callers drop it silently; it is not an application error.
	ErrIgnore = errors.New("relay: not a console message")

	// ErrMalformed marks input that is not valid JSON at all.
	ErrMalformed = errors.New("relay: malformed message")
)

// ConsoleMessage is the one message shape the host accepts from the sandbox.
type ConsoleMessage struct {
	Channel    string         `json:"channel"`
	Level      types.LogLevel `json:"level"`
	Message    string         `json:"message"`
	Timestamp  string         `json:"timestamp"`
	Generation uint64         `json:"generation,omitempty"`
}

var parserPool fastjson.ParserPool

// Decode validates the wire shape of an inbound message and returns it as a
// typed ConsoleMessage. The shape check runs before any field is trusted:
// wrong channel, unknown level, or a missing message field all yield
// ErrIgnore rather than a partial result.
func Decode(data []byte) (ConsoleMessage, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return ConsoleMessage{}, ErrMalformed
	}
	if v.Type() != fastjson.TypeObject {
		return ConsoleMessage{}, ErrIgnore
	}

	if string(v.GetStringBytes("channel")) != ChannelConsole {
		return ConsoleMessage{}, ErrIgnore
	}
	level := string(v.GetStringBytes("level"))
	if !types.ValidLevel(level) {
		return ConsoleMessage{}, ErrIgnore
	}
	msg := v.Get("message")
	if msg == nil || msg.Type() != fastjson.TypeString {
		return ConsoleMessage{}, ErrIgnore
	}

	message, _ := msg.StringBytes()
	return ConsoleMessage{
		Channel:    ChannelConsole,
		Level:      types.LogLevel(level),
		Message:    string(message),
		Timestamp:  string(v.GetStringBytes("timestamp")),
		Generation: v.GetUint64("generation"),
	}, nil
}
