package publish

import (
	"encoding/json"
	"errors"

	"ucraft/trafficlogger/pkg/traffic"
)

// Command is the command name consumers dispatch on.
const Command = "log-http-traffic"

// Body is the message body for sink-backed deployments.
type Body struct {
	Command string `json:"command"`
	Args    Args   `json:"args"`
}

// Args carries the location of the stored dump.
type Args struct {
	Locator string `json:"locator"`
}

// BodyBuilder turns a stored entry and its location token into a message body.
type BodyBuilder func(entry traffic.Entry, locator string) ([]byte, error)

// LocatorBody points consumers at the stored dump.
func LocatorBody(entry traffic.Entry, locator string) ([]byte, error) {
	return json.Marshal(Body{
		Command: Command,
		Args:    Args{Locator: locator},
	})
}

// InlineBody embeds the full dump; used when nothing is stored.
func InlineBody(entry traffic.Entry, _ string) ([]byte, error) {
	if len(entry.Payload) == 0 {
		return nil, errors.New("empty payload")
	}
	return entry.Payload, nil
}

// BodyFor returns the builder matching a sink backend.
func BodyFor(inline bool) BodyBuilder {
	if inline {
		return InlineBody
	}
	return LocatorBody
}
