package discover

import (
	"encoding/json"
)

// SubscribeCommand builds the subscribe request for channel.
// The identifier is itself a JSON string, as ActionCable expects.
func SubscribeCommand(channel string) interface{} {
	identifier, _ := json.Marshal(struct {
		Channel string `json:"channel"`
	}{Channel: channel})
	return subscribeCommand{
		Command:    "subscribe",
		Identifier: string(identifier),
	}
}

// Ping builds the application-level keep-alive message.
func Ping() interface{} {
	return pingMessage{Type: "ping"}
}
