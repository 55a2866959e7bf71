package control

import (
	"encoding/json"
	"log/slog"

	"github.com/loqalabs/loqa-dictate/internal/protocol"
	"github.com/loqalabs/loqa-dictate/internal/session"
	"github.com/nats-io/nats.go"
)

// Subscribe runs actions received on the control subject. Requests carrying
// a reply subject get a ControlReply.
func Subscribe(conn *nats.Conn, c Controller, log *slog.Logger) (*nats.Subscription, error) {
	log = log.With(slog.String("component", "control"))
	return conn.Subscribe(protocol.SubjectControl, func(msg *nats.Msg) {
		var cmd protocol.ControlCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			log.Warn("failed to decode control command", slog.String("error", err.Error()))
			respond(msg, reply("", session.EffectNone, c.State(), err), log)
			return
		}
		effect, s, err := c.Dispatch(cmd.Action)
		if err != nil {
			log.Warn("control action failed", slog.String("action", cmd.Action), slog.String("error", err.Error()))
		}
		respond(msg, reply(cmd.RequestID, effect, s, err), log)
	})
}

func respond(msg *nats.Msg, r protocol.ControlReply, log *slog.Logger) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := msg.Respond(data); err != nil {
		log.Warn("failed to reply to control command", slog.String("error", err.Error()))
	}
}
