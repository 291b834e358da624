package signal

import (
	"context"
	"encoding/json"

	"github.com/mkamel/airwave/internal/app"
	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *Controller) handleSendMessage(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type sendPayload struct {
		Type       string `json:"type"`
		Message    string `json:"message" validate:"required,max=500"`
		Visibility string `json:"visibility" validate:"omitempty,oneof=public private"`
		To         string `json:"to"`
	}
	var p sendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad sendMessage payload")
		ctl.sendError(conn, core.Validationf("bad payload"))
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(conn, core.Validationf("invalid input data, message is required"))
		return
	}

	sess, ok := ctl.Presence.SessionOf(sid)
	if !ok {
		ctl.sendError(conn, core.NotFoundf("no live session"))
		return
	}
	if !ctl.Limiter.Allow(sess.Meta().ID) {
		ctl.sendError(conn, core.Forbiddenf("you are sending messages too fast"))
		return
	}

	err := ctl.Relay.Send(ctx, sid, app.SendParams{
		Body:       p.Message,
		Visibility: domain.Visibility(p.Visibility),
		To:         domain.UserID(p.To),
	})
	if err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleRemoveMessage(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type removePayload struct {
		Type string `json:"type"`
		ID   string `json:"id" validate:"required"`
	}
	var p removePayload
	if err := json.Unmarshal(data, &p); err != nil || validate.Struct(p) != nil {
		ctl.sendError(conn, core.Validationf("message id is required"))
		return
	}
	if err := ctl.Relay.Remove(ctx, sid, domain.MessageID(p.ID)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleChatHistory(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
) {
	room, msgs, err := ctl.Relay.History(ctx, sid)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.sendJSON(conn, app.ChatHistoryEvent{Type: app.EvtChatHistory, Room: room, Messages: msgs})
}
