package signal

import (
	"context"
	"encoding/json"

	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

type rolePayload struct {
	Type string `json:"type"`
	User string `json:"user" validate:"required"`
}

func (ctl *Controller) handlePromote(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p rolePayload
	if err := json.Unmarshal(data, &p); err != nil || validate.Struct(p) != nil {
		ctl.sendError(conn, core.Validationf("user info not complete"))
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("target", p.User).Msg("promote")
	if err := ctl.Coord.Promote(ctx, sid, domain.UserID(p.User)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleDemote(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p rolePayload
	if err := json.Unmarshal(data, &p); err != nil || validate.Struct(p) != nil {
		ctl.sendError(conn, core.Validationf("user info not complete"))
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("target", p.User).Msg("demote")
	if err := ctl.Coord.Demote(ctx, sid, domain.UserID(p.User)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleStepDown(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("stepDown")
	if err := ctl.Coord.StepDown(ctx, sid); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleAskForPerms(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
) {
	if err := ctl.Coord.AskForPerms(ctx, sid); err != nil {
		ctl.sendError(conn, err)
	}
}
