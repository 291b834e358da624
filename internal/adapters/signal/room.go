package signal

import (
	"context"
	"encoding/json"

	"github.com/mkamel/airwave/internal/app"
	"github.com/mkamel/airwave/internal/core"
	"github.com/mkamel/airwave/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *Controller) handleCreateRoom(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type createPayload struct {
		Type       string `json:"type"`
		Name       string `json:"name" validate:"required,min=5,max=60"`
		Category   string `json:"category" validate:"required"`
		Visibility string `json:"visibility" validate:"required,oneof=public private"`
		Recording  bool   `json:"recording"`
	}
	var p createPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad createRoom payload")
		ctl.sendError(conn, core.Validationf("bad payload"))
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(conn, core.Validationf("name, category and visibility are required"))
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Name).Msg("createRoom")
	err := ctl.Coord.CreateRoom(ctx, sid, app.CreateRoomParams{
		Name:       domain.RoomName(p.Name),
		Category:   p.Category,
		Visibility: domain.Visibility(p.Visibility),
		Recording:  p.Recording,
	})
	if err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleJoinRoom(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room" validate:"required"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad joinRoom payload")
		ctl.sendError(conn, core.Validationf("bad payload"))
		return
	}
	if err := validate.Struct(p); err != nil {
		ctl.sendError(conn, core.Validationf("please enter a valid room name"))
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("joinRoom")
	if err := ctl.Coord.JoinRoom(ctx, sid, domain.RoomName(p.Room)); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleAdminRejoin(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("adminRejoin")
	if err := ctl.Coord.AdminRejoin(ctx, sid); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *Controller) handleEndRoom(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("endRoom")
	if err := ctl.Coord.EndRoom(ctx, sid); err != nil {
		ctl.sendError(conn, err)
	}
}
