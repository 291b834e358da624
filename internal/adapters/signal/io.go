package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mkamel/airwave/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Info().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Coord.Disconnect(context.Background(), sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(ctx, sid, c, data)
		}
	}
}

func (ctl *Controller) handleSignal(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "createRoom":
		ctl.handleCreateRoom(ctx, sid, c, data)
	case "joinRoom":
		ctl.handleJoinRoom(ctx, sid, c, data)
	case "adminRejoin":
		ctl.handleAdminRejoin(ctx, sid, c)
	case "endRoom":
		ctl.handleEndRoom(ctx, sid, c)
	case "promote":
		ctl.handlePromote(ctx, sid, c, data)
	case "demote":
		ctl.handleDemote(ctx, sid, c, data)
	case "stepDown":
		ctl.handleStepDown(ctx, sid, c)
	case "askForPerms":
		ctl.handleAskForPerms(ctx, sid, c)
	case "sendMessage":
		ctl.handleSendMessage(ctx, sid, c, data)
	case "removeMessage":
		ctl.handleRemoveMessage(ctx, sid, c, data)
	case "chatHistory":
		ctl.handleChatHistory(ctx, sid, c)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
