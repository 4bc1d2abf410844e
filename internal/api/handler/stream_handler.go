package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StreamServer is the WebSocket endpoint behind GET /ws.
type StreamServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

type StreamHandler struct {
	server StreamServer
}

func NewStreamHandler(server StreamServer) *StreamHandler {
	return &StreamHandler{server: server}
}

// Stream handles GET /ws.
//
// @Summary      Subscribe to change events
// @Description  Upgrades to a WebSocket carrying {"id","event","data","at"} text frames. Browsers pass the JWT as ?token=.
// @Tags         realtime
// @Security     BearerAuth
// @Param        token  query  string  false  "JWT, for clients that cannot set headers"
// @Success      101    {string}  string  "Switching Protocols"
// @Failure      401    {object}  errorResponse
// @Router       /ws [get]
func (h *StreamHandler) Stream(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	// The upgrader writes its own error response on failure; returning the
	// error would make Echo write a second one.
	_ = h.server.Serve(c.Response(), c.Request(), actor.ID)
	return nil
}
