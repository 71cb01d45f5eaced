package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dchirkin/relay/internal/app"
	"github.com/dchirkin/relay/internal/config"
	"github.com/dchirkin/relay/internal/protocol"
)

// SetupRouter builds the HTTP surface: the room masterlist and the
// websocket attach point for the relay protocol.
func SetupRouter(cfg *config.Config, coord *app.Coordinator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		snaps := coord.Rooms()
		descs := make([]protocol.RoomDescriptor, 0, len(snaps))
		for _, snap := range snaps {
			descs = append(descs, protocol.DescriptorFor(snap))
		}
		c.JSON(http.StatusOK, gin.H{"rooms": descs})
	})

	ctl := NewController(cfg, coord)
	api.GET("/ws/relay", ctl.HandleRelay)

	return r
}
