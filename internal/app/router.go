package app

import (
	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:     "fieldbook",
		AllowedOrigins:  cfg.AllowedOrigins,
		AuthMiddleware:  middlewareset.Auth,
		SessionHandler:  handlerset.Session,
		RecordHandler:   handlerset.Record,
		TableHandler:    handlerset.Table,
		GridHandler:     handlerset.Grid,
		GeometryHandler: handlerset.Geometry,
		MediaHandler:    handlerset.Media,
		VocabHandler:    handlerset.Vocab,
		EventsHandler:   handlerset.Events,
	})
}
