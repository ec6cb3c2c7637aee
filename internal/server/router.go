package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/openexcavate/fieldbook-backend/internal/handlers"
	"github.com/openexcavate/fieldbook-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName     string
	AllowedOrigins  []string
	AuthMiddleware  *middleware.AuthMiddleware
	SessionHandler  *handlers.SessionHandler
	RecordHandler   *handlers.RecordHandler
	TableHandler    *handlers.TableHandler
	GridHandler     *handlers.GridHandler
	GeometryHandler *handlers.GeometryHandler
	MediaHandler    *handlers.MediaHandler
	VocabHandler    *handlers.VocabHandler
	EventsHandler   *handlers.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/session", cfg.SessionHandler.Begin)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Session
	protected.GET("/session", cfg.SessionHandler.Current)
	// Events
	protected.GET("/events", cfg.EventsHandler.Stream)
	// Records
	protected.POST("/records/:entity/new", cfg.RecordHandler.New)
	protected.GET("/records/:entity", cfg.RecordHandler.Current)
	protected.GET("/records/:entity/:id", cfg.RecordHandler.Get)
	protected.PATCH("/records/:entity/field", cfg.RecordHandler.ApplyField)
	protected.POST("/records/:entity/save", cfg.RecordHandler.Save)
	protected.DELETE("/records/:entity", cfg.RecordHandler.Delete)
	protected.POST("/records/:entity/action", cfg.RecordHandler.RequestAction)
	protected.PUT("/records/:entity/geometry", cfg.GeometryHandler.SaveLayers)
	protected.POST("/validate", cfg.RecordHandler.Validate)
	// Tables
	protected.GET("/tables/:table/rows", cfg.TableHandler.Rows)
	protected.POST("/tables/:table/reload", cfg.TableHandler.Reload)
	protected.POST("/tables/:table/filter", cfg.TableHandler.Filter)
	protected.POST("/tables/:table/selection", cfg.TableHandler.Select)
	protected.GET("/tables/:table/selected", cfg.TableHandler.Selected)
	protected.GET("/tables/:table/routes", cfg.TableHandler.Routes)
	// Grids
	protected.POST("/grids/:entity/load", cfg.GridHandler.Load)
	protected.GET("/grids/:entity", cfg.GridHandler.Rows)
	protected.POST("/grids/:entity/rows", cfg.GridHandler.Add)
	protected.PUT("/grids/:entity/rows", cfg.GridHandler.Update)
	protected.DELETE("/grids/:entity/rows/:uuid", cfg.GridHandler.Remove)
	protected.POST("/grids/:entity/save", cfg.GridHandler.Save)
	// Map
	protected.GET("/layers/:table", cfg.GeometryHandler.Background)
	protected.POST("/locate", cfg.GeometryHandler.Locate)
	protected.GET("/locate/marker", cfg.GeometryHandler.Marker)
	protected.POST("/locate/record", cfg.GeometryHandler.RecordPosition)
	// Media
	protected.POST("/media/:id", cfg.MediaHandler.Attach)
	protected.GET("/media/:id", cfg.MediaHandler.List)
	protected.DELETE("/media/item/:uuid", cfg.MediaHandler.Remove)
	// Vocabulary
	protected.GET("/vocab/:list", cfg.VocabHandler.List)
	protected.POST("/vocab/:list/reload", cfg.VocabHandler.Reload)

	return router
}
