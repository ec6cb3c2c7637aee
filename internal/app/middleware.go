package app

import (
	"github.com/openexcavate/fieldbook-backend/internal/middleware"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, cfg.Keycloak.ClientID),
	}
}
