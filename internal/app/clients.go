package app

import (
	"github.com/openexcavate/fieldbook-backend/internal/clients/keycloak"
	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
)

type Clients struct {
	Tokens  *keycloak.TokenManager
	DataAPI postgrest.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	tokens, err := keycloak.New(log, cfg.Keycloak)
	if err != nil {
		return Clients{}, err
	}
	api, err := postgrest.New(log, cfg.DataAPI, tokens)
	if err != nil {
		return Clients{}, err
	}
	return Clients{
		Tokens:  tokens,
		DataAPI: api,
	}, nil
}
