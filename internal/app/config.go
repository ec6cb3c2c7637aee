package app

import (
	"strings"

	"github.com/openexcavate/fieldbook-backend/internal/clients/keycloak"
	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/envutil"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
)

type Config struct {
	Port           string
	Environment    string
	Version        string
	AllowedOrigins []string
	// EntitiesFile declares the recorded entity types and their relations.
	EntitiesFile string
	// VocabLists are the term lists loaded at session start.
	VocabLists []string

	DataAPI  postgrest.Config
	Keycloak keycloak.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:         envutil.String("PORT", "8080"),
		Environment:  envutil.String("ENVIRONMENT", "development"),
		Version:      envutil.String("VERSION", "dev"),
		EntitiesFile: envutil.String("ENTITIES_FILE", "config/entities.yaml"),
		DataAPI:      postgrest.ConfigFromEnv(),
		Keycloak:     keycloak.ConfigFromEnv(),
	}
	cfg.AllowedOrigins = splitList(envutil.String("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"))
	cfg.VocabLists = splitList(envutil.String("VOCAB_LISTS", "period,material,condition,technique"))
	log.Info("configuration loaded",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"dataAPI", cfg.DataAPI.BaseURL,
		"entitiesFile", cfg.EntitiesFile,
		"vocabLists", len(cfg.VocabLists),
	)
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
