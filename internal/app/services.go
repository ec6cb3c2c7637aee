package app

import (
	"fmt"

	"github.com/openexcavate/fieldbook-backend/internal/crud"
	"github.com/openexcavate/fieldbook-backend/internal/entity"
	"github.com/openexcavate/fieldbook-backend/internal/geometry"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/services"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

type Services struct {
	Session services.SessionService
	Vocab   services.VocabService
	Media   services.MediaService
	Binders map[string]*crud.Binder
	Locator *geometry.Locator
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, st *store.Store, registry *entity.Registry) (Services, error) {
	log.Info("Wiring services...")

	vocab := services.NewVocabService(log, clients.DataAPI, st, cfg.VocabLists)
	session := services.NewSessionService(log, clients.Tokens, st, vocab)
	media := services.NewMediaService(log, clients.DataAPI, st)

	binders := make(map[string]*crud.Binder, len(registry.All()))
	for _, desc := range registry.All() {
		binder, err := crud.NewBinder(log, clients.DataAPI, st, crud.Config{
			Entity:               desc.Name,
			ViewTable:            desc.ViewTable,
			EditTable:            desc.EditTable,
			StripKeys:            desc.StripKeys,
			ReturnRepresentation: len(desc.StripKeys) == 0,
			KeyColumn:            desc.KeyColumn,
		})
		if err != nil {
			return Services{}, fmt.Errorf("bind %s: %w", desc.Name, err)
		}
		binders[desc.Name] = binder
	}

	return Services{
		Session: session,
		Vocab:   vocab,
		Media:   media,
		Binders: binders,
		Locator: geometry.NewLocator(log),
	}, nil
}
