package app

import (
	"github.com/openexcavate/fieldbook-backend/internal/entity"
	"github.com/openexcavate/fieldbook-backend/internal/handlers"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

type Handlers struct {
	Session  *handlers.SessionHandler
	Record   *handlers.RecordHandler
	Table    *handlers.TableHandler
	Grid     *handlers.GridHandler
	Geometry *handlers.GeometryHandler
	Media    *handlers.MediaHandler
	Vocab    *handlers.VocabHandler
	Events   *handlers.EventsHandler
}

func wireHandlers(log *logger.Logger, clients Clients, serviceset Services, st *store.Store, registry *entity.Registry) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Session:  handlers.NewSessionHandler(log, serviceset.Session, st),
		Record:   handlers.NewRecordHandler(log, clients.DataAPI, st, registry, serviceset.Binders),
		Table:    handlers.NewTableHandler(log, clients.DataAPI, st),
		Grid:     handlers.NewGridHandler(log, clients.DataAPI, registry, serviceset.Binders),
		Geometry: handlers.NewGeometryHandler(log, clients.DataAPI, st, registry, serviceset.Locator),
		Media:    handlers.NewMediaHandler(log, serviceset.Media),
		Vocab:    handlers.NewVocabHandler(log, serviceset.Vocab, st),
		Events:   handlers.NewEventsHandler(log, st.Hub()),
	}
}
