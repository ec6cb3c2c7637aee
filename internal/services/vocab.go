package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

// VocabService loads the controlled vocabularies and term lists the form
// fields select from.
type VocabService interface {
	Bootstrap(ctx context.Context) error
	Reload(ctx context.Context, list string) error
}

type vocabService struct {
	log   *logger.Logger
	api   postgrest.Client
	store *store.Store
	lists []string
}

func NewVocabService(log *logger.Logger, api postgrest.Client, st *store.Store, lists []string) VocabService {
	return &vocabService{
		log:   log.With("service", "VocabService"),
		api:   api,
		store: st,
		lists: lists,
	}
}

// Bootstrap loads every term list in parallel at session start.
func (s *vocabService) Bootstrap(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, list := range s.lists {
		list := list
		g.Go(func() error {
			return s.Reload(ctx, list)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("vocabulary bootstrap: %w", err)
	}
	s.log.Info("vocabularies loaded", "lists", len(s.lists))
	return nil
}

func (s *vocabService) Reload(ctx context.Context, list string) error {
	f := postgrest.Where().Eq("term_list", list).Order("label", false)
	rows, err := s.api.Get(ctx, "view_terms", f)
	if err != nil {
		return fmt.Errorf("load terms %q: %w", list, err)
	}
	opts := make([]record.Option, 0, len(rows))
	for _, row := range rows {
		opt := record.Option{}
		opt.UUID, _ = row["uuid"].(string)
		opt.Value = row["term"]
		opt.Label, _ = row["label"].(string)
		if opt.Label == "" {
			opt.Label, _ = row["term"].(string)
		}
		opts = append(opts, opt)
	}
	s.store.SetVocab(list, opts)
	return nil
}
