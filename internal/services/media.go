package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

// MediaService manages document/photo attachments: media rows linked to a
// parent record by uuid, file bytes carried base64 in the content column.
type MediaService interface {
	Attach(ctx context.Context, parentUUID, filename, mimeType string, data []byte) (record.Record, error)
	List(ctx context.Context, parentUUID string) ([]record.Record, error)
	Remove(ctx context.Context, mediaUUID string) error
}

type mediaService struct {
	log   *logger.Logger
	api   postgrest.Client
	store *store.Store
}

func NewMediaService(log *logger.Logger, api postgrest.Client, st *store.Store) MediaService {
	return &mediaService{
		log:   log.With("service", "MediaService"),
		api:   api,
		store: st,
	}
}

func (s *mediaService) Attach(ctx context.Context, parentUUID, filename, mimeType string, data []byte) (record.Record, error) {
	if parentUUID == "" {
		return nil, fmt.Errorf("attach: missing parent uuid")
	}
	actorID, _ := s.store.Actor()
	row := postgrest.Row{
		"uuid":        uuid.NewString(),
		"parent_uuid": parentUUID,
		"filename":    filename,
		"mime_type":   mimeType,
		"size_bytes":  len(data),
		"content":     base64.StdEncoding.EncodeToString(data),
		"created_by":  actorID,
	}
	rows, err := s.api.Post(ctx, "edit_media", row, postgrest.PreferRepresentation)
	if err != nil {
		s.notifyError("save", err)
		return nil, err
	}
	saved := record.Record(row)
	if len(rows) > 0 {
		saved = record.Record(rows[0])
	}
	s.store.Notify(store.Notification{ActionType: "save", MessageType: "success", MessageText: filename + " attached"})
	return saved, nil
}

func (s *mediaService) List(ctx context.Context, parentUUID string) ([]record.Record, error) {
	rows, err := s.api.Get(ctx, "view_media", postgrest.Where().Eq("parent_uuid", parentUUID).Order("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("list media for %s: %w", parentUUID, err)
	}
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, record.Record(r))
	}
	return out, nil
}

func (s *mediaService) Remove(ctx context.Context, mediaUUID string) error {
	if err := s.api.Delete(ctx, "edit_media", postgrest.Where().Eq("uuid", mediaUUID)); err != nil {
		s.notifyError("delete", err)
		return err
	}
	s.store.Notify(store.Notification{ActionType: "delete", MessageType: "success", MessageText: "attachment removed"})
	return nil
}

func (s *mediaService) notifyError(action string, err error) {
	s.store.Notify(store.Notification{ActionType: action, MessageType: "error", MessageText: err.Error()})
}
