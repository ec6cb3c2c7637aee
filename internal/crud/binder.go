package crud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

// Config binds one entity's store slice to its view/edit relation pair.
type Config struct {
	Entity    string
	ViewTable string
	EditTable string
	// StripKeys are the derived/display columns a view row carries that the
	// edit relation will not accept.
	StripKeys []string
	// ReturnRepresentation asks the write endpoint to echo the affected row.
	// When false, a follow-up read against ViewTable refreshes the slice
	// instead, since computed columns only exist on the view.
	ReturnRepresentation bool
	// KeyColumn addresses rows on the edit and view relations; uuid unless
	// the entity uses a natural key.
	KeyColumn string
}

// Binder performs the save/delete round trip for one entity and reconciles
// the response back into the store. A failed request never rolls back the
// in-memory edit; the user's unsaved record stays on screen for retry.
// Overlapping saves for the same record are neither queued nor cancelled;
// the last response to land wins the slice.
type Binder struct {
	log   *logger.Logger
	api   postgrest.Client
	store *store.Store
	cfg   Config
	now   func() time.Time
}

func NewBinder(log *logger.Logger, api postgrest.Client, st *store.Store, cfg Config) (*Binder, error) {
	if cfg.Entity == "" || cfg.ViewTable == "" || cfg.EditTable == "" {
		return nil, fmt.Errorf("binder config incomplete: %+v", cfg)
	}
	if cfg.KeyColumn == "" {
		cfg.KeyColumn = record.KeyUUID
	}
	return &Binder{
		log:   log.With("binder", cfg.Entity),
		api:   api,
		store: st,
		cfg:   cfg,
		now:   time.Now,
	}, nil
}

func (b *Binder) keyOf(r record.Record) string {
	v, _ := r[b.cfg.KeyColumn].(string)
	return v
}

// Save writes the entity's current record: PATCH when the server already
// knows the row, POST otherwise. New records keep their client-assigned uuid
// so inline-added rows stay addressable across the round trip.
func (b *Binder) Save(ctx context.Context) error {
	curr, persisted := b.store.Current(b.cfg.Entity)
	if curr == nil {
		err := fmt.Errorf("no current %s record", b.cfg.Entity)
		b.notifyError("save", err)
		return err
	}

	edit := curr.Strip(b.cfg.StripKeys...)
	actorID, _ := b.store.Actor()
	stamp := b.now().UTC().Format(time.RFC3339)

	prefer := ""
	if b.cfg.ReturnRepresentation {
		prefer = postgrest.PreferRepresentation
	}

	var rows []postgrest.Row
	var err error
	if persisted {
		id := b.keyOf(edit)
		if id == "" {
			err = fmt.Errorf("current %s record has no %s", b.cfg.Entity, b.cfg.KeyColumn)
			b.notifyError("save", err)
			return err
		}
		edit["updated_at"] = stamp
		edit["updated_by"] = actorID
		filter := postgrest.Where().Eq(b.cfg.KeyColumn, id)
		rows, err = b.api.Patch(ctx, b.cfg.EditTable, filter, edit, prefer)
	} else {
		if b.cfg.KeyColumn == record.KeyUUID && edit.UUID() == "" {
			edit[record.KeyUUID] = uuid.NewString()
		}
		edit["created_at"] = stamp
		edit["created_by"] = actorID
		rows, err = b.api.Post(ctx, b.cfg.EditTable, edit, prefer)
	}
	if err != nil {
		b.notifyError("save", err)
		return err
	}

	refreshed := b.reconcile(ctx, b.keyOf(edit), rows)
	b.store.SetCurrent(b.cfg.Entity, refreshed, true)
	b.store.Notify(store.Notification{
		ActionType:  "save",
		MessageType: "success",
		MessageText: fmt.Sprintf("%s saved", b.cfg.Entity),
	})
	return nil
}

// reconcile picks the record that repopulates the slice after a successful
// write: the echoed representation when we asked for one, else a fresh view
// read so denormalized columns come back.
func (b *Binder) reconcile(ctx context.Context, id string, echoed []postgrest.Row) record.Record {
	if b.cfg.ReturnRepresentation && len(echoed) > 0 {
		return record.Record(echoed[0])
	}
	viewRows, err := b.api.Get(ctx, b.cfg.ViewTable, postgrest.Where().Eq(b.cfg.KeyColumn, id))
	if err != nil || len(viewRows) == 0 {
		if err != nil {
			b.log.Warn("view refresh after save failed", b.cfg.KeyColumn, id, "error", err)
		}
		if len(echoed) > 0 {
			return record.Record(echoed[0])
		}
		curr, _ := b.store.Current(b.cfg.Entity)
		return curr
	}
	return record.Record(viewRows[0])
}

// Delete removes the current record from the edit relation and clears the
// slice.
func (b *Binder) Delete(ctx context.Context) error {
	curr, _ := b.store.Current(b.cfg.Entity)
	if curr == nil || b.keyOf(curr) == "" {
		err := fmt.Errorf("no current %s record to delete", b.cfg.Entity)
		b.notifyError("delete", err)
		return err
	}
	if err := b.api.Delete(ctx, b.cfg.EditTable, postgrest.Where().Eq(b.cfg.KeyColumn, b.keyOf(curr))); err != nil {
		b.notifyError("delete", err)
		return err
	}
	b.store.ClearCurrent(b.cfg.Entity)
	b.store.Notify(store.Notification{
		ActionType:  "delete",
		MessageType: "success",
		MessageText: fmt.Sprintf("%s deleted", b.cfg.Entity),
	})
	return nil
}

// SaveRows is the saver an inline edit table delegates to: upsert the
// surviving rows, then batch-delete the pending removals.
func (b *Binder) SaveRows(ctx context.Context, rows []record.Record, deletions []string) error {
	if len(rows) > 0 {
		payload := make([]postgrest.Row, 0, len(rows))
		for _, r := range rows {
			payload = append(payload, postgrest.Row(r.Strip(b.cfg.StripKeys...)))
		}
		if _, err := b.api.Post(ctx, b.cfg.EditTable, payload, postgrest.PreferMergeDuplicates); err != nil {
			b.notifyError("save", err)
			return err
		}
	}
	if len(deletions) > 0 {
		if err := b.api.Delete(ctx, b.cfg.EditTable, postgrest.Where().In(b.cfg.KeyColumn, deletions...)); err != nil {
			b.notifyError("delete", err)
			return err
		}
	}
	b.store.Notify(store.Notification{
		ActionType:  "save",
		MessageType: "success",
		MessageText: fmt.Sprintf("%s rows saved", b.cfg.Entity),
	})
	return nil
}

// Watch reacts to the store's save/delete signals until ctx is done.
func (b *Binder) Watch(ctx context.Context) {
	client := b.store.Hub().NewClient()
	b.store.Hub().Subscribe(client, b.cfg.Entity)
	go func() {
		defer b.store.Hub().CloseClient(client)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-client.Outbound:
				if msg.Event != store.EventActionRequested {
					continue
				}
				switch store.ButtonAction(fmt.Sprint(msg.Data)) {
				case store.ActionSave:
					_ = b.Save(ctx)
				case store.ActionDelete:
					_ = b.Delete(ctx)
				}
			}
		}
	}()
}

func (b *Binder) notifyError(action string, err error) {
	text := err.Error()
	var apiErr *postgrest.Error
	if errors.As(err, &apiErr) && apiErr.Payload.Message != "" {
		text = apiErr.Payload.Message
		if apiErr.Payload.Details != "" {
			text += ": " + apiErr.Payload.Details
		}
	}
	b.store.Notify(store.Notification{
		ActionType:  action,
		MessageType: "error",
		MessageText: text,
	})
}
