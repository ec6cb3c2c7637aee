package store

import (
	"sync"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
)

// ButtonAction is the external save/delete trigger a bound editor reacts to.
type ButtonAction string

const (
	ActionNone   ButtonAction = ""
	ActionSave   ButtonAction = "save"
	ActionDelete ButtonAction = "delete"
)

// Notification is the single transient message slot (the snackbar). Every
// caught error ends up here; nothing escalates to a crash.
type Notification struct {
	ActionType  string `json:"actionType"`
	MessageType string `json:"messageType"`
	MessageText string `json:"messageText"`
}

// ChannelUI carries notifications and other cross-entity messages.
const ChannelUI = "ui"

// CurrentSlice is one entity's in-progress record plus whether the server
// has ever acknowledged it. A client-assigned uuid alone does not mean the
// row exists remotely.
type CurrentSlice struct {
	Record    record.Record
	Persisted bool
}

// Store is the application state: reference data, the per-entity current
// records, the table/map row sharing, and the notification slot. Setter
// methods are the only mutation path; each slice keeps the single-writer
// convention, the mutex just makes overlapping HTTP handlers safe.
//
// A filter change never clears a selection that no longer matches, and
// whichever write lands last wins a slice regardless of which request
// started first.
type Store struct {
	mu  sync.RWMutex
	log *logger.Logger
	hub *Hub

	current      map[string]CurrentSlice
	vocab        map[string][]record.Option
	actorID      string
	actorName    string
	role         string
	filteredRows map[string][]record.Record
	selectedRow  map[string]record.Record
	notification Notification
	buttonAction ButtonAction
}

func New(log *logger.Logger, hub *Hub) *Store {
	return &Store{
		log:          log.With("component", "Store"),
		hub:          hub,
		current:      make(map[string]CurrentSlice),
		vocab:        make(map[string][]record.Option),
		filteredRows: make(map[string][]record.Record),
		selectedRow:  make(map[string]record.Record),
	}
}

func (s *Store) Hub() *Hub { return s.hub }

// SetCurrent replaces an entity's current record wholesale.
func (s *Store) SetCurrent(entity string, r record.Record, persisted bool) {
	s.mu.Lock()
	s.current[entity] = CurrentSlice{Record: r, Persisted: persisted}
	s.mu.Unlock()
	s.publish(Message{Channel: entity, Event: EventRecordChanged, Data: r})
}

func (s *Store) Current(entity string) (record.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slice, ok := s.current[entity]
	if !ok {
		return nil, false
	}
	return slice.Record, slice.Persisted
}

func (s *Store) ClearCurrent(entity string) {
	s.mu.Lock()
	delete(s.current, entity)
	s.mu.Unlock()
	s.publish(Message{Channel: entity, Event: EventRecordCleared})
}

func (s *Store) SetVocab(name string, opts []record.Option) {
	s.mu.Lock()
	s.vocab[name] = opts
	s.mu.Unlock()
	s.publish(Message{Channel: ChannelUI, Event: EventVocabLoaded, Data: name})
}

func (s *Store) Vocab(name string) []record.Option {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vocab[name]
}

func (s *Store) SetActor(id, name string) {
	s.mu.Lock()
	s.actorID = id
	s.actorName = name
	s.mu.Unlock()
}

func (s *Store) Actor() (id, name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actorID, s.actorName
}

func (s *Store) SetRole(role string) {
	s.mu.Lock()
	s.role = role
	s.mu.Unlock()
}

func (s *Store) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// SetFilteredRows records the post-filter subset a table currently shows so
// the map renders exactly those rows. The selection is left alone even when
// it no longer matches the filter.
func (s *Store) SetFilteredRows(table string, rows []record.Record) {
	s.mu.Lock()
	s.filteredRows[table] = rows
	s.mu.Unlock()
	s.publish(Message{Channel: table, Event: EventRowsFiltered, Data: len(rows)})
}

func (s *Store) FilteredRows(table string) []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filteredRows[table]
}

func (s *Store) SetSelectedRow(table string, row record.Record) {
	s.mu.Lock()
	if row == nil {
		delete(s.selectedRow, table)
	} else {
		s.selectedRow[table] = row
	}
	s.mu.Unlock()
	s.publish(Message{Channel: table, Event: EventSelectionChanged, Data: row})
}

func (s *Store) SelectedRow(table string) record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedRow[table]
}

// Notify fills the snackbar slot and fans the message out.
func (s *Store) Notify(n Notification) {
	s.mu.Lock()
	s.notification = n
	s.mu.Unlock()
	if n.MessageType == "error" {
		s.log.Error("notification", "action", n.ActionType, "message", n.MessageText)
	} else {
		s.log.Info("notification", "action", n.ActionType, "message", n.MessageText)
	}
	s.publish(Message{Channel: ChannelUI, Event: EventNotification, Data: n})
}

func (s *Store) Notification() Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notification
}

// RequestAction raises the save/delete signal for an entity's bound editor.
func (s *Store) RequestAction(entity string, action ButtonAction) {
	s.mu.Lock()
	s.buttonAction = action
	s.mu.Unlock()
	s.publish(Message{Channel: entity, Event: EventActionRequested, Data: string(action)})
}

func (s *Store) PendingAction() ButtonAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buttonAction
}

func (s *Store) publish(msg Message) {
	if s.hub != nil {
		s.hub.Publish(msg)
	}
}
