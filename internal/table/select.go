package table

import (
	"context"
	"fmt"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/nav"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/record"
)

// SelectTable backs the pick-a-record lists: load a collection once per list
// table, then resolve a navigation target from the chosen row.
type SelectTable struct {
	log *logger.Logger
	api postgrest.Client

	// ListTable is the view relation to query.
	ListTable string
	// KeyColumn identifies a row; uuid unless the entity has a natural key.
	KeyColumn string
	// SubColumn, when set, names a parent-reference column: rows carrying it
	// redirect through the parent's path instead of the plain child route.
	SubColumn string
	// ParentPath is the route segment used for the SubColumn redirect.
	ParentPath string

	rows []record.Record
}

func NewSelectTable(log *logger.Logger, api postgrest.Client, listTable string) *SelectTable {
	return &SelectTable{
		log:       log.With("table", listTable),
		api:       api,
		ListTable: listTable,
		KeyColumn: record.KeyUUID,
	}
}

// Load queries the collection. Call again only when the list table changes.
func (t *SelectTable) Load(ctx context.Context, f postgrest.Filter) ([]record.Record, error) {
	rows, err := t.api.Get(ctx, t.ListTable, f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.ListTable, err)
	}
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, record.Record(r))
	}
	t.rows = out
	return out, nil
}

func (t *SelectTable) Rows() []record.Record { return t.rows }

// Route resolves where selecting a row navigates.
func (t *SelectTable) Route(row record.Record) string {
	id, _ := row[t.KeyColumn].(string)
	if id == "" {
		return "./"
	}
	if t.SubColumn != "" {
		if parent, _ := row[t.SubColumn].(string); parent != "" {
			return "/" + t.ParentPath + "/" + parent + "/" + id
		}
	}
	return nav.RouteForRecord(id)
}
