package record

import (
	"github.com/google/uuid"
)

// Record is one in-progress edit of one domain entity (trench, context,
// find, media item, ...). Keys are the column names of the backing relation
// plus ephemeral display-only keys that get stripped before persistence.
type Record map[string]any

// KeyUUID is the identity column shared by every entity relation. It is
// assigned client-side so inline-added table rows can be addressed before the
// server has ever seen them; its presence therefore does not imply the row
// has been persisted.
const KeyUUID = "uuid"

func New() Record {
	return Record{}
}

// NewWithID creates an empty record with a fresh client-side identity.
func NewWithID() Record {
	return Record{KeyUUID: uuid.NewString()}
}

func (r Record) UUID() string {
	v, _ := r[KeyUUID].(string)
	return v
}

// Clone returns a shallow copy. Mutators never write through to their input,
// so a shallow copy is enough to keep callers reference-distinct.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// With returns a copy with key set. The uuid key is immutable once assigned.
func (r Record) With(key string, v any) Record {
	if key == KeyUUID {
		if _, ok := r[KeyUUID]; ok {
			return r.Clone()
		}
	}
	out := r.Clone()
	out[key] = v
	return out
}

// Strip projects the read-oriented view shape down to the write shape by
// dropping the named derived/display columns.
func (r Record) Strip(keys ...string) Record {
	out := r.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
