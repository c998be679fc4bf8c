package domain

import (
	"time"

	"github.com/totegamma/eform-core/internal/utils"
)

// DataRow is one (session, field, value) fact. Rows are never updated.
type DataRow struct {
	ID          int64       `json:"id"`
	SessionUUID string      `json:"sessionUuid"`
	UserID      int64       `json:"userId"`
	FieldID     int64       `json:"fieldId"`
	Value       string      `json:"value"`
	CreatedAt   time.Time   `json:"createdAt"`
	User        UserSummary `json:"user"`
}

// Session is one submission as listed for a form.
type Session struct {
	SessionUUID string    `json:"sessionUuid"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Record is one submission reassembled from its rows. Keys keep insertion order.
type Record = utils.OrderedKVMap[any]

// RowFilter narrows the rows read back for a form.
type RowFilter struct {
	UserID      *int64
	SessionUUID string
}

// Admits reports whether the submission described by event falls inside f.
func (f RowFilter) Admits(event SubmissionEvent) bool {
	if f.UserID != nil && *f.UserID != event.UserID {
		return false
	}
	return f.SessionUUID == "" || f.SessionUUID == event.SessionUUID
}

// SubmissionEvent is published once a submission is committed.
type SubmissionEvent struct {
	FormUUID    string    `json:"formUuid"`
	SessionUUID string    `json:"sessionUuid"`
	UserID      int64     `json:"userId"`
	Fields      int       `json:"fields"`
	CreatedAt   time.Time `json:"createdAt"`
}
