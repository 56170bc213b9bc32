package storage

import (
	"time"

	"github.com/google/uuid"
)

// Status is the advisory progress marker of a query.
type Status string

const (
	StatusNew      Status = "new"
	StatusVDBStart Status = "vdb_start"
	StatusVDBDone  Status = "vdb_done"
	StatusRnkStart Status = "rnk_start"
	StatusRnkDone  Status = "rnk_done"
	StatusLLMStart Status = "llm_start"
	StatusLLMDone  Status = "llm_done"
	StatusDone     Status = "done"
	StatusError    Status = "error"
)

// QueryStatus is a row of backend_query_status.
type QueryStatus struct {
	QueryID   uuid.UUID
	Status    Status
	Timestamp time.Time
}

// QueryDetail is a row of backend_query_detail. Nil fields were never written.
type QueryDetail struct {
	QueryID      uuid.UUID
	QueryText    *string
	Timestamp    *time.Time
	TotalLatency *time.Duration
	VDBName      *string
	VDBIndex     *string
	VDBLatency   *time.Duration
	LLMModel     *string
	LLMLatency   *time.Duration
	RnkModel     *string
	RnkLatency   *time.Duration
	Info         map[string]any
}

// DetailPatch is a partial update of a query's ledger rows.
// Only non-nil fields are written; existing values of the others are kept.
// A non-empty Status also upserts backend_query_status.
type DetailPatch struct {
	QueryID      uuid.UUID
	Status       Status
	StatusAt     time.Time
	QueryText    *string
	Timestamp    *time.Time
	TotalLatency *time.Duration
	VDBName      *string
	VDBIndex     *string
	VDBLatency   *time.Duration
	LLMModel     *string
	LLMLatency   *time.Duration
	RnkModel     *string
	RnkLatency   *time.Duration
	Info         map[string]any
}
