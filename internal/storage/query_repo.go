package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_store.go -package=mocks cat-backend/internal/storage QueryStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// QueryStore defines the interface for query ledger storage operations.
type QueryStore interface {
	// ApplyPatch upserts the supplied fields of a query's detail row and,
	// when the patch carries a status, its status row.
	ApplyPatch(ctx context.Context, patch DetailPatch) error
	// GetStatus returns the status row of a query or ErrNotFound.
	GetStatus(ctx context.Context, queryID uuid.UUID) (*QueryStatus, error)
	// GetDetail returns the detail row of a query or ErrNotFound.
	GetDetail(ctx context.Context, queryID uuid.UUID) (*QueryDetail, error)
}

// QueryRepo implements QueryStore on database/sql.
type QueryRepo struct {
	db     *sql.DB
	driver string
}

// NewQueryRepo creates a new QueryRepo for the given driver.
func NewQueryRepo(db *sql.DB, driver string) *QueryRepo {
	return &QueryRepo{db: db, driver: driver}
}

const upsertDetailSQL = `INSERT INTO backend_query_detail (
	query_id, query_text, timestamp, total_latency, vdb_name, vdb_index, vdb_latency,
	llm_model, llm_latency, rnk_model, rnk_latency, info
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (query_id) DO UPDATE SET
	query_text = COALESCE(excluded.query_text, backend_query_detail.query_text),
	timestamp = COALESCE(excluded.timestamp, backend_query_detail.timestamp),
	total_latency = COALESCE(excluded.total_latency, backend_query_detail.total_latency),
	vdb_name = COALESCE(excluded.vdb_name, backend_query_detail.vdb_name),
	vdb_index = COALESCE(excluded.vdb_index, backend_query_detail.vdb_index),
	vdb_latency = COALESCE(excluded.vdb_latency, backend_query_detail.vdb_latency),
	llm_model = COALESCE(excluded.llm_model, backend_query_detail.llm_model),
	llm_latency = COALESCE(excluded.llm_latency, backend_query_detail.llm_latency),
	rnk_model = COALESCE(excluded.rnk_model, backend_query_detail.rnk_model),
	rnk_latency = COALESCE(excluded.rnk_latency, backend_query_detail.rnk_latency),
	info = COALESCE(excluded.info, backend_query_detail.info)`

const upsertStatusSQL = `INSERT INTO backend_query_status (query_id, status, timestamp)
VALUES (?, ?, ?)
ON CONFLICT (query_id) DO UPDATE SET
	status = excluded.status,
	timestamp = excluded.timestamp`

// ApplyPatch writes the patch in a single transaction.
func (r *QueryRepo) ApplyPatch(ctx context.Context, patch DetailPatch) error {
	if patch.QueryID == uuid.Nil {
		return fmt.Errorf("query id is required")
	}

	var info sql.NullString
	if patch.Info != nil {
		data, err := json.Marshal(patch.Info)
		if err != nil {
			return fmt.Errorf("failed to encode info: %w", err)
		}
		info = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, rebind(r.driver, upsertDetailSQL),
		patch.QueryID.String(),
		nullString(patch.QueryText),
		nullTime(patch.Timestamp),
		nullSeconds(patch.TotalLatency),
		nullString(patch.VDBName),
		nullString(patch.VDBIndex),
		nullSeconds(patch.VDBLatency),
		nullString(patch.LLMModel),
		nullSeconds(patch.LLMLatency),
		nullString(patch.RnkModel),
		nullSeconds(patch.RnkLatency),
		info,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert query detail: %w", err)
	}

	if patch.Status != "" {
		at := patch.StatusAt
		if at.IsZero() {
			at = time.Now()
		}
		_, err = tx.ExecContext(ctx, rebind(r.driver, upsertStatusSQL),
			patch.QueryID.String(), string(patch.Status), at.UTC())
		if err != nil {
			return fmt.Errorf("failed to upsert query status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit query patch: %w", err)
	}
	return nil
}

// GetStatus returns the status row of a query.
// Returns nil and ErrNotFound if not found.
func (r *QueryRepo) GetStatus(ctx context.Context, queryID uuid.UUID) (*QueryStatus, error) {
	var (
		st     QueryStatus
		status string
	)
	err := r.db.QueryRowContext(ctx,
		rebind(r.driver, "SELECT status, timestamp FROM backend_query_status WHERE query_id = ?"),
		queryID.String(),
	).Scan(&status, &st.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query status: %w", err)
	}

	st.QueryID = queryID
	st.Status = Status(status)
	return &st, nil
}

// GetDetail returns the detail row of a query.
// Returns nil and ErrNotFound if not found.
func (r *QueryRepo) GetDetail(ctx context.Context, queryID uuid.UUID) (*QueryDetail, error) {
	var (
		queryText, vdbName, vdbIndex, llmModel, rnkModel, info sql.NullString
		ts                                                     sql.NullTime
		total, vdbLatency, llmLatency, rnkLatency              sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, rebind(r.driver, `SELECT
		query_text, timestamp, total_latency, vdb_name, vdb_index, vdb_latency,
		llm_model, llm_latency, rnk_model, rnk_latency, info
		FROM backend_query_detail WHERE query_id = ?`),
		queryID.String(),
	).Scan(&queryText, &ts, &total, &vdbName, &vdbIndex, &vdbLatency,
		&llmModel, &llmLatency, &rnkModel, &rnkLatency, &info)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query detail: %w", err)
	}

	detail := &QueryDetail{
		QueryID:      queryID,
		QueryText:    stringPtr(queryText),
		TotalLatency: durationPtr(total),
		VDBName:      stringPtr(vdbName),
		VDBIndex:     stringPtr(vdbIndex),
		VDBLatency:   durationPtr(vdbLatency),
		LLMModel:     stringPtr(llmModel),
		LLMLatency:   durationPtr(llmLatency),
		RnkModel:     stringPtr(rnkModel),
		RnkLatency:   durationPtr(rnkLatency),
	}
	if ts.Valid {
		t := ts.Time
		detail.Timestamp = &t
	}
	if info.Valid {
		if err := json.Unmarshal([]byte(info.String), &detail.Info); err != nil {
			return nil, fmt.Errorf("failed to decode info: %w", err)
		}
	}

	return detail, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// nullSeconds stores durations as fractional seconds.
func nullSeconds(d *time.Duration) sql.NullFloat64 {
	if d == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: d.Seconds(), Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func durationPtr(f sql.NullFloat64) *time.Duration {
	if !f.Valid {
		return nil
	}
	d := time.Duration(math.Round(f.Float64 * float64(time.Second)))
	return &d
}
