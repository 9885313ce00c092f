package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

type JobRepository struct {
	db *sql.DB
}

// compile-time check: *JobRepository must satisfy port.JobRepository
var _ port.JobRepository = (*JobRepository)(nil)

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Insert(ctx context.Context, job *model.Job) error {
	log.Printf("creating job-log record for attachment #%d, operation %q...", job.AttachmentID, job.Operation)

	const query = `
      INSERT INTO transfer_jobs
        (attachment_id, operation_type, status, file_name, file_size, object_key, error_message, meta)
      VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	result, err := r.db.ExecContext(ctx, query,
		job.AttachmentID, job.Operation, job.Status,
		job.FileName, job.FileSize, job.ObjectKey,
		job.ErrorMessage, job.Meta,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	job.ID = id
	return nil
}

// Update applies one status transition. started_at is stamped the first time
// the job leaves requested, completed_at only on the transition into
// completed; both are write-once. Metadata merges field-level on top of the
// stored record so redeliveries never erase earlier details.
func (r *JobRepository) Update(ctx context.Context, id int64, upd model.JobUpdate) error {
	log.Printf("updating job #%d to status %q...", id, upd.Status)

	var meta *model.JobMeta
	if upd.Meta != nil {
		var existing model.JobMeta
		err := r.db.QueryRowContext(ctx, `SELECT COALESCE(meta, '{}') FROM transfer_jobs WHERE id = ?`, id).Scan(&existing)
		if err != nil {
			return err
		}
		merged := existing.Merge(*upd.Meta)
		meta = &merged
	}

	const query = `
      UPDATE transfer_jobs
      SET
        status        = ?,
        error_message = COALESCE(?, error_message),
        file_size     = COALESCE(?, file_size),
        object_key    = COALESCE(?, object_key),
        meta          = COALESCE(?, meta),
        started_at    = IF(? = 'in_progress' AND started_at IS NULL, NOW(), started_at),
        completed_at  = IF(? = 'completed' AND completed_at IS NULL, NOW(), completed_at)
      WHERE id = ?
    `
	result, err := r.db.ExecContext(ctx, query,
		upd.Status,
		upd.ErrorMessage,
		upd.FileSize,
		upd.ObjectKey,
		meta,
		upd.Status,
		upd.Status,
		id, // WHERE clause
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const jobColumns = `id, attachment_id, operation_type, status, file_name, file_size, object_key, error_message, meta, started_at, completed_at, created_at, updated_at`

func (r *JobRepository) GetByID(ctx context.Context, id int64) (*model.Job, error) {
	log.Printf("fetching job #%d from the database...", id)

	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM transfer_jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (r *JobRepository) List(ctx context.Context, filter model.JobFilter) ([]model.Job, error) {
	log.Printf("listing jobs (status %q, operation %q)...", filter.Status, filter.Operation)

	query := `SELECT ` + jobColumns + ` FROM transfer_jobs`
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Operation != "" {
		conditions = append(conditions, "operation_type = ?")
		args = append(args, filter.Operation)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectJobs(rows)
}

func (r *JobRepository) ListFailed(ctx context.Context, limit int) ([]model.Job, error) {
	log.Printf("listing the %d most recent failed jobs...", limit)

	const query = `
      SELECT ` + jobColumns + `
      FROM transfer_jobs
      WHERE status = 'failed'
      ORDER BY id DESC
      LIMIT ?
    `
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectJobs(rows)
}

func (r *JobRepository) Stats(ctx context.Context) (*model.JobStats, error) {
	log.Println("aggregating job-log stats...")

	stats := &model.JobStats{
		Overview: map[model.OperationType]map[model.JobStatus]int64{},
		Totals:   map[model.OperationType]model.OperationStats{},
	}

	const overviewQuery = `
      SELECT operation_type, status, COUNT(*)
      FROM transfer_jobs
      GROUP BY operation_type, status
    `
	rows, err := r.db.QueryContext(ctx, overviewQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			op     model.OperationType
			status model.JobStatus
			count  int64
		)
		if err := rows.Scan(&op, &status, &count); err != nil {
			return nil, err
		}
		if stats.Overview[op] == nil {
			stats.Overview[op] = map[model.JobStatus]int64{}
		}
		stats.Overview[op][status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const totalsQuery = `
      SELECT
        operation_type,
        COUNT(*),
        COALESCE(SUM(file_size), 0),
        COALESCE(SUM(status = 'completed'), 0),
        COALESCE(SUM(IF(status = 'completed', file_size, 0)), 0)
      FROM transfer_jobs
      GROUP BY operation_type
    `
	totalRows, err := r.db.QueryContext(ctx, totalsQuery)
	if err != nil {
		return nil, err
	}
	defer totalRows.Close()
	for totalRows.Next() {
		var (
			op    model.OperationType
			total model.OperationStats
		)
		if err := totalRows.Scan(&op, &total.Count, &total.Bytes, &total.CompletedCount, &total.CompletedBytes); err != nil {
			return nil, err
		}
		stats.Totals[op] = total
	}
	if err := totalRows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *JobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	log.Printf("pruning finished jobs older than %s...", cutoff.Format(time.DateOnly))

	const query = `
      DELETE FROM transfer_jobs
      WHERE status IN ('completed', 'failed') AND created_at < ?
    `
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job  model.Job
		meta model.JobMeta
	)
	if err := row.Scan(
		&job.ID, &job.AttachmentID, &job.Operation, &job.Status,
		&job.FileName, &job.FileSize, &job.ObjectKey, &job.ErrorMessage,
		&meta, &job.StartedAt, &job.CompletedAt,
		&job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Meta = &meta
	return &job, nil
}

func collectJobs(rows *sql.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return jobs, nil
}
