package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gitbridge/pkg/api"
	"gitbridge/pkg/util/context"

	// PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

const migrationSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    owner_id      TEXT NOT NULL,
    status        TEXT NOT NULL,
    start_time    TIMESTAMPTZ,
    end_time      TIMESTAMPTZ,
    duration_ms   BIGINT NOT NULL DEFAULT 0,
    configuration JSONB NOT NULL DEFAULT '{}',
    steps         JSONB NOT NULL DEFAULT '[]',
    result        JSONB,
    error_detail  JSONB
);

CREATE INDEX IF NOT EXISTS idx_runs_owner_id ON runs(owner_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// NewPostgresStore opens a connection pool to the given database and runs the
// schema migration.
func NewPostgresStore(ctx context.Context, databaseURL string) (Store, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open database")
	}
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "cannot ping database")
	}
	if _, err := pool.ExecContext(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "cannot run migration")
	}
	return &postgres{pool: pool}, nil
}

type postgres struct {
	pool *sql.DB
}

func (s *postgres) CreateRun(ctx context.Context, run api.PipelineRun) error {
	cfgJSON, err := json.Marshal(run.Configuration)
	if err != nil {
		return errors.Wrap(err, "cannot marshal configuration")
	}
	stepsJSON, err := json.Marshal(run.Steps)
	if err != nil {
		return errors.Wrap(err, "cannot marshal steps")
	}
	_, err = s.pool.ExecContext(ctx,
		`INSERT INTO runs (id, owner_id, status, start_time, configuration, steps)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.OwnerID, string(run.Status), run.StartTime, cfgJSON, stepsJSON,
	)
	if err != nil {
		return errors.Wrapf(err, "cannot insert run %s", run.ID)
	}
	return nil
}

func (s *postgres) SetRunStatus(ctx context.Context, id string, status api.Status, errDetail *api.ErrorDetail) error {
	var detailJSON interface{}
	if errDetail != nil {
		b, err := json.Marshal(errDetail)
		if err != nil {
			return errors.Wrap(err, "cannot marshal error detail")
		}
		detailJSON = b
	}
	var res sql.Result
	var err error
	if status.Finished() {
		res, err = s.pool.ExecContext(ctx,
			`UPDATE runs
			 SET status = $1,
			     error_detail = COALESCE($2, error_detail),
			     end_time = NOW(),
			     duration_ms = (EXTRACT(EPOCH FROM (NOW() - start_time)) * 1000)::BIGINT
			 WHERE id = $3`,
			string(status), detailJSON, id,
		)
	} else {
		res, err = s.pool.ExecContext(ctx,
			`UPDATE runs SET status = $1, error_detail = COALESCE($2, error_detail) WHERE id = $3`,
			string(status), detailJSON, id,
		)
	}
	if err != nil {
		return errors.Wrapf(err, "cannot update run %s", id)
	}
	return requireRow(res, id)
}

// SetStepStatus mutates one entry of the steps JSONB document. The
// read-modify-write runs in a transaction with the row locked so concurrent
// readers only ever observe complete step transitions.
func (s *postgres) SetStepStatus(ctx context.Context, id string, step api.StepName, status api.Status, message, errorMessage string) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "cannot begin transaction")
	}
	defer tx.Rollback()

	var stepsJSON []byte
	err = tx.QueryRowContext(ctx, `SELECT steps FROM runs WHERE id = $1 FOR UPDATE`, id).Scan(&stepsJSON)
	if err == sql.ErrNoRows {
		return NotFoundError(fmt.Sprintf("run %s", id))
	}
	if err != nil {
		return errors.Wrapf(err, "cannot select steps for run %s", id)
	}

	var steps []api.StepRecord
	if err := json.Unmarshal(stepsJSON, &steps); err != nil {
		return errors.Wrapf(err, "cannot unmarshal steps for run %s", id)
	}

	found := false
	now := time.Now()
	for i := range steps {
		if steps[i].Name != step {
			continue
		}
		found = true
		steps[i].Status = status
		if message != "" {
			steps[i].Message = message
		}
		if errorMessage != "" {
			steps[i].ErrorMessage = errorMessage
		}
		if status == api.StatusInProgress && steps[i].StartTime == nil {
			steps[i].StartTime = &now
		} else if status.Finished() {
			steps[i].EndTime = &now
			if steps[i].StartTime != nil {
				steps[i].DurationMs = now.Sub(*steps[i].StartTime).Milliseconds()
			}
		}
	}
	if !found {
		return NotFoundError(fmt.Sprintf("step %s in run %s", step, id))
	}

	updated, err := json.Marshal(steps)
	if err != nil {
		return errors.Wrap(err, "cannot marshal steps")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET steps = $1 WHERE id = $2`, updated, id); err != nil {
		return errors.Wrapf(err, "cannot update steps for run %s", id)
	}
	return tx.Commit()
}

func (s *postgres) SetRunResult(ctx context.Context, id string, result api.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "cannot marshal result")
	}
	res, err := s.pool.ExecContext(ctx, `UPDATE runs SET result = $1 WHERE id = $2`, resultJSON, id)
	if err != nil {
		return errors.Wrapf(err, "cannot update result for run %s", id)
	}
	return requireRow(res, id)
}

const runColumns = `id, owner_id, status, start_time, end_time, duration_ms, configuration, steps, result, error_detail`

func (s *postgres) GetRun(ctx context.Context, id string) (api.PipelineRun, error) {
	row := s.pool.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return api.PipelineRun{}, NotFoundError(fmt.Sprintf("run %s", id))
	}
	if err != nil {
		return api.PipelineRun{}, errors.Wrapf(err, "cannot get run %s", id)
	}
	return run, nil
}

func (s *postgres) ListRunsByOwner(ctx context.Context, ownerID string, page, pageSize int) ([]api.PipelineRun, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var total int
	err := s.pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE owner_id = $1`, ownerID).Scan(&total)
	if err != nil {
		return nil, 0, errors.Wrap(err, "cannot count runs")
	}

	rows, err := s.pool.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE owner_id = $1
		 ORDER BY start_time DESC LIMIT $2 OFFSET $3`,
		ownerID, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, 0, errors.Wrap(err, "cannot list runs")
	}
	defer rows.Close()

	items := []api.PipelineRun{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, 0, errors.Wrap(err, "cannot scan run")
		}
		items = append(items, run)
	}
	return items, total, rows.Err()
}

func (s *postgres) Stats(ctx context.Context, ownerID string) (api.RunStats, error) {
	query := `SELECT
	    COUNT(*) FILTER (WHERE status = 'success'),
	    COUNT(*) FILTER (WHERE status = 'failed'),
	    COUNT(*) FILTER (WHERE status = 'in_progress'),
	    COALESCE(AVG(duration_ms) FILTER (WHERE status IN ('success','failed')), 0)
	  FROM runs`
	args := []interface{}{}
	if ownerID != "" {
		query += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	var stats api.RunStats
	err := s.pool.QueryRowContext(ctx, query, args...).
		Scan(&stats.SuccessCount, &stats.FailedCount, &stats.InProgressCount, &stats.AverageDurationMs)
	if err != nil {
		return api.RunStats{}, errors.Wrap(err, "cannot aggregate stats")
	}
	return stats, nil
}

func (s *postgres) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.pool.ExecContext(ctx,
		`DELETE FROM runs WHERE status IN ('success','failed') AND end_time < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "cannot delete runs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "cannot count deleted runs")
	}
	return int(n), nil
}

func scanRun(scan func(...interface{}) error) (api.PipelineRun, error) {
	var r api.PipelineRun
	var status string
	var cfgJSON, stepsJSON, resultJSON, detailJSON []byte
	var startTime, endTime sql.NullTime

	err := scan(&r.ID, &r.OwnerID, &status, &startTime, &endTime, &r.DurationMs,
		&cfgJSON, &stepsJSON, &resultJSON, &detailJSON)
	if err != nil {
		return api.PipelineRun{}, err
	}

	r.Status = api.Status(status)
	if startTime.Valid {
		t := startTime.Time
		r.StartTime = &t
	}
	if endTime.Valid {
		t := endTime.Time
		r.EndTime = &t
	}
	if err := json.Unmarshal(cfgJSON, &r.Configuration); err != nil {
		return api.PipelineRun{}, errors.Wrap(err, "cannot unmarshal configuration")
	}
	if err := json.Unmarshal(stepsJSON, &r.Steps); err != nil {
		return api.PipelineRun{}, errors.Wrap(err, "cannot unmarshal steps")
	}
	if len(resultJSON) > 0 {
		r.Result = &api.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return api.PipelineRun{}, errors.Wrap(err, "cannot unmarshal result")
		}
	}
	if len(detailJSON) > 0 {
		r.ErrorDetail = &api.ErrorDetail{}
		if err := json.Unmarshal(detailJSON, r.ErrorDetail); err != nil {
			return api.PipelineRun{}, errors.Wrap(err, "cannot unmarshal error detail")
		}
	}
	return r, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "cannot check affected rows")
	}
	if n == 0 {
		return NotFoundError(fmt.Sprintf("run %s", id))
	}
	return nil
}
