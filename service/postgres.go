package service

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/config"
	"github.com/nikolaslecce/sample-genai-underwriting-workbench-demo/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ConnectDatabase opens a pgx pool against the configured Postgres instance
// and verifies connectivity.
func ConnectDatabase(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = time.Duration(cfg.ConnLifetimeMinutes) * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// MigrateDatabase applies the embedded schema migrations.
func MigrateDatabase(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// PostgresStore implements JobStore on top of pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const jobColumns = `job_id, original_filename, s3_key, status, stage, document_type,
	insurance_type, extracted_data, analysis_output, error_msg, upload_timestamp, updated_at`

func (s *PostgresStore) CreateJob(ctx context.Context, job *model.Job) error {
	extracted, err := marshalJSONB(job.ExtractedData)
	if err != nil {
		return err
	}
	analysis, err := marshalJSONB(job.AnalysisOutput)
	if err != nil {
		return err
	}

	job.UpdatedAt = time.Now()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.JobID, job.OriginalFilename, job.S3Key, job.Status, job.Stage,
		job.DocumentType, job.InsuranceType, extracted, analysis,
		job.ErrorMsg, job.UploadTimestamp, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE job_id = $1`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context) ([]*model.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY upload_timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, jobID, status, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, error_msg = $3, updated_at = NOW() WHERE job_id = $1`,
		jobID, status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *PostgresStore) SetStage(ctx context.Context, jobID, stage string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET stage = $2, updated_at = NOW() WHERE job_id = $1`,
		jobID, stage)
	if err != nil {
		return fmt.Errorf("failed to set job stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *PostgresStore) SetDocumentType(ctx context.Context, jobID, documentType string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET document_type = $2, updated_at = NOW() WHERE job_id = $1`,
		jobID, documentType)
	if err != nil {
		return fmt.Errorf("failed to set document type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *PostgresStore) SetExtractedData(ctx context.Context, jobID string, data map[string]any) error {
	payload, err := marshalJSONB(data)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET extracted_data = $2, updated_at = NOW() WHERE job_id = $1`,
		jobID, payload)
	if err != nil {
		return fmt.Errorf("failed to set extracted data: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *PostgresStore) SetAnalysisOutput(ctx context.Context, jobID string, output map[string]any) error {
	payload, err := marshalJSONB(output)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET analysis_output = $2, updated_at = NOW() WHERE job_id = $1`,
		jobID, payload)
	if err != nil {
		return fmt.Errorf("failed to set analysis output: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func marshalJSONB(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
	}
	return data, nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		job       model.Job
		extracted []byte
		analysis  []byte
	)
	err := row.Scan(&job.JobID, &job.OriginalFilename, &job.S3Key, &job.Status,
		&job.Stage, &job.DocumentType, &job.InsuranceType, &extracted, &analysis,
		&job.ErrorMsg, &job.UploadTimestamp, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(extracted) > 0 {
		if err := json.Unmarshal(extracted, &job.ExtractedData); err != nil {
			return nil, fmt.Errorf("failed to decode extracted data: %w", err)
		}
	}
	if len(analysis) > 0 {
		if err := json.Unmarshal(analysis, &job.AnalysisOutput); err != nil {
			return nil, fmt.Errorf("failed to decode analysis output: %w", err)
		}
	}
	return &job, nil
}
