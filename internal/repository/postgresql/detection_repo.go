package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"plate_reader/internal/domain"
	"plate_reader/internal/repository"
)

const detectionColumns = `id, session_id, plate, confidence, bbox_x1, bbox_y1, bbox_x2, bbox_y2,
		mode, image_jpeg, captured_at, created_at`

type pgDetectionRepository struct {
	db *sql.DB
}

func NewPgDetectionRepository(db *sql.DB) repository.DetectionRepository {
	return &pgDetectionRepository{db: db}
}

func (r *pgDetectionRepository) Create(ctx context.Context, rec *domain.DetectionRecord) error {
	query := `INSERT INTO detections
		(id, session_id, plate, confidence, bbox_x1, bbox_y1, bbox_x2, bbox_y2, mode, image_jpeg, captured_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.SessionID, rec.Plate, rec.Confidence,
		rec.BBoxX1, rec.BBoxY1, rec.BBoxX2, rec.BBoxY2,
		rec.Mode, rec.ImageJPEG, rec.CapturedAt,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: detection '%s'", repository.ErrDuplicateEntry, rec.ID)
		}
		return fmt.Errorf("DetectionRepository.Create: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.In(time.UTC)
	return nil
}

func (r *pgDetectionRepository) FindByID(ctx context.Context, id string) (*domain.DetectionRecord, error) {
	query := `SELECT ` + detectionColumns + ` FROM detections WHERE id = $1`
	rec, err := scanDetection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("DetectionRepository.FindByID: %w", err)
	}
	return rec, nil
}

// buildFindQuery turns the filter into a parameterized query, newest first.
func buildFindQuery(filter domain.DetectionFilterDTO) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Plate != nil && strings.TrimSpace(*filter.Plate) != "" {
		add("plate ILIKE $%d", "%"+strings.ToUpper(strings.TrimSpace(*filter.Plate))+"%")
	}
	if filter.From != nil {
		add("captured_at >= $%d", filter.From.UTC())
	}
	if filter.To != nil {
		add("captured_at <= $%d", filter.To.UTC())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = repository.DefaultFindLimit
	}
	if limit > repository.MaxFindLimit {
		limit = repository.MaxFindLimit
	}

	query := `SELECT ` + detectionColumns + ` FROM detections`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY captured_at DESC LIMIT $%d", len(args))
	return query, args
}

func (r *pgDetectionRepository) Find(ctx context.Context, filter domain.DetectionFilterDTO) ([]domain.DetectionRecord, error) {
	query, args := buildFindQuery(filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("DetectionRepository.Find: %w", err)
	}
	defer rows.Close()

	records := []domain.DetectionRecord{}
	for rows.Next() {
		rec, err := scanDetection(rows)
		if err != nil {
			return nil, fmt.Errorf("DetectionRepository.Find (scan): %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("DetectionRepository.Find (rows): %w", err)
	}
	return records, nil
}

func (r *pgDetectionRepository) Stats(ctx context.Context, since time.Time) (*domain.DetectionStats, error) {
	query := `SELECT
			COUNT(*),
			COUNT(DISTINCT plate),
			COALESCE(AVG(confidence), 0),
			COUNT(*) FILTER (WHERE mode = 'auto'),
			COUNT(*) FILTER (WHERE mode = 'manual'),
			COUNT(*) FILTER (WHERE captured_at >= $1)
		FROM detections`

	stats := &domain.DetectionStats{}
	err := r.db.QueryRowContext(ctx, query, since.UTC()).Scan(
		&stats.TotalDetections, &stats.UniquePlates, &stats.AverageConfidence,
		&stats.AutoDetections, &stats.ManualDetections, &stats.Last24Hours,
	)
	if err != nil {
		return nil, fmt.Errorf("DetectionRepository.Stats: %w", err)
	}
	return stats, nil
}

func (r *pgDetectionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM detections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DetectionRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DetectionRepository.Delete (checking rows): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgDetectionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM detections WHERE captured_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("DetectionRepository.DeleteOlderThan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DetectionRepository.DeleteOlderThan (checking rows): %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDetection(row rowScanner) (*domain.DetectionRecord, error) {
	rec := &domain.DetectionRecord{}
	err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.Plate, &rec.Confidence,
		&rec.BBoxX1, &rec.BBoxY1, &rec.BBoxX2, &rec.BBoxY2,
		&rec.Mode, &rec.ImageJPEG, &rec.CapturedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.CapturedAt = rec.CapturedAt.In(time.UTC)
	rec.CreatedAt = rec.CreatedAt.In(time.UTC)
	return rec, nil
}
