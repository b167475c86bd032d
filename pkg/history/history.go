package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"plantdx/models"
)

// ErrDisabled is returned by a nil Store.
var ErrDisabled = errors.New("history store disabled")

// Store persists diagnoses in Postgres.
type Store struct {
	db *gorm.DB
}

// Open connects through the pgx stdlib driver and hands the pool to gorm.
// When migrate is true the diagnoses table is created or updated.
func Open(dsn string, migrate bool) (*Store, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	if migrate {
		if err := gdb.AutoMigrate(&models.Diagnosis{}); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("migrate diagnoses: %w", err)
		}
	}
	return &Store{db: gdb}, nil
}

// Enabled reports whether s writes anywhere.
func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

// Record inserts one diagnosis.
func (s *Store) Record(ctx context.Context, d *models.Diagnosis) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	return s.db.WithContext(ctx).Create(d).Error
}

// Recent returns the newest diagnoses, at most limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.Diagnosis, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.Diagnosis
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}

// DiseaseSummary aggregates stored diagnoses for one plant/disease pair.
type DiseaseSummary struct {
	Plant          string
	Disease        string
	Count          int64
	AvgConfidence  float64
	AvgSeverity    float64
	AvgWaterStress float64
}

// Month returns per-disease aggregates for diagnoses created in
// [start, start+1 month) along with the matching rows when list is true.
func (s *Store) Month(ctx context.Context, start time.Time, list bool) ([]DiseaseSummary, []models.Diagnosis, error) {
	if !s.Enabled() {
		return nil, nil, ErrDisabled
	}
	end := start.AddDate(0, 1, 0)
	var sums []DiseaseSummary
	err := s.db.WithContext(ctx).Model(&models.Diagnosis{}).
		Select("plant, disease, count(*) as count, avg(confidence) as avg_confidence, avg(severity) as avg_severity, avg(water_stress) as avg_water_stress").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("plant, disease").
		Order("count desc, plant, disease").
		Scan(&sums).Error
	if err != nil {
		return nil, nil, fmt.Errorf("summary query: %w", err)
	}
	if !list {
		return sums, nil, nil
	}
	var rows []models.Diagnosis
	if err := s.db.WithContext(ctx).Where("created_at >= ? AND created_at < ?", start, end).Order("id").Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("fetch rows: %w", err)
	}
	return sums, rows, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
