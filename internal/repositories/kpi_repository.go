package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"omnicrm/internal/entities"
	apperrors "omnicrm/pkg/errors"
	"omnicrm/pkg/utils"
)

// KpiCriteria identifica um KPI pelo par (name, category) e carrega os
// atributos usados na criação preguiçosa.
type KpiCriteria struct {
	Name        string
	Category    string
	Description string
	MetricType  entities.MetricType
	Unit        string
}

type KpiRepositoryInterface interface {
	GetOrCreate(ctx context.Context, criteria KpiCriteria) (*entities.Kpi, error)
	FindByID(ctx context.Context, id uint64) (*entities.Kpi, error)
	List(ctx context.Context, category string) ([]entities.Kpi, error)
	InsertValues(ctx context.Context, values []entities.KpiValue) error
	LatestValue(ctx context.Context, kpiID uint64) (*entities.KpiValue, error)
	PreviousValue(ctx context.Context, kpiID uint64, periodType utils.PeriodType, before time.Time) (*entities.KpiValue, error)
	ListValues(ctx context.Context, kpiID uint64, periodType string, limit int) ([]entities.KpiValue, error)
}

type KpiRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewKpiRepository(storage *pgxpool.Pool, logger *zap.Logger) KpiRepositoryInterface {
	return &KpiRepository{storage: storage, logger: logger}
}

const kpiColumns = `id, name, category, description, metric_type, warning_threshold,
	critical_threshold, goal, unit, is_active, created_at, updated_at`

func scanKpi(row pgx.Row) (*entities.Kpi, error) {
	var k entities.Kpi
	err := row.Scan(
		&k.ID, &k.Name, &k.Category, &k.Description, &k.MetricType,
		&k.WarningThreshold, &k.CriticalThreshold, &k.Goal, &k.Unit,
		&k.IsActive, &k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrKpiNotFound
		}
		return nil, err
	}
	return &k, nil
}

// GetOrCreate é um upsert único contra o índice UNIQUE (name, category).
// O DO UPDATE inócuo faz o RETURNING devolver a linha nos dois caminhos,
// então duas chamadas concorrentes nunca produzem KPI duplicado.
func (r *KpiRepository) GetOrCreate(ctx context.Context, criteria KpiCriteria) (*entities.Kpi, error) {
	query := fmt.Sprintf(`
		INSERT INTO kpis (name, category, description, metric_type, unit, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (name, category) DO UPDATE SET updated_at = NOW()
		RETURNING %s`, kpiColumns)

	return scanKpi(r.storage.QueryRow(ctx, query,
		criteria.Name, criteria.Category, criteria.Description, criteria.MetricType, criteria.Unit))
}

func (r *KpiRepository) FindByID(ctx context.Context, id uint64) (*entities.Kpi, error) {
	query := fmt.Sprintf("SELECT %s FROM kpis WHERE id = $1", kpiColumns)
	return scanKpi(r.storage.QueryRow(ctx, query, id))
}

func (r *KpiRepository) List(ctx context.Context, category string) ([]entities.Kpi, error) {
	b := sq.Select(
		"id", "name", "category", "description", "metric_type", "warning_threshold",
		"critical_threshold", "goal", "unit", "is_active", "created_at", "updated_at",
	).From("kpis").
		Where(sq.Eq{"is_active": true}).
		OrderBy("category", "name")

	if category != "" {
		b = b.Where(sq.Eq{"category": category})
	}

	sqlStr, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kpis []entities.Kpi
	for rows.Next() {
		var k entities.Kpi
		if err := rows.Scan(
			&k.ID, &k.Name, &k.Category, &k.Description, &k.MetricType,
			&k.WarningThreshold, &k.CriticalThreshold, &k.Goal, &k.Unit,
			&k.IsActive, &k.CreatedAt, &k.UpdatedAt,
		); err != nil {
			return nil, err
		}
		kpis = append(kpis, k)
	}
	return kpis, rows.Err()
}

// InsertValues grava todos os snapshots de uma chamada de computação em UMA
// transação: ou todas as métricas do lote ficam visíveis, ou nenhuma.
func (r *KpiRepository) InsertValues(ctx context.Context, values []entities.KpiValue) error {
	if len(values) == 0 {
		return nil
	}

	return WithTx(ctx, r.storage, func(tx pgx.Tx) error {
		for _, v := range values {
			if err := insertKpiValue(ctx, tx, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertKpiValue(ctx context.Context, q querier, v entities.KpiValue) error {
	const query = `
		INSERT INTO kpi_values (kpi_id, value, text_value, date_from, date_to, period_type, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	metadata := v.Metadata
	if metadata == nil {
		metadata = []byte("{}")
	}
	if _, err := q.Exec(ctx, query,
		v.KpiID, v.Value, v.TextValue, v.DateFrom, v.DateTo, v.PeriodType, metadata,
	); err != nil {
		return fmt.Errorf("erro ao gravar valor do KPI %d: %w", v.KpiID, err)
	}
	return nil
}

const kpiValueColumns = "id, kpi_id, value, text_value, date_from, date_to, period_type, metadata, created_at"

func scanKpiValue(row pgx.Row) (*entities.KpiValue, error) {
	var v entities.KpiValue
	err := row.Scan(
		&v.ID, &v.KpiID, &v.Value, &v.TextValue,
		&v.DateFrom, &v.DateTo, &v.PeriodType, &v.Metadata, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *KpiRepository) LatestValue(ctx context.Context, kpiID uint64) (*entities.KpiValue, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM kpi_values
		WHERE kpi_id = $1
		ORDER BY date_from DESC, id DESC
		LIMIT 1`, kpiValueColumns)
	return scanKpiValue(r.storage.QueryRow(ctx, query, kpiID))
}

// PreviousValue busca o snapshot imediatamente anterior da MESMA
// granularidade (date_to até o início do valor atual, mais recente primeiro).
func (r *KpiRepository) PreviousValue(ctx context.Context, kpiID uint64, periodType utils.PeriodType, before time.Time) (*entities.KpiValue, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM kpi_values
		WHERE kpi_id = $1 AND period_type = $2 AND date_to <= $3
		ORDER BY date_to DESC, id DESC
		LIMIT 1`, kpiValueColumns)
	return scanKpiValue(r.storage.QueryRow(ctx, query, kpiID, periodType, before))
}

func (r *KpiRepository) ListValues(ctx context.Context, kpiID uint64, periodType string, limit int) ([]entities.KpiValue, error) {
	b := sq.Select(
		"id", "kpi_id", "value", "text_value", "date_from", "date_to", "period_type", "metadata", "created_at",
	).From("kpi_values").
		Where(sq.Eq{"kpi_id": kpiID}).
		OrderBy("date_from DESC", "id DESC")

	if periodType != "" {
		b = b.Where(sq.Eq{"period_type": periodType})
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	sqlStr, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []entities.KpiValue
	for rows.Next() {
		var v entities.KpiValue
		if err := rows.Scan(
			&v.ID, &v.KpiID, &v.Value, &v.TextValue,
			&v.DateFrom, &v.DateTo, &v.PeriodType, &v.Metadata, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
