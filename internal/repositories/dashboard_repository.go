package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"omnicrm/internal/dto"
	"omnicrm/internal/entities"
	apperrors "omnicrm/pkg/errors"
)

type DashboardRepositoryInterface interface {
	FindDashboard(ctx context.Context, id uint64) (*entities.Dashboard, error)
	ListDashboards(ctx context.Context) ([]entities.Dashboard, error)
	CreateDashboard(ctx context.Context, payload dto.CreateDashboardDTO) (*entities.Dashboard, error)
	UpdateDashboard(ctx context.Context, id uint64, payload dto.UpdateDashboardDTO) (*entities.Dashboard, error)
	DeleteDashboard(ctx context.Context, id uint64) error

	FindWidget(ctx context.Context, id uint64) (*entities.DashboardWidget, error)
	ListWidgets(ctx context.Context, dashboardID uint64) ([]entities.DashboardWidget, error)
	CreateWidget(ctx context.Context, payload dto.CreateWidgetDTO) (*entities.DashboardWidget, error)
	UpdateWidget(ctx context.Context, id uint64, payload dto.UpdateWidgetDTO) (*entities.DashboardWidget, error)
	DeleteWidget(ctx context.Context, id uint64) error
}

type DashboardRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewDashboardRepository(storage *pgxpool.Pool, logger *zap.Logger) DashboardRepositoryInterface {
	return &DashboardRepository{storage: storage, logger: logger}
}

const dashboardColumns = "id, name, description, layout, is_default, is_public, owner_id, created_at, updated_at"

func scanDashboard(row pgx.Row) (*entities.Dashboard, error) {
	var d entities.Dashboard
	err := row.Scan(
		&d.ID, &d.Name, &d.Description, &d.Layout,
		&d.IsDefault, &d.IsPublic, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDashboardNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DashboardRepository) FindDashboard(ctx context.Context, id uint64) (*entities.Dashboard, error) {
	query := fmt.Sprintf("SELECT %s FROM dashboards WHERE id = $1", dashboardColumns)
	return scanDashboard(r.storage.QueryRow(ctx, query, id))
}

func (r *DashboardRepository) ListDashboards(ctx context.Context) ([]entities.Dashboard, error) {
	query := fmt.Sprintf("SELECT %s FROM dashboards ORDER BY is_default DESC, name", dashboardColumns)
	rows, err := r.storage.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dashboards []entities.Dashboard
	for rows.Next() {
		var d entities.Dashboard
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Description, &d.Layout,
			&d.IsDefault, &d.IsPublic, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		dashboards = append(dashboards, d)
	}
	return dashboards, rows.Err()
}

// CreateDashboard com is_default=true limpa o default anterior DENTRO da
// mesma transação do insert: no máximo um dashboard fica como padrão.
func (r *DashboardRepository) CreateDashboard(ctx context.Context, payload dto.CreateDashboardDTO) (*entities.Dashboard, error) {
	layout := payload.Layout
	if layout == nil {
		layout = json.RawMessage("{}")
	}

	var created *entities.Dashboard
	err := WithTx(ctx, r.storage, func(tx pgx.Tx) error {
		if payload.IsDefault {
			if err := clearDefaultDashboard(ctx, tx, 0); err != nil {
				return err
			}
		}

		query := fmt.Sprintf(`
			INSERT INTO dashboards (name, description, layout, is_default, is_public, owner_id)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0))
			RETURNING %s`, dashboardColumns)

		var err error
		created, err = scanDashboard(tx.QueryRow(ctx, query,
			payload.Name, payload.Description, layout, payload.IsDefault, payload.IsPublic, payload.OwnerID))
		return err
	})
	return created, err
}

func (r *DashboardRepository) UpdateDashboard(ctx context.Context, id uint64, payload dto.UpdateDashboardDTO) (*entities.Dashboard, error) {
	b := sq.Update("dashboards").Set("updated_at", sq.Expr("NOW()")).Where(sq.Eq{"id": id})

	if payload.Name != nil {
		b = b.Set("name", *payload.Name)
	}
	if payload.Description != nil {
		b = b.Set("description", *payload.Description)
	}
	if payload.Layout != nil {
		b = b.Set("layout", payload.Layout)
	}
	if payload.IsDefault != nil {
		b = b.Set("is_default", *payload.IsDefault)
	}
	if payload.IsPublic != nil {
		b = b.Set("is_public", *payload.IsPublic)
	}

	sqlStr, args, err := b.Suffix("RETURNING " + dashboardColumns).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var updated *entities.Dashboard
	err = WithTx(ctx, r.storage, func(tx pgx.Tx) error {
		if payload.IsDefault != nil && *payload.IsDefault {
			if err := clearDefaultDashboard(ctx, tx, id); err != nil {
				return err
			}
		}
		var scanErr error
		updated, scanErr = scanDashboard(tx.QueryRow(ctx, sqlStr, args...))
		return scanErr
	})
	return updated, err
}

// DeleteDashboard apaga primeiro os widgets e depois o dashboard, na mesma
// transação (cascata explícita na camada de serviço, como o resto do código).
func (r *DashboardRepository) DeleteDashboard(ctx context.Context, id uint64) error {
	return WithTx(ctx, r.storage, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM dashboard_widgets WHERE dashboard_id = $1", id); err != nil {
			return fmt.Errorf("erro ao remover widgets do dashboard: %w", err)
		}

		tag, err := tx.Exec(ctx, "DELETE FROM dashboards WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrDashboardNotFound
		}
		return nil
	})
}

// clearDefaultDashboard derruba o is_default de todos os dashboards exceto
// keepID (0 no insert, quando a linha nova ainda não existe). Roda dentro da
// mesma transação que promove o novo padrão.
func clearDefaultDashboard(ctx context.Context, q querier, keepID uint64) error {
	if _, err := q.Exec(ctx,
		"UPDATE dashboards SET is_default = false WHERE is_default = true AND id != $1", keepID,
	); err != nil {
		return fmt.Errorf("erro ao limpar o dashboard padrão anterior: %w", err)
	}
	return nil
}

const widgetColumns = `id, dashboard_id, type, title, data_source, configuration,
	position_x, position_y, width, height, refresh_interval, is_visible,
	permissions, filters, created_at, updated_at`

func scanWidget(row pgx.Row) (*entities.DashboardWidget, error) {
	var w entities.DashboardWidget
	err := row.Scan(
		&w.ID, &w.DashboardID, &w.Type, &w.Title, &w.DataSource, &w.Configuration,
		&w.Position.X, &w.Position.Y, &w.Position.Width, &w.Position.Height,
		&w.RefreshInterval, &w.IsVisible, &w.Permissions, &w.Filters,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWidgetNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *DashboardRepository) FindWidget(ctx context.Context, id uint64) (*entities.DashboardWidget, error) {
	query := fmt.Sprintf("SELECT %s FROM dashboard_widgets WHERE id = $1", widgetColumns)
	return scanWidget(r.storage.QueryRow(ctx, query, id))
}

func (r *DashboardRepository) ListWidgets(ctx context.Context, dashboardID uint64) ([]entities.DashboardWidget, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM dashboard_widgets
		WHERE dashboard_id = $1
		ORDER BY position_y, position_x`, widgetColumns)

	rows, err := r.storage.Query(ctx, query, dashboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var widgets []entities.DashboardWidget
	for rows.Next() {
		var w entities.DashboardWidget
		if err := rows.Scan(
			&w.ID, &w.DashboardID, &w.Type, &w.Title, &w.DataSource, &w.Configuration,
			&w.Position.X, &w.Position.Y, &w.Position.Width, &w.Position.Height,
			&w.RefreshInterval, &w.IsVisible, &w.Permissions, &w.Filters,
			&w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, err
		}
		widgets = append(widgets, w)
	}
	return widgets, rows.Err()
}

func (r *DashboardRepository) CreateWidget(ctx context.Context, payload dto.CreateWidgetDTO) (*entities.DashboardWidget, error) {
	configuration := payload.Configuration
	if configuration == nil {
		configuration = json.RawMessage("{}")
	}
	isVisible := true
	if payload.IsVisible != nil {
		isVisible = *payload.IsVisible
	}

	query := fmt.Sprintf(`
		INSERT INTO dashboard_widgets
			(dashboard_id, type, title, data_source, configuration,
			 position_x, position_y, width, height, refresh_interval, is_visible)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s`, widgetColumns)

	return scanWidget(r.storage.QueryRow(ctx, query,
		payload.DashboardID, payload.Type, payload.Title, payload.DataSource, configuration,
		payload.Position.X, payload.Position.Y, payload.Position.Width, payload.Position.Height,
		payload.RefreshInterval, isVisible,
	))
}

func (r *DashboardRepository) UpdateWidget(ctx context.Context, id uint64, payload dto.UpdateWidgetDTO) (*entities.DashboardWidget, error) {
	b := sq.Update("dashboard_widgets").Set("updated_at", sq.Expr("NOW()")).Where(sq.Eq{"id": id})

	if payload.Title != nil {
		b = b.Set("title", *payload.Title)
	}
	if payload.DataSource != nil {
		b = b.Set("data_source", *payload.DataSource)
	}
	if payload.Configuration != nil {
		b = b.Set("configuration", payload.Configuration)
	}
	if payload.Position != nil {
		b = b.Set("position_x", payload.Position.X).
			Set("position_y", payload.Position.Y).
			Set("width", payload.Position.Width).
			Set("height", payload.Position.Height)
	}
	if payload.RefreshInterval != nil {
		b = b.Set("refresh_interval", *payload.RefreshInterval)
	}
	if payload.IsVisible != nil {
		b = b.Set("is_visible", *payload.IsVisible)
	}

	sqlStr, args, err := b.Suffix("RETURNING " + widgetColumns).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	return scanWidget(r.storage.QueryRow(ctx, sqlStr, args...))
}

func (r *DashboardRepository) DeleteWidget(ctx context.Context, id uint64) error {
	tag, err := r.storage.Exec(ctx, "DELETE FROM dashboard_widgets WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrWidgetNotFound
	}
	return nil
}
