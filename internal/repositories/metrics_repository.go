package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"omnicrm/pkg/constants"
	"omnicrm/pkg/types"
	"omnicrm/pkg/utils"
)

// MetricsRepositoryInterface fornece os agregados crus sobre as tabelas
// operacionais (messages, conversations, deals). O motor de KPI e o resolver
// de widgets moldam esses números; aqui é só SQL.
type MetricsRepositoryInterface interface {
	AvgResponseTimeMinutes(ctx context.Context, from, to time.Time) (avg float64, pairs int64, err error)
	ConversationCounts(ctx context.Context, from, to time.Time) (total, resolved int64, err error)
	MessageCountBySender(ctx context.Context, from, to time.Time, sender string) (int64, error)

	DealCounts(ctx context.Context, from, to time.Time) (total, won int64, err error)
	WonDealValueStats(ctx context.Context, from, to time.Time) (sum, avg float64, count int64, err error)
	SalesCycleMinutes(ctx context.Context, from, to time.Time) (float64, error)
	LeadsBySource(ctx context.Context, from, to time.Time) ([]types.CountByGroup, error)
	WonDealsByRegion(ctx context.Context, from, to time.Time) ([]types.SumByGroup, error)

	MessageSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.BucketCount, error)
	DealSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.BucketCount, error)
	ResponseTimeSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.BucketAvg, error)
	SalesValueBySource(ctx context.Context, from, to time.Time) ([]types.SumByGroup, error)
	TeamPerformance(ctx context.Context, from, to time.Time) ([]types.SumByGroup, error)
	StageConversionSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.StageConversion, error)

	PipelineStageStats(ctx context.Context, from, to time.Time) ([]types.StageStat, error)
	ConversionFunnelCounts(ctx context.Context, from, to time.Time) (messages, deals, wonDeals int64, err error)
	DealsForKanban(ctx context.Context, from, to time.Time, limit int) ([]types.DealSummary, error)
	RecentActivity(ctx context.Context, from, to time.Time, limit int) ([]types.ActivityItem, error)

	ExecuteRawQuery(ctx context.Context, query string) (columns []string, rows []map[string]interface{}, err error)
}

type MetricsRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewMetricsRepository(storage *pgxpool.Pool, logger *zap.Logger) MetricsRepositoryInterface {
	return &MetricsRepository{storage: storage, logger: logger}
}

// AvgResponseTimeMinutes: para cada mensagem de contato respondida, pega a
// PRIMEIRA resposta de usuário na mesma conversa e tira a média do intervalo
// em minutos. Tudo em uma query, sem N+1 por conversa.
func (r *MetricsRepository) AvgResponseTimeMinutes(ctx context.Context, from, to time.Time) (float64, int64, error) {
	const query = `
		SELECT COALESCE(AVG(gap_minutes), 0), COUNT(*)
		FROM (
			SELECT EXTRACT(EPOCH FROM (MIN(u.timestamp) - m.timestamp)) / 60 AS gap_minutes
			FROM messages m
			JOIN messages u ON u.conversation_id = m.conversation_id
				AND u.sender = $3
				AND u.timestamp > m.timestamp
			WHERE m.sender = $4
				AND m.timestamp >= $1 AND m.timestamp <= $2
			GROUP BY m.id, m.timestamp
		) pairs`

	var avg float64
	var pairs int64
	err := r.storage.QueryRow(ctx, query, from, to, constants.SenderUser, constants.SenderContact).
		Scan(&avg, &pairs)
	return avg, pairs, err
}

func (r *MetricsRepository) ConversationCounts(ctx context.Context, from, to time.Time) (int64, int64, error) {
	const query = `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $3)
		FROM conversations
		WHERE created_at >= $1 AND created_at <= $2`

	var total, resolved int64
	err := r.storage.QueryRow(ctx, query, from, to, constants.ConversationResolved).Scan(&total, &resolved)
	return total, resolved, err
}

func (r *MetricsRepository) MessageCountBySender(ctx context.Context, from, to time.Time, sender string) (int64, error) {
	b := sq.Select("COUNT(*)").From("messages").
		Where(sq.GtOrEq{"timestamp": from}).
		Where(sq.LtOrEq{"timestamp": to}).
		Where(sq.Eq{"sender": sender})

	sqlStr, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	err = r.storage.QueryRow(ctx, sqlStr, args...).Scan(&count)
	return count, err
}

func (r *MetricsRepository) DealCounts(ctx context.Context, from, to time.Time) (int64, int64, error) {
	const query = `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE stage = $3)
		FROM deals
		WHERE created_at >= $1 AND created_at <= $2`

	var total, won int64
	err := r.storage.QueryRow(ctx, query, from, to, constants.StageWon).Scan(&total, &won)
	return total, won, err
}

func (r *MetricsRepository) WonDealValueStats(ctx context.Context, from, to time.Time) (float64, float64, int64, error) {
	const query = `
		SELECT COALESCE(SUM(value), 0), COALESCE(AVG(value), 0), COUNT(*)
		FROM deals
		WHERE stage = $3 AND created_at >= $1 AND created_at <= $2`

	var sum, avg float64
	var count int64
	err := r.storage.QueryRow(ctx, query, from, to, constants.StageWon).Scan(&sum, &avg, &count)
	return sum, avg, count, err
}

// SalesCycleMinutes: média de minutos entre a PRIMEIRA conversa do contato e
// a criação do negócio, só para negócios ganhos na janela, ligados por
// contact_id.
func (r *MetricsRepository) SalesCycleMinutes(ctx context.Context, from, to time.Time) (float64, error) {
	const query = `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (d.created_at - fc.first_at)) / 60), 0)
		FROM deals d
		JOIN (
			SELECT contact_id, MIN(created_at) AS first_at
			FROM conversations
			GROUP BY contact_id
		) fc ON fc.contact_id = d.contact_id
		WHERE d.stage = $3
			AND d.created_at >= $1 AND d.created_at <= $2`

	var avg float64
	err := r.storage.QueryRow(ctx, query, from, to, constants.StageWon).Scan(&avg)
	return avg, err
}

func (r *MetricsRepository) LeadsBySource(ctx context.Context, from, to time.Time) ([]types.CountByGroup, error) {
	b := sq.Select("COALESCE(source, 'desconhecido') AS group_name", "COUNT(*) AS count").
		From("deals").
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.LtOrEq{"created_at": to}).
		GroupBy("source").
		OrderBy("count DESC")

	sqlStr, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.CountByGroup])
}

func (r *MetricsRepository) WonDealsByRegion(ctx context.Context, from, to time.Time) ([]types.SumByGroup, error) {
	b := sq.Select(
		"COALESCE(region, 'desconhecido') AS group_name",
		"COUNT(*) AS count",
		"COALESCE(SUM(value), 0) AS total",
	).From("deals").
		Where(sq.Eq{"stage": constants.StageWon}).
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.LtOrEq{"created_at": to}).
		GroupBy("region").
		OrderBy("total DESC")

	sqlStr, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.SumByGroup])
}

func (r *MetricsRepository) collectBucketCounts(ctx context.Context, query string, from, to time.Time) ([]types.BucketCount, error) {
	rows, err := r.storage.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.BucketCount])
}

// As expressões de balde vêm de utils.BucketExpression sobre colunas fixas
// do repositório; não entra dado do usuário na interpolação.
func (r *MetricsRepository) MessageSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.BucketCount, error) {
	bucketExpr, err := utils.BucketExpression("timestamp", groupBy)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT %[1]s AS bucket, COUNT(*) AS count
		FROM messages
		WHERE timestamp >= $1 AND timestamp <= $2
		GROUP BY %[1]s
		ORDER BY %[1]s`, bucketExpr)
	return r.collectBucketCounts(ctx, query, from, to)
}

func (r *MetricsRepository) DealSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.BucketCount, error) {
	bucketExpr, err := utils.BucketExpression("created_at", groupBy)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT %[1]s AS bucket, COUNT(*) AS count
		FROM deals
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY %[1]s
		ORDER BY %[1]s`, bucketExpr)
	return r.collectBucketCounts(ctx, query, from, to)
}

func (r *MetricsRepository) ResponseTimeSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.BucketAvg, error) {
	bucketExpr, err := utils.BucketExpression("m.timestamp", groupBy)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT bucket, COALESCE(AVG(gap_minutes), 0) AS average
		FROM (
			SELECT %s AS bucket,
				EXTRACT(EPOCH FROM (MIN(u.timestamp) - m.timestamp)) / 60 AS gap_minutes
			FROM messages m
			JOIN messages u ON u.conversation_id = m.conversation_id
				AND u.sender = $3
				AND u.timestamp > m.timestamp
			WHERE m.sender = $4
				AND m.timestamp >= $1 AND m.timestamp <= $2
			GROUP BY 1, m.id, m.timestamp
		) pairs
		GROUP BY bucket
		ORDER BY bucket`, bucketExpr)

	rows, err := r.storage.Query(ctx, query, from, to, constants.SenderUser, constants.SenderContact)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.BucketAvg])
}

func (r *MetricsRepository) SalesValueBySource(ctx context.Context, from, to time.Time) ([]types.SumByGroup, error) {
	b := sq.Select(
		"COALESCE(source, 'desconhecido') AS group_name",
		"COUNT(*) AS count",
		"COALESCE(SUM(value), 0) AS total",
	).From("deals").
		Where(sq.Eq{"stage": constants.StageWon}).
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.LtOrEq{"created_at": to}).
		GroupBy("source").
		OrderBy("total DESC")

	sqlStr, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.SumByGroup])
}

// TeamPerformance: negócios ganhos por responsável (contagem + soma).
func (r *MetricsRepository) TeamPerformance(ctx context.Context, from, to time.Time) ([]types.SumByGroup, error) {
	b := sq.Select(
		"COALESCE(assigned_to, 'sem responsável') AS group_name",
		"COUNT(*) AS count",
		"COALESCE(SUM(value), 0) AS total",
	).From("deals").
		Where(sq.Eq{"stage": constants.StageWon}).
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.LtOrEq{"created_at": to}).
		GroupBy("assigned_to").
		OrderBy("total DESC")

	sqlStr, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.SumByGroup])
}

// StageConversionSeries computa, em UM statement, a conversão
// etapa-sobre-etapa (LAG) e etapa-sobre-inicial (FIRST_VALUE) por balde
// temporal. Evita uma query por etapa por balde.
func (r *MetricsRepository) StageConversionSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.StageConversion, error) {
	bucketExpr, err := utils.BucketExpression("d.created_at", groupBy)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		WITH stage_counts AS (
			SELECT %[1]s AS bucket, d.stage, COUNT(*) AS count
			FROM deals d
			WHERE d.created_at >= $1 AND d.created_at <= $2
				AND d.stage != '%[2]s'
			GROUP BY %[1]s, d.stage
		),
		ranked AS (
			SELECT bucket, stage, count,
				LAG(count) OVER w AS prev_count,
				FIRST_VALUE(count) OVER w AS first_count,
				array_position($3::text[], stage) AS stage_order
			FROM stage_counts
			WINDOW w AS (PARTITION BY bucket ORDER BY array_position($3::text[], stage))
		)
		SELECT bucket, stage, count,
			CASE
				WHEN prev_count IS NULL THEN 100
				WHEN prev_count = 0 THEN 0
				ELSE ROUND(count::numeric / prev_count * 100, 2)
			END AS step_rate,
			CASE
				WHEN first_count = 0 THEN 0
				ELSE ROUND(count::numeric / first_count * 100, 2)
			END AS cumulative_rate
		FROM ranked
		ORDER BY bucket, stage_order`, bucketExpr, constants.StageLost)

	rows, err := r.storage.Query(ctx, query, from, to, constants.PipelineStages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.StageConversion])
}

func (r *MetricsRepository) PipelineStageStats(ctx context.Context, from, to time.Time) ([]types.StageStat, error) {
	const query = `
		SELECT stage, COUNT(*) AS count, COALESCE(SUM(value), 0) AS total
		FROM deals
		WHERE created_at >= $1 AND created_at <= $2
			AND stage = ANY($3)
		GROUP BY stage`

	rows, err := r.storage.Query(ctx, query, from, to, constants.PipelineStages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.StageStat])
}

func (r *MetricsRepository) ConversionFunnelCounts(ctx context.Context, from, to time.Time) (int64, int64, int64, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM messages WHERE timestamp >= $1 AND timestamp <= $2),
			(SELECT COUNT(*) FROM deals WHERE created_at >= $1 AND created_at <= $2),
			(SELECT COUNT(*) FROM deals WHERE created_at >= $1 AND created_at <= $2 AND stage = $3)`

	var messages, deals, won int64
	err := r.storage.QueryRow(ctx, query, from, to, constants.StageWon).Scan(&messages, &deals, &won)
	return messages, deals, won, err
}

func (r *MetricsRepository) DealsForKanban(ctx context.Context, from, to time.Time, limit int) ([]types.DealSummary, error) {
	b := sq.Select(
		"d.id", "d.title", "d.stage", "d.value",
		"COALESCE(c.name, '') AS contact_name",
		"COALESCE(d.assigned_to, '') AS assigned_to",
		"d.created_at",
	).From("deals d").
		LeftJoin("contacts c ON d.contact_id = c.id").
		Where(sq.GtOrEq{"d.created_at": from}).
		Where(sq.LtOrEq{"d.created_at": to}).
		OrderBy("d.created_at DESC")

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
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.DealSummary])
}

// RecentActivity mistura mensagens e negócios recentes para a linha do tempo.
func (r *MetricsRepository) RecentActivity(ctx context.Context, from, to time.Time, limit int) ([]types.ActivityItem, error) {
	const query = `
		SELECT label, text, timestamp FROM (
			SELECT 'message' AS label,
				'Mensagem de ' || sender AS text,
				timestamp
			FROM messages
			WHERE timestamp >= $1 AND timestamp <= $2
			UNION ALL
			SELECT 'deal' AS label,
				'Negócio criado: ' || title AS text,
				created_at AS timestamp
			FROM deals
			WHERE created_at >= $1 AND created_at <= $2
		) activity
		ORDER BY timestamp DESC
		LIMIT $3`

	rows, err := r.storage.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.ActivityItem])
}

// ExecuteRawQuery roda o SQL do operador exatamente como veio e devolve
// linhas genéricas com os nomes das colunas. Uso restrito ao widget "custom",
// que só admins configuram.
func (r *MetricsRepository) ExecuteRawQuery(ctx context.Context, query string) ([]string, []map[string]interface{}, error) {
	rows, err := r.storage.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("erro ao executar consulta customizada: %w", err)
	}
	defer rows.Close()

	descriptions := rows.FieldDescriptions()
	columns := make([]string, len(descriptions))
	for i, d := range descriptions {
		columns[i] = d.Name
	}

	var result []map[string]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	return columns, result, rows.Err()
}
