package types

import "time"

// Linhas cruas devolvidas pelo repositório de métricas operacionais.

type CountByGroup struct {
	GroupName string `json:"group_name" db:"group_name"`
	Count     int64  `json:"count" db:"count"`
}

type SumByGroup struct {
	GroupName string  `json:"group_name" db:"group_name"`
	Count     int64   `json:"count" db:"count"`
	Total     float64 `json:"total" db:"total"`
}

// BucketCount é uma contagem por balde temporal (antes da rotulagem).
type BucketCount struct {
	Bucket time.Time `db:"bucket"`
	Count  int64     `db:"count"`
}

// BucketAvg é uma média por balde temporal.
type BucketAvg struct {
	Bucket  time.Time `db:"bucket"`
	Average float64   `db:"average"`
}

// StageConversion é a linha da query de janela (LAG/FIRST_VALUE): conversão
// etapa-sobre-etapa e etapa-sobre-inicial por balde, em uma só passada.
type StageConversion struct {
	Bucket         time.Time `db:"bucket"`
	Stage          string    `db:"stage"`
	Count          int64     `db:"count"`
	StepRate       float64   `db:"step_rate"`
	CumulativeRate float64   `db:"cumulative_rate"`
}

// DealSummary alimenta o kanban.
type DealSummary struct {
	ID          uint64    `db:"id"`
	Title       string    `db:"title"`
	Stage       string    `db:"stage"`
	Value       float64   `db:"value"`
	ContactName string    `db:"contact_name"`
	AssignedTo  string    `db:"assigned_to"`
	CreatedAt   time.Time `db:"created_at"`
}

// StageStat é uma etapa do pipeline com contagem e soma dos valores.
type StageStat struct {
	Stage string  `db:"stage"`
	Count int64   `db:"count"`
	Total float64 `db:"total"`
}

// ActivityItem é um evento da linha do tempo (mensagens/negócios recentes).
type ActivityItem struct {
	Label     string    `db:"label"`
	Text      string    `db:"text"`
	Timestamp time.Time `db:"timestamp"`
}
