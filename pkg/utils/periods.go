package utils

import (
	"fmt"
	"time"

	apperrors "omnicrm/pkg/errors"
)

// GroupBy define o tamanho do balde temporal usado nas séries dos gráficos.
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
	GroupByYear  GroupBy = "year"
)

// Comparison define como o período anterior é derivado do período atual.
type Comparison string

const (
	ComparisonPreviousPeriod Comparison = "previous_period"
	ComparisonPreviousMonth  Comparison = "previous_month"
	ComparisonPreviousYear   Comparison = "previous_year"
)

// PeriodType é a granularidade inferida do tamanho da janela.
type PeriodType string

const (
	PeriodDaily     PeriodType = "daily"
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
)

// BucketExpression devolve a expressão SQL de truncamento temporal para a
// coluna informada. É usada dentro de GROUP BY nas queries agregadas.
func BucketExpression(column string, groupBy GroupBy) (string, error) {
	switch groupBy {
	case GroupByDay:
		return fmt.Sprintf("date_trunc('day', %s)", column), nil
	case GroupByWeek:
		return fmt.Sprintf("date_trunc('week', %s)", column), nil
	case GroupByMonth:
		return fmt.Sprintf("date_trunc('month', %s)", column), nil
	case GroupByYear:
		return fmt.Sprintf("date_trunc('year', %s)", column), nil
	default:
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedGrouping, groupBy)
	}
}

var (
	weekdayLabels = []string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}
	monthLabels   = []string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}
)

// AxisLabels devolve a sequência de rótulos do eixo X para o agrupamento.
func AxisLabels(groupBy GroupBy) ([]string, error) {
	switch groupBy {
	case GroupByDay:
		return append([]string(nil), weekdayLabels...), nil
	case GroupByWeek:
		return []string{"Semana 1", "Semana 2", "Semana 3", "Semana 4", "Semana 5"}, nil
	case GroupByMonth:
		return append([]string(nil), monthLabels...), nil
	case GroupByYear:
		current := time.Now().Year()
		labels := make([]string, 0, 5)
		for y := current - 4; y <= current; y++ {
			labels = append(labels, fmt.Sprintf("%d", y))
		}
		return labels, nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedGrouping, groupBy)
	}
}

// PreviousPeriod resolve a janela de comparação a partir da janela atual.
// previous_period desloca as duas bordas pela duração exata da janela;
// previous_month/previous_year deslocam o campo de calendário em 1 (casos de
// borda como 31/Jan ficam por conta da normalização do calendário mesmo).
func PreviousPeriod(dateFrom, dateTo time.Time, comparison Comparison) (time.Time, time.Time, error) {
	switch comparison {
	case ComparisonPreviousPeriod:
		duration := dateTo.Sub(dateFrom)
		return dateFrom.Add(-duration), dateTo.Add(-duration), nil
	case ComparisonPreviousMonth:
		return dateFrom.AddDate(0, -1, 0), dateTo.AddDate(0, -1, 0), nil
	case ComparisonPreviousYear:
		return dateFrom.AddDate(-1, 0, 0), dateTo.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedComparison, comparison)
	}
}

// DeterminePeriodType infere a granularidade do valor pela duração da janela.
func DeterminePeriodType(dateFrom, dateTo time.Time) PeriodType {
	days := dateTo.Sub(dateFrom).Hours() / 24

	switch {
	case days <= 1:
		return PeriodDaily
	case days <= 7:
		return PeriodWeekly
	case days <= 31:
		return PeriodMonthly
	case days <= 92:
		return PeriodQuarterly
	default:
		return PeriodYearly
	}
}

// CountWorkingDays conta os dias úteis da janela (inclusive), pulando
// sábados e domingos por iteração de calendário.
func CountWorkingDays(dateFrom, dateTo time.Time) int {
	count := 0
	day := time.Date(dateFrom.Year(), dateFrom.Month(), dateFrom.Day(), 0, 0, 0, 0, dateFrom.Location())
	end := time.Date(dateTo.Year(), dateTo.Month(), dateTo.Day(), 0, 0, 0, 0, dateTo.Location())

	for !day.After(end) {
		wd := day.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}
