package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// FormatCurrency formata centavos como moeda pt-BR: 1234 -> "R$ 12,34".
// Valores monetários são armazenados em centavos; a divisão por 100 só
// acontece aqui, na hora de exibir.
func FormatCurrency(cents float64) string {
	value := cents / 100
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}

	intPart := int64(value)
	fracPart := int64(math.Round((value - float64(intPart)) * 100))
	if fracPart == 100 {
		intPart++
		fracPart = 0
	}

	return fmt.Sprintf("%sR$ %s,%02d", sign, groupThousands(intPart), fracPart)
}

// FormatPercentage formata com duas casas: 70 -> "70.00%".
func FormatPercentage(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}

// FormatMinutes formata minutos com duas casas: 5 -> "5.00 min".
func FormatMinutes(minutes float64) string {
	return fmt.Sprintf("%.2f min", minutes)
}

// FormatNumber formata com separadores pt-BR: 1234567.89 -> "1.234.567,89".
func FormatNumber(value float64, decimals int) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}

	scale := math.Pow(10, float64(decimals))
	value = math.Round(value*scale) / scale

	intPart := int64(value)
	grouped := groupThousands(intPart)
	if decimals <= 0 {
		return sign + grouped
	}

	frac := int64(math.Round((value - float64(intPart)) * scale))
	if frac == int64(scale) {
		intPart++
		grouped = groupThousands(intPart)
		frac = 0
	}
	return fmt.Sprintf("%s%s,%0*d", sign, grouped, decimals, frac)
}

func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// FormatSeconds converte segundos (média fracionária) em "1d 2h 3m 4s".
func FormatSeconds(totalSeconds float64) string {
	if totalSeconds < 1 {
		return "0s"
	}
	secs := uint64(math.Round(totalSeconds))

	days := secs / (24 * 3600)
	secs %= 24 * 3600
	hours := secs / 3600
	secs %= 3600
	minutes := secs / 60
	seconds := secs % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	return strings.Join(parts, " ")
}

var stageNames = map[string]string{
	"new":         "Novo",
	"contacted":   "Contactado",
	"qualified":   "Qualificado",
	"proposal":    "Proposta",
	"negotiation": "Negociação",
	"won":         "Ganho",
	"lost":        "Perdido",
}

// FormatStageName traduz o código da etapa do pipeline para exibição.
// Códigos desconhecidos passam direto, sem erro.
func FormatStageName(stageCode string) string {
	if name, ok := stageNames[stageCode]; ok {
		return name
	}
	return stageCode
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
