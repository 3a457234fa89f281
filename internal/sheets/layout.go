package sheets

import (
	"fmt"
	"os"
	"strconv"
)

// The source tabs address fields by column position, not by name, and the
// evaluation tab's layout has drifted between historical versions of the
// sheet. Every index lives here as named configuration, overridable via
// environment variables and validated against the header row before a
// reconciliation pass touches any data.

// ActivityLayout maps the columns of the daily call activity tab
type ActivityLayout struct {
	Name         int
	Date         int
	Answered     int
	Abandoned    int
	Transactions int
}

// EvaluationLayout maps the columns of the call evaluation tab
type EvaluationLayout struct {
	Name      int
	Email     int
	Date      int
	Evaluator int

	// KPI sub-score block
	Product   int
	Etiquette int
	Solving   int
	Upsell    int
	Promo     int
	Capture   int

	Positive    int
	Improvement int
	Rating      int // overall 1-5 rating
}

// MetricsLayout maps the columns of the ticket metrics tab
type MetricsLayout struct {
	Name           int
	AHT            int
	ResolutionRate int
	Date           int
}

// Layouts bundles the three per-tab column mappings
type Layouts struct {
	Activity   ActivityLayout
	Evaluation EvaluationLayout
	Metrics    MetricsLayout
}

// DefaultLayouts returns the column mappings of the current sheet schema
func DefaultLayouts() Layouts {
	return Layouts{
		Activity: ActivityLayout{
			Name:         0,
			Date:         1,
			Answered:     2,
			Abandoned:    3,
			Transactions: 4,
		},
		Evaluation: EvaluationLayout{
			Name:        0,
			Email:       1,
			Date:        3,
			Evaluator:   4,
			Product:     7,
			Etiquette:   8,
			Solving:     9,
			Upsell:      10,
			Promo:       11,
			Capture:     12,
			Positive:    13,
			Improvement: 14,
			Rating:      16,
		},
		Metrics: MetricsLayout{
			Name:           0,
			AHT:            3,
			ResolutionRate: 6,
			Date:           10,
		},
	}
}

// LayoutsFromEnv returns DefaultLayouts with the drift-prone evaluation
// columns overridable via EVAL_COL_* environment variables.
func LayoutsFromEnv() Layouts {
	l := DefaultLayouts()
	l.Evaluation.Date = getEnvInt("EVAL_COL_DATE", l.Evaluation.Date)
	l.Evaluation.Evaluator = getEnvInt("EVAL_COL_EVALUATOR", l.Evaluation.Evaluator)
	l.Evaluation.Product = getEnvInt("EVAL_COL_PRODUCT", l.Evaluation.Product)
	l.Evaluation.Etiquette = getEnvInt("EVAL_COL_ETIQUETTE", l.Evaluation.Etiquette)
	l.Evaluation.Solving = getEnvInt("EVAL_COL_SOLVING", l.Evaluation.Solving)
	l.Evaluation.Upsell = getEnvInt("EVAL_COL_UPSELL", l.Evaluation.Upsell)
	l.Evaluation.Promo = getEnvInt("EVAL_COL_PROMO", l.Evaluation.Promo)
	l.Evaluation.Capture = getEnvInt("EVAL_COL_CAPTURE", l.Evaluation.Capture)
	l.Evaluation.Positive = getEnvInt("EVAL_COL_POSITIVE", l.Evaluation.Positive)
	l.Evaluation.Improvement = getEnvInt("EVAL_COL_IMPROVEMENT", l.Evaluation.Improvement)
	l.Evaluation.Rating = getEnvInt("EVAL_COL_RATING", l.Evaluation.Rating)
	return l
}

// MaxIndex returns the highest column index the layout reads
func (l ActivityLayout) MaxIndex() int {
	return maxInt(l.Name, l.Date, l.Answered, l.Abandoned, l.Transactions)
}

// MaxIndex returns the highest column index the layout reads
func (l EvaluationLayout) MaxIndex() int {
	return maxInt(l.Name, l.Email, l.Date, l.Evaluator,
		l.Product, l.Etiquette, l.Solving, l.Upsell, l.Promo, l.Capture,
		l.Positive, l.Improvement, l.Rating)
}

// MaxIndex returns the highest column index the layout reads
func (l MetricsLayout) MaxIndex() int {
	return maxInt(l.Name, l.AHT, l.ResolutionRate, l.Date)
}

// ValidateHeader checks that the header row is wide enough for every
// column the layout reads, so schema drift fails the pass with a clear
// diagnostic instead of silently misassigning fields.
func ValidateHeader(tab string, header []string, maxIndex int) error {
	if len(header) <= maxIndex {
		return fmt.Errorf("tab %q: header has %d columns, layout reads index %d", tab, len(header), maxIndex)
	}
	return nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}

func maxInt(vals ...int) int {
	m := 0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
