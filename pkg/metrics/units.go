package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/condo-backend/pkg/errors"
)

// UnitMetrics counts unit service mutations by outcome.
type UnitMetrics struct {
	operations *prometheus.CounterVec
}

// NewUnitMetrics registers the unit operation counter on the provided registerer.
func NewUnitMetrics(reg prometheus.Registerer) *UnitMetrics {
	if reg == nil {
		return &UnitMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "unit_operations_total",
		Help: "Unit service mutations partitioned by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(operations)
	return &UnitMetrics{operations: operations}
}

// ObserveOperation records one call; the outcome is "ok" or the error code.
func (u *UnitMetrics) ObserveOperation(op string, err error) {
	if u == nil || u.operations == nil {
		return
	}
	u.operations.WithLabelValues(normalizeLabel(op), outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return strings.ToLower(string(pkgerrors.CodeInternal))
	}
	return strings.ToLower(string(typed.Code()))
}
