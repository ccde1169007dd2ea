package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector of the application. It is never served over
// HTTP; WriteTextfile dumps it for a node_exporter textfile collector.
var Registry = prometheus.NewRegistry()

var (
	// LedgerOperationsTotal counts ledger operations by name and outcome.
	LedgerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photosale_ledger_operations_total",
			Help: "Total number of ledger operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// SideLedgerRowsTotal counts rows appended to the settlement and
	// preparation side-ledgers.
	SideLedgerRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photosale_side_ledger_rows_total",
			Help: "Total number of rows appended to side-ledgers",
		},
		[]string{"ledger"},
	)

	// ReportsWrittenTotal counts generated report files by kind.
	ReportsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photosale_reports_written_total",
			Help: "Total number of report files written",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(LedgerOperationsTotal)
	Registry.MustRegister(SideLedgerRowsTotal)
	Registry.MustRegister(ReportsWrittenTotal)
}

// ObserveOperation increments the counter of a ledger operation.
func ObserveOperation(operation string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	LedgerOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// WriteTextfile writes the current metric values in the Prometheus text
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
