package export

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/logging"
	"github.com/ginjaninja78/photo-sale-ledger/internal/metrics"
	"github.com/ginjaninja78/photo-sale-ledger/internal/pricing"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
	"github.com/ginjaninja78/photo-sale-ledger/pkg/utils"
)

// Exporter writes the reports of one export run.
type Exporter struct {
	repo      ledger.Repository
	files     *utils.FileManager
	prices    *pricing.Table
	usbFolder string
	logger    *slog.Logger
	now       func() time.Time
}

// Config configures an Exporter.
type Config struct {
	Files     *utils.FileManager
	Prices    *pricing.Table
	USBFolder string
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewExporter creates an Exporter reading through repo.
func NewExporter(repo ledger.Repository, cfg Config) *Exporter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Exporter{
		repo:      repo,
		files:     cfg.Files,
		prices:    cfg.Prices,
		usbFolder: cfg.USBFolder,
		logger:    logging.OrDiscard(cfg.Logger),
		now:       cfg.Now,
	}
}

// Request selects what an export run produces.
type Request struct {
	// Kinds lists the report kinds. Empty means AllKinds.
	Kinds []string

	// Day is the YYYY-MM-DD payment date of the daily settlement. Empty
	// means today.
	Day string
}

// Run reads the ledger snapshots once and writes every requested report into
// a new run directory. A report that fails is recorded in the summary and
// does not stop the others.
//
// RETURNS:
//   - The run summary, also written to the run directory.
//   - An error if the snapshots cannot be read or no report could be written.
func (e *Exporter) Run(req Request) (utils.ExportSummary, error) {
	started := e.now()
	summary := utils.ExportSummary{RunID: uuid.NewString(), StartTime: started}

	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	for _, kind := range kinds {
		if !knownKind(kind) {
			return summary, fmt.Errorf("%w: unknown report kind %q", ledger.ErrValidation, kind)
		}
	}
	day := req.Day
	if day == "" {
		day = started.Format(record.DateLayout)
	}

	rows, err := e.repo.ReadAll()
	if err != nil && !errors.Is(err, ledger.ErrEmptyLedger) {
		return summary, err
	}
	settlements, err := e.repo.ReadSettlements()
	if err != nil {
		return summary, err
	}

	paid := PaidRows(rows)
	refs, _ := record.GroupByReference(paid)
	summary.Orders = len(refs)

	runDir, err := e.files.NewRunDir(started)
	if err != nil {
		return summary, err
	}

	for _, kind := range kinds {
		reports, err := e.write(kind, runDir, started, rows, paid, settlements, day)
		if err != nil {
			e.logger.Error("report failed", "kind", kind, "error", err)
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", kind, err))
			continue
		}
		for _, report := range reports {
			metrics.ReportsWrittenTotal.WithLabelValues(report.Kind).Inc()
			e.logger.Info("report written", "kind", report.Kind, "rows", report.Rows, "path", report.Path)
		}
		summary.Reports = append(summary.Reports, reports...)
	}

	summary.EndTime = e.now()
	if _, err := utils.WriteSummaryLog(summary, runDir); err != nil {
		e.logger.Warn("export summary not written", "error", err)
	}

	if len(summary.Reports) == 0 && len(summary.Failures) > 0 {
		return summary, fmt.Errorf("%w: no report written (%d failure(s))", ledger.ErrIO, len(summary.Failures))
	}
	return summary, nil
}

// write produces the files of one report kind.
func (e *Exporter) write(kind, dir string, now time.Time, rows, paid []record.Row, settlements []record.SettlementRecord, day string) ([]utils.ReportInfo, error) {
	path := func(name, ext string) string {
		return e.files.ReportPath(dir, name, ext, now)
	}

	switch kind {
	case KindPrinterSummary:
		lines := PrinterSummary(paid, e.usbFolder)
		p := path(kind, ".txt")
		return []utils.ReportInfo{{Kind: kind, Path: p, Rows: len(lines)}}, WritePrinterSummary(p, lines, now)

	case KindPickingByActivity:
		groups := PickingByActivity(paid, e.prices.DisplayName)
		p := path(kind, ".txt")
		return []utils.ReportInfo{{Kind: kind, Path: p, Rows: len(groups)}}, WritePickingList(p, "Picking List by Activity", groups, now)

	case KindPickingByPhoto:
		groups := PickingByPhoto(paid)
		p := path(kind, ".txt")
		return []utils.ReportInfo{{Kind: kind, Path: p, Rows: len(groups)}}, WritePickingList(p, "Picking List by Photo", groups, now)

	case KindPickingByOrder:
		groups := PickingByOrder(paid)
		p := path(kind, ".txt")
		return []utils.ReportInfo{{Kind: kind, Path: p, Rows: len(groups)}}, WritePickingList(p, "Picking List by Order", groups, now)

	case KindDistributionList:
		entries := DistributionList(rows, e.usbFolder)
		p := path(kind, ".txt")
		return []utils.ReportInfo{{Kind: kind, Path: p, Rows: len(entries)}}, WriteDistributionList(p, entries, now)

	case KindDailySettlement:
		selected, _ := DailySettlement(settlements, day)
		table := settlementTable(selected)
		csvPath, xlsxPath := path(kind, ".csv"), path(kind, ".xlsx")
		if err := WriteCSV(csvPath, table); err != nil {
			return nil, err
		}
		if err := WriteXLSX(xlsxPath, []Sheet{{Name: day, Table: table}}); err != nil {
			return nil, err
		}
		return []utils.ReportInfo{
			{Kind: kind, Path: csvPath, Rows: len(selected)},
			{Kind: kind, Path: xlsxPath, Rows: len(selected)},
		}, nil

	case KindSupplierSplit:
		split := SupplierSplit(paid, e.usbFolder)
		tableA, tableB := supplierTable(split.SupplierA), supplierTable(split.SupplierB)
		pathA, pathB := path(kind+"_a", ".csv"), path(kind+"_b", ".csv")
		xlsxPath := path(kind, ".xlsx")
		if err := WriteCSV(pathA, tableA); err != nil {
			return nil, err
		}
		if err := WriteCSV(pathB, tableB); err != nil {
			return nil, err
		}
		sheets := []Sheet{{Name: "Fournisseur A", Table: tableA}, {Name: "Fournisseur B", Table: tableB}}
		if err := WriteXLSX(xlsxPath, sheets); err != nil {
			return nil, err
		}
		return []utils.ReportInfo{
			{Kind: kind, Path: pathA, Rows: len(split.SupplierA)},
			{Kind: kind, Path: pathB, Rows: len(split.SupplierB)},
			{Kind: kind, Path: xlsxPath, Rows: len(split.SupplierA) + len(split.SupplierB)},
		}, nil
	}

	return nil, fmt.Errorf("unknown report kind %q", kind)
}

func knownKind(kind string) bool {
	for _, k := range AllKinds {
		if k == kind {
			return true
		}
	}
	return false
}
