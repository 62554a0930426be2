package load

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ppiankov/sprstat/internal/model"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Loader reads experiment exports into a Dataset
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a loader; a nil logger discards output
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadFile reads and parses the export at path
func (l *Loader) LoadFile(path string) (*model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return l.Parse(path, data)
}

// Parse decodes an export already in memory. The format is chosen by the
// extension of name: .xlsx/.xlsm workbooks carry every sheet, .csv files
// carry only the SPR table.
func (l *Loader) Parse(name string, data []byte) (*model.Dataset, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		return l.parseWorkbook(name, data)
	case ".csv":
		return l.parseCSV(name, data)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q (want .xlsx or .csv)", ext)
	}
}

func (l *Loader) parseWorkbook(name string, data []byte) (*model.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	l.logger.Debug("opened workbook", zap.String("path", name), zap.Strings("sheets", sheets))

	sheet := func(sheetName string, required []string) (*table, error) {
		if !slices.Contains(sheets, sheetName) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSheet, sheetName)
		}
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
		}
		return newTable(sheetName, rows, required)
	}

	ds := &model.Dataset{Source: name}

	spr, err := sheet(SheetSPR, sprColumns)
	if err != nil {
		return nil, err
	}
	if ds.Trials, err = parseTrials(spr); err != nil {
		return nil, err
	}

	// The remaining sheets are optional; their analyses are skipped when absent
	t, ok, err := l.optionalSheet(sheet, SheetRating, ratingColumns)
	if err != nil {
		return nil, err
	}
	if ok {
		if ds.Ratings, err = parseRatings(t); err != nil {
			return nil, err
		}
	}

	t, ok, err = l.optionalSheet(sheet, SheetManipulation, manipulationColumns)
	if err != nil {
		return nil, err
	}
	if ok {
		if ds.ManipulationChecks, err = parseManipulationChecks(t); err != nil {
			return nil, err
		}
	}

	t, ok, err = l.optionalSheet(sheet, SheetRecall, recallColumns)
	if err != nil {
		return nil, err
	}
	if ok {
		ds.Recalls = parseRecalls(t)
	}

	l.logger.Info("loaded workbook",
		zap.String("path", name),
		zap.Int("trials", len(ds.Trials)),
		zap.Int("ratings", len(ds.Ratings)),
		zap.Int("manipulation_checks", len(ds.ManipulationChecks)),
		zap.Int("recalls", len(ds.Recalls)))

	return ds, nil
}

func (l *Loader) optionalSheet(open func(string, []string) (*table, error), name string, required []string) (*table, bool, error) {
	t, err := open(name, required)
	if err == nil {
		return t, true, nil
	}
	if errors.Is(err, ErrMissingSheet) {
		l.logger.Warn("optional sheet not found", zap.String("sheet", name))
		return nil, false, nil
	}
	return nil, false, err
}

func (l *Loader) parseCSV(name string, data []byte) (*model.Dataset, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}

	spr, err := newTable(SheetSPR, rows, sprColumns)
	if err != nil {
		return nil, err
	}
	trials, err := parseTrials(spr)
	if err != nil {
		return nil, err
	}

	l.logger.Info("loaded csv", zap.String("path", name), zap.Int("trials", len(trials)))
	return &model.Dataset{Source: name, Trials: trials}, nil
}
