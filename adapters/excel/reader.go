package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"goiqc/domain/core"
	"goiqc/domain/qc"
	"goiqc/internal"
	"goiqc/internal/baseline"
	"goiqc/ports"

	"github.com/xuri/excelize/v2"
)

var readerLog = internal.DefaultLogger.With("DataReader")

// DataReader handles reading Excel and CSV files
type DataReader struct {
	config   ExcelConfig
	fileType string // "xlsx" or "csv"
}

var (
	_ ports.RunReader      = (*DataReader)(nil)
	_ ports.BaselineReader = (*DataReader)(nil)
)

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	cfg := DefaultExcelConfig()
	cfg.FilePath = filePath
	return NewDataReaderWithConfig(cfg)
}

// NewDataReaderWithConfig creates a reader with explicit sheet and header settings
func NewDataReaderWithConfig(cfg ExcelConfig) *DataReader {
	ext := strings.ToLower(filepath.Ext(cfg.FilePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{config: cfg, fileType: fileType}
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*ExcelData, error) {
	readerLog.Debug("Starting to read %s file: %s", r.fileType, r.config.FilePath)

	if _, err := os.Stat(r.config.FilePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.config.FilePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the configured sheet, or the first one
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("Excel file has no sheets: %s", r.config.FilePath)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	readerLog.Debug("Sheet %s read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 1 {
		return nil, fmt.Errorf("Excel file must have at least a header row")
	}

	return r.processRows(rows)
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	readerLog.Debug("CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 1 {
		return nil, fmt.Errorf("CSV file must have at least a header row")
	}

	return r.processRows(rows)
}

// processRows converts raw string rows into ExcelData format, dropping rows
// that are entirely blank
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	var dataRows []RawRowData
	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData)
		blank := true
		for j, cell := range rows[i] {
			if j < len(headers) {
				cell = strings.TrimSpace(cell)
				rowData[headers[j]] = cell
				if cell != "" {
					blank = false
				}
			}
		}
		if !blank {
			dataRows = append(dataRows, rowData)
		}
	}

	readerLog.Debug("%s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &ExcelData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

// DetectIDColumn returns the run identifier column: the first header matching
// a configured identifier name, otherwise the first column
func (r *DataReader) DetectIDColumn(data *ExcelData) (string, error) {
	for _, name := range r.config.IDHeaders {
		if h, ok := data.Column(name); ok {
			return h, nil
		}
	}
	if len(data.Headers) > 0 && data.Headers[0] != "" {
		return data.Headers[0], nil
	}
	return "", core.NewConfigurationError("runs", "no run identifier column")
}

// ReadRuns reads the run table. Level columns are matched by name; a level
// without a column is an error, a blank cell is a missing value.
func (r *DataReader) ReadRuns(levels []qc.ControlLevel) ([]qc.QCRun, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	return r.RunsFromData(data, levels)
}

// RunsFromData converts an already read table into runs in sheet order
func (r *DataReader) RunsFromData(data *ExcelData, levels []qc.ControlLevel) ([]qc.QCRun, error) {
	idCol, err := r.DetectIDColumn(data)
	if err != nil {
		return nil, err
	}
	columns, err := levelColumns(data, levels)
	if err != nil {
		return nil, err
	}

	orders := r.orderKeys(data, idCol)
	runs := make([]qc.QCRun, 0, len(data.Rows))
	for i, row := range data.Rows {
		label := row[idCol]
		if label == "" {
			label = strconv.Itoa(i + 1)
		}
		run := qc.QCRun{
			ID:     qc.RunID{Label: label, Order: orders[i]},
			Values: make(map[string]*float64, len(levels)),
		}
		for _, level := range levels {
			v, err := parseCell(row[columns[level.Name]])
			if err != nil {
				return nil, core.NewConfigurationError(
					"runs."+level.Name, fmt.Sprintf("run %s: %v", label, err))
			}
			run.Values[level.Name] = v
		}
		runs = append(runs, run)
	}

	readerLog.Info("Read %d runs for %d levels from %s", len(runs), len(levels), r.config.FilePath)
	return runs, nil
}

// ReadBaseline reads calibration samples, one column per level
func (r *DataReader) ReadBaseline(levels []qc.ControlLevel) (map[string][]float64, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	columns, err := levelColumns(data, levels)
	if err != nil {
		return nil, err
	}

	samples := make(map[string][]float64, len(levels))
	for _, level := range levels {
		cells := make([]string, len(data.Rows))
		for i, row := range data.Rows {
			cells[i] = row[columns[level.Name]]
		}
		values, err := baseline.ParseSamples(level.Name, cells)
		if err != nil {
			return nil, err
		}
		samples[level.Name] = values
	}

	readerLog.Info("Read baseline for %d levels from %s", len(levels), r.config.FilePath)
	return samples, nil
}

// orderKeys returns Unix seconds when every identifier is a date, otherwise
// the 1-based row position
func (r *DataReader) orderKeys(data *ExcelData, idCol string) []int64 {
	keys := make([]int64, len(data.Rows))
	allDates := len(data.Rows) > 0
	for i, row := range data.Rows {
		t, ok := r.parseDate(row[idCol])
		if !ok {
			allDates = false
			break
		}
		keys[i] = t.Unix()
	}
	if allDates {
		return keys
	}
	for i := range keys {
		keys[i] = int64(i + 1)
	}
	return keys
}

func (r *DataReader) parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range r.config.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func levelColumns(data *ExcelData, levels []qc.ControlLevel) (map[string]string, error) {
	columns := make(map[string]string, len(levels))
	for _, level := range levels {
		h, ok := data.Column(level.Name)
		if !ok {
			return nil, core.NewConfigurationError(level.Name,
				fmt.Sprintf("no column for level %s (columns: %s)", level.Name, strings.Join(data.Headers, ", ")))
		}
		columns[level.Name] = h
	}
	return columns, nil
}

// parseCell returns nil for a blank cell and the number otherwise
func parseCell(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("value %q is not numeric", cell)
	}
	return &v, nil
}

func equalHeader(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
