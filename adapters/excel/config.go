package excel

// ExcelConfig holds configuration for a spreadsheet data source
type ExcelConfig struct {
	FilePath string `json:"file_path"`
	// Sheet names the worksheet to read; empty means the first sheet
	Sheet string `json:"sheet,omitempty"`
	// IDHeaders are header names recognised as the run identifier column.
	// When none matches, the first column is the identifier.
	IDHeaders []string `json:"id_headers"`
	// DateLayouts parse run identifiers into an order key. Identifiers that
	// are not all dates are ordered by row position.
	DateLayouts []string `json:"date_layouts"`
}

// DefaultExcelConfig returns the defaults used for QC run and baseline sheets
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		IDHeaders: []string{"Ngày/Lần", "Run", "Ngày", "Date"},
		DateLayouts: []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			"2006-01-02 15:04",
			"02/01/2006",
			"02/01/2006 15:04",
		},
	}
}
