package excel

// RawRowData represents a row of raw spreadsheet data as string key-value pairs
type RawRowData map[string]string

// ExcelData represents the complete spreadsheet dataset
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows, in sheet order
}

// Column returns the header matching name, ignoring case and surrounding space
func (d *ExcelData) Column(name string) (string, bool) {
	for _, h := range d.Headers {
		if equalHeader(h, name) {
			return h, true
		}
	}
	return "", false
}
