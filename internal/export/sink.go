package export

// Sheet is one worksheet: an optional title line, a header row and data rows.
type Sheet struct {
	Name    string
	Title   string
	Headers []string
	Widths  []float64
	Rows    [][]any
}

// Sink serializes sheets into a report file.
type Sink interface {
	Write(sheets []Sheet) ([]byte, error)
	ContentType() string
	Extension() string
}
