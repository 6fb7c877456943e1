package export

import (
	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

const timestampLayout = "2006-01-02 15:04:05"

// Column projects one field of a card into a sheet cell.
type Column struct {
	Header string
	Width  float64
	Value  func(c *entity.Card) any
}

var (
	colName        = Column{"Name", 24, func(c *entity.Card) any { return c.Name }}
	colPhone       = Column{"Phone", 18, func(c *entity.Card) any { return c.Phone }}
	colEmail       = Column{"Email", 30, func(c *entity.Card) any { return c.Email }}
	colCompany     = Column{"Company", 28, func(c *entity.Card) any { return c.Company }}
	colWebsite     = Column{"Website", 26, func(c *entity.Card) any { return c.Website }}
	colDesignation = Column{"Designation", 22, func(c *entity.Card) any { return c.Designation }}
	colCountry     = Column{"Country", 10, func(c *entity.Card) any { return c.Country }}
	colFlag        = Column{"Flag", 6, func(c *entity.Card) any { return c.Flag }}
	colLabel       = Column{"Label", 18, func(c *entity.Card) any { return c.LabelDisplay() }}
	colFilename    = Column{"Filename", 28, func(c *entity.Card) any { return c.Filename }}
	colCreatedAt   = Column{"Created At", 20, func(c *entity.Card) any { return c.CreatedAt.Format(timestampLayout) }}

	colLabelOrUnlabeled = Column{"Label", 18, func(c *entity.Card) any {
		if !c.HasLabel() || c.LabelDisplay() == "" {
			return constants.UnlabeledDisplay
		}
		return c.LabelDisplay()
	}}

	eventColumns = []Column{
		{"Event Name", 22, func(c *entity.Card) any { return c.Event.Name }},
		{"Event Description", 32, func(c *entity.Card) any { return c.Event.Description }},
		{"Event Host", 20, func(c *entity.Card) any { return c.Event.Host }},
		{"Event Date", 14, func(c *entity.Card) any { return c.Event.Date }},
		{"Event Location", 22, func(c *entity.Card) any { return c.Event.Location }},
	}
)

func withEvents(cols ...Column) []Column {
	return append(cols, eventColumns...)
}

// FullColumns is the complete export projection.
var FullColumns = withEvents(colName, colPhone, colEmail, colCompany, colWebsite, colDesignation,
	colCountry, colLabel, colFilename, colCreatedAt)

// LabelColumns is used by the label-filtered export.
var LabelColumns = withEvents(colName, colPhone, colEmail, colCompany, colWebsite, colDesignation,
	colLabelOrUnlabeled, colFilename, colCreatedAt)

// CountryColumns is used by the country-filtered export.
var CountryColumns = withEvents(colName, colPhone, colEmail, colCompany, colWebsite, colDesignation,
	colCountry, colFlag, colFilename, colCreatedAt)

// Project builds a sheet of cards under cols.
func Project(name string, cards []*entity.Card, cols []Column) Sheet {
	s := Sheet{Name: name}
	for _, col := range cols {
		s.Headers = append(s.Headers, col.Header)
		s.Widths = append(s.Widths, col.Width)
	}
	for _, c := range cards {
		row := make([]any, len(cols))
		for i, col := range cols {
			row[i] = col.Value(c)
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}
