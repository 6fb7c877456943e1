package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

// Count is a value with its number of occurrences.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Analytics is the aggregate view of a card set.
type Analytics struct {
	Total       int
	WithEmail   int
	WithPhone   int
	WithCompany int
	WithWebsite int
	WithCountry int
	// WithResolvedCountry excludes UNKNOWN.
	WithResolvedCountry int

	TopCompanies []Count
	Countries    []Count

	EmailOnly int
	PhoneOnly int
	Both      int
	Neither   int
}

// counter tallies values and remembers first appearance for tie-breaks.
type counter struct {
	order []string
	n     map[string]int
}

func newCounter() *counter { return &counter{n: map[string]int{}} }

func (c *counter) add(v string) {
	if _, ok := c.n[v]; !ok {
		c.order = append(c.order, v)
	}
	c.n[v]++
}

// top returns the most common values, ties in first-seen order. limit <= 0 returns all.
func (c *counter) top(limit int) []Count {
	out := make([]Count, 0, len(c.order))
	for _, v := range c.order {
		out = append(out, Count{Value: v, Count: c.n[v]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Analyze computes every metric in one pass over cards. UNKNOWN is a country
// like any other in the distribution; only empty codes are left out.
func Analyze(cards []*entity.Card, topCompanies int) Analytics {
	var a Analytics
	companies, countries := newCounter(), newCounter()
	for _, c := range cards {
		a.Total++
		email := strings.TrimSpace(c.Email) != ""
		phone := strings.TrimSpace(c.Phone) != ""
		if email {
			a.WithEmail++
		}
		if phone {
			a.WithPhone++
		}
		if company := strings.TrimSpace(c.Company); company != "" {
			a.WithCompany++
			companies.add(company)
		}
		if strings.TrimSpace(c.Website) != "" {
			a.WithWebsite++
		}
		if code := strings.TrimSpace(c.Country); code != "" {
			a.WithCountry++
			countries.add(code)
			if code != constants.UnknownCountry {
				a.WithResolvedCountry++
			}
		}
		switch {
		case email && phone:
			a.Both++
		case email:
			a.EmailOnly++
		case phone:
			a.PhoneOnly++
		default:
			a.Neither++
		}
	}
	a.TopCompanies = companies.top(topCompanies)
	a.Countries = countries.top(0)
	return a
}

// Percent formats n/d as "12.5%", or "0%" when d is zero.
func Percent(n, d int) string {
	if d == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(d)*100)
}

// Sheets renders the four analytics sheets.
func (a Analytics) Sheets() []Sheet {
	summary := Sheet{
		Name:    "Analytics Summary",
		Title:   "Analytics Summary",
		Headers: []string{"Metric", "Value"},
		Widths:  []float64{28, 14},
		Rows: [][]any{
			{"Total Cards Processed", a.Total},
			{"Cards with Email", a.WithEmail},
			{"Cards with Phone", a.WithPhone},
			{"Cards with Company", a.WithCompany},
			{"Cards with Website", a.WithWebsite},
			{"Cards with Country", a.WithCountry},
			{"Email Coverage", Percent(a.WithEmail, a.Total)},
			{"Phone Coverage", Percent(a.WithPhone, a.Total)},
			{"Company Coverage", Percent(a.WithCompany, a.Total)},
			{"Website Coverage", Percent(a.WithWebsite, a.Total)},
			{"Country Coverage", Percent(a.WithCountry, a.Total)},
			{"Cards with Resolved Country", a.WithResolvedCountry},
			{"Resolved Country Coverage", Percent(a.WithResolvedCountry, a.Total)},
		},
	}

	companies := Sheet{
		Name:    "Company Analysis",
		Title:   "Company Analysis",
		Headers: []string{"Company", "Count"},
		Widths:  []float64{36, 10},
	}
	for _, c := range a.TopCompanies {
		companies.Rows = append(companies.Rows, []any{c.Value, c.Count})
	}

	geo := Sheet{
		Name:    "Geographic Analysis",
		Title:   "Geographic Analysis",
		Headers: []string{"Country", "Count", "Percentage"},
		Widths:  []float64{14, 10, 12},
	}
	for _, c := range a.Countries {
		geo.Rows = append(geo.Rows, []any{c.Value, c.Count, Percent(c.Count, a.WithCountry)})
	}

	contact := Sheet{
		Name:    "Contact Analysis",
		Title:   "Contact Methods Analysis",
		Headers: []string{"Contact Method", "Count", "Percentage"},
		Widths:  []float64{24, 10, 12},
		Rows: [][]any{
			{"Email Only", a.EmailOnly, Percent(a.EmailOnly, a.Total)},
			{"Phone Only", a.PhoneOnly, Percent(a.PhoneOnly, a.Total)},
			{"Both Email & Phone", a.Both, Percent(a.Both, a.Total)},
			{"No Contact Info", a.Neither, Percent(a.Neither, a.Total)},
		},
	}
	return []Sheet{summary, companies, geo, contact}
}
