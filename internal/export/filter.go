package export

import (
	"strings"

	"github.com/joseph-ayodele/cardscan/internal/entity"
)

// Filter selects cards for an export.
type Filter interface {
	Match(c *entity.Card) bool
}

// All matches every card.
type All struct{}

func (All) Match(*entity.Card) bool { return true }

// LabelFilter keeps cards carrying one of IDs, plus unlabeled cards when
// IncludeUnlabeled is set.
type LabelFilter struct {
	IDs              []string
	IncludeUnlabeled bool
}

func (f LabelFilter) Match(c *entity.Card) bool {
	if !c.HasLabel() {
		return f.IncludeUnlabeled
	}
	for _, id := range f.IDs {
		if id == *c.LabelID {
			return true
		}
	}
	return false
}

// CountryFilter keeps cards whose country code is in Codes.
type CountryFilter struct {
	Codes []string
}

func (f CountryFilter) Match(c *entity.Card) bool {
	for _, code := range f.Codes {
		if strings.EqualFold(strings.TrimSpace(code), c.Country) {
			return true
		}
	}
	return false
}

// Rows returns the cards f matches, keeping their order.
func Rows(cards []*entity.Card, f Filter) []*entity.Card {
	out := make([]*entity.Card, 0, len(cards))
	for _, c := range cards {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}
