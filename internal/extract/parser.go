package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/cardscan/internal/core/ocr"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

var (
	reEmail = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	// optional +country code, optional (area code), then a digit run with separators
	rePhone         = regexp.MustCompile(`(?:\+\d{1,3}[ .\-]?)?(?:\(\d{1,5}\)[ .\-]?)?\d[\d .\-]{5,13}\d`)
	reNonPhoneChars = regexp.MustCompile(`[^\d+]`)
	reCompanySuffix = regexp.MustCompile(`(?i)\b(?:ltd|limited|inc|corp|pvt|llc)\b|\bco\.`)
)

// ParseCardText applies the line heuristics to recognized card text:
// the first line is the name, email and phone are the first pattern matches in the
// whole text, and the company is the first later line carrying a company suffix or,
// failing that, the longest later line with no email or phone in it.
func ParseCardText(text string) entity.CardFields {
	lines := ocr.Lines(text)
	if len(lines) == 0 {
		return entity.CardFields{}
	}
	full := strings.Join(lines, "\n")

	out := entity.CardFields{Name: lines[0]}
	out.Email = reEmail.FindString(full)
	out.Phone = findPhone(full)
	out.Company = findCompany(lines[1:])
	return out
}

func findPhone(text string) string {
	// emails can contain digit runs, blank them out first
	text = reEmail.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
	for _, m := range rePhone.FindAllString(text, -1) {
		if p := normalizePhone(m); p != "" {
			return p
		}
	}
	return ""
}

// normalizePhone strips separators and returns "" unless the candidate has
// 7 to 10 digits, plus up to 3 country code digits when it starts with '+'.
func normalizePhone(m string) string {
	p := reNonPhoneChars.ReplaceAllString(m, "")
	digits, limit := len(strings.TrimPrefix(p, "+")), 10
	if strings.HasPrefix(p, "+") {
		limit += 3
	}
	if digits < 7 || digits > limit {
		return ""
	}
	return p
}

func hasPhone(line string) bool {
	return findPhone(line) != ""
}

func findCompany(rest []string) string {
	for _, ln := range rest {
		if reCompanySuffix.MatchString(ln) {
			return ln
		}
	}
	best := ""
	for _, ln := range rest {
		if reEmail.MatchString(ln) || hasPhone(ln) {
			continue
		}
		if len(ln) > len(best) {
			best = ln
		}
	}
	return best
}
