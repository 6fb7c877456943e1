// Package country maps free text (company names, addresses, explicit country names)
// to an ISO country code and its flag glyph.
package country

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/cardscan/constants"
)

// Pattern is one row of the resolution table. Patterns are lowercase.
type Pattern struct {
	Match string
	Code  string
	Flag  string
	// Word restricts the match to whole words, for tokens short enough to
	// appear inside unrelated names.
	Word bool
}

// Info describes a resolvable country.
type Info struct {
	Code string `json:"code"`
	Flag string `json:"flag"`
	Name string `json:"name"`
}

// Rows are evaluated top to bottom and the first substring hit wins.
// The generic business words at the bottom are deliberately broad and will
// claim any text that mentions them.
var patterns = []Pattern{
	row("india", "IN"),
	row("bharat", "IN"),
	row("pvt ltd", "IN"),
	row("pvt. ltd", "IN"),
	row("private limited", "IN"),
	row("mumbai", "IN"),
	row("new delhi", "IN"),
	row("delhi", "IN"),
	row("bangalore", "IN"),
	row("bengaluru", "IN"),
	row("chennai", "IN"),
	row("hyderabad", "IN"),
	word("pune", "IN"),
	row("kolkata", "IN"),
	row("united states", "US"),
	word("usa", "US"),
	row("u.s.a", "US"),
	row("america", "US"),
	row("new york", "US"),
	row("california", "US"),
	row("texas", "US"),
	row("united kingdom", "GB"),
	row("england", "GB"),
	row("britain", "GB"),
	row("london", "GB"),
	row("scotland", "GB"),
	row("germany", "DE"),
	row("deutschland", "DE"),
	row("gmbh", "DE"),
	row("berlin", "DE"),
	row("munich", "DE"),
	row("france", "FR"),
	word("paris", "FR"),
	word("sarl", "FR"),
	row("japan", "JP"),
	row("tokyo", "JP"),
	row("kabushiki", "JP"),
	row("china", "CN"),
	row("beijing", "CN"),
	row("shanghai", "CN"),
	row("shenzhen", "CN"),
	row("singapore", "SG"),
	row("pte ltd", "SG"),
	row("pte. ltd", "SG"),
	row("australia", "AU"),
	row("sydney", "AU"),
	row("melbourne", "AU"),
	row("pty ltd", "AU"),
	row("canada", "CA"),
	row("toronto", "CA"),
	row("vancouver", "CA"),
	row("united arab emirates", "AE"),
	row("emirates", "AE"),
	row("dubai", "AE"),
	row("abu dhabi", "AE"),
	row("saudi", "SA"),
	row("riyadh", "SA"),
	row("netherlands", "NL"),
	row("amsterdam", "NL"),
	row("switzerland", "CH"),
	row("zurich", "CH"),
	row("geneva", "CH"),
	row("italy", "IT"),
	row("milan", "IT"),
	row("spain", "ES"),
	row("madrid", "ES"),
	row("barcelona", "ES"),
	row("brazil", "BR"),
	row("são paulo", "BR"),
	row("sao paulo", "BR"),
	word("ltda", "BR"),
	row("mexico", "MX"),
	row("south korea", "KR"),
	row("korea", "KR"),
	row("seoul", "KR"),
	row("sri lanka", "LK"),
	row("colombo", "LK"),
	row("nepal", "NP"),
	row("kathmandu", "NP"),
	row("bangladesh", "BD"),
	row("dhaka", "BD"),
	row("pakistan", "PK"),
	row("karachi", "PK"),
	row("malaysia", "MY"),
	row("sdn bhd", "MY"),
	row("kuala lumpur", "MY"),
	row("indonesia", "ID"),
	row("jakarta", "ID"),
	row("south africa", "ZA"),
	row("johannesburg", "ZA"),
	row("ireland", "IE"),
	row("dublin", "IE"),
	row("sweden", "SE"),
	row("stockholm", "SE"),
	row("israel", "IL"),
	row("tel aviv", "IL"),
	row("technologies", "IN"),
	row("tech", "IN"),
	row("solutions", "IN"),
	row("infotech", "IN"),
	row("company", "US"),
	row("corporation", "US"),
	row("corp", "US"),
	row("llc", "US"),
	row("inc.", "US"),
	row("limited", "GB"),
}

var names = map[string]string{
	"IN": "India",
	"US": "United States",
	"GB": "United Kingdom",
	"DE": "Germany",
	"FR": "France",
	"JP": "Japan",
	"CN": "China",
	"SG": "Singapore",
	"AU": "Australia",
	"CA": "Canada",
	"AE": "United Arab Emirates",
	"SA": "Saudi Arabia",
	"NL": "Netherlands",
	"CH": "Switzerland",
	"IT": "Italy",
	"ES": "Spain",
	"BR": "Brazil",
	"MX": "Mexico",
	"KR": "South Korea",
	"LK": "Sri Lanka",
	"NP": "Nepal",
	"BD": "Bangladesh",
	"PK": "Pakistan",
	"MY": "Malaysia",
	"ID": "Indonesia",
	"ZA": "South Africa",
	"IE": "Ireland",
	"SE": "Sweden",
	"IL": "Israel",
}

func row(match, code string) Pattern {
	return Pattern{Match: match, Code: code, Flag: FlagFor(code)}
}

func word(match, code string) Pattern {
	p := row(match, code)
	p.Word = true
	return p
}

func (p Pattern) matches(s string) bool {
	if !p.Word {
		return strings.Contains(s, p.Match)
	}
	for i := 0; ; {
		j := strings.Index(s[i:], p.Match)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(p.Match)
		if !alnumBefore(s, start) && !alnumAfter(s, end) {
			return true
		}
		i = start + 1
	}
}

func alnumBefore(s string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return i > 0 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func alnumAfter(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return i < len(s) && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// FlagFor builds the regional-indicator flag for a two-letter code.
// Anything else yields the globe glyph.
func FlagFor(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return constants.GlobeFlag
	}
	return string([]rune{
		rune(0x1F1E6 + int(code[0]-'A')),
		rune(0x1F1E6 + int(code[1]-'A')),
	})
}

// Resolve returns the code and flag of the first pattern contained in s.
func Resolve(s string) (string, string) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return constants.UnknownCountry, constants.GlobeFlag
	}
	for _, p := range patterns {
		if p.matches(s) {
			return p.Code, p.Flag
		}
	}
	return constants.UnknownCountry, constants.GlobeFlag
}

// Patterns returns a copy of the resolution table in evaluation order.
func Patterns() []Pattern {
	out := make([]Pattern, len(patterns))
	copy(out, patterns)
	return out
}

// Countries lists each resolvable country once, in table order.
func Countries() []Info {
	seen := make(map[string]struct{}, len(names))
	out := make([]Info, 0, len(names))
	for _, p := range patterns {
		if _, ok := seen[p.Code]; ok {
			continue
		}
		seen[p.Code] = struct{}{}
		out = append(out, Info{Code: p.Code, Flag: p.Flag, Name: Name(p.Code)})
	}
	return out
}

// Name returns the display name for code, or the code itself when unknown.
func Name(code string) string {
	if n, ok := names[code]; ok {
		return n
	}
	return code
}

// NeedsBackfill reports whether a stored country/flag pair should be re-resolved.
func NeedsBackfill(code, flag string) bool {
	code = strings.TrimSpace(code)
	return code == "" || code == constants.UnknownCountry || strings.TrimSpace(flag) == ""
}
