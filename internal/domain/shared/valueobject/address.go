package valueobject

import (
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Review reasons attached to addresses that could not be fully standardized
const (
	ReviewUnknownCountry     = "unknown_country"
	ReviewMalformedPostal    = "malformed_postal_code"
	ReviewMissingStreetLines = "missing_street_lines"
)

// Address is a value object representing a standardized postal address.
// It is immutable - all operations return new Address instances
type Address struct {
	line1         string
	line2         string
	city          string
	stateProvince string
	postalCode    string
	countryCode   string
	countryName   string
	reviewReasons []string
}

// AddressInput carries raw address cells as they appear in the source sheet
type AddressInput struct {
	Line1         string
	Line2         string
	City          string
	StateProvince string
	PostalCode    string
	Country       string
}

type countryRule struct {
	code   string
	name   string
	postal func(string) (string, bool)
}

var (
	usZipPattern    = regexp.MustCompile(`^\d{5}(\d{4})?$`)
	caPostalPattern = regexp.MustCompile(`^[A-Z]\d[A-Z]\d[A-Z]\d$`)
	gbPostalPattern = regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\d[A-Z]{2}$`)
	fiveDigits      = regexp.MustCompile(`^\d{5}$`)
	fourDigits      = regexp.MustCompile(`^\d{4}$`)

	upperCaser = cases.Upper(language.Und)
)

func compactPostal(s string) string {
	return upperCaser.String(strings.NewReplacer(" ", "", "-", "").Replace(s))
}

func formatUSPostal(s string) (string, bool) {
	c := compactPostal(s)
	if !usZipPattern.MatchString(c) {
		return upperCaser.String(s), false
	}
	if len(c) == 9 {
		return c[:5] + "-" + c[5:], true
	}
	return c, true
}

func formatCAPostal(s string) (string, bool) {
	c := compactPostal(s)
	if !caPostalPattern.MatchString(c) {
		return upperCaser.String(s), false
	}
	return c[:3] + " " + c[3:], true
}

func formatGBPostal(s string) (string, bool) {
	c := compactPostal(s)
	if !gbPostalPattern.MatchString(c) {
		return upperCaser.String(s), false
	}
	return c[:len(c)-3] + " " + c[len(c)-3:], true
}

func digitsPostal(pattern *regexp.Regexp) func(string) (string, bool) {
	return func(s string) (string, bool) {
		c := compactPostal(s)
		if !pattern.MatchString(c) {
			return upperCaser.String(s), false
		}
		return c, true
	}
}

var countryRules = map[string]countryRule{
	"US": {code: "US", name: "United States", postal: formatUSPostal},
	"CA": {code: "CA", name: "Canada", postal: formatCAPostal},
	"GB": {code: "GB", name: "United Kingdom", postal: formatGBPostal},
	"DE": {code: "DE", name: "Germany", postal: digitsPostal(fiveDigits)},
	"FR": {code: "FR", name: "France", postal: digitsPostal(fiveDigits)},
	"AU": {code: "AU", name: "Australia", postal: digitsPostal(fourDigits)},
}

var countryAliases = map[string]string{
	"us":                       "US",
	"usa":                      "US",
	"united states":            "US",
	"united states of america": "US",
	"ca":                       "CA",
	"canada":                   "CA",
	"gb":                       "GB",
	"uk":                       "GB",
	"united kingdom":           "GB",
	"great britain":            "GB",
	"de":                       "DE",
	"germany":                  "DE",
	"deutschland":              "DE",
	"fr":                       "FR",
	"france":                   "FR",
	"au":                       "AU",
	"australia":                "AU",
}

// LookupCountry maps a country name or ISO code to its ISO 3166 alpha-2 code.
func LookupCountry(country string) (string, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(country), " "))
	code, ok := countryAliases[key]
	return code, ok
}

// StandardizeAddress applies the country-specific formatting rules to a raw
// address. Addresses that cannot be standardized are returned as given and
// flagged for review instead of failing.
func StandardizeAddress(in AddressInput) Address {
	addr := Address{
		line1:         collapse(in.Line1),
		line2:         collapse(in.Line2),
		city:          collapse(in.City),
		stateProvince: collapse(in.StateProvince),
		postalCode:    collapse(in.PostalCode),
		countryName:   collapse(in.Country),
	}

	if addr.line1 == "" && addr.line2 != "" {
		addr.line1, addr.line2 = addr.line2, ""
	}
	if strings.EqualFold(addr.line1, addr.line2) {
		addr.line2 = ""
	}
	if addr.line1 == "" {
		addr.reviewReasons = append(addr.reviewReasons, ReviewMissingStreetLines)
	}

	code, ok := LookupCountry(addr.countryName)
	if !ok {
		if addr.countryName != "" || addr.postalCode != "" {
			addr.reviewReasons = append(addr.reviewReasons, ReviewUnknownCountry)
		}
		return addr
	}

	rule := countryRules[code]
	addr.countryCode = rule.code
	addr.countryName = rule.name
	if addr.postalCode != "" {
		formatted, valid := rule.postal(addr.postalCode)
		addr.postalCode = formatted
		if !valid {
			addr.reviewReasons = append(addr.reviewReasons, ReviewMalformedPostal)
		}
	}
	return addr
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Line1 returns the first street line
func (a Address) Line1() string {
	return a.line1
}

// Line2 returns the second street line
func (a Address) Line2() string {
	return a.line2
}

// City returns the city
func (a Address) City() string {
	return a.city
}

// StateProvince returns the state or province name
func (a Address) StateProvince() string {
	return a.stateProvince
}

// PostalCode returns the formatted postal code
func (a Address) PostalCode() string {
	return a.postalCode
}

// CountryCode returns the ISO 3166 alpha-2 code, empty when unmapped
func (a Address) CountryCode() string {
	return a.countryCode
}

// CountryName returns the canonical country name
func (a Address) CountryName() string {
	return a.countryName
}

// NeedsReview reports whether standardization left anything unresolved
func (a Address) NeedsReview() bool {
	return len(a.reviewReasons) > 0
}

// ReviewReasons returns a copy of the review reasons
func (a Address) ReviewReasons() []string {
	out := make([]string, len(a.reviewReasons))
	copy(out, a.reviewReasons)
	return out
}

// IsEmpty returns true if no address part is set
func (a Address) IsEmpty() bool {
	return a.line1 == "" && a.line2 == "" && a.city == "" && a.postalCode == "" && a.countryName == ""
}

// Merge fills blank parts of a from other and returns the result.
func (a Address) Merge(other Address) Address {
	if a.IsEmpty() {
		return other
	}
	out := a
	if out.line2 == "" {
		out.line2 = other.line2
	}
	if out.city == "" {
		out.city = other.city
	}
	if out.stateProvince == "" {
		out.stateProvince = other.stateProvince
	}
	if out.postalCode == "" {
		out.postalCode = other.postalCode
	}
	if out.countryCode == "" && other.countryCode != "" {
		out.countryCode = other.countryCode
		out.countryName = other.countryName
	}
	return out
}

// FullAddress returns the address in single-line form
func (a Address) FullAddress() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.line1, a.line2, a.city, a.stateProvince, a.postalCode, a.countryName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// String returns the full address
func (a Address) String() string {
	return a.FullAddress()
}

// Equals returns true if both addresses are equal
func (a Address) Equals(other Address) bool {
	return a.line1 == other.line1 &&
		a.line2 == other.line2 &&
		a.city == other.city &&
		a.stateProvince == other.stateProvince &&
		a.postalCode == other.postalCode &&
		a.countryCode == other.countryCode
}

// addressJSON is the JSON representation of Address
type addressJSON struct {
	Line1         string   `json:"line1,omitempty"`
	Line2         string   `json:"line2,omitempty"`
	City          string   `json:"city,omitempty"`
	StateProvince string   `json:"state_province,omitempty"`
	PostalCode    string   `json:"postal_code,omitempty"`
	CountryCode   string   `json:"country_code,omitempty"`
	CountryName   string   `json:"country_name,omitempty"`
	ReviewReasons []string `json:"review_reasons,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{
		Line1:         a.line1,
		Line2:         a.line2,
		City:          a.city,
		StateProvince: a.stateProvince,
		PostalCode:    a.postalCode,
		CountryCode:   a.countryCode,
		CountryName:   a.countryName,
		ReviewReasons: a.reviewReasons,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Address) UnmarshalJSON(data []byte) error {
	var j addressJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*a = Address{
		line1:         j.Line1,
		line2:         j.Line2,
		city:          j.City,
		stateProvince: j.StateProvince,
		postalCode:    j.PostalCode,
		countryCode:   j.CountryCode,
		countryName:   j.CountryName,
		reviewReasons: j.ReviewReasons,
	}
	return nil
}

// RestoreAddress rebuilds an Address from persisted columns without
// re-running standardization.
func RestoreAddress(line1, line2, city, stateProvince, postalCode, countryCode, countryName string, needsReview bool) Address {
	a := Address{
		line1:         line1,
		line2:         line2,
		city:          city,
		stateProvince: stateProvince,
		postalCode:    postalCode,
		countryCode:   countryCode,
		countryName:   countryName,
	}
	if needsReview {
		a.reviewReasons = []string{"restored"}
	}
	return a
}
