package partner

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/erp/salesetl/internal/domain/shared"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// NormalizeName folds case, strips diacritics and punctuation and collapses
// whitespace so that "  Café  Rouge, Inc." and "cafe rouge inc" compare equal.
func NormalizeName(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(folder.String(b.String())), " ")
}

// NormalizeAccountNumber strips separators and upper-cases an account number
func NormalizeAccountNumber(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", " ", "", ".", "").Replace(s)
}

// MatchKey returns the key used to detect that two variants describe the
// same real-world customer: the account number when present, otherwise the
// normalized name and address. Variants with neither only match themselves.
func (v CompanyVariant) MatchKey() string {
	if acct := NormalizeAccountNumber(v.AccountNumber); acct != "" {
		return "acct:" + acct
	}
	name := NormalizeName(v.DisplayName)
	street := NormalizeName(v.Address.Line1())
	if name != "" && street != "" {
		return "addr:" + name + "|" + street + "|" + NormalizeName(v.Address.PostalCode()) + "|" + v.Address.CountryCode()
	}
	return "cust:" + strconv.Itoa(v.CustomerID)
}

// ConsolidationResult holds the consolidated companies in first-seen order
// and the customer ids that were folded into another company
type ConsolidationResult struct {
	Companies []*Company
	// Aliases maps a merged-away customer id to the surviving customer id
	Aliases map[int]int
	// Merges counts variants folded into an earlier company
	Merges int
}

// Consolidate folds customer variants into companies. A variant whose match
// key or customer id was already seen is merged into the earlier company;
// earlier values win and the later variant only fills blanks. The function
// is deterministic for a given input order.
func Consolidate(variants []CompanyVariant) ConsolidationResult {
	result := ConsolidationResult{
		Companies: make([]*Company, 0, len(variants)),
		Aliases:   make(map[int]int),
	}
	byKey := make(map[string]*Company, len(variants))
	byCustomer := make(map[int]*Company, len(variants))

	for _, v := range variants {
		key := v.MatchKey()
		existing, ok := byCustomer[v.CustomerID]
		if !ok {
			existing, ok = byKey[key]
		}
		if ok {
			mergeVariant(existing, v)
			if v.CustomerID != existing.CustomerID {
				result.Aliases[v.CustomerID] = existing.CustomerID
			}
			byCustomer[v.CustomerID] = existing
			byKey[key] = existing
			result.Merges++
			continue
		}

		c := newCompany(v)
		result.Companies = append(result.Companies, c)
		byKey[key] = c
		byCustomer[v.CustomerID] = c
	}
	return result
}

func newCompany(v CompanyVariant) *Company {
	c := &Company{
		BaseEntity:    shared.NewBaseEntity(),
		CustomerID:    v.CustomerID,
		AccountNumber: strings.TrimSpace(v.AccountNumber),
		DisplayName:   strings.TrimSpace(v.DisplayName),
		CompanyType:   v.Origin,
		Address:       v.Address,
		NeedsReview:   v.NeedsReview || v.Address.NeedsReview(),
	}
	if v.TerritoryID != nil {
		id := *v.TerritoryID
		c.TerritoryID = &id
	}
	return c
}

func mergeVariant(c *Company, v CompanyVariant) {
	if c.AccountNumber == "" {
		c.AccountNumber = strings.TrimSpace(v.AccountNumber)
	}
	if c.DisplayName == "" {
		c.DisplayName = strings.TrimSpace(v.DisplayName)
	}
	if !c.CompanyType.IsValid() {
		c.CompanyType = v.Origin
	}
	c.Address = c.Address.Merge(v.Address)
	if c.TerritoryID == nil && v.TerritoryID != nil {
		id := *v.TerritoryID
		c.TerritoryID = &id
	}
	c.NeedsReview = c.NeedsReview || v.NeedsReview
	if v.CustomerID != c.CustomerID && !containsInt(c.MergedCustomerIDs, v.CustomerID) {
		c.MergedCustomerIDs = append(c.MergedCustomerIDs, v.CustomerID)
	}
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
