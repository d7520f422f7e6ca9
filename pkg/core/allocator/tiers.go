package allocator

import (
	"sort"
	"strings"

	"github.com/jakechorley/issuer-allocation/pkg/core/model"
)

// Country code sets for each allocation tier. US is handled separately.
var (
	tierOneCountries = countrySet(
		"AU", "CA", "GB", "HK", "IE", "MY", "NZ", "SG",
	)

	tierTwoCountries = countrySet(
		"AE", "AR", "AT", "AZ", "BE", "BF", "BG", "BH", "BM", "BS", "CH", "CL", "CO", "CR", "CY", "CZ",
		"DE", "DK", "EE", "ES", "FI", "FO", "FR", "GE", "GG", "GI", "GR", "HR", "HU", "ID", "IL",
		"IM", "IN", "JE", "KE", "KW", "KY", "KZ", "LI", "LT", "LU", "MA", "MC", "MN", "MO",
		"MT", "MU", "MX", "NG", "NL", "NO", "OM", "PA", "PE", "PH", "PK", "PL", "PR", "PT", "QA", "RO",
		"SA", "SE", "SK", "SN", "SV", "TG", "TH", "TN", "UA", "UY", "VG", "PG", "CI",
	)

	tierThreeCountries = countrySet(
		"BR", "CN", "EG", "IT", "RU", "TR", "TW", "ZA", "IS",
	)
)

const usCountryCode = "US"

func countrySet(codes ...string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}
	return set
}

// Classify returns the tier for a country domicile code.
// Codes are matched case-insensitively after trimming; anything unrecognised
// (including blank) is Unclassified.
func Classify(countryCode string) model.Tier {
	code := strings.ToUpper(strings.TrimSpace(countryCode))

	switch {
	case code == usCountryCode:
		return model.TierUS
	case tierOneCountries[code]:
		return model.TierOne
	case tierTwoCountries[code]:
		return model.TierTwo
	case tierThreeCountries[code]:
		return model.TierThree
	default:
		return model.TierUnclassified
	}
}

// PartitionByTier splits records into tier buckets, preserving input order within each bucket
func PartitionByTier(records []model.IssuerRecord) map[model.Tier][]model.IssuerRecord {
	buckets := make(map[model.Tier][]model.IssuerRecord, len(model.TierPriority))
	for _, record := range records {
		tier := Classify(record.CountryCode)
		buckets[tier] = append(buckets[tier], record)
	}
	return buckets
}

// TierCountries returns the sorted country codes of a tier.
// Unclassified has no fixed list and returns nil.
func TierCountries(tier model.Tier) []string {
	var set map[string]bool
	switch tier {
	case model.TierUS:
		return []string{usCountryCode}
	case model.TierOne:
		set = tierOneCountries
	case model.TierTwo:
		set = tierTwoCountries
	case model.TierThree:
		set = tierThreeCountries
	default:
		return nil
	}

	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
