package model

type Tier string

const (
	TierUS           Tier = "US"
	TierOne          Tier = "Tier 1"
	TierTwo          Tier = "Tier 2"
	TierThree        Tier = "Tier 3"
	TierUnclassified Tier = "Unclassified"
)

// TierPriority lists the tiers in the order the allocator visits them
var TierPriority = []Tier{TierUS, TierOne, TierTwo, TierThree, TierUnclassified}

// IssuerRecord represents one issuer row from the input table
type IssuerRecord struct {
	ID          string
	Name        string
	Points      float64
	CountryCode string

	// Row is the 1-based spreadsheet row the record was read from (0 if unknown)
	Row int
}

// Assignment pairs an issuer with the team member responsible for it
type Assignment struct {
	Issuer IssuerRecord
	Member string
	Tier   Tier
}
