package entities

// Requirement is one aggregated ingredient need across a set of production runs.
type Requirement struct {
	ItemID       ItemID
	ItemCode     ItemCode
	ItemName     string
	Unit         Unit
	RequiredQty  float64 // storage units; cook factor never applies here
	CurrentStock float64 // snapshot at aggregation time
}

// ShortageLine compares one requirement against the stock snapshot.
type ShortageLine struct {
	ItemID       ItemID
	ItemCode     ItemCode
	ItemName     string
	Unit         Unit
	RequiredQty  float64
	CurrentStock float64
	ShortQty     float64 // 0 when OK
	OK           bool
}
