package explorer

import (
	"fmt"
	"strings"
	"time"
)

// OrderSpec selects how folders and files are sorted in a listing.
type OrderSpec string

const (
	OrderNameAsc  OrderSpec = "az-asc"
	OrderNameDesc OrderSpec = "az-desc"
	OrderDateAsc  OrderSpec = "date-asc"
	OrderDateDesc OrderSpec = "date-desc"
)

// DefaultOrder is used when neither the caller nor the configuration picks one.
const DefaultOrder = OrderNameAsc

// Orderable is implemented by anything the orderer can sort. SortID breaks
// ties so that every ordering is total.
type Orderable interface {
	SortName() string
	SortTime() time.Time
	SortID() string
}

// ParseOrderSpec accepts the canonical values plus a few legacy aliases
// ("az", "za", "newest", "oldest").
func ParseOrderSpec(s string) (OrderSpec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case string(OrderNameAsc), "az", "name":
		return OrderNameAsc, nil
	case string(OrderNameDesc), "za":
		return OrderNameDesc, nil
	case string(OrderDateAsc), "oldest", "date":
		return OrderDateAsc, nil
	case string(OrderDateDesc), "newest":
		return OrderDateDesc, nil
	default:
		return "", fmt.Errorf("unknown order %q (supported: az-asc, az-desc, date-asc, date-desc)", s)
	}
}

// Valid reports whether o is one of the four supported orderings.
func (o OrderSpec) Valid() bool {
	switch o {
	case OrderNameAsc, OrderNameDesc, OrderDateAsc, OrderDateDesc:
		return true
	}
	return false
}

// Descending reports whether the ordering is the mirror of its ascending variant.
func (o OrderSpec) Descending() bool {
	return o == OrderNameDesc || o == OrderDateDesc
}

// ByDate reports whether the ordering sorts on creation time.
func (o OrderSpec) ByDate() bool {
	return o == OrderDateAsc || o == OrderDateDesc
}

// Ascending returns the ascending variant with the same criterion.
func (o OrderSpec) Ascending() OrderSpec {
	switch o {
	case OrderNameDesc:
		return OrderNameAsc
	case OrderDateDesc:
		return OrderDateAsc
	}
	return o
}

// OrDefault returns o, or def when o is empty.
func (o OrderSpec) OrDefault(def OrderSpec) OrderSpec {
	if o == "" {
		return def
	}
	return o
}
