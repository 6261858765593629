package sampler

import (
	"fmt"
	"math/rand/v2"
)

// BuiltinProvider is the small, concrete RealisticProvider shipped with
// this module. A full registry of realistic generators is explicitly out
// of scope per spec.md §4.4; this provider covers the examples the spec
// names (email, first_name, last_name, phone, city, address, isbn) so the
// fuzzy-matching and type-bound-wrapping logic has something real to
// exercise end to end.
type BuiltinProvider struct{}

var firstNames = []string{"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda", "William", "Elizabeth"}
var lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
var cities = []string{"Springfield", "Riverside", "Franklin", "Greenville", "Bristol", "Clinton", "Salem", "Fairview", "Madison", "Georgetown"}
var streets = []string{"Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Elm St", "Pine Rd", "Washington Ave", "Park Blvd"}

func (BuiltinProvider) Names() []string {
	return []string{"email", "first_name", "last_name", "full_name", "phone", "city", "address", "isbn"}
}

func (BuiltinProvider) Generate(name string, r *rand.Rand) string {
	switch name {
	case "email":
		return fmt.Sprintf("%s.%s%d@example.com", lower(pick(firstNames, r)), lower(pick(lastNames, r)), r.IntN(1000))
	case "first_name":
		return pick(firstNames, r)
	case "last_name":
		return pick(lastNames, r)
	case "full_name":
		return pick(firstNames, r) + " " + pick(lastNames, r)
	case "phone":
		return fmt.Sprintf("+1-%03d-%03d-%04d", 200+r.IntN(800), r.IntN(1000), r.IntN(10000))
	case "city":
		return pick(cities, r)
	case "address":
		return fmt.Sprintf("%d %s", 1+r.IntN(9998), pick(streets, r))
	case "isbn":
		return fmt.Sprintf("%013d", r.Int64N(10000000000000))
	default:
		return ""
	}
}

func pick(xs []string, r *rand.Rand) string { return xs[r.IntN(len(xs))] }

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
