package model

// RuleCount is the number of rules in a complete catalog
const RuleCount = 150

// Category groups rules by numeric id range
type Category string

const (
	CategoryContext  Category = "context"  // Rules 1-50
	CategoryProperty Category = "property" // Rules 51-100
	CategoryWording  Category = "wording"  // Rules 101-150
	CategoryUnknown  Category = ""
)

// Categories lists all categories in id order
var Categories = []Category{CategoryContext, CategoryProperty, CategoryWording}

// RuleDefinition is one yes/no question about a word
type RuleDefinition struct {
	ID       int      `json:"id"`
	Category Category `json:"-"`
	Question string   `json:"question"`
}

// CategoryOf derives a rule's category from its id
func CategoryOf(ruleID int) Category {
	switch {
	case ruleID >= 1 && ruleID <= 50:
		return CategoryContext
	case ruleID >= 51 && ruleID <= 100:
		return CategoryProperty
	case ruleID >= 101 && ruleID <= RuleCount:
		return CategoryWording
	default:
		return CategoryUnknown
	}
}

// Range returns the inclusive id range of the category
func (c Category) Range() (first, last int) {
	switch c {
	case CategoryContext:
		return 1, 50
	case CategoryProperty:
		return 51, 100
	case CategoryWording:
		return 101, RuleCount
	default:
		return 0, -1
	}
}

// ParseCategory maps a name to a Category, reporting whether it is known
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return CategoryUnknown, false
}

// ValidRuleID reports whether id is inside 1..RuleCount
func ValidRuleID(id int) bool {
	return id >= 1 && id <= RuleCount
}
