package matching

// categorySynonyms maps a requested service category to keywords that may
// appear in a worker's free-text skill tags. Lookup keys are lower case.
var categorySynonyms = map[string][]string{
	"plumbing":       {"pipe", "leak", "drain", "faucet", "water heater", "toilet"},
	"electrical":     {"wiring", "electric", "outlet", "panel", "lighting", "breaker"},
	"hvac":           {"heating", "cooling", "air conditioning", "furnace", "ac", "ventilation"},
	"house cleaning": {"clean", "maid", "housekeeping", "janitorial"},
	"carpet cleaning": {"carpet", "steam", "upholstery", "clean"},
	"painting":       {"paint", "drywall", "interior", "exterior"},
	"carpentry":      {"wood", "cabinet", "framing", "trim", "deck"},
	"landscaping":    {"lawn", "garden", "yard", "mowing", "tree"},
	"roofing":        {"roof", "shingle", "gutter"},
	"appliance repair": {"appliance", "refrigerator", "washer", "dryer", "dishwasher", "oven"},
	"pest control":   {"pest", "exterminator", "termite", "rodent"},
	"handyman":       {"repair", "general", "maintenance", "fix"},
	"locksmith":      {"lock", "key", "door"},
	"moving":         {"mover", "hauling", "furniture"},
}

// synonymsFor returns the keyword list for a category, or nil when the
// category has no entry in the table.
func synonymsFor(category string) []string {
	return categorySynonyms[category]
}
