package datastore

// Query operators, a small subset of the MongoDB query language.
const (
	OpLessThan = "$lt"
	OpExists   = "$exists"
	OpOr       = "$or"
)

// Query maps field names to expected values or operator sub-queries.
// An empty query matches every record.
type Query map[string]any

// Match reports whether the record satisfies the query. Used by the memory
// and Redis stores; the MongoDB store evaluates queries server-side.
func (q Query) Match(r Record) bool {
	for key, cond := range q {
		if key == OpOr {
			if !matchOr(cond, r) {
				return false
			}
			continue
		}

		val, present := r[key]
		switch c := cond.(type) {
		case Query:
			if !matchOperators(c, val, present) {
				return false
			}
		case map[string]any:
			if !matchOperators(Query(c), val, present) {
				return false
			}
		default:
			if !present || !equalValues(val, cond) {
				return false
			}
		}
	}
	return true
}

func matchOr(cond any, r Record) bool {
	switch branches := cond.(type) {
	case []Query:
		for _, branch := range branches {
			if branch.Match(r) {
				return true
			}
		}
	case []map[string]any:
		for _, branch := range branches {
			if Query(branch).Match(r) {
				return true
			}
		}
	case []any:
		for _, raw := range branches {
			switch branch := raw.(type) {
			case Query:
				if branch.Match(r) {
					return true
				}
			case map[string]any:
				if Query(branch).Match(r) {
					return true
				}
			}
		}
	}
	return false
}

// matchOperators evaluates an operator sub-query against a single field.
// Unsupported operators never match.
func matchOperators(ops Query, val any, present bool) bool {
	for op, arg := range ops {
		switch op {
		case OpExists:
			want, _ := arg.(bool)
			if present != want {
				return false
			}
		case OpLessThan:
			if !present || !lessThan(val, arg) {
				return false
			}
		default:
			return false
		}
	}
	return true
}
