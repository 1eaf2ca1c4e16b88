package jsonpath

// DefaultEnvironment is the environment behind the package-level
// functions: default identifiers, type checks and filter caching on,
// strict mode off.
var DefaultEnvironment = NewEnvironment()

// Compile prepares a query using the default environment.
func Compile(query string) (PathQuery, error) {
	return DefaultEnvironment.Compile(query)
}

// FindAll returns the value of every match of query in data, using the
// default environment.
func FindAll(query string, data any) ([]any, error) {
	return DefaultEnvironment.FindAll(query, data, nil)
}

// FindIter returns a lazy sequence of matches of query in data, using
// the default environment.
func FindIter(query string, data any) (MatchSeq, error) {
	return DefaultEnvironment.FindIter(query, data, nil)
}

// First returns the first match of query in data, or nil when there is
// none, using the default environment.
func First(query string, data any) (*Match, error) {
	return DefaultEnvironment.First(query, data, nil)
}
