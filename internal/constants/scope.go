package constants

// Scope selects which audit log an MCP tool call is written to.
type Scope string

const (
	// ScopeLocal is the audit log under the server root.
	ScopeLocal Scope = "local"

	// ScopeGlobal is the audit log under ~/.dynpop, next to the run history.
	ScopeGlobal Scope = "global"
)

// Valid returns true if the scope is a recognized value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeLocal, ScopeGlobal:
		return true
	}
	return false
}

// String returns the string representation of the scope.
func (s Scope) String() string {
	return string(s)
}
