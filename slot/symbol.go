package slot

// Symbol is an index into a Game's symbol table.
type Symbol int32

// NoSymbol is used where a game has no symbol for a role.
const NoSymbol Symbol = -1

// SymbolRole is computed once per symbol when a Game is compiled.
type SymbolRole uint8

const (
	RoleRegular SymbolRole = iota
	RoleWild
	RoleScatter
)

func (r SymbolRole) String() string {
	switch r {
	case RoleWild:
		return "wild"
	case RoleScatter:
		return "scatter"
	default:
		return "regular"
	}
}
