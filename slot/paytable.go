package slot

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// PayKey identifies one line-pay entry.
type PayKey struct {
	Symbol string
	Count  int
}

// Paytable is the lookup form of raw paytable data.
type Paytable struct {
	LinePays    map[PayKey]float64
	ScatterPays map[string]map[int]float64
	// Regular lists line-evaluated symbols in tie-break order.
	Regular []string

	roles map[string]SymbolRole
}

// ParsePaytable splits raw symbol -> count -> payout data into line pays,
// scatter pays and the regular symbol list. Keys that are not plain decimal
// counts (annotations such as "note") are ignored. order fixes the
// tie-break order of regular symbols; symbols it does not name follow in
// lexical order.
func ParsePaytable(raw map[string]map[string]any, order []string, wild string, scatters []string) (*Paytable, error) {
	p := &Paytable{
		LinePays:    make(map[PayKey]float64),
		ScatterPays: make(map[string]map[int]float64),
		roles:       make(map[string]SymbolRole),
	}
	if wild != "" {
		p.roles[wild] = RoleWild
	}
	for _, s := range scatters {
		if s == "" {
			return nil, configErr("scatters", "empty scatter symbol")
		}
		if s == wild {
			return nil, configErr("scatters", "%q is both wild and scatter", s)
		}
		if p.roles[s] == RoleScatter {
			return nil, configErr("scatters", "%q listed twice", s)
		}
		p.roles[s] = RoleScatter
	}

	for _, sym := range symbolOrder(raw, order) {
		field := "paytable." + sym
		role := p.Role(sym)
		for key, v := range raw[sym] {
			if !isCount(key) {
				continue
			}
			n, err := strconv.Atoi(key)
			if err != nil || n < 1 {
				return nil, configErr(field, "invalid count %q", key)
			}
			pay, ok := payoutValue(v)
			if !ok {
				return nil, configErr(field, "payout for %d is not a number", n)
			}
			if pay < 0 {
				return nil, configErr(field, "negative payout %v for %d", pay, n)
			}
			switch role {
			case RoleWild:
				return nil, configErr(field, "wild symbol cannot carry pays")
			case RoleScatter:
				if p.ScatterPays[sym] == nil {
					p.ScatterPays[sym] = make(map[int]float64)
				}
				p.ScatterPays[sym][n] = pay
			default:
				p.LinePays[PayKey{Symbol: sym, Count: n}] = pay
			}
		}
		if role == RoleRegular {
			p.Regular = append(p.Regular, sym)
		}
	}
	return p, nil
}

// Role reports the role of sym. Unknown symbols are regular.
func (p *Paytable) Role(sym string) SymbolRole {
	return p.roles[sym]
}

// symbolOrder returns the paytable symbols with those named in order first.
func symbolOrder(raw map[string]map[string]any, order []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, s := range order {
		if _, ok := raw[s]; ok && !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	rest := make([]string, 0, len(raw)-len(out))
	for s := range raw {
		if !seen[s] {
			rest = append(rest, s)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func isCount(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	return true
}

func payoutValue(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
