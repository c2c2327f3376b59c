package gamemath

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Paytable is the raw symbol -> count -> payout table of a definition. It
// keeps the order symbols were written in, which decides line ties.
type Paytable struct {
	Order   []string
	Entries map[string]map[string]any
}

// Set adds or replaces the entry for sym, appending it to the order.
func (p *Paytable) Set(sym string, pays map[string]any) {
	if p.Entries == nil {
		p.Entries = make(map[string]map[string]any)
	}
	if _, ok := p.Entries[sym]; !ok {
		p.Order = append(p.Order, sym)
	}
	p.Entries[sym] = pays
}

func (p *Paytable) Len() int { return len(p.Order) }

func (p *Paytable) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = Paytable{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("paytable: expected object")
	}
	out := Paytable{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		sym, ok := tok.(string)
		if !ok {
			return fmt.Errorf("paytable: expected symbol key")
		}
		var pays map[string]any
		if err := dec.Decode(&pays); err != nil {
			return fmt.Errorf("paytable %s: %w", sym, err)
		}
		out.Set(sym, pays)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

func (p Paytable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sym := range p.Order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(sym)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Entries[sym])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Paytable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("paytable: line %d: expected mapping", node.Line)
	}
	out := Paytable{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		sym := node.Content[i].Value
		var pays map[string]any
		if err := node.Content[i+1].Decode(&pays); err != nil {
			return fmt.Errorf("paytable %s: %w", sym, err)
		}
		out.Set(sym, pays)
	}
	*p = out
	return nil
}

func (p Paytable) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, sym := range p.Order {
		var v yaml.Node
		if err := v.Encode(p.Entries[sym]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: sym}, &v)
	}
	return node, nil
}
