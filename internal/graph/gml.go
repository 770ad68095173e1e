package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// LoadGML reads a GML file from path. Any failure wraps ErrGraphLoad.
func LoadGML(path string) (*AdjacencyGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGraphLoad, err)
	}
	defer f.Close()

	g, err := ParseGML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// ParseGML parses a GML document. Nodes are keyed by their id attribute, as
// the original tooling does; labels are kept for display only. Unknown keys
// and nested lists (graphics, attributes) are ignored.
func ParseGML(r io.Reader) (*AdjacencyGraph, error) {
	toks, err := tokenizeGML(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGraphLoad, err)
	}

	p := &gmlParser{toks: toks}
	root, err := p.parseList(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGraphLoad, err)
	}

	var body []gmlPair
	found := false
	for _, kv := range root {
		if kv.key == "graph" && kv.value.list != nil {
			body = kv.value.list
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no graph block", ErrGraphLoad)
	}

	return buildGraph(body)
}

func buildGraph(body []gmlPair) (*AdjacencyGraph, error) {
	directed := false
	for _, kv := range body {
		if kv.key == "directed" && kv.value.list == nil {
			directed = kv.value.scalar == "1"
		}
	}

	g := New(directed)
	for _, kv := range body {
		if kv.key != "node" || kv.value.list == nil {
			continue
		}
		id, ok := kv.value.get("id")
		if !ok {
			return nil, fmt.Errorf("%w: node without id", ErrGraphLoad)
		}
		if g.HasNode(id) {
			return nil, fmt.Errorf("%w: duplicate node id %s", ErrGraphLoad, id)
		}
		g.AddNode(id)
		if label, ok := kv.value.get("label"); ok {
			g.SetLabel(id, label)
		}
	}

	for _, kv := range body {
		if kv.key != "edge" || kv.value.list == nil {
			continue
		}
		src, ok := kv.value.get("source")
		if !ok {
			return nil, fmt.Errorf("%w: edge without source", ErrGraphLoad)
		}
		tgt, ok := kv.value.get("target")
		if !ok {
			return nil, fmt.Errorf("%w: edge without target", ErrGraphLoad)
		}
		if err := g.AddEdge(src, tgt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGraphLoad, err)
		}
	}

	return g, nil
}

type gmlTokenKind int

const (
	tokKey gmlTokenKind = iota
	tokScalar
	tokOpen
	tokClose
)

type gmlToken struct {
	kind gmlTokenKind
	text string
	line int
}

type gmlValue struct {
	scalar string
	list   []gmlPair // non-nil for [ ... ] values
}

type gmlPair struct {
	key   string
	value gmlValue
}

// get returns the first scalar value stored under key.
func (v gmlValue) get(key string) (string, bool) {
	for _, kv := range v.list {
		if kv.key == key && kv.value.list == nil {
			return kv.value.scalar, true
		}
	}
	return "", false
}

func tokenizeGML(r io.Reader) ([]gmlToken, error) {
	br := bufio.NewReader(r)
	var toks []gmlToken
	line := 1
	expectKey := true

	for {
		c, _, err := br.ReadRune()
		if err == io.EOF {
			return toks, nil
		}
		if err != nil {
			return nil, err
		}

		switch {
		case c == '\n':
			line++
		case unicode.IsSpace(c):
		case c == '#':
			if _, err := br.ReadString('\n'); err != nil && err != io.EOF {
				return nil, err
			}
			line++
		case c == '[':
			toks = append(toks, gmlToken{kind: tokOpen, line: line})
			expectKey = true
		case c == ']':
			toks = append(toks, gmlToken{kind: tokClose, line: line})
			expectKey = true
		case c == '"':
			s, err := br.ReadString('"')
			if err != nil {
				return nil, fmt.Errorf("line %d: unterminated string", line)
			}
			line += strings.Count(s, "\n")
			toks = append(toks, gmlToken{kind: tokScalar, text: s[:len(s)-1], line: line})
			expectKey = true
		default:
			var b strings.Builder
			b.WriteRune(c)
			for {
				n, _, err := br.ReadRune()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, err
				}
				if unicode.IsSpace(n) || n == '[' || n == ']' || n == '"' {
					if err := br.UnreadRune(); err != nil {
						return nil, err
					}
					break
				}
				b.WriteRune(n)
			}
			kind := tokScalar
			if expectKey {
				kind = tokKey
			}
			toks = append(toks, gmlToken{kind: kind, text: b.String(), line: line})
			expectKey = !expectKey
		}
	}
}

type gmlParser struct {
	toks []gmlToken
	pos  int
}

// parseList reads key/value pairs until the matching ']' (nested) or EOF.
func (p *gmlParser) parseList(nested bool) ([]gmlPair, error) {
	pairs := make([]gmlPair, 0)
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		switch t.kind {
		case tokClose:
			if !nested {
				return nil, fmt.Errorf("line %d: unexpected ']'", t.line)
			}
			p.pos++
			return pairs, nil
		case tokKey:
		default:
			return nil, fmt.Errorf("line %d: expected key, got %q", t.line, t.text)
		}

		p.pos++
		if p.pos >= len(p.toks) {
			return nil, fmt.Errorf("line %d: key %s has no value", t.line, t.text)
		}
		v := p.toks[p.pos]
		switch v.kind {
		case tokOpen:
			p.pos++
			inner, err := p.parseList(true)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, gmlPair{key: t.text, value: gmlValue{list: inner}})
		case tokScalar:
			p.pos++
			pairs = append(pairs, gmlPair{key: t.text, value: gmlValue{scalar: v.text}})
		default:
			return nil, fmt.Errorf("line %d: key %s has no value", t.line, t.text)
		}
	}
	if nested {
		return nil, fmt.Errorf("unterminated list")
	}
	return pairs, nil
}
