package gmdformat

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The YAML mapping mirrors the JSON one but runs over yaml.Node trees:
// mapping nodes preserve member order and scalar tags keep the
// int/float distinction, and unlike JSON the format can carry
// non-finite floats (.inf, -.inf, .nan).

// MarshalYAML renders a Root as a YAML document with the same shape as
// the JSON form: __WORLD_VERSION first, then type-prefixed keys.
func MarshalYAML(root *Root) ([]byte, error) {
	if root == nil || root.Data == nil {
		return nil, &TextError{Msg: "nil root"}
	}
	m := &yamlMarshaler{}

	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	doc.Content = append(doc.Content,
		yamlStringScalar(WorldVersionKey),
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(uint64(root.WorldVersion), 10)},
	)
	for _, entry := range root.Data.Entries {
		m.push(keyLabel(entry.Key))
		node, err := m.valueNode(entry.Value)
		if err != nil {
			return nil, err
		}
		m.pop()
		doc.Content = append(doc.Content, yamlStringScalar(EncodeKey(entry.Key)), node)
	}
	return yaml.Marshal(doc)
}

type yamlMarshaler struct {
	path []string
}

func (m *yamlMarshaler) push(segment string) { m.path = append(m.path, segment) }
func (m *yamlMarshaler) pop()                { m.path = m.path[:len(m.path)-1] }

func (m *yamlMarshaler) valueNode(v Value) (*yaml.Node, error) {
	switch val := v.(type) {
	case String:
		return yamlStringScalar(string(val)), nil
	case Integer:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(val), 10)}, nil
	case Float:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatYAMLFloat(float64(val))}, nil
	case Boolean:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(val))}, nil
	case Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *Table:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, entry := range val.Entries {
			m.push(keyLabel(entry.Key))
			child, err := m.valueNode(entry.Value)
			if err != nil {
				return nil, err
			}
			m.pop()
			node.Content = append(node.Content, yamlStringScalar(EncodeKey(entry.Key)), child)
		}
		return node, nil
	case *List:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range val.Items {
			m.push(strconv.Itoa(i + 1))
			child, err := m.valueNode(item)
			if err != nil {
				return nil, err
			}
			m.pop()
			node.Content = append(node.Content, child)
		}
		return node, nil
	default:
		return nil, &TextError{Path: strings.Join(m.path, "."), Msg: fmt.Sprintf("unsupported value type %T", v)}
	}
}

// yamlStringScalar builds a double-quoted string scalar. The quoting
// keeps strings like "195" or "true" from resolving to another tag on
// the way back in.
func yamlStringScalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: s}
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// UnmarshalYAML parses a YAML document back into a Root, with the same
// contract as UnmarshalJSON: __WORLD_VERSION is mandatory top-level
// metadata and every other key must carry a reserved type prefix.
func UnmarshalYAML(data []byte) (*Root, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &TextError{Msg: "document does not parse", Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, &TextError{Msg: "expected a single YAML document"}
	}
	top := doc.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, &TextError{Msg: "top-level value must be a mapping"}
	}

	u := &yamlUnmarshaler{}
	root := &Root{Data: &Table{}}
	haveVersion := false
	for i := 0; i+1 < len(top.Content); i += 2 {
		keyNode, valueNode := top.Content[i], top.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, u.textError(nil, "mapping keys must be scalars")
		}

		if keyNode.Value == WorldVersionKey {
			if valueNode.Kind != yaml.ScalarNode || valueNode.Tag != "!!int" {
				return nil, u.textError(nil, "world version must be an integer, got %s", valueNode.Value)
			}
			version, err := strconv.ParseUint(valueNode.Value, 10, 32)
			if err != nil {
				return nil, u.textError(err, "world version %s is not an unsigned 32-bit integer", valueNode.Value)
			}
			root.WorldVersion = uint32(version)
			haveVersion = true
			continue
		}

		key, err := DecodeKey(keyNode.Value)
		if err != nil {
			return nil, err
		}
		u.push(keyLabel(key))
		value, err := u.readValue(valueNode)
		if err != nil {
			return nil, err
		}
		u.pop()
		root.Data.Put(key, value)
	}

	if !haveVersion {
		return nil, ErrMetadataMissing
	}
	return root, nil
}

type yamlUnmarshaler struct {
	path []string
}

func (u *yamlUnmarshaler) readValue(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.MappingNode:
		table := &Table{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, u.textError(nil, "mapping keys must be scalars")
			}
			key, err := DecodeKey(keyNode.Value)
			if err != nil {
				return nil, err
			}
			u.push(keyLabel(key))
			value, err := u.readValue(valueNode)
			if err != nil {
				return nil, err
			}
			u.pop()
			table.Put(key, value)
		}
		return table, nil
	case yaml.SequenceNode:
		list := &List{}
		for _, item := range node.Content {
			u.push(strconv.Itoa(len(list.Items) + 1))
			value, err := u.readValue(item)
			if err != nil {
				return nil, err
			}
			u.pop()
			list.Items = append(list.Items, value)
		}
		return list, nil
	case yaml.ScalarNode:
		return u.readScalar(node)
	case yaml.AliasNode:
		return nil, u.textError(nil, "aliases are not supported")
	default:
		return nil, u.textError(nil, "unsupported node kind %d", node.Kind)
	}
}

func (u *yamlUnmarshaler) readScalar(node *yaml.Node) (Value, error) {
	switch node.Tag {
	case "!!str":
		return String(node.Value), nil
	case "!!int":
		n, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return nil, u.textError(nil, "integer literal %s overflows int64", node.Value)
			}
			return nil, u.textError(err, "integer literal %s does not parse", node.Value)
		}
		return Integer(n), nil
	case "!!float":
		f, err := parseYAMLFloat(node.Value)
		if err != nil {
			return nil, u.textError(err, "float literal %s does not parse", node.Value)
		}
		return Float(f), nil
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return nil, u.textError(err, "bool literal %s does not parse", node.Value)
		}
		return Boolean(b), nil
	case "!!null":
		return Null{}, nil
	default:
		return nil, u.textError(nil, "unsupported scalar tag %s", node.Tag)
	}
}

func parseYAMLFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	case ".nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func (u *yamlUnmarshaler) textError(cause error, format string, args ...any) error {
	return &TextError{
		Path: strings.Join(u.path, "."),
		Msg:  fmt.Sprintf(format, args...),
		Err:  cause,
	}
}

func (u *yamlUnmarshaler) push(segment string) { u.path = append(u.path, segment) }
func (u *yamlUnmarshaler) pop()                { u.path = u.path[:len(u.path)-1] }
