// Package coyaml converts between YAML documents and cobj object graphs.
//
// Mappings become owning maps, sequences become owning vectors, null
// becomes blank, numbers and booleans become doubles (true is 1), binary
// scalars become memory blocks and any other scalar becomes a string.
// Aliases are expanded into copies of the anchored node.
package coyaml

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/andreyvit/cobj"
)

type Options struct {
	// Quota is charged for the graph being built. Nil means unlimited.
	Quota *cobj.Quota

	// MaxDepth limits nesting, counting expanded aliases. Zero means 10000.
	MaxDepth int
}

// Read converts the first document of r. An empty stream yields a blank.
func Read(r io.Reader, opt Options) (*cobj.Object, error) {
	if opt.MaxDepth == 0 {
		opt.MaxDepth = 10000
	}
	var doc yaml.Node
	err := yaml.NewDecoder(r).Decode(&doc)
	if err == io.EOF {
		return opt.Quota.NewBlank()
	} else if err != nil {
		return nil, yamlError(err)
	}
	c := &converter{opt: opt}
	return c.convert(&doc, 0)
}

func Parse(data []byte, opt Options) (*cobj.Object, error) {
	return Read(bytes.NewReader(data), opt)
}

var lineRe = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

func yamlError(err error) error {
	if m := lineRe.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &cobj.SyntaxError{Format: "yaml", Line: line, Col: 1, Msg: m[2]}
	}
	return &cobj.SyntaxError{Format: "yaml", Line: 1, Col: 1, Msg: err.Error()}
}

type converter struct {
	opt Options
}

func (c *converter) fail(n *yaml.Node, err error, msg string) error {
	return &cobj.SyntaxError{Format: "yaml", Line: n.Line, Col: n.Column, Msg: msg, Err: err}
}

func (c *converter) convert(n *yaml.Node, depth int) (*cobj.Object, error) {
	if depth > c.opt.MaxDepth {
		return nil, c.fail(n, nil, "nesting deeper than "+strconv.Itoa(c.opt.MaxDepth))
	}
	q := c.opt.Quota
	switch n.Kind {
	case 0:
		return q.NewBlank()
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return q.NewBlank()
		}
		return c.convert(n.Content[0], depth)
	case yaml.AliasNode:
		return c.convert(n.Alias, depth+1)
	case yaml.ScalarNode:
		o, err := c.scalar(n)
		if err != nil {
			return nil, c.fail(n, err, "")
		}
		return o, nil

	case yaml.SequenceNode:
		o, err := q.NewVector(cobj.Owning)
		if err != nil {
			return nil, c.fail(n, err, "")
		}
		for _, child := range n.Content {
			el, err := c.convert(child, depth+1)
			if err != nil {
				cobj.Destroy(o)
				return nil, err
			}
			if _, err := o.Vector().Add(el); err != nil {
				cobj.Destroy(el)
				cobj.Destroy(o)
				return nil, c.fail(child, err, "")
			}
		}
		return o, nil

	case yaml.MappingNode:
		o, err := q.NewMap(cobj.Owning)
		if err != nil {
			return nil, c.fail(n, err, "")
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind == yaml.AliasNode {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				cobj.Destroy(o)
				return nil, c.fail(k, nil, "mapping key must be a scalar")
			}
			val, err := c.convert(v, depth+1)
			if err != nil {
				cobj.Destroy(o)
				return nil, err
			}
			if err := o.Map().Add(k.Value, val); err != nil {
				cobj.Destroy(val)
				cobj.Destroy(o)
				return nil, c.fail(k, err, "")
			}
		}
		return o, nil
	}
	return nil, c.fail(n, nil, "unsupported node kind")
}

func (c *converter) scalar(n *yaml.Node) (*cobj.Object, error) {
	q := c.opt.Quota
	switch n.ShortTag() {
	case "!!null":
		return q.NewBlank()
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		if b {
			return q.NewDouble(1)
		}
		return q.NewDouble(0)
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return q.NewDouble(f)
	case "!!binary":
		// yaml.v3 decodes !!binary into strings only.
		var s string
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		return q.New(cobj.KindMemBlock, cobj.Owning, []byte(s))
	}
	return q.NewString(cobj.CopyStrings, n.Value)
}

type WriteOptions struct {
	// Indent is the number of spaces per level. Zero means 2.
	Indent int
}

var errUnsupportedKind = errors.New("object kind has no YAML representation")

// Write emits o as a single YAML document.
func Write(w io.Writer, o *cobj.Object, opt WriteOptions) error {
	if opt.Indent == 0 {
		opt.Indent = 2
	}
	n, err := toNode(o)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(opt.Indent)
	if err := enc.Encode(n); err != nil {
		return err
	}
	return enc.Close()
}

func Marshal(o *cobj.Object, opt WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, o, opt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toNode(o *cobj.Object) (*yaml.Node, error) {
	switch o.Kind() {
	case cobj.KindBlank:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case cobj.KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: o.Str().Value()}, nil
	case cobj.KindDouble:
		tag, value := formatDouble(o.Double().Get())
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}, nil
	case cobj.KindMemBlock:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(o.MemBlock().Raw())}, nil
	case cobj.KindVector:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, el := range o.Vector().All() {
			child, err := toNode(el)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case cobj.KindMap:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for key, value := range o.Map().All() {
			child, err := toNode(value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, child)
		}
		return n, nil
	}
	return nil, errUnsupportedKind
}

func formatDouble(v float64) (tag, value string) {
	switch {
	case math.IsNaN(v):
		return "!!float", ".nan"
	case math.IsInf(v, 1):
		return "!!float", ".inf"
	case math.IsInf(v, -1):
		return "!!float", "-.inf"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return "!!int", strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "!!float", strconv.FormatFloat(v, 'g', -1, 64)
}
