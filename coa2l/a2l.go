// Package coa2l reads ASAM MCD-2 MC (A2L) calibration descriptions.
//
// The file becomes an owning vector of tokens. Each /begin NAME ... /end
// NAME block becomes a nested vector whose first element is NAME. Quoted
// strings keep their quotes with escapes resolved; comments are dropped.
package coa2l

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andreyvit/cobj"
)

type Options struct {
	// Quota is charged for the graph being built. Nil means unlimited.
	Quota *cobj.Quota

	// MaxTokenLen limits identifiers and quoted strings. Zero means 8 KiB.
	MaxTokenLen int

	// MaxDepth limits /begin nesting. Zero means 1000.
	MaxDepth int
}

func (opt *Options) fillDefaults() {
	if opt.MaxTokenLen == 0 {
		opt.MaxTokenLen = 8 * 1024
	}
	if opt.MaxDepth == 0 {
		opt.MaxDepth = 1000
	}
}

// common tokens are stored as borrowed strings
var staticTokens = map[string]string{
	"0":           "0",
	"1":           "1",
	"IF_DATA":     "IF_DATA",
	"MEASUREMENT": "MEASUREMENT",
}

func Read(r io.Reader, opt Options) (*cobj.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data, opt)
}

func Parse(data []byte, opt Options) (*cobj.Object, error) {
	opt.fillDefaults()
	p := &parser{scanner: scanner{data: data, maxLen: opt.MaxTokenLen}, opt: opt}
	root, err := opt.Quota.NewVector(cobj.Owning)
	if err != nil {
		return nil, cobj.SyntaxErrf("a2l", data, 0, err, "")
	}
	if err := p.block(root.Vector(), 0); err != nil {
		cobj.Destroy(root)
		return nil, err
	}
	return root, nil
}

type parser struct {
	scanner
	opt Options
}

func (p *parser) fail(off int, err error, msgFormat string, args ...any) error {
	return cobj.SyntaxErrf("a2l", p.data, off, err, msgFormat, args...)
}

// block reads tokens into v until the /end matching the /begin that
// created v, or until the end of input when depth is 0.
func (p *parser) block(v cobj.Vector, depth int) error {
	q := p.opt.Quota
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch tok {
		case tokEOF:
			if depth > 0 {
				return p.fail(len(p.data), nil, "missing /end %s", blockName(v))
			}
			return nil

		case tokBegin:
			if depth+1 > p.opt.MaxDepth {
				return p.fail(p.tokOff, nil, "nesting deeper than %d", p.opt.MaxDepth)
			}
			child, err := q.NewVector(cobj.Owning)
			if err == nil {
				if _, err = v.Add(child); err != nil {
					cobj.Destroy(child)
				}
			}
			if err != nil {
				return p.fail(p.tokOff, err, "")
			}
			if err := p.block(child.Vector(), depth+1); err != nil {
				return err
			}

		case tokEnd:
			if depth == 0 {
				return p.fail(p.tokOff, nil, "/end without /begin")
			}
			endOff := p.tokOff
			tok, err := p.next()
			if err != nil {
				return err
			}
			if tok != tokIdent {
				return p.fail(endOff, nil, "/end must be followed by a block name, got %v", tok)
			}
			if name := blockName(v); name != "" && name != string(p.tok) {
				return p.fail(p.tokOff, nil, "/end %s closes /begin %s", p.tok, name)
			}
			return nil

		default:
			el, err := p.token(q)
			if err == nil {
				if _, err = v.Add(el); err != nil {
					cobj.Destroy(el)
				}
			}
			if err != nil {
				return p.fail(p.tokOff, err, "")
			}
		}
	}
}

func (p *parser) token(q *cobj.Quota) (*cobj.Object, error) {
	if len(p.tok) <= len("MEASUREMENT") {
		if s, ok := staticTokens[string(p.tok)]; ok {
			return q.NewString(cobj.None, s)
		}
	}
	return q.NewStringBytes(cobj.CopyStrings, p.tok)
}

func blockName(v cobj.Vector) string {
	if first := v.Get(0); first != nil && first.Is(cobj.KindString) {
		return first.Str().Value()
	}
	return ""
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokBegin
	tokEnd
)

// scanner splits A2L input into tokens. The current token text is in tok,
// which is reused between calls.
type scanner struct {
	data   []byte
	pos    int
	maxLen int
	tok    []byte
	tokOff int
}

func (s *scanner) errf(off int, msgFormat string, args ...any) error {
	return cobj.SyntaxErrf("a2l", s.data, off, nil, msgFormat, args...)
}

func (s *scanner) next() (tokenKind, error) {
	for {
		for s.pos < len(s.data) && s.data[s.pos] <= ' ' {
			s.pos++
		}
		s.tokOff = s.pos
		if s.pos >= len(s.data) {
			return tokEOF, nil
		}
		switch s.data[s.pos] {
		case '"':
			return tokString, s.quoted()
		case '/':
			if s.pos+1 < len(s.data) {
				switch s.data[s.pos+1] {
				case '/':
					if i := bytes.IndexAny(s.data[s.pos:], "\r\n"); i >= 0 {
						s.pos += i
					} else {
						s.pos = len(s.data)
					}
					continue
				case '*':
					i := bytes.Index(s.data[s.pos+2:], []byte("*/"))
					if i < 0 {
						return tokEOF, s.errf(s.tokOff, "unterminated comment")
					}
					s.pos += 2 + i + 2
					continue
				}
			}
			s.pos++
			if err := s.ident('/'); err != nil {
				return tokEOF, err
			}
			switch string(s.tok) {
			case "/begin":
				return tokBegin, nil
			case "/end":
				return tokEnd, nil
			}
			return tokIdent, nil
		}
		return tokIdent, s.ident(0)
	}
}

func (s *scanner) ident(prefix byte) error {
	s.tok = s.tok[:0]
	if prefix != 0 {
		s.tok = append(s.tok, prefix)
	}
	start := s.pos
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c <= ' ' || c == '/' || c == '"' {
			break
		}
		s.pos++
	}
	if len(s.tok)+s.pos-start > s.maxLen {
		return s.errf(s.tokOff, "identifier longer than %d bytes", s.maxLen)
	}
	s.tok = append(s.tok, s.data[start:s.pos]...)
	return nil
}

func (s *scanner) quoted() error {
	s.tok = append(s.tok[:0], '"')
	s.pos++
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '"':
			s.tok = append(s.tok, '"')
			return nil
		case '\\':
			if s.pos >= len(s.data) {
				return s.errf(s.tokOff, "unterminated string")
			}
			c = s.data[s.pos]
			s.pos++
			switch c {
			case 'n':
				c = '\n'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case 'r':
				c = '\r'
			}
		}
		s.tok = append(s.tok, c)
		if len(s.tok) > s.maxLen {
			return s.errf(s.tokOff, "string longer than %d bytes", s.maxLen)
		}
	}
	return s.errf(s.tokOff, "unterminated string")
}

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "EOF"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokBegin:
		return "/begin"
	case tokEnd:
		return "/end"
	default:
		return fmt.Sprintf("tokenKind(%d)", int(k))
	}
}
