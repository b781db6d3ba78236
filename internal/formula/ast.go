package formula

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is returned when a formula cannot be tokenized or parsed.
	ErrSyntax = errors.New("formula syntax error")
	// ErrEvaluation is returned when a parsed formula fails to evaluate.
	ErrEvaluation = errors.New("formula evaluation failed")
)

// node is one element of a parsed formula.
type node interface {
	pos() int
}

type numberNode struct {
	at    int
	value float64
}

type stringNode struct {
	at    int
	value string
}

// nameNode is a bare or np-qualified constant such as pi or np.inf.
type nameNode struct {
	at   int
	name string
}

type unaryNode struct {
	at int
	op tokenKind
	x  node
}

type binaryNode struct {
	at          int
	op          tokenKind
	left, right node
}

type callNode struct {
	at   int
	fn   string
	args []node
}

func (n *numberNode) pos() int { return n.at }
func (n *stringNode) pos() int { return n.at }
func (n *nameNode) pos() int   { return n.at }
func (n *unaryNode) pos() int  { return n.at }
func (n *binaryNode) pos() int { return n.at }
func (n *callNode) pos() int   { return n.at }

// Binding powers. ** binds tighter than unary minus so -2**2 == -4.
const (
	bpNone    = 0
	bpSum     = 10
	bpProduct = 20
	bpUnary   = 30
	bpPower   = 40
)

func infixPower(k tokenKind) int {
	switch k {
	case tokPlus, tokMinus:
		return bpSum
	case tokStar, tokSlash, tokPercent:
		return bpProduct
	case tokPow:
		return bpPower
	}
	return bpNone
}

// namespaces accepted in front of function and constant names.
var namespaces = map[string]bool{"np": true, "numpy": true}

// Expr is a parsed formula, safe to evaluate repeatedly and concurrently.
type Expr struct {
	src  string
	root node
}

// String returns the source text the expression was parsed from.
func (e *Expr) String() string {
	return e.src
}

// Parse parses one rewritten formula line.
func Parse(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.expression(bpNone)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s at %d", ErrSyntax, tok.kind, tok.pos)
	}
	if err := checkStrings(root, false); err != nil {
		return nil, err
	}
	return &Expr{src: src, root: root}, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) next() token {
	tok := p.toks[p.i]
	if tok.kind != tokEOF {
		p.i++
	}
	return tok
}

func (p *parser) expect(k tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != k {
		return tok, fmt.Errorf("%w: expected %s, found %s at %d", ErrSyntax, k, tok.kind, tok.pos)
	}
	return tok, nil
}

func (p *parser) expression(minBP int) (node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		bp := infixPower(op.kind)
		if bp == bpNone || bp <= minBP {
			return left, nil
		}
		p.next()
		rightBP := bp
		if op.kind == tokPow {
			// right associative
			rightBP = bp - 1
		}
		right, err := p.expression(rightBP)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{at: op.pos, op: op.kind, left: left, right: right}
	}
}

func (p *parser) prefix() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &numberNode{at: tok.pos, value: tok.num}, nil
	case tokString:
		return &stringNode{at: tok.pos, value: tok.text}, nil
	case tokPlus, tokMinus:
		x, err := p.expression(bpUnary)
		if err != nil {
			return nil, err
		}
		return &unaryNode{at: tok.pos, op: tok.kind, x: x}, nil
	case tokLParen:
		x, err := p.expression(bpNone)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return x, nil
	case tokIdent:
		return p.name(tok)
	}
	return nil, fmt.Errorf("%w: unexpected %s at %d", ErrSyntax, tok.kind, tok.pos)
}

// name parses a possibly qualified identifier and an optional call.
func (p *parser) name(first token) (node, error) {
	name := first.text
	if p.peek().kind == tokDot {
		if !namespaces[name] {
			return nil, fmt.Errorf("%w: unknown namespace %q at %d", ErrSyntax, name, first.pos)
		}
		p.next()
		tok, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		name = tok.text
	}
	if p.peek().kind != tokLParen {
		return &nameNode{at: first.pos, name: name}, nil
	}
	p.next()
	call := &callNode{at: first.pos, fn: name}
	if p.peek().kind == tokRParen {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.expression(bpNone)
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		tok := p.next()
		if tok.kind == tokRParen {
			return call, nil
		}
		if tok.kind != tokComma {
			return nil, fmt.Errorf("%w: expected ',' or ')', found %s at %d", ErrSyntax, tok.kind, tok.pos)
		}
	}
}

// checkStrings rejects string literals anywhere but as the lookup argument.
func checkStrings(n node, allowed bool) error {
	switch n := n.(type) {
	case *stringNode:
		if !allowed {
			return fmt.Errorf("%w: string literal at %d outside %s()", ErrSyntax, n.at, LookupFunc)
		}
	case *unaryNode:
		return checkStrings(n.x, false)
	case *binaryNode:
		if err := checkStrings(n.left, false); err != nil {
			return err
		}
		return checkStrings(n.right, false)
	case *callNode:
		for _, a := range n.args {
			if err := checkStrings(a, n.fn == LookupFunc); err != nil {
				return err
			}
		}
	}
	return nil
}
