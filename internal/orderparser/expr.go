package orderparser

import (
	"errors"
	"math"
	"strconv"
)

var errBadExpression = errors.New("bad expression")

// evalArithmetic evaluates an expression made of numbers, + - * / and
// parentheses. Anything else is rejected.
func evalArithmetic(src string) (float64, error) {
	p := &exprParser{src: src}
	v, err := p.expr(0)
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.src) {
		return 0, errBadExpression
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errBadExpression
	}
	return v, nil
}

// maxDepth bounds parenthesis nesting.
const maxDepth = 32

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) expr(depth int) (float64, error) {
	left, err := p.term(depth)
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.term(depth)
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.term(depth)
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) term(depth int) (float64, error) {
	left, err := p.factor(depth)
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.factor(depth)
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.factor(depth)
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, errBadExpression
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) factor(depth int) (float64, error) {
	if depth > maxDepth {
		return 0, errBadExpression
	}
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		v, err := p.expr(depth + 1)
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, errBadExpression
		}
		p.pos++
		return v, nil
	case c == '-':
		p.pos++
		v, err := p.factor(depth + 1)
		return -v, err
	case c == '.' || (c >= '0' && c <= '9'):
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] == '.' || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return 0, errBadExpression
		}
		return v, nil
	default:
		return 0, errBadExpression
	}
}
