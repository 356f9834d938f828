package controller

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrCondition is returned when a condition expression fails to compile.
var ErrCondition = errors.New("controller: invalid condition")

// maxConditionStack bounds the evaluation stack of a compiled condition.
const maxConditionStack = 32

type opcode uint8

const (
	opPushConst opcode = iota
	opPushInput
	opNot
	opNeg
	opAnd
	opOr
	opAdd
	opSub
	opMul
	opDiv
	opLess
	opGreater
	opLessEq
	opGreaterEq
	opEq
	opNotEq
)

type instr struct {
	op    opcode
	value float32
	input int
}

// Condition is a compiled boolean expression over controller inputs.
// The zero value, and the compiled empty expression, always evaluate to true.
type Condition struct {
	src  string
	code []instr
}

// Source returns the expression text the condition was compiled from.
func (c *Condition) Source() string {
	return c.src
}

// CompileCondition compiles an expression against the declared inputs.
//
// Grammar, lowest precedence first:
//
//	or      := and  (("or" | "||") and)*
//	and     := not  (("and" | "&&") not)*
//	not     := ("not" | "!") not | cmp
//	cmp     := sum  (("<" | ">" | "<=" | ">=" | "==" | "=" | "!=" | "<>") sum)?
//	sum     := prod (("+" | "-") prod)*
//	prod    := unary (("*" | "/") unary)*
//	unary   := "-" unary | primary
//	primary := number | "true" | "false" | input | "(" or ")"
//
// Parameters:
//   - src: the expression text
//   - decl: the inputs identifiers resolve against
//
// Returns:
//   - Condition: the compiled condition
//   - error: an error wrapping ErrCondition on syntax errors or unknown inputs
func CompileCondition(src string, decl *InputDecl) (Condition, error) {
	c := Condition{src: src}
	if strings.TrimSpace(src) == "" {
		return c, nil
	}
	toks, err := tokenize(src)
	if err != nil {
		return c, err
	}
	p := &condParser{toks: toks, decl: decl}
	if err := p.parseOr(); err != nil {
		return c, err
	}
	if p.pos < len(p.toks) {
		return c, fmt.Errorf("%w: unexpected %q in %q", ErrCondition, p.toks[p.pos].text, src)
	}
	if depth := stackDepth(p.code); depth > maxConditionStack {
		return c, fmt.Errorf("%w: expression %q too deep (%d)", ErrCondition, src, depth)
	}
	c.code = p.code
	return c, nil
}

// Eval evaluates the condition against input values.
func (c *Condition) Eval(v *Inputs) bool {
	if len(c.code) == 0 {
		return true
	}
	var stack [maxConditionStack]float32
	sp := 0
	for _, in := range c.code {
		switch in.op {
		case opPushConst:
			stack[sp] = in.value
			sp++
		case opPushInput:
			stack[sp] = v.Value(in.input)
			sp++
		case opNot:
			stack[sp-1] = boolValue(stack[sp-1] == 0)
		case opNeg:
			stack[sp-1] = -stack[sp-1]
		default:
			a, b := stack[sp-2], stack[sp-1]
			sp--
			stack[sp-1] = applyBinary(in.op, a, b)
		}
	}
	return stack[0] != 0
}

func boolValue(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func applyBinary(op opcode, a, b float32) float32 {
	switch op {
	case opAnd:
		return boolValue(a != 0 && b != 0)
	case opOr:
		return boolValue(a != 0 || b != 0)
	case opAdd:
		return a + b
	case opSub:
		return a - b
	case opMul:
		return a * b
	case opDiv:
		if b == 0 {
			return 0
		}
		return a / b
	case opLess:
		return boolValue(a < b)
	case opGreater:
		return boolValue(a > b)
	case opLessEq:
		return boolValue(a <= b)
	case opGreaterEq:
		return boolValue(a >= b)
	case opEq:
		return boolValue(a == b)
	case opNotEq:
		return boolValue(a != b)
	}
	return 0
}

func stackDepth(code []instr) int {
	depth, peak := 0, 0
	for _, in := range code {
		switch in.op {
		case opPushConst, opPushInput:
			depth++
		case opNot, opNeg:
		default:
			depth--
		}
		peak = max(peak, depth)
	}
	return peak
}

type tokenKind uint8

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
)

type token struct {
	kind  tokenKind
	text  string
	value float32
}

var twoCharOps = []string{"||", "&&", "<=", ">=", "==", "!=", "<>"}

func tokenize(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(string(rs[i:j]), 32)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrCondition, string(rs[i:j]))
			}
			toks = append(toks, token{kind: tokNumber, text: string(rs[i:j]), value: float32(v)})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[i:j])})
			i = j
		default:
			matched := false
			if i+1 < len(rs) {
				pair := string(rs[i : i+2])
				for _, op := range twoCharOps {
					if pair == op {
						toks = append(toks, token{kind: tokOp, text: op})
						i += 2
						matched = true
						break
					}
				}
			}
			if matched {
				continue
			}
			if !strings.ContainsRune("<>=!+-*/()", r) {
				return nil, fmt.Errorf("%w: unexpected character %q in %q", ErrCondition, r, src)
			}
			toks = append(toks, token{kind: tokOp, text: string(r)})
			i++
		}
	}
	return toks, nil
}

type condParser struct {
	toks []token
	pos  int
	decl *InputDecl
	code []instr
}

func (p *condParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

// accept consumes the next token if its text is one of alts.
func (p *condParser) accept(alts ...string) (string, bool) {
	t, ok := p.peek()
	if !ok || t.kind == tokNumber {
		return "", false
	}
	for _, a := range alts {
		if t.text == a {
			p.pos++
			return a, true
		}
	}
	return "", false
}

func (p *condParser) emit(op opcode) {
	p.code = append(p.code, instr{op: op})
}

func (p *condParser) parseOr() error {
	if err := p.parseAnd(); err != nil {
		return err
	}
	for {
		if _, ok := p.accept("or", "||"); !ok {
			return nil
		}
		if err := p.parseAnd(); err != nil {
			return err
		}
		p.emit(opOr)
	}
}

func (p *condParser) parseAnd() error {
	if err := p.parseNot(); err != nil {
		return err
	}
	for {
		if _, ok := p.accept("and", "&&"); !ok {
			return nil
		}
		if err := p.parseNot(); err != nil {
			return err
		}
		p.emit(opAnd)
	}
}

func (p *condParser) parseNot() error {
	if _, ok := p.accept("not", "!"); ok {
		if err := p.parseNot(); err != nil {
			return err
		}
		p.emit(opNot)
		return nil
	}
	return p.parseCmp()
}

var comparisons = map[string]opcode{
	"<": opLess, ">": opGreater, "<=": opLessEq, ">=": opGreaterEq,
	"==": opEq, "=": opEq, "!=": opNotEq, "<>": opNotEq,
}

func (p *condParser) parseCmp() error {
	if err := p.parseSum(); err != nil {
		return err
	}
	if op, ok := p.accept("<", ">", "<=", ">=", "==", "=", "!=", "<>"); ok {
		if err := p.parseSum(); err != nil {
			return err
		}
		p.emit(comparisons[op])
	}
	return nil
}

func (p *condParser) parseSum() error {
	if err := p.parseProd(); err != nil {
		return err
	}
	for {
		op, ok := p.accept("+", "-")
		if !ok {
			return nil
		}
		if err := p.parseProd(); err != nil {
			return err
		}
		if op == "+" {
			p.emit(opAdd)
		} else {
			p.emit(opSub)
		}
	}
}

func (p *condParser) parseProd() error {
	if err := p.parseUnary(); err != nil {
		return err
	}
	for {
		op, ok := p.accept("*", "/")
		if !ok {
			return nil
		}
		if err := p.parseUnary(); err != nil {
			return err
		}
		if op == "*" {
			p.emit(opMul)
		} else {
			p.emit(opDiv)
		}
	}
}

func (p *condParser) parseUnary() error {
	if _, ok := p.accept("-"); ok {
		if err := p.parseUnary(); err != nil {
			return err
		}
		p.emit(opNeg)
		return nil
	}
	return p.parsePrimary()
}

func (p *condParser) parsePrimary() error {
	t, ok := p.peek()
	if !ok {
		return fmt.Errorf("%w: unexpected end of expression", ErrCondition)
	}
	p.pos++
	switch {
	case t.kind == tokNumber:
		p.code = append(p.code, instr{op: opPushConst, value: t.value})
	case t.kind == tokIdent && t.text == "true":
		p.code = append(p.code, instr{op: opPushConst, value: 1})
	case t.kind == tokIdent && t.text == "false":
		p.code = append(p.code, instr{op: opPushConst, value: 0})
	case t.kind == tokIdent:
		idx := p.decl.Index(t.text)
		if idx < 0 {
			return fmt.Errorf("%w: unknown input %q", ErrCondition, t.text)
		}
		p.code = append(p.code, instr{op: opPushInput, input: idx})
	case t.text == "(":
		if err := p.parseOr(); err != nil {
			return err
		}
		if _, ok := p.accept(")"); !ok {
			return fmt.Errorf("%w: missing )", ErrCondition)
		}
	default:
		return fmt.Errorf("%w: unexpected %q", ErrCondition, t.text)
	}
	return nil
}
