package asm

// The parser is a straightforward recursive-descent parser over the
// token stream produced by the lexer. It recovers from a malformed
// statement by skipping to the next newline/':' boundary so that one
// bad line produces one diagnostic rather than cascading into dozens.
type parser struct {
	toks []token
	pos  int
	diags []Diagnostic
}

func newParser(toks []token) *parser {
	return &parser{toks: toks}
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) kind() tokenKind { return p.toks[p.pos].kind }

func (p *parser) at(k tokenKind) bool { return p.kind() == k }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, bool) {
	if p.kind() != k {
		p.errorf("expected %s", what)
		return token{}, false
	}
	return p.advance(), true
}

func (p *parser) errorf(format string, args ...any) {
	p.diags = append(p.diags, syntaxErrorf(p.cur().loc, format, args...))
}

// skipSeparators consumes any run of newline/':' tokens.
func (p *parser) skipSeparators() {
	for p.at(tkNewline) || p.at(tkColon) {
		p.advance()
	}
}

// recover skips tokens up to (but not including) the next statement
// boundary, used after a parse error within a statement.
func (p *parser) recover() {
	for !p.at(tkEOF) && !p.at(tkNewline) && !p.at(tkColon) && !p.at(tkRBrace) {
		p.advance()
	}
}

// parseProgram parses a full token stream (already terminated by
// tkEOF) into a flat statement list, stopping at EOF.
func parseProgram(toks []token) ([]stmt, []Diagnostic) {
	p := newParser(toks)
	body := p.parseBlockUntil(tkEOF)
	return body, p.diags
}

// parseBlockUntil parses statements until the current token is end,
// WITHOUT consuming end (the caller does, so "}" can double as both
// the block terminator and the next token the caller expects).
func (p *parser) parseBlockUntil(end tokenKind) []stmt {
	var body []stmt
	p.skipSeparators()
	for !p.at(end) && !p.at(tkEOF) {
		before := p.pos
		if s := p.parseStatement(); s != nil {
			body = append(body, s)
		}
		if p.pos == before {
			// parseStatement consumed nothing (e.g. immediate error); force
			// progress so the loop cannot spin forever.
			p.advance()
		}
		p.skipSeparators()
	}
	return body
}

func (p *parser) parseStatement() stmt {
	switch p.kind() {
	case tkNewline, tkColon:
		p.advance()
		return nil

	case tkDirective:
		return p.parseDirective()

	case tkLocalLabel:
		return p.parseLocalLabelOrNil()

	case tkStar:
		return p.parseOrg()

	case tkPlus:
		return p.parseMacroCall()

	case tkIdentifier:
		return p.parseIdentifierLed()

	case tkRBrace:
		return nil

	default:
		p.errorf("unexpected token")
		p.recover()
		return nil
	}
}

func (p *parser) parseLocalLabelOrNil() stmt {
	tok := p.advance()
	loc := tok.loc
	if _, ok := p.expect(tkColon, "':' after local label"); !ok {
		p.recover()
		return nil
	}
	return &labelStmt{baseStmt{loc}, tok.text, true}
}

// parseIdentifierLed handles the three statement shapes that begin
// with a bare identifier: a label definition ("name:"), an equate
// ("name = expr"), or an instruction mnemonic with an operand.
func (p *parser) parseIdentifierLed() stmt {
	tok := p.advance()
	loc := tok.loc

	if p.at(tkColon) {
		p.advance()
		return &labelStmt{baseStmt{loc}, tok.text, false}
	}
	if p.at(tkEquals) {
		p.advance()
		e := p.parseExpr()
		return &equateStmt{baseStmt{loc}, tok.text, e}
	}
	return p.parseInstruction(tok)
}

func (p *parser) parseInstruction(mnemonicTok token) stmt {
	loc := mnemonicTok.loc
	shape := p.parseOperandShape()
	return &instrStmt{baseStmt{loc}, mnemonicTok.text, shape}
}

func (p *parser) parseOperandShape() operandShape {
	switch p.kind() {
	case tkNewline, tkColon, tkEOF, tkRBrace:
		return operandShape{kind: operandNone}

	case tkIdentifier:
		// A bare "a"/"A" with nothing else on the line means Accumulator
		// mode; any other identifier (or one followed by more tokens)
		// starts an expression.
		if (p.cur().text == "a" || p.cur().text == "A") && p.isStatementEnd(p.pos+1) {
			p.advance()
			return operandShape{kind: operandAccum}
		}
		e := p.parseExpr()
		return p.parseIndexSuffix(e)

	case tkHash:
		p.advance()
		e := p.parseExpr()
		return operandShape{kind: operandImmediate, expr: e}

	case tkLParen:
		return p.parseIndirectOperand()

	default:
		e := p.parseExpr()
		return p.parseIndexSuffix(e)
	}
}

func (p *parser) isStatementEnd(pos int) bool {
	k := p.toks[pos].kind
	return k == tkNewline || k == tkColon || k == tkEOF || k == tkRBrace
}

func (p *parser) parseIndexSuffix(e expr) operandShape {
	if p.at(tkComma) {
		p.advance()
		idx, ok := p.expect(tkIdentifier, "register name after ','")
		if !ok {
			return operandShape{kind: operandAbsolute, expr: e}
		}
		switch idx.text {
		case "x", "X":
			return operandShape{kind: operandAbsoluteX, expr: e}
		case "y", "Y":
			return operandShape{kind: operandAbsoluteY, expr: e}
		default:
			p.errorf("expected 'X' or 'Y' index register")
			return operandShape{kind: operandAbsolute, expr: e}
		}
	}
	return operandShape{kind: operandAbsolute, expr: e}
}

func (p *parser) parseIndirectOperand() operandShape {
	p.advance() // '('
	e := p.parseExpr()
	if p.at(tkComma) {
		p.advance()
		idx, ok := p.expect(tkIdentifier, "register name after ','")
		if ok && (idx.text == "x" || idx.text == "X") {
			p.expect(tkRParen, "')'")
			return operandShape{kind: operandIndirectX, expr: e}
		}
		p.errorf("expected 'X' index register inside indirect operand")
		p.expect(tkRParen, "')'")
		return operandShape{kind: operandIndirectX, expr: e}
	}
	p.expect(tkRParen, "')'")
	if p.at(tkComma) {
		p.advance()
		idx, ok := p.expect(tkIdentifier, "register name after ','")
		if ok && (idx.text == "y" || idx.text == "Y") {
			return operandShape{kind: operandIndirectY, expr: e}
		}
		p.errorf("expected 'Y' index register after indirect operand")
		return operandShape{kind: operandIndirectY, expr: e}
	}
	return operandShape{kind: operandIndirect, expr: e}
}

func (p *parser) parseOrg() stmt {
	tok := p.advance() // '*'
	if _, ok := p.expect(tkEquals, "'=' after '*'"); !ok {
		p.recover()
		return nil
	}
	e := p.parseExpr()
	return &orgStmt{baseStmt{tok.loc}, e}
}

func (p *parser) parseMacroCall() stmt {
	tok := p.advance() // '+'
	nameTok, ok := p.expect(tkIdentifier, "macro name after '+'")
	if !ok {
		p.recover()
		return nil
	}
	var args []expr
	if p.at(tkLParen) {
		p.advance()
		for !p.at(tkRParen) && !p.at(tkEOF) {
			args = append(args, p.parseExpr())
			if p.at(tkComma) {
				p.advance()
			} else {
				break
			}
		}
		p.expect(tkRParen, "')'")
	}
	return &macroCallStmt{baseStmt{tok.loc}, nameTok.text, args}
}

func (p *parser) parseDirective() stmt {
	tok := p.advance()
	loc := tok.loc
	switch tok.text {
	case "byte", "word":
		kind := dataByte
		if tok.text == "word" {
			kind = dataWord
		}
		return &dataStmt{baseStmt: baseStmt{loc}, kind: kind, values: p.parseExprList()}

	case "fill":
		count := p.parseExpr()
		var fill expr
		if p.at(tkComma) {
			p.advance()
			fill = p.parseExpr()
		}
		return &dataStmt{baseStmt: baseStmt{loc}, kind: dataFill, count: count, fill: fill}

	case "text":
		s, ok := p.expect(tkString, "string literal after '!text'")
		if !ok {
			p.recover()
			return nil
		}
		return &textStmt{baseStmt{loc}, s.text}

	case "binary":
		path := p.parseExpr()
		d := &dataStmt{baseStmt: baseStmt{loc}, kind: dataBinary, path: path}
		if p.at(tkComma) {
			p.advance()
			d.length = p.parseExpr()
			if p.at(tkComma) {
				p.advance()
				d.offset = p.parseExpr()
			}
		}
		return d

	case "if":
		return p.parseIf(loc)

	case "for":
		return p.parseFor(loc)

	case "macro":
		return p.parseMacro(loc)

	case "scope":
		return p.parseScope(loc)

	case "let":
		name, ok := p.expect(tkIdentifier, "identifier after '!let'")
		if !ok {
			p.recover()
			return nil
		}
		if _, ok := p.expect(tkEquals, "'=' after '!let name'"); !ok {
			p.recover()
			return nil
		}
		return &equateStmt{baseStmt{loc}, name.text, p.parseExpr()}

	case "include":
		s, ok := p.expect(tkString, "string literal after '!include'")
		if !ok {
			p.recover()
			return nil
		}
		return &includeStmt{baseStmt{loc}, s.text}

	case "segment":
		name, ok := p.expect(tkIdentifier, "segment name after '!segment'")
		if !ok {
			p.recover()
			return nil
		}
		return &segmentStmt{baseStmt{loc}, name.text}

	case "align":
		boundary := p.parseExpr()
		var fill expr
		if p.at(tkComma) {
			p.advance()
			fill = p.parseExpr()
		}
		return &alignStmt{baseStmt{loc}, boundary, fill}

	case "warn", "error":
		msg := p.parseExpr()
		return &warnStmt{baseStmt{loc}, tok.text == "error", msg}

	default:
		p.errorf("unknown directive '!%s'", tok.text)
		p.recover()
		return nil
	}
}

func (p *parser) parseExprList() []expr {
	var out []expr
	out = append(out, p.parseExpr())
	for p.at(tkComma) {
		p.advance()
		out = append(out, p.parseExpr())
	}
	return out
}

func (p *parser) parseIf(loc SourceLocation) stmt {
	cond := p.parseExpr()
	thenBody := p.parseBracedBlock()
	var elseBody []stmt
	p.skipSeparators()
	if p.at(tkDirective) && p.cur().text == "else" {
		p.advance()
		if p.at(tkDirective) && p.cur().text == "if" {
			elseLoc := p.cur().loc
			elseBody = []stmt{p.parseDirectiveNamed(elseLoc)}
		} else {
			elseBody = p.parseBracedBlock()
		}
	}
	return &ifStmt{baseStmt{loc}, cond, thenBody, elseBody}
}

// parseDirectiveNamed re-enters parseDirective for an "!else !if ..."
// chain, where the leading "!if" token still needs consuming.
func (p *parser) parseDirectiveNamed(loc SourceLocation) stmt {
	return p.parseDirective()
}

func (p *parser) parseFor(loc SourceLocation) stmt {
	name, ok := p.expect(tkIdentifier, "loop variable after '!for'")
	if !ok {
		p.recover()
		return nil
	}
	if !p.at(tkIdentifier) || p.cur().text != "in" {
		p.errorf("expected 'in' after '!for %s'", name.text)
		p.recover()
		return nil
	}
	p.advance()
	iter := p.parseExpr()
	body := p.parseBracedBlock()
	return &forStmt{baseStmt{loc}, name.text, iter, body}
}

func (p *parser) parseMacro(loc SourceLocation) stmt {
	name, ok := p.expect(tkIdentifier, "macro name after '!macro'")
	if !ok {
		p.recover()
		return nil
	}
	var params []string
	if _, ok := p.expect(tkLParen, "'(' after macro name"); ok {
		for !p.at(tkRParen) && !p.at(tkEOF) {
			pname, ok := p.expect(tkIdentifier, "parameter name")
			if !ok {
				break
			}
			params = append(params, pname.text)
			if p.at(tkComma) {
				p.advance()
			} else {
				break
			}
		}
		p.expect(tkRParen, "')'")
	}
	body := p.parseBracedBlock()
	return &macroStmt{baseStmt{loc}, name.text, params, body}
}

func (p *parser) parseScope(loc SourceLocation) stmt {
	name := ""
	anonymous := true
	if p.at(tkIdentifier) {
		name = p.advance().text
		anonymous = false
	}
	body := p.parseBracedBlock()
	return &scopeStmt{baseStmt{loc}, name, anonymous, body}
}

func (p *parser) parseBracedBlock() []stmt {
	p.skipSeparators()
	if _, ok := p.expect(tkLBrace, "'{'"); !ok {
		p.recover()
		return nil
	}
	body := p.parseBlockUntil(tkRBrace)
	p.expect(tkRBrace, "'}'")
	return body
}
