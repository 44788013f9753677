package fruti

// Parser builds an untyped tree from a token slice. It reads the whole
// slice rather than the lexer's channel so it can look one token past the
// current one ("async fn", a terminator followed by '}'). It never
// backtracks: the block trailing expression is decided by the token after
// the expression, and struct-literal-vs-block by the noStructLit flag.
//
// A Parser halts on the first syntax error: parse methods panic with a
// *Error, recovered once in Parse.
type Parser struct {
	tokens []Token
	pos    int

	// noStructLit suppresses "Ident {" being read as a struct literal while
	// parsing the controlling expression of if/while/for/match, where the
	// brace must instead open that construct's block.
	noStructLit bool
}

// NewParser creates a parser over tokens, which must end with a TokenEOF.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse consumes the token slice and returns a Module, or the first error
// encountered.
func (p *Parser) Parse(filename string) (module *Module, err *Error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			module, err = nil, perr
		}
	}()

	start := p.peek().Span
	var items []Item
	for !p.check(TokenEOF) {
		if p.eat(TokenSemicolon) {
			continue // terminator inserted after an item's closing '}'
		}
		items = append(items, p.parseItem())
	}

	return &Module{Filename: filename, Items: items, Span: Merge(start, p.peek().Span)}, nil
}

// fail panics with a syntax error at the current token; recovered by Parse.
func (p *Parser) fail(kind ErrorKind, format string, args ...interface{}) {
	panic(NewError(kind, p.peek().Span, format, args...))
}

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) next() Token {
	t := p.tokens[p.pos]
	if !t.isEOF() {
		p.pos++
	}
	return t
}

func (p *Parser) check(k TokenKind) bool {
	return p.peek().Kind == k
}

func (p *Parser) checkAt(n int, k TokenKind) bool {
	return p.peekAt(n).Kind == k
}

func (p *Parser) eat(k TokenKind) bool {
	if p.check(k) {
		p.next()
		return true
	}
	return false
}

// expect consumes a token of kind k or fails with an ExpectedToken error.
func (p *Parser) expect(k TokenKind, what string) Token {
	if !p.check(k) {
		tok := p.peek()
		if !tok.isValid() && !tok.isEOF() {
			p.fail(ExpectedToken, "expected %s, found invalid token %s", what, tok)
		}
		p.fail(ExpectedToken, "expected %s, found %s", what, tok)
	}
	return p.next()
}

func (p *Parser) expectIdent(what string) Spanned[string] {
	tok := p.expect(TokenIdent, what)
	return NewSpanned(tok.Text, tok.Span)
}

// ---- items ----

func (p *Parser) parseItem() Item {
	start := p.peek().Span

	isPub := p.eat(TokenPub)

	switch {
	case p.check(TokenAsync) && p.checkAt(1, TokenFn):
		p.next()
		return p.parseFunction(start, isPub, true)
	case p.check(TokenFn):
		return p.parseFunction(start, isPub, false)
	case p.check(TokenStruct):
		return p.parseStruct(start, isPub)
	case p.check(TokenEnum):
		return p.parseEnum(start, isPub)
	case p.check(TokenTrait):
		return p.parseTrait(start, isPub)
	case p.check(TokenImpl):
		return p.parseImpl(start)
	case p.check(TokenType):
		return p.parseTypeAlias(start, isPub)
	case p.check(TokenConst):
		return p.parseConst(start, isPub)
	case p.check(TokenImport):
		return p.parseImport(start)
	default:
		p.fail(UnexpectedToken, "expected an item, found %s", p.peek())
		return nil
	}
}

func (p *Parser) parseFunction(start Span, isPub, isAsync bool) *Function {
	p.expect(TokenFn, "'fn'")
	name := p.expectIdent("a function name")
	params := p.parseParamList()

	var ret Type
	if p.eat(TokenArrow) {
		ret = p.parseType()
	}

	body := p.parseBlock()

	return &Function{
		Name:       name,
		Params:     params,
		ReturnType: ret,
		Body:       body,
		IsAsync:    isAsync,
		IsPub:      isPub,
		Span:       Merge(start, body.Span),
	}
}

func (p *Parser) parseParamList() []Param {
	p.expect(TokenLeftParen, "'('")
	var params []Param

	// A bare "self" (with no type annotation) may open an impl method's
	// parameter list, binding the receiver as the impl's Self type.
	if p.check(TokenSelfLower) {
		tok := p.next()
		params = append(params, Param{Name: NewSpanned("self", tok.Span), Type: SimpleType{Name: NewSpanned("Self", tok.Span)}})
	}

	for !p.check(TokenRightParen) {
		if len(params) > 0 {
			p.expect(TokenComma, "','")
			if p.check(TokenRightParen) {
				break
			}
		}
		name := p.expectIdent("a parameter name")
		p.expect(TokenColon, "':'")
		typ := p.parseType()
		params = append(params, Param{Name: name, Type: typ})
	}
	p.expect(TokenRightParen, "')'")
	return params
}

func (p *Parser) parseStruct(start Span, isPub bool) *Struct {
	p.expect(TokenStruct, "'struct'")
	name := p.expectIdent("a struct name")
	p.expect(TokenLeftBrace, "'{'")

	var fields []Field
	for !p.check(TokenRightBrace) {
		if len(fields) > 0 {
			p.expect(TokenComma, "','")
			if p.check(TokenRightBrace) {
				break
			}
		}
		fieldPub := p.eat(TokenPub)
		fname := p.expectIdent("a field name")
		p.expect(TokenColon, "':'")
		ftype := p.parseType()
		fields = append(fields, Field{Name: fname, Type: ftype, IsPub: fieldPub})
	}

	end := p.expect(TokenRightBrace, "'}'")
	return &Struct{Name: name, Fields: fields, IsPub: isPub, Span: Merge(start, end.Span)}
}

func (p *Parser) parseEnum(start Span, isPub bool) *Enum {
	p.expect(TokenEnum, "'enum'")
	name := p.expectIdent("an enum name")
	p.expect(TokenLeftBrace, "'{'")

	var variants []Variant
	for !p.check(TokenRightBrace) {
		if len(variants) > 0 {
			p.expect(TokenComma, "','")
			if p.check(TokenRightBrace) {
				break
			}
		}
		variants = append(variants, p.parseVariant())
	}

	end := p.expect(TokenRightBrace, "'}'")
	return &Enum{Name: name, Variants: variants, IsPub: isPub, Span: Merge(start, end.Span)}
}

func (p *Parser) parseVariant() Variant {
	name := p.expectIdent("a variant name")

	if p.eat(TokenLeftParen) {
		var types []Type
		for !p.check(TokenRightParen) {
			if len(types) > 0 {
				p.expect(TokenComma, "','")
				if p.check(TokenRightParen) {
					break
				}
			}
			types = append(types, p.parseType())
		}
		p.expect(TokenRightParen, "')'")
		return Variant{Name: name, Tuple: types}
	}

	if p.eat(TokenLeftBrace) {
		var fields []Field
		for !p.check(TokenRightBrace) {
			if len(fields) > 0 {
				p.expect(TokenComma, "','")
				if p.check(TokenRightBrace) {
					break
				}
			}
			fieldPub := p.eat(TokenPub)
			fname := p.expectIdent("a field name")
			p.expect(TokenColon, "':'")
			ftype := p.parseType()
			fields = append(fields, Field{Name: fname, Type: ftype, IsPub: fieldPub})
		}
		p.expect(TokenRightBrace, "'}'")
		return Variant{Name: name, Fields: fields}
	}

	return Variant{Name: name}
}

func (p *Parser) parseTrait(start Span, isPub bool) *Trait {
	p.expect(TokenTrait, "'trait'")
	name := p.expectIdent("a trait name")
	p.expect(TokenLeftBrace, "'{'")

	var methods []TraitMethod
	for !p.check(TokenRightBrace) {
		p.expect(TokenFn, "'fn'")
		mname := p.expectIdent("a method name")
		params := p.parseParamList()
		var ret Type
		if p.eat(TokenArrow) {
			ret = p.parseType()
		}
		p.expect(TokenSemicolon, "';'")
		methods = append(methods, TraitMethod{Name: mname, Params: params, ReturnType: ret})
	}

	end := p.expect(TokenRightBrace, "'}'")
	return &Trait{Name: name, Methods: methods, IsPub: isPub, Span: Merge(start, end.Span)}
}

func (p *Parser) parseImpl(start Span) *Impl {
	p.expect(TokenImpl, "'impl'")
	first := p.expectIdent("a type name")

	var traitName *Spanned[string]
	var typeName Spanned[string]
	if p.eat(TokenFor) {
		traitName = &first
		typeName = p.expectIdent("a type name")
	} else {
		typeName = first
	}

	p.expect(TokenLeftBrace, "'{'")
	var methods []*Function
	for !p.check(TokenRightBrace) {
		if p.eat(TokenSemicolon) {
			continue // terminator inserted after a method's closing '}'
		}
		mstart := p.peek().Span
		isPub := p.eat(TokenPub)
		isAsync := false
		if p.check(TokenAsync) && p.checkAt(1, TokenFn) {
			p.next()
			isAsync = true
		}
		methods = append(methods, p.parseFunction(mstart, isPub, isAsync))
	}
	end := p.expect(TokenRightBrace, "'}'")

	return &Impl{TraitName: traitName, TypeName: typeName, Methods: methods, Span: Merge(start, end.Span)}
}

func (p *Parser) parseTypeAlias(start Span, isPub bool) *TypeAlias {
	p.expect(TokenType, "'type'")
	name := p.expectIdent("a type name")
	p.expect(TokenEqual, "'='")
	typ := p.parseType()
	end := p.expect(TokenSemicolon, "';'")
	return &TypeAlias{Name: name, Type: typ, IsPub: isPub, Span: Merge(start, end.Span)}
}

func (p *Parser) parseConst(start Span, isPub bool) *Const {
	p.expect(TokenConst, "'const'")
	name := p.expectIdent("a constant name")
	p.expect(TokenColon, "':'")
	typ := p.parseType()
	p.expect(TokenEqual, "'='")
	value := p.parseExpr()
	end := p.expect(TokenSemicolon, "';'")
	return &Const{Name: name, Type: typ, Value: value, IsPub: isPub, Span: Merge(start, end.Span)}
}

func (p *Parser) parseImport(start Span) *Import {
	p.expect(TokenImport, "'import'")
	var path []Spanned[string]
	path = append(path, p.expectIdent("a path segment"))
	for p.eat(TokenColonColon) {
		path = append(path, p.expectIdent("a path segment"))
	}
	end := p.expect(TokenSemicolon, "';'")
	return &Import{Path: path, Span: Merge(start, end.Span)}
}

// ---- types ----

func (p *Parser) parseType() Type {
	start := p.peek().Span

	switch {
	case p.check(TokenAmp):
		p.next()
		elem := p.parseType()
		return RefType{Elem: elem, Span: Merge(start, elem.TypeSpan())}
	case p.check(TokenOwn):
		p.next()
		elem := p.parseType()
		return OwnType{Elem: elem, Span: Merge(start, elem.TypeSpan())}
	case p.check(TokenLeftBracket):
		p.next()
		elem := p.parseType()
		var size *int
		if p.eat(TokenSemicolon) {
			tok := p.expect(TokenInteger, "an array size")
			n := int(tok.Int)
			size = &n
		}
		end := p.expect(TokenRightBracket, "']'")
		return ArrayType{Elem: elem, Size: size, Span: Merge(start, end.Span)}
	case p.check(TokenLeftParen):
		p.next()
		var elems []Type
		for !p.check(TokenRightParen) {
			if len(elems) > 0 {
				p.expect(TokenComma, "','")
				if p.check(TokenRightParen) {
					break
				}
			}
			elems = append(elems, p.parseType())
		}
		end := p.expect(TokenRightParen, "')'")
		return TupleType{Elems: elems, Span: Merge(start, end.Span)}
	case p.check(TokenFn):
		p.next()
		p.expect(TokenLeftParen, "'('")
		var params []Type
		for !p.check(TokenRightParen) {
			if len(params) > 0 {
				p.expect(TokenComma, "','")
				if p.check(TokenRightParen) {
					break
				}
			}
			params = append(params, p.parseType())
		}
		end := p.expect(TokenRightParen, "')'")
		var ret Type
		if p.eat(TokenArrow) {
			ret = p.parseType()
		}
		span := Merge(start, end.Span)
		if ret != nil {
			span = Merge(span, ret.TypeSpan())
		}
		return FuncType{Params: params, Return: ret, Span: span}
	case p.check(TokenIdent) && p.peek().Text == "_":
		p.next()
		return InferType{Span: start}
	case p.check(TokenIdent), p.check(TokenSelfUpper):
		tok := p.next()
		return SimpleType{Name: NewSpanned(tok.Text, tok.Span)}
	default:
		p.fail(UnexpectedToken, "expected a type, found %s", p.peek())
		return nil
	}
}

// ---- blocks and statements ----

func (p *Parser) parseBlock() *Block {
	start := p.expect(TokenLeftBrace, "'{'").Span

	block := &Block{}
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		if p.eat(TokenSemicolon) {
			continue // terminator left after a while/for/loop body
		}
		stmt, tail, isTail := p.parseBlockItem()
		if isTail {
			block.Tail = tail
			break
		}
		block.Stmts = append(block.Stmts, stmt)
	}

	end := p.expect(TokenRightBrace, "'}' to close block").Span
	block.Span = Merge(start, end)
	return block
}

// isControlFlowExpr reports whether e is one of the forms that, per
// spec.md's block grammar, never needs a terminator when used as a
// statement: if/else, match, and a bare block.
func isControlFlowExpr(e Expr) bool {
	switch e.(type) {
	case *IfExpr, *MatchExpr, *BlockExpr:
		return true
	default:
		return false
	}
}

// parseBlockItem parses one statement-or-tail position inside a block. It
// returns (stmt, nil, false) for a statement, or (nil, expr, true) if expr
// is the block's trailing value. An expression followed only by a
// lexer-inserted (zero-width) terminator and then '}' is the trailing value.
func (p *Parser) parseBlockItem() (Stmt, Expr, bool) {
	switch {
	case p.check(TokenLet):
		return p.parseLet(), nil, false
	case p.check(TokenReturn):
		return p.parseReturn(), nil, false
	case p.check(TokenBreak):
		tok := p.next()
		end := p.expect(TokenSemicolon, "';'")
		return &BreakStmt{Span: Merge(tok.Span, end.Span)}, nil, false
	case p.check(TokenContinue):
		tok := p.next()
		end := p.expect(TokenSemicolon, "';'")
		return &ContinueStmt{Span: Merge(tok.Span, end.Span)}, nil, false
	case p.check(TokenWhile):
		return p.parseWhile(), nil, false
	case p.check(TokenFor):
		return p.parseFor(), nil, false
	case p.check(TokenLoop):
		return p.parseLoop(), nil, false
	default:
		expr := p.parseExpr()

		if tok := p.peek(); tok.Kind == TokenSemicolon && tok.Span.IsEmpty() && p.checkAt(1, TokenRightBrace) {
			p.next()
			return nil, expr, true
		}

		if p.eat(TokenSemicolon) {
			return &ExprStmt{Expr: expr, Span: expr.ExprSpan()}, nil, false
		}

		if p.check(TokenRightBrace) || p.check(TokenEOF) {
			return nil, expr, true
		}

		if isControlFlowExpr(expr) {
			return &ExprStmt{Expr: expr, Span: expr.ExprSpan()}, nil, false
		}

		p.fail(ExpectedToken, "expected a statement terminator, found %s", p.peek())
		return nil, nil, false
	}
}

func (p *Parser) parseLet() *LetStmt {
	start := p.expect(TokenLet, "'let'").Span
	mutable := p.eat(TokenMut)
	name := p.expectIdent("a variable name")

	var typ Type
	if p.eat(TokenColon) {
		typ = p.parseType()
	}

	var value Expr
	if p.eat(TokenEqual) {
		value = p.parseExpr()
	}

	end := p.expect(TokenSemicolon, "';'")
	return &LetStmt{Name: name, Type: typ, Value: value, Mutable: mutable, Span: Merge(start, end.Span)}
}

func (p *Parser) parseReturn() *ReturnStmt {
	start := p.expect(TokenReturn, "'return'").Span

	var value Expr
	if !p.check(TokenSemicolon) {
		value = p.parseExpr()
	}

	end := p.expect(TokenSemicolon, "';'")
	return &ReturnStmt{Value: value, Span: Merge(start, end.Span)}
}

func (p *Parser) parseWhile() *WhileStmt {
	start := p.expect(TokenWhile, "'while'").Span
	cond := p.parseExprNoStructLit()
	body := p.parseBlock()
	return &WhileStmt{Cond: cond, Body: body, Span: Merge(start, body.Span)}
}

func (p *Parser) parseFor() *ForStmt {
	start := p.expect(TokenFor, "'for'").Span
	v := p.expectIdent("a loop variable")
	p.expect(TokenIn, "'in'")
	iter := p.parseExprNoStructLit()
	body := p.parseBlock()
	return &ForStmt{Var: v, Iter: iter, Body: body, Span: Merge(start, body.Span)}
}

func (p *Parser) parseLoop() *LoopStmt {
	start := p.expect(TokenLoop, "'loop'").Span
	body := p.parseBlock()
	return &LoopStmt{Body: body, Span: Merge(start, body.Span)}
}

// ---- expressions ----

// parseExprNoStructLit parses an expression with struct-literal parsing
// suppressed, for use as the controlling expression of if/while/for/match,
// where a following '{' belongs to the construct's block rather than to an
// identifier primary.
func (p *Parser) parseExprNoStructLit() Expr {
	saved := p.noStructLit
	p.noStructLit = true
	defer func() { p.noStructLit = saved }()
	return p.parseExpr()
}

func (p *Parser) parseExpr() Expr {
	return p.parseRangeExpr()
}

func (p *Parser) parseRangeExpr() Expr {
	if p.check(TokenDotDot) || p.check(TokenDotDotEqual) {
		tok := p.next()
		inclusive := tok.Kind == TokenDotDotEqual
		end := p.parseRangeOperand()
		span := tok.Span
		if end != nil {
			span = Merge(span, end.ExprSpan())
		}
		return &RangeExpr{exprBase: exprBase{Span: span}, Start: nil, End: end, Inclusive: inclusive}
	}

	left := p.parseBinaryExpr(1)

	if p.check(TokenDotDot) || p.check(TokenDotDotEqual) {
		tok := p.next()
		inclusive := tok.Kind == TokenDotDotEqual
		end := p.parseRangeOperand()
		span := Merge(left.ExprSpan(), tok.Span)
		if end != nil {
			span = Merge(span, end.ExprSpan())
		}
		return &RangeExpr{exprBase: exprBase{Span: span}, Start: left, End: end, Inclusive: inclusive}
	}

	return left
}

// parseRangeOperand parses the optional right-hand side of a range, which
// is absent when the next token is ')', ']', '}', ',', ';' or end of input.
func (p *Parser) parseRangeOperand() Expr {
	switch p.peek().Kind {
	case TokenRightParen, TokenRightBracket, TokenRightBrace, TokenComma, TokenSemicolon, TokenEOF:
		return nil
	default:
		return p.parseBinaryExpr(1)
	}
}

var tokenToBinOp = map[TokenKind]BinOp{
	TokenStar: BinMul, TokenSlash: BinDiv, TokenPercent: BinRem,
	TokenPlus: BinAdd, TokenMinus: BinSub,
	TokenLessLess: BinShl, TokenGreaterGreater: BinShr,
	TokenAmp: BinBitAnd, TokenCaret: BinBitXor, TokenPipe: BinBitOr,
	TokenEqualEqual: BinEq, TokenNotEqual: BinNe,
	TokenLess: BinLt, TokenLessEqual: BinLe, TokenGreater: BinGt, TokenGreaterEqual: BinGe,
	TokenAmpAmp: BinAnd, TokenAnd: BinAnd,
	TokenPipePipe: BinOr, TokenOr: BinOr,
	TokenEqual: BinAssign, TokenPlusEqual: BinAddAssign, TokenMinusEqual: BinSubAssign,
	TokenStarEqual: BinMulAssign, TokenSlashEqual: BinDivAssign, TokenPercentEqual: BinRemAssign,
}

// parseBinaryExpr implements precedence climbing over the BinOp table
// (spec.md §4.2 design note: one table, not one function per operator).
func (p *Parser) parseBinaryExpr(minPrec int) Expr {
	left := p.parseUnary()

	for {
		op, ok := tokenToBinOp[p.peek().Kind]
		if !ok || op.precedence() < minPrec {
			return left
		}

		p.next()

		nextMin := op.precedence() + 1
		if op.rightAssoc() {
			nextMin = op.precedence()
		}
		right := p.parseBinaryExpr(nextMin)

		left = &BinaryExpr{
			exprBase: exprBase{Span: Merge(left.ExprSpan(), right.ExprSpan())},
			Op:       op,
			Left:     left,
			Right:    right,
		}
	}
}

func (p *Parser) parseUnary() Expr {
	start := p.peek().Span

	switch p.peek().Kind {
	case TokenMinus:
		p.next()
		operand := p.parseUnary()
		return &UnaryExpr{exprBase: exprBase{Span: Merge(start, operand.ExprSpan())}, Op: UnNeg, Operand: operand}
	case TokenBang, TokenNot:
		p.next()
		operand := p.parseUnary()
		return &UnaryExpr{exprBase: exprBase{Span: Merge(start, operand.ExprSpan())}, Op: UnNot, Operand: operand}
	case TokenTilde:
		p.next()
		operand := p.parseUnary()
		return &UnaryExpr{exprBase: exprBase{Span: Merge(start, operand.ExprSpan())}, Op: UnBitNot, Operand: operand}
	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

func (p *Parser) parsePostfix(expr Expr) Expr {
	for {
		switch p.peek().Kind {
		case TokenLeftParen:
			p.next()
			var args []Expr
			for !p.check(TokenRightParen) {
				if len(args) > 0 {
					p.expect(TokenComma, "','")
					if p.check(TokenRightParen) {
						break
					}
				}
				args = append(args, p.parseExpr())
			}
			end := p.expect(TokenRightParen, "')'")
			expr = &CallExpr{exprBase: exprBase{Span: Merge(expr.ExprSpan(), end.Span)}, Func: expr, Args: args}
		case TokenLeftBracket:
			p.next()
			index := p.parseExpr()
			end := p.expect(TokenRightBracket, "']'")
			expr = &IndexExpr{exprBase: exprBase{Span: Merge(expr.ExprSpan(), end.Span)}, Target: expr, Index: index}
		case TokenDot:
			p.next()
			field := p.expectIdent("a field or method name")
			if p.check(TokenLeftParen) {
				p.next()
				var args []Expr
				for !p.check(TokenRightParen) {
					if len(args) > 0 {
						p.expect(TokenComma, "','")
						if p.check(TokenRightParen) {
							break
						}
					}
					args = append(args, p.parseExpr())
				}
				end := p.expect(TokenRightParen, "')'")
				expr = &MethodCallExpr{
					exprBase: exprBase{Span: Merge(expr.ExprSpan(), end.Span)},
					Receiver: expr, Method: field, Args: args,
				}
			} else {
				expr = &FieldExpr{exprBase: exprBase{Span: Merge(expr.ExprSpan(), field.Span)}, Target: expr, Field: field}
			}
		case TokenQuestion:
			tok := p.next()
			expr = &TryExpr{exprBase: exprBase{Span: Merge(expr.ExprSpan(), tok.Span)}, Value: expr}
		case TokenAs:
			p.next()
			typ := p.parseType()
			expr = &CastExpr{exprBase: exprBase{Span: Merge(expr.ExprSpan(), typ.TypeSpan())}, Value: expr, Type: typ}
		case TokenIs:
			p.next()
			typ := p.parseType()
			expr = &TypeTestExpr{exprBase: exprBase{Span: Merge(expr.ExprSpan(), typ.TypeSpan())}, Value: expr, Type: typ}
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()

	switch tok.Kind {
	case TokenInteger:
		p.next()
		return &IntegerLit{exprBase: exprBase{Span: tok.Span}, Value: tok.Int}
	case TokenFloat:
		p.next()
		return &FloatLit{exprBase: exprBase{Span: tok.Span}, Value: tok.Float}
	case TokenString:
		p.next()
		return &StringLit{exprBase: exprBase{Span: tok.Span}, Value: tok.Text}
	case TokenChar:
		p.next()
		r := rune(0)
		for _, c := range tok.Text {
			r = c
			break
		}
		return &CharLit{exprBase: exprBase{Span: tok.Span}, Value: r}
	case TokenTrue:
		p.next()
		return &BoolLit{exprBase: exprBase{Span: tok.Span}, Value: true}
	case TokenFalse:
		p.next()
		return &BoolLit{exprBase: exprBase{Span: tok.Span}, Value: false}
	case TokenIdent, TokenSelfLower, TokenSelfUpper:
		p.next()
		ident := &IdentExpr{exprBase: exprBase{Span: tok.Span}, Name: tok.Text}
		if !p.noStructLit && p.check(TokenLeftBrace) {
			return p.parseStructLit(tok)
		}
		return ident
	case TokenLeftParen:
		return p.parseParenOrTuple()
	case TokenLeftBracket:
		return p.parseArrayLit()
	case TokenLeftBrace:
		block := p.parseBlock()
		return &BlockExpr{exprBase: exprBase{Span: block.Span}, Block: block}
	case TokenIf:
		return p.parseIf()
	case TokenMatch:
		return p.parseMatch()
	case TokenAwait:
		p.next()
		value := p.parseUnary()
		return &AwaitExpr{exprBase: exprBase{Span: Merge(tok.Span, value.ExprSpan())}, Value: value}
	case TokenPipe:
		return p.parseLambda()
	default:
		p.fail(UnexpectedToken, "expected an expression, found %s", tok)
		return nil
	}
}

func (p *Parser) parseStructLit(name Token) Expr {
	p.expect(TokenLeftBrace, "'{'")
	var fields []StructLitField
	for !p.check(TokenRightBrace) {
		if len(fields) > 0 {
			p.expect(TokenComma, "','")
			if p.check(TokenRightBrace) {
				break
			}
		}
		fname := p.expectIdent("a field name")
		p.expect(TokenColon, "':'")
		value := p.parseExpr()
		fields = append(fields, StructLitField{Name: fname, Value: value})
	}
	end := p.expect(TokenRightBrace, "'}'")
	return &StructLitExpr{
		exprBase: exprBase{Span: Merge(name.Span, end.Span)},
		Name:     NewSpanned(name.Text, name.Span),
		Fields:   fields,
	}
}

// parseParenOrTuple parses "(expr)" or "(e, e, ...)"; the latter (with at
// least one comma) is a TupleExpr, distinguishing it from a parenthesized
// single expression.
func (p *Parser) parseParenOrTuple() Expr {
	start := p.expect(TokenLeftParen, "'('").Span

	if p.check(TokenRightParen) {
		end := p.next().Span
		return &TupleExpr{exprBase: exprBase{Span: Merge(start, end)}}
	}

	first := p.parseExpr()
	if !p.check(TokenComma) {
		end := p.expect(TokenRightParen, "')'")
		return rewrapParen(first, Merge(start, end.Span))
	}

	elems := []Expr{first}
	for p.eat(TokenComma) {
		if p.check(TokenRightParen) {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	end := p.expect(TokenRightParen, "')'")
	return &TupleExpr{exprBase: exprBase{Span: Merge(start, end.Span)}, Elems: elems}
}

func (p *Parser) parseArrayLit() Expr {
	start := p.expect(TokenLeftBracket, "'['").Span
	var elems []Expr
	for !p.check(TokenRightBracket) {
		if len(elems) > 0 {
			p.expect(TokenComma, "','")
			if p.check(TokenRightBracket) {
				break
			}
		}
		elems = append(elems, p.parseExpr())
	}
	end := p.expect(TokenRightBracket, "']'")
	return &ArrayExpr{exprBase: exprBase{Span: Merge(start, end.Span)}, Elems: elems}
}

func (p *Parser) parseIf() Expr {
	start := p.expect(TokenIf, "'if'").Span
	cond := p.parseExprNoStructLit()
	then := p.parseBlock()

	span := Merge(start, then.Span)
	var elseBlock *Block
	if p.eat(TokenElse) {
		if p.check(TokenIf) {
			inner := p.parseIf()
			elseBlock = &Block{Tail: inner, Span: inner.ExprSpan()}
		} else {
			elseBlock = p.parseBlock()
		}
		span = Merge(span, elseBlock.Span)
	}

	return &IfExpr{exprBase: exprBase{Span: span}, Cond: cond, Then: then, Else: elseBlock}
}

func (p *Parser) parseMatch() Expr {
	start := p.expect(TokenMatch, "'match'").Span
	subject := p.parseExprNoStructLit()
	p.expect(TokenLeftBrace, "'{'")

	var arms []MatchArm
	for !p.check(TokenRightBrace) {
		pattern := p.parsePattern()

		var guard Expr
		if p.eat(TokenIf) {
			guard = p.parseExpr()
		}

		p.expect(TokenFatArrow, "'=>'")
		body := p.parseExpr()
		arms = append(arms, MatchArm{Pattern: pattern, Guard: guard, Body: body})

		if !p.eat(TokenComma) {
			break
		}
	}

	end := p.expect(TokenRightBrace, "'}'")
	return &MatchExpr{exprBase: exprBase{Span: Merge(start, end.Span)}, Subject: subject, Arms: arms}
}

func (p *Parser) parseLambda() Expr {
	start := p.expect(TokenPipe, "'|'").Span

	var params []Param
	for !p.check(TokenPipe) {
		if len(params) > 0 {
			p.expect(TokenComma, "','")
			if p.check(TokenPipe) {
				break
			}
		}
		name := p.expectIdent("a parameter name")
		var typ Type
		if p.eat(TokenColon) {
			typ = p.parseType()
		} else {
			typ = InferType{Span: name.Span}
		}
		params = append(params, Param{Name: name, Type: typ})
	}
	p.expect(TokenPipe, "'|'")

	body := p.parseExpr()
	return &LambdaExpr{exprBase: exprBase{Span: Merge(start, body.ExprSpan())}, Params: params, Body: body}
}

// ---- patterns ----

func (p *Parser) parsePattern() Pattern {
	tok := p.peek()

	switch tok.Kind {
	case TokenIdent:
		if tok.Text == "_" {
			p.next()
			return WildcardPattern{Span: tok.Span}
		}
		p.next()
		if p.check(TokenLeftParen) {
			p.next()
			var elems []Pattern
			for !p.check(TokenRightParen) {
				if len(elems) > 0 {
					p.expect(TokenComma, "','")
					if p.check(TokenRightParen) {
						break
					}
				}
				elems = append(elems, p.parsePattern())
			}
			end := p.expect(TokenRightParen, "')'")
			return VariantPattern{Name: tok.Text, Elems: elems, Span: Merge(tok.Span, end.Span)}
		}
		return IdentPattern{Name: tok.Text, Span: tok.Span}
	case TokenLeftParen:
		p.next()
		var elems []Pattern
		for !p.check(TokenRightParen) {
			if len(elems) > 0 {
				p.expect(TokenComma, "','")
				if p.check(TokenRightParen) {
					break
				}
			}
			elems = append(elems, p.parsePattern())
		}
		end := p.expect(TokenRightParen, "')'")
		return TuplePattern{Elems: elems, Span: Merge(tok.Span, end.Span)}
	case TokenInteger, TokenFloat, TokenString, TokenTrue, TokenFalse, TokenMinus:
		lit := p.parseUnary()
		return LiteralPattern{Value: lit, Span: lit.ExprSpan()}
	default:
		p.fail(UnexpectedToken, "expected a pattern, found %s", tok)
		return nil
	}
}

// rewrapParen exists purely so parseParenOrTuple's single-expression branch
// has one expression-typed return path; it just widens the span to include
// the parens.
func rewrapParen(e Expr, span Span) Expr {
	switch v := e.(type) {
	case *IntegerLit:
		v.Span = span
	case *FloatLit:
		v.Span = span
	case *StringLit:
		v.Span = span
	case *CharLit:
		v.Span = span
	case *BoolLit:
		v.Span = span
	case *IdentExpr:
		v.Span = span
	case *BinaryExpr:
		v.Span = span
	case *UnaryExpr:
		v.Span = span
	case *CallExpr:
		v.Span = span
	case *MethodCallExpr:
		v.Span = span
	case *FieldExpr:
		v.Span = span
	case *IndexExpr:
		v.Span = span
	case *RangeExpr:
		v.Span = span
	case *IfExpr:
		v.Span = span
	case *MatchExpr:
		v.Span = span
	case *BlockExpr:
		v.Span = span
	case *TupleExpr:
		v.Span = span
	case *ArrayExpr:
		v.Span = span
	case *StructLitExpr:
		v.Span = span
	case *LambdaExpr:
		v.Span = span
	case *AwaitExpr:
		v.Span = span
	case *TryExpr:
		v.Span = span
	case *CastExpr:
		v.Span = span
	case *TypeTestExpr:
		v.Span = span
	}
	return e
}
