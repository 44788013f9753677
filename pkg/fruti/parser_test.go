package fruti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, source string) *Module {
	t.Helper()
	toks, lexErr := NewLexer(source).Run()
	require.Nil(t, lexErr)

	module, parseErr := NewParser(toks).Parse("test.fruti")
	require.Nil(t, parseErr, "unexpected parse error: %v", parseErr)
	return module
}

func TestParserFunctionDecl(t *testing.T) {
	module := parse(t, `fn add(a: i32, b: i32) -> i32 { a + b }`)

	require.Len(t, module.Items, 1)
	fn, ok := module.Items[0].(*Function)
	require.True(t, ok)

	assert.Equal(t, "add", fn.Name.Value)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name.Value)
	require.NotNil(t, fn.Body.Tail)

	bin, ok := fn.Body.Tail.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, BinAdd, bin.Op)
}

func TestParserOperatorPrecedence(t *testing.T) {
	module := parse(t, `fn f() { 1 + 2 * 3 }`)
	fn := module.Items[0].(*Function)

	top, ok := fn.Body.Tail.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, BinAdd, top.Op)

	right, ok := top.Right.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, BinMul, right.Op)
}

func TestParserAssignmentIsRightAssociative(t *testing.T) {
	module := parse(t, `fn f() { a = b = c }`)
	fn := module.Items[0].(*Function)

	top, ok := fn.Body.Tail.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, BinAssign, top.Op)

	_, ok = top.Left.(*IdentExpr)
	require.True(t, ok)

	inner, ok := top.Right.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, BinAssign, inner.Op)
}

func TestParserBlockTrailingExpression(t *testing.T) {
	module := parse(t, "fn f() {\n  let x = 1;\n  x + 1\n}")
	fn := module.Items[0].(*Function)

	require.Len(t, fn.Body.Stmts, 1)
	require.NotNil(t, fn.Body.Tail)
	_, ok := fn.Body.Tail.(*BinaryExpr)
	assert.True(t, ok)
}

func TestParserControlFlowStatementNeedsNoTerminator(t *testing.T) {
	module := parse(t, `fn f() {
  if true { 1; } else { 2; }
  let y = 3;
}`)
	fn := module.Items[0].(*Function)
	require.Len(t, fn.Body.Stmts, 2)

	_, ok := fn.Body.Stmts[0].(*ExprStmt)
	require.True(t, ok)
}

func TestParserStructLiteralSuppressedInIfCondition(t *testing.T) {
	module := parse(t, `fn f() {
  if cond { 1 } else { 2 }
}`)
	fn := module.Items[0].(*Function)
	ifExpr, ok := fn.Body.Tail.(*IfExpr)
	require.True(t, ok)

	_, ok = ifExpr.Cond.(*IdentExpr)
	assert.True(t, ok, "condition should parse as a bare identifier, not a struct literal")
}

func TestParserStructLiteralAllowedElsewhere(t *testing.T) {
	module := parse(t, `fn f() { let p = Point { x: 1, y: 2 }; }`)
	fn := module.Items[0].(*Function)
	let := fn.Body.Stmts[0].(*LetStmt)

	lit, ok := let.Value.(*StructLitExpr)
	require.True(t, ok)
	assert.Equal(t, "Point", lit.Name.Value)
	require.Len(t, lit.Fields, 2)
}

func TestParserTupleVsParenthesized(t *testing.T) {
	module := parse(t, `fn f() { (1) }`)
	fn := module.Items[0].(*Function)
	_, isTuple := fn.Body.Tail.(*TupleExpr)
	assert.False(t, isTuple)

	module = parse(t, `fn f() { (1, 2) }`)
	fn = module.Items[0].(*Function)
	tup, ok := fn.Body.Tail.(*TupleExpr)
	require.True(t, ok)
	assert.Len(t, tup.Elems, 2)
}

func TestParserStructAndEnum(t *testing.T) {
	module := parse(t, `
struct Point { x: i32, y: i32 }
enum Shape { Circle(f64), Square { side: f64 }, Empty }
`)
	require.Len(t, module.Items, 2)

	st := module.Items[0].(*Struct)
	assert.Equal(t, "Point", st.Name.Value)
	require.Len(t, st.Fields, 2)

	en := module.Items[1].(*Enum)
	require.Len(t, en.Variants, 3)
	assert.False(t, en.Variants[0].IsUnit())
	assert.False(t, en.Variants[1].IsUnit())
	assert.True(t, en.Variants[2].IsUnit())
}

func TestParserMatchExpression(t *testing.T) {
	module := parse(t, `fn f(x: i32) -> i32 {
  match x {
    0 => 1,
    n if n > 0 => n,
    _ => 0,
  }
}`)
	fn := module.Items[0].(*Function)
	m, ok := fn.Body.Tail.(*MatchExpr)
	require.True(t, ok)
	require.Len(t, m.Arms, 3)
	assert.NotNil(t, m.Arms[1].Guard)
}

func TestParserRangeExpressions(t *testing.T) {
	module := parse(t, `fn f() { for i in 0..10 { } }`)
	fn := module.Items[0].(*Function)
	forStmt, ok := fn.Body.Stmts[0].(*ForStmt)
	require.True(t, ok)

	rng, ok := forStmt.Iter.(*RangeExpr)
	require.True(t, ok)
	assert.False(t, rng.Inclusive)
}

func TestParserImplWithSelf(t *testing.T) {
	module := parse(t, `
struct Point { x: i32, y: i32 }
impl Point {
  fn sum(self) -> i32 { self.x + self.y }
}
`)
	impl := module.Items[1].(*Impl)
	require.Len(t, impl.Methods, 1)
	require.Len(t, impl.Methods[0].Params, 1)
	assert.Equal(t, "self", impl.Methods[0].Params[0].Name.Value)
}

func TestParserErrorOnMissingTerminator(t *testing.T) {
	toks, lexErr := NewLexer("fn f() { 1 2 }").Run()
	require.Nil(t, lexErr)

	_, err := NewParser(toks).Parse("test.fruti")
	require.NotNil(t, err)
}
