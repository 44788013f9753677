package fruti

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, source string) (*Module, *Error) {
	t.Helper()
	toks, lexErr := NewLexer(source).Run()
	require.Nil(t, lexErr)

	module, parseErr := NewParser(toks).Parse("test.fruti")
	require.Nil(t, parseErr)

	err := NewAnalyzer().Analyze(module)
	return module, err
}

func TestAnalyzerAnnotatesLiteralTypes(t *testing.T) {
	module, err := analyze(t, `fn f() -> i32 { 1 }`)
	require.Nil(t, err)

	fn := module.Items[0].(*Function)
	lit := fn.Body.Tail.(*IntegerLit)
	assert.Equal(t, PrimitiveType{Kind: I32}, lit.ResolvedType)
}

func TestAnalyzerForwardReference(t *testing.T) {
	// calls a function declared later in the same module: pass 1 must have
	// already collected its signature before pass 2 checks the call.
	_, err := analyze(t, `
fn caller() -> i32 {
  callee()
}

fn callee() -> i32 {
  1
}
`)
	assert.Nil(t, err)
}

func TestAnalyzerUndefinedVariable(t *testing.T) {
	_, err := analyze(t, `fn f() -> i32 { y }`)
	require.NotNil(t, err)
	assert.Equal(t, UndefinedVariable, err.Kind)
}

func TestAnalyzerDuplicateDefinition(t *testing.T) {
	_, err := analyze(t, `
fn f() { }
fn f() { }
`)
	require.NotNil(t, err)
	assert.Equal(t, SemanticError, err.Kind)
}

func TestAnalyzerReturnTypeMismatch(t *testing.T) {
	_, err := analyze(t, `fn f() -> i32 { true }`)
	require.NotNil(t, err)
	assert.Equal(t, TypeMismatch, err.Kind)
}

func TestAnalyzerWhileConditionMustBeBool(t *testing.T) {
	_, err := analyze(t, `
fn f() {
  while 1 {
  }
}
`)
	require.NotNil(t, err)
	assert.Equal(t, TypeMismatch, err.Kind)
}

func TestAnalyzerIfBranchesMustAgree(t *testing.T) {
	_, err := analyze(t, `
fn f() -> i32 {
  if true { 1 } else { true }
}
`)
	require.NotNil(t, err)
	assert.Equal(t, TypeMismatch, err.Kind)
}

func TestAnalyzerVariableScopeIsolation(t *testing.T) {
	_, err := analyze(t, `
fn f() {
  if true {
    let x = 1;
  }
}

fn g() -> i32 {
  x
}
`)
	require.NotNil(t, err)
	assert.Equal(t, UndefinedVariable, err.Kind)
}

func TestAnalyzerBreakOutsideLoop(t *testing.T) {
	_, err := analyze(t, `
fn f() {
  break;
}
`)
	require.NotNil(t, err)
	assert.Equal(t, SemanticError, err.Kind)
}

func TestAnalyzerCallArgumentCount(t *testing.T) {
	_, err := analyze(t, `
fn add(a: i32, b: i32) -> i32 { a + b }

fn f() -> i32 {
  add(1)
}
`)
	require.NotNil(t, err)
	assert.Equal(t, TypeMismatch, err.Kind)
}

func TestAnalyzerConstantTypeCheck(t *testing.T) {
	_, err := analyze(t, `const MAX: i32 = true;`)
	require.NotNil(t, err)
	assert.Equal(t, TypeMismatch, err.Kind)
}

func TestAnalyzerBitNotRequiresInteger(t *testing.T) {
	_, err := analyze(t, `fn f() -> i32 { ~1 }`)
	assert.Nil(t, err)

	_, err = analyze(t, `fn f() -> f64 { ~1.5 }`)
	require.NotNil(t, err)
	assert.Equal(t, TypeMismatch, err.Kind)
}

func TestAnalyzerSelfResolvesToImplSubjectType(t *testing.T) {
	module, err := analyze(t, `
struct Point { x: i32, y: i32 }

impl Point {
  fn getX(self) -> i32 { self.x }
}
`)
	require.Nil(t, err)

	impl := module.Items[1].(*Impl)
	field := impl.Methods[0].Body.Tail.(*FieldExpr)
	self := field.Target.(*IdentExpr)
	// Self must still be bound while the body is checked, or self resolves
	// to the literal placeholder type "Self" instead of the impl's subject.
	assert.Equal(t, UserDefinedType{Name: "Point"}, self.ResolvedType)
}
