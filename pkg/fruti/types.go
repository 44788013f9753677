package fruti

import (
	"strconv"
	"strings"
)

// ResolvedType is the semantic analyzer's output type for an expression or
// declaration, as opposed to the untyped syntax of Type (spec.md §3).
type ResolvedType interface {
	resolvedTypeNode()
	String() string
}

// Primitive is one of the built-in scalar kinds seeded into every program's
// outer scope (spec.md §6).
type Primitive int

const (
	I8 Primitive = iota
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	Bool
	Char
	Str
	Unit
)

var primitiveNames = map[Primitive]string{
	I8: "i8", I16: "i16", I32: "i32", I64: "i64",
	U8: "u8", U16: "u16", U32: "u32", U64: "u64",
	F32: "f32", F64: "f64", Bool: "bool", Char: "char", Str: "str", Unit: "()",
}

var primitiveByName = func() map[string]Primitive {
	m := make(map[string]Primitive, len(primitiveNames))
	for p, name := range primitiveNames {
		if name != "()" {
			m[name] = p
		}
	}
	return m
}()

// PrimitiveType wraps a Primitive so it satisfies ResolvedType.
type PrimitiveType struct{ Kind Primitive }

func (PrimitiveType) resolvedTypeNode() {}
func (t PrimitiveType) String() string  { return primitiveNames[t.Kind] }

// isNumeric reports whether t is one of the integer or float primitives.
func (t PrimitiveType) isNumeric() bool {
	switch t.Kind {
	case I8, I16, I32, I64, U8, U16, U32, U64, F32, F64:
		return true
	default:
		return false
	}
}

// isInteger reports whether t is one of the integer primitives.
func (t PrimitiveType) isInteger() bool {
	switch t.Kind {
	case I8, I16, I32, I64, U8, U16, U32, U64:
		return true
	default:
		return false
	}
}

// ReferenceType is "&T" resolved.
type ReferenceType struct{ Elem ResolvedType }

func (ReferenceType) resolvedTypeNode() {}
func (t ReferenceType) String() string  { return "&" + t.Elem.String() }

// OwnedType is "own T" resolved.
type OwnedType struct{ Elem ResolvedType }

func (OwnedType) resolvedTypeNode() {}
func (t OwnedType) String() string  { return "own " + t.Elem.String() }

// TupleResolvedType is a resolved tuple type.
type TupleResolvedType struct{ Elems []ResolvedType }

func (TupleResolvedType) resolvedTypeNode() {}
func (t TupleResolvedType) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, e := range t.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// ArrayResolvedType is a resolved array type; Size is nil when unspecified.
type ArrayResolvedType struct {
	Elem ResolvedType
	Size *int
}

func (ArrayResolvedType) resolvedTypeNode() {}
func (t ArrayResolvedType) String() string {
	if t.Size != nil {
		return "[" + t.Elem.String() + "; " + strconv.Itoa(*t.Size) + "]"
	}
	return "[" + t.Elem.String() + "]"
}

// FunctionResolvedType is a resolved function signature.
type FunctionResolvedType struct {
	Params []ResolvedType
	Return ResolvedType
}

func (FunctionResolvedType) resolvedTypeNode() {}
func (t FunctionResolvedType) String() string {
	var sb strings.Builder
	sb.WriteString("fn(")
	for i, p := range t.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(") -> ")
	sb.WriteString(t.Return.String())
	return sb.String()
}

// UserDefinedType names a struct, enum or trait by name. It also serves as
// the forward-reference placeholder during pass 1 of the semantic
// analyzer, before the name's real kind is known to have been declared.
type UserDefinedType struct{ Name string }

func (UserDefinedType) resolvedTypeNode() {}
func (t UserDefinedType) String() string  { return t.Name }

// UnknownType is the inference placeholder: it compares compatible with
// every other type.
type UnknownType struct{}

func (UnknownType) resolvedTypeNode() {}
func (UnknownType) String() string    { return "?" }

// typesEqual implements the compatibility rule from spec.md §4.3: exact
// equality, or either side is Unknown.
func typesEqual(a, b ResolvedType) bool {
	if isUnknown(a) || isUnknown(b) {
		return true
	}

	switch av := a.(type) {
	case PrimitiveType:
		bv, ok := b.(PrimitiveType)
		return ok && av.Kind == bv.Kind
	case ReferenceType:
		bv, ok := b.(ReferenceType)
		return ok && typesEqual(av.Elem, bv.Elem)
	case OwnedType:
		bv, ok := b.(OwnedType)
		return ok && typesEqual(av.Elem, bv.Elem)
	case TupleResolvedType:
		bv, ok := b.(TupleResolvedType)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !typesEqual(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case ArrayResolvedType:
		bv, ok := b.(ArrayResolvedType)
		if !ok || !typesEqual(av.Elem, bv.Elem) {
			return false
		}
		if (av.Size == nil) != (bv.Size == nil) {
			return false
		}
		return av.Size == nil || *av.Size == *bv.Size
	case FunctionResolvedType:
		bv, ok := b.(FunctionResolvedType)
		if !ok || len(av.Params) != len(bv.Params) {
			return false
		}
		for i := range av.Params {
			if !typesEqual(av.Params[i], bv.Params[i]) {
				return false
			}
		}
		return typesEqual(av.Return, bv.Return)
	case UserDefinedType:
		bv, ok := b.(UserDefinedType)
		return ok && av.Name == bv.Name
	default:
		return false
	}
}

func isUnknown(t ResolvedType) bool {
	_, ok := t.(UnknownType)
	return ok
}
