package fruti

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// Emitter lowers a checked Module into LLVM-style textual IR, using
// github.com/llir/llvm to build the module in memory and render it.
//
// Per spec.md §4.4 this stage is deliberately minimal: it proves the
// pipeline reaches working IR rather than fully compiling the language.
// Every function becomes a stub - parameters and returns coerced to i32
// (main always returns i32), bodies replaced by a single placeholder
// instruction. libc's printf/puts are declared, but no calls to them are
// emitted: print/println calls in a body are not lowered.
type Emitter struct {
	mod    *ir.Module
	printf *ir.Func
	puts   *ir.Func
}

// NewEmitter creates an Emitter with printf/puts declared into a fresh
// module, matching the builtins the semantic analyzer seeds into scope
// (spec.md §6).
func NewEmitter() *Emitter {
	mod := ir.NewModule()

	printf := mod.NewFunc("printf", types.I32, ir.NewParam("format", types.NewPointer(types.I8)))
	printf.Sig.Variadic = true

	puts := mod.NewFunc("puts", types.I32, ir.NewParam("s", types.NewPointer(types.I8)))

	return &Emitter{mod: mod, printf: printf, puts: puts}
}

// Emit renders module as LLVM-style textual IR. filename supplies both the
// module ID and the source_filename header line (spec.md §6).
func (em *Emitter) Emit(module *Module, filename string) string {
	for _, item := range module.Items {
		if fn, ok := item.(*Function); ok {
			em.emitFunction(fn)
		}
		// Every other item kind (struct/enum/trait/impl/type/const/import)
		// has no IR-level representation at this minimal backend: structs
		// and enums describe shapes the type checker already consumed,
		// traits and impls resolve to their constituent functions (which
		// are emitted as *Function values reached through Impl.Methods,
		// not as top-level items - see below), and const/import carry no
		// runtime code of their own.
	}

	for _, item := range module.Items {
		if impl, ok := item.(*Impl); ok {
			for _, m := range impl.Methods {
				em.emitFunction(m)
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", filename)
	fmt.Fprintf(&sb, "source_filename = %q\n\n", filename)
	sb.WriteString(em.mod.String())
	return sb.String()
}

// paramType coerces every surface parameter type to i32; this backend does
// not lower the language's real type system into LLVM types.
func paramType(Type) types.Type {
	return types.I32
}

// returnType is i32 for any declared return type and void when one is
// absent, mirroring the "()" unit type's absence from the surface syntax.
func returnType(ret Type) types.Type {
	if ret == nil {
		return types.Void
	}
	return types.I32
}

func (em *Emitter) emitFunction(fn *Function) {
	var params []*ir.Param
	for _, p := range fn.Params {
		params = append(params, ir.NewParam(p.Name.Value, paramType(p.Type)))
	}

	ret := returnType(fn.ReturnType)
	if fn.Name.Value == "main" {
		ret = types.I32
	}
	f := em.mod.NewFunc(fn.Name.Value, ret, params...)
	block := f.NewBlock("entry")

	switch {
	case fn.Name.Value == "main":
		block.NewRet(constant.NewInt(types.I32, 0))
	case ret == types.Void:
		block.NewRet(nil)
	default:
		block.NewRet(constant.NewInt(types.I32, 0))
	}
}
