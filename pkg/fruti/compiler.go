package fruti

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Arch, Vendor and OS name one leg of an LLVM target triple.
type Arch string
type Vendor string
type OS string

const (
	X86_64  Arch = "x86_64"
	Aarch64 Arch = "aarch64"

	UnknownVendor Vendor = "unknown"
	Apple         Vendor = "apple"

	Linux   OS = "linux-gnu"
	Darwin  OS = "darwin"
	Windows OS = "windows-msvc"
)

// Target is the triple clang needs to pick a backend and object format.
type Target struct {
	Arch   Arch
	Vendor Vendor
	OS     OS
}

func (t Target) String() string {
	return fmt.Sprintf("%s-%s-%s", t.Arch, t.Vendor, t.OS)
}

// DefaultTarget targets x86_64 Linux, a reasonable default for a
// from-source build with no host detection wired in.
func DefaultTarget() Target {
	return Target{Arch: X86_64, Vendor: UnknownVendor, OS: Linux}
}

// Compiler runs the full front-end pipeline - lex, parse, analyze, emit -
// halting at the first stage that reports an Error (spec.md §7), and
// optionally hands the resulting IR to clang to produce a native binary.
type Compiler struct {
	target Target
}

// NewCompiler creates a Compiler that will build for target.
func NewCompiler(target Target) *Compiler {
	return &Compiler{target: target}
}

// Check runs the pipeline through semantic analysis only, returning the
// checked tree or the first Error any stage produced. Useful for a
// diagnostics-only "check" command that never touches a backend.
func (c *Compiler) Check(source, filename string) (*Module, *Error) {
	tokens, lexErr := NewLexer(source).Run()
	if lexErr != nil {
		return nil, lexErr
	}

	module, parseErr := NewParser(tokens).Parse(filename)
	if parseErr != nil {
		return nil, parseErr
	}

	if semErr := NewAnalyzer().Analyze(module); semErr != nil {
		return nil, semErr
	}

	return module, nil
}

// EmitIR runs the full front-end and renders the resulting LLVM-style IR
// text, or returns the first Error encountered.
func (c *Compiler) EmitIR(source, filename string) (string, *Error) {
	module, err := c.Check(source, filename)
	if err != nil {
		return "", err
	}

	return NewEmitter().Emit(module, filename), nil
}

// Compile runs the front-end and, on success, pipes the emitted IR through
// clang to produce a native binary at outPath.
func (c *Compiler) Compile(source, filename, outPath string) *Error {
	ir, err := c.EmitIR(source, filename)
	if err != nil {
		return err
	}

	if buildErr := c.build(ir, outPath); buildErr != nil {
		return NewError(SemanticError, EmptySpan(0), "backend: %s", buildErr)
	}

	return nil
}

// build shells out to clang, streaming the IR text over a pipe so the
// toolchain never has to see a temporary file.
func (c *Compiler) build(ir, outPath string) error {
	cmd := exec.Command("clang",
		"-x", "ir",
		"--target="+c.target.String(),
		"-o", outPath,
		"-",
	)

	r, w := io.Pipe()
	cmd.Stdin = r

	var g errgroup.Group
	g.Go(func() error {
		if _, err := w.Write([]byte(ir)); err != nil {
			return errors.Wrap(err, "writing IR to clang")
		}
		return w.Close()
	})

	g.Go(func() error {
		out, err := cmd.CombinedOutput()
		if err != nil {
			return errors.Wrapf(err, "clang: %s", out)
		}
		return nil
	})

	return g.Wait()
}
