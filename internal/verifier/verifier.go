// Package verifier validates and executes model-generated Go candidates in a
// restricted in-process interpreter and checks them against behavioral
// assertions. The restricted namespace is a best-effort harness, not a
// security boundary.
package verifier

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Failure kinds reported in FailureDetail.Kind.
const (
	KindAssertion = "AssertionError"
	KindRuntime   = "RuntimeError"
	KindTimeout   = "TimeoutError"
	KindMalformed = "MalformedAssertion"
	KindExecution = "ExecutionError"
)

// Verdict is the structured result of verifying one candidate. It is
// produced fresh on every call and never mutated afterward.
type Verdict struct {
	Accepted    bool            `json:"accepted"`
	TestsPassed int             `json:"tests_passed"`
	TestsTotal  int             `json:"tests_total"`
	Failures    []FailureDetail `json:"failures,omitempty"`
	Diagnostic  string          `json:"diagnostic"`
}

// FailureDetail describes one failed assertion.
type FailureDetail struct {
	Index     int    `json:"index"`
	Assertion string `json:"assertion"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Actual    string `json:"actual,omitempty"`
	Expected  string `json:"expected,omitempty"`
	HasValues bool   `json:"has_values,omitempty"`
}

// allowedPackages is the stdlib whitelist exported into the interpreter.
// Filesystem, network, process, and reflection packages stay out.
var allowedPackages = []string{
	"bytes",
	"errors",
	"fmt",
	"math",
	"regexp",
	"sort",
	"strconv",
	"strings",
	"unicode",
	"unicode/utf8",
}

// Verifier runs candidates against assertions. It is stateless and safe for
// concurrent use; every call builds a fresh interpreter.
type Verifier struct {
	timeout     time.Duration
	maxReported int
}

// New constructs a Verifier with the given per-candidate wall-clock ceiling
// and the number of failures summarized in the diagnostic message.
func New(timeout time.Duration, maxReported int) *Verifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxReported <= 0 {
		maxReported = 3
	}
	return &Verifier{timeout: timeout, maxReported: maxReported}
}

// Verify validates, executes, and asserts one candidate. A verdict with
// TestsTotal == 0 is never accepted; callers that only need "runs without
// fault" use Run instead.
func (v *Verifier) Verify(ctx context.Context, source string, assertions []string) Verdict {
	src := stripPackageClause(source)

	file, verdict := v.validate(src)
	if verdict != nil {
		return *verdict
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	i := interp.New(interp.Options{})
	if err := i.Use(sandboxSymbols()); err != nil {
		return faultVerdict(fmt.Sprintf("interpreter setup failed: %v", err))
	}

	if _, err := safeEval(ctx, i, src); err != nil {
		return faultVerdict(fmt.Sprintf("%s: %s", faultKind(ctx, err), faultMessage(err)))
	}

	target := targetFunction(file)
	targetDefined := target != ""
	if targetDefined {
		if _, err := safeEval(ctx, i, target); err != nil {
			targetDefined = false
		}
	}

	out := Verdict{TestsTotal: len(assertions)}
	for idx, assertion := range assertions {
		n := idx + 1
		if !targetDefined {
			out.Failures = append(out.Failures, FailureDetail{
				Index:     n,
				Assertion: assertion,
				Kind:      KindExecution,
				Message:   "target function not found in candidate",
			})
			continue
		}

		val, err := safeEval(ctx, i, assertion)
		if err != nil {
			out.Failures = append(out.Failures, assertionFault(ctx, n, assertion, err))
			continue
		}

		ok, isBool := boolValue(val)
		switch {
		case !isBool:
			out.Failures = append(out.Failures, FailureDetail{
				Index:     n,
				Assertion: assertion,
				Kind:      KindMalformed,
				Message:   "assertion did not evaluate to a boolean",
			})
		case ok:
			out.TestsPassed++
		default:
			out.Failures = append(out.Failures, v.assertionFailure(ctx, i, n, assertion))
		}
	}

	out.Accepted = out.TestsTotal > 0 && out.TestsPassed == out.TestsTotal
	out.Diagnostic = v.summarize(out)
	return out
}

// Run is the zero-assertion calling convention: it reports whether the
// candidate parses and executes cleanly in the restricted namespace.
func (v *Verifier) Run(ctx context.Context, source string) error {
	src := stripPackageClause(source)

	if _, verdict := v.validate(src); verdict != nil {
		return fmt.Errorf("%s", verdict.Diagnostic)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	i := interp.New(interp.Options{})
	if err := i.Use(sandboxSymbols()); err != nil {
		return fmt.Errorf("interpreter setup failed: %w", err)
	}
	if _, err := safeEval(ctx, i, src); err != nil {
		return fmt.Errorf("%s: %s", faultKind(ctx, err), faultMessage(err))
	}
	return nil
}

// validate parses the candidate and enforces the import whitelist. It
// returns the parsed file on success, or a rejection verdict.
func (v *Verifier) validate(src string) (*ast.File, *Verdict) {
	wrapped := "package main\n\n" + src

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", wrapped, 0)
	if err != nil {
		return nil, syntaxVerdict(err)
	}

	for _, imp := range file.Imports {
		p := strings.Trim(imp.Path.Value, `"`)
		if !importAllowed(p) {
			vd := faultVerdict(fmt.Sprintf("forbidden import %q: only a restricted stdlib subset is available (%s)",
				p, strings.Join(allowedPackages, ", ")))
			return nil, &vd
		}
	}
	return file, nil
}

func (v *Verifier) assertionFailure(ctx context.Context, i *interp.Interpreter, n int, assertion string) FailureDetail {
	detail := FailureDetail{
		Index:     n,
		Assertion: assertion,
		Kind:      KindAssertion,
		Message:   "assertion failed",
	}

	// Heuristic actual/expected recovery: split once on the equality
	// comparator and evaluate both sides independently. Falls back to the
	// generic message on any other comparator or evaluation fault.
	left, right, ok := splitEquality(assertion)
	if !ok {
		return detail
	}
	actual, errL := safeEval(ctx, i, left)
	expected, errR := safeEval(ctx, i, right)
	if errL != nil || errR != nil || !actual.IsValid() || !expected.IsValid() {
		return detail
	}

	detail.Actual = render(actual)
	detail.Expected = render(expected)
	detail.HasValues = true
	detail.Message = fmt.Sprintf("expected %s, but got %s", detail.Expected, detail.Actual)
	return detail
}

func (v *Verifier) summarize(verdict Verdict) string {
	if len(verdict.Failures) == 0 {
		if verdict.TestsTotal == 0 {
			return "no assertions were run"
		}
		return fmt.Sprintf("all %d tests passed", verdict.TestsTotal)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d tests passed\n", verdict.TestsPassed, verdict.TestsTotal)
	shown := verdict.Failures
	if len(shown) > v.maxReported {
		shown = shown[:v.maxReported]
	}
	for _, f := range shown {
		fmt.Fprintf(&b, "test %d: %s\n  %s\n", f.Index, f.Assertion, f.Message)
	}
	if rest := len(verdict.Failures) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "... and %d more failure(s)\n", rest)
	}
	return strings.TrimRight(b.String(), "\n")
}

// safeEval evaluates src in the interpreter, converting panics from
// interpreted code into errors.
func safeEval(ctx context.Context, i *interp.Interpreter, src string) (val reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return i.EvalWithContext(ctx, src)
}

func assertionFault(ctx context.Context, n int, assertion string, err error) FailureDetail {
	msg := faultMessage(err)
	kind := faultKind(ctx, err)
	if kind != KindTimeout && looksTruncated(msg) {
		return FailureDetail{
			Index:     n,
			Assertion: assertion,
			Kind:      KindMalformed,
			Message:   "incomplete test case - the assertion appears to be cut off or malformed: " + msg,
		}
	}
	return FailureDetail{
		Index:     n,
		Assertion: assertion,
		Kind:      kind,
		Message:   msg,
	}
}

func faultKind(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return KindTimeout
	}
	return KindRuntime
}

func faultMessage(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

// looksTruncated reports whether an evaluation error indicates input that
// was cut off rather than a genuine candidate bug.
func looksTruncated(msg string) bool {
	return strings.Contains(msg, "found 'EOF'") || strings.Contains(msg, "unexpected EOF")
}

func syntaxVerdict(err error) *Verdict {
	var list scanner.ErrorList
	if ok := asErrorList(err, &list); ok && len(list) > 0 {
		first := list[0]
		// The candidate is wrapped with a package clause plus a blank line;
		// report positions in the candidate's own coordinates.
		line := first.Pos.Line - 2
		if line < 1 {
			line = 1
		}
		vd := faultVerdict(fmt.Sprintf("syntax error at line %d, column %d: %s", line, first.Pos.Column, first.Msg))
		return &vd
	}
	vd := faultVerdict(fmt.Sprintf("syntax error: %v", err))
	return &vd
}

func asErrorList(err error, out *scanner.ErrorList) bool {
	if list, ok := err.(scanner.ErrorList); ok {
		*out = list
		return true
	}
	return false
}

func faultVerdict(diagnostic string) Verdict {
	return Verdict{Diagnostic: diagnostic}
}

// targetFunction returns the name of the first top-level function declared
// by the candidate, the function under test.
func targetFunction(file *ast.File) string {
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Recv == nil {
			return fn.Name.Name
		}
	}
	return ""
}

func boolValue(val reflect.Value) (value bool, isBool bool) {
	if !val.IsValid() || val.Kind() != reflect.Bool {
		return false, false
	}
	return val.Bool(), true
}

// splitEquality splits an assertion around a single top-level "==" into a
// call expression and an expected expression.
func splitEquality(assertion string) (left, right string, ok bool) {
	if strings.Count(assertion, "==") != 1 {
		return "", "", false
	}
	parts := strings.SplitN(assertion, "==", 2)
	left = strings.TrimSpace(parts[0])
	right = strings.TrimSpace(parts[1])
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

func render(val reflect.Value) string {
	if !val.IsValid() {
		return "<invalid>"
	}
	if val.CanInterface() {
		return fmt.Sprintf("%v", val.Interface())
	}
	return val.String()
}

func stripPackageClause(source string) string {
	trimmed := strings.TrimLeft(source, "\n\t ")
	if !strings.HasPrefix(trimmed, "package ") {
		return source
	}
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		return trimmed[idx+1:]
	}
	return ""
}

func importAllowed(pkg string) bool {
	for _, p := range allowedPackages {
		if p == pkg {
			return true
		}
	}
	return false
}

func sandboxSymbols() interp.Exports {
	out := make(interp.Exports, len(allowedPackages))
	for _, pkg := range allowedPackages {
		key := pkg + "/" + path.Base(pkg)
		if syms, ok := stdlib.Symbols[key]; ok {
			out[key] = syms
		}
	}
	return out
}
