package verifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const buggyAdd = `func add(a, b int) int {
	return a - b
}`

const fixedAdd = `func add(a, b int) int {
	return a + b
}`

var addAssertions = []string{
	"add(1, 2) == 3",
	"add(0, 0) == 0",
	"add(-1, 1) == 0",
}

func TestVerifyAcceptsCorrectCandidate(t *testing.T) {
	v := New(5*time.Second, 3)

	verdict := v.Verify(context.Background(), fixedAdd, addAssertions)
	require.True(t, verdict.Accepted)
	require.Equal(t, 3, verdict.TestsPassed)
	require.Equal(t, 3, verdict.TestsTotal)
	require.Empty(t, verdict.Failures)
	require.Equal(t, "all 3 tests passed", verdict.Diagnostic)
}

func TestVerifyRejectsBuggyCandidateWithValues(t *testing.T) {
	v := New(5*time.Second, 3)

	verdict := v.Verify(context.Background(), buggyAdd, addAssertions)
	require.False(t, verdict.Accepted)
	require.Equal(t, 1, verdict.TestsPassed)
	require.Equal(t, 3, verdict.TestsTotal)
	require.Len(t, verdict.Failures, 2)

	first := verdict.Failures[0]
	require.Equal(t, 1, first.Index)
	require.Equal(t, KindAssertion, first.Kind)
	require.True(t, first.HasValues)
	require.Equal(t, "-1", first.Actual)
	require.Equal(t, "3", first.Expected)
	require.Equal(t, "expected 3, but got -1", first.Message)
}

func TestVerifyPassedNeverExceedsTotal(t *testing.T) {
	v := New(5*time.Second, 3)

	verdict := v.Verify(context.Background(), fixedAdd, addAssertions)
	require.LessOrEqual(t, verdict.TestsPassed, verdict.TestsTotal)

	verdict = v.Verify(context.Background(), buggyAdd, addAssertions)
	require.LessOrEqual(t, verdict.TestsPassed, verdict.TestsTotal)
}

func TestVerifySyntaxFault(t *testing.T) {
	v := New(5*time.Second, 3)

	verdict := v.Verify(context.Background(), "func add(a, b int int {", addAssertions)
	require.False(t, verdict.Accepted)
	require.Equal(t, 0, verdict.TestsPassed)
	require.Equal(t, 0, verdict.TestsTotal)
	require.Contains(t, verdict.Diagnostic, "syntax error")
}

func TestVerifyRuntimeFaultBeforeAssertions(t *testing.T) {
	v := New(5*time.Second, 3)

	src := `func boom() int {
	panic("exploded")
}

var _ = boom()`

	verdict := v.Verify(context.Background(), src, []string{"boom() == 1"})
	require.False(t, verdict.Accepted)
	require.Equal(t, 0, verdict.TestsPassed)
	require.Equal(t, 0, verdict.TestsTotal)
	require.NotEmpty(t, verdict.Diagnostic)
}

func TestVerifyForbiddenImport(t *testing.T) {
	v := New(5*time.Second, 3)

	src := `import "os"

func home() string {
	return os.Getenv("HOME")
}`

	verdict := v.Verify(context.Background(), src, []string{`home() == ""`})
	require.False(t, verdict.Accepted)
	require.Contains(t, verdict.Diagnostic, "forbidden import")
}

func TestVerifyAllowedImport(t *testing.T) {
	v := New(5*time.Second, 3)

	src := `import "strings"

func shout(s string) string {
	return strings.ToUpper(s)
}`

	verdict := v.Verify(context.Background(), src, []string{`shout("hi") == "HI"`})
	require.True(t, verdict.Accepted)
}

func TestVerifyStripsPackageClause(t *testing.T) {
	v := New(5*time.Second, 3)

	verdict := v.Verify(context.Background(), "package main\n"+fixedAdd, addAssertions)
	require.True(t, verdict.Accepted)
}

func TestVerifyMissingTargetFunction(t *testing.T) {
	v := New(5*time.Second, 3)

	verdict := v.Verify(context.Background(), "var answer = 42", []string{"answer == 42"})
	require.False(t, verdict.Accepted)
	require.Len(t, verdict.Failures, 1)
	require.Equal(t, KindExecution, verdict.Failures[0].Kind)
	require.Contains(t, verdict.Failures[0].Message, "target function not found")
}

func TestVerifyNonBooleanAssertion(t *testing.T) {
	v := New(5*time.Second, 3)

	verdict := v.Verify(context.Background(), fixedAdd, []string{"add(1, 2)"})
	require.False(t, verdict.Accepted)
	require.Len(t, verdict.Failures, 1)
	require.Equal(t, KindMalformed, verdict.Failures[0].Kind)
}

func TestVerifyAssertionRuntimeFault(t *testing.T) {
	v := New(5*time.Second, 3)

	verdict := v.Verify(context.Background(), fixedAdd, []string{"sub(1, 2) == -1"})
	require.False(t, verdict.Accepted)
	require.Len(t, verdict.Failures, 1)
	require.Equal(t, KindRuntime, verdict.Failures[0].Kind)
}

func TestVerifyNoAssertionsNeverAccepted(t *testing.T) {
	v := New(5*time.Second, 3)

	verdict := v.Verify(context.Background(), fixedAdd, nil)
	require.False(t, verdict.Accepted)
	require.Equal(t, 0, verdict.TestsTotal)
	require.Equal(t, "no assertions were run", verdict.Diagnostic)
}

func TestVerifyTimeout(t *testing.T) {
	v := New(300*time.Millisecond, 3)

	src := `func spin() int {
	n := 0
	for {
		n++
	}
}`

	start := time.Now()
	verdict := v.Verify(context.Background(), src, []string{"spin() == 0"})
	require.False(t, verdict.Accepted)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestVerifyDiagnosticTruncatesFailures(t *testing.T) {
	v := New(5*time.Second, 2)

	verdict := v.Verify(context.Background(), buggyAdd, []string{
		"add(1, 1) == 2",
		"add(2, 2) == 4",
		"add(3, 3) == 6",
		"add(4, 4) == 8",
	})
	require.False(t, verdict.Accepted)
	require.Len(t, verdict.Failures, 4)
	require.Contains(t, verdict.Diagnostic, "0/4 tests passed")
	require.Contains(t, verdict.Diagnostic, "and 2 more failure(s)")
}

func TestRunSmoke(t *testing.T) {
	v := New(5*time.Second, 3)

	require.NoError(t, v.Run(context.Background(), `func greet() string { return "hi" }`))

	err := v.Run(context.Background(), `func boom() { panic("nope") }

var _ = func() bool {
	boom()
	return true
}()`)
	require.Error(t, err)
}

func TestSplitEquality(t *testing.T) {
	left, right, ok := splitEquality("add(1, 2) == 3")
	require.True(t, ok)
	require.Equal(t, "add(1, 2)", left)
	require.Equal(t, "3", right)

	_, _, ok = splitEquality("a == b == c")
	require.False(t, ok)

	_, _, ok = splitEquality("add(1, 2) > 2")
	require.False(t, ok)
}
