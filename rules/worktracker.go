//go:build ruleguard

// Package gorules defines custom linter rules for the worktracker code base.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// CoordinatorOffLoop detects panel coordinator calls made from a new
// goroutine.
//
// The coordinator is single-threaded. Backend work is scheduled with
// loop.Executor.Go and its result is applied by the returned loop.Apply:
//
//	exec.Go("name", func(ctx context.Context) loop.Apply {
//	    v, err := backend.Call(ctx)
//	    return func() { coord.Use(v, err) }
//	})
func CoordinatorOffLoop(m dsl.Matcher) {
	m.Match(
		`go func() { $*_; $c.$method($*_); $*_ }()`,
	).
		Where(m["c"].Type.Is("*panel.Coordinator")).
		Report("$c.$method must run on the interaction loop; schedule the work with loop.Executor.Go")
}

// StdErrorsInInternal detects plain errors.New from the standard library in
// code that should build enhanced errors.
//
// Old pattern:
//
//	return errors.New("record not found")
//
// New pattern:
//
//	return errors.Newf("record %d not found", id).
//	    Component("panel").
//	    Category(errors.CategoryNotFound).
//	    Build()
//
// Sentinels that only serve errors.Is checks use errors.NewStd.
func StdErrorsInInternal(m dsl.Matcher) {
	m.Import("errors")
	m.Match(
		`errors.New($msg)`,
	).
		Where(m.File().Imports("errors") && m.File().PkgPath.Matches(`/internal/`) && !m.File().PkgPath.Matches(`/internal/errors$`)).
		Report("use internal/errors so the error carries a component and category")
}

// WaitGroupGo detects the old sync.WaitGroup pattern and suggests wg.Go().
//
// See: https://pkg.go.dev/sync#WaitGroup.Go
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done pattern (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")
}

// TimeDateOnly detects the magic date layout and suggests time.DateOnly.
func TimeDateOnly(m dsl.Matcher) {
	m.Match(
		`$t.Format("2006-01-02")`,
	).
		Report(`use $t.Format(time.DateOnly) instead of magic format string (Go 1.20+)`).
		Suggest(`$t.Format(time.DateOnly)`)

	m.Match(
		`time.Parse("2006-01-02", $s)`,
		`time.ParseInLocation("2006-01-02", $s, $loc)`,
	).
		Report(`use the time.DateOnly layout instead of magic format string (Go 1.20+)`)
}

// TestContext suggests t.Context() over context.Background() in tests.
//
// See: https://pkg.go.dev/testing#T.Context
func TestContext(m dsl.Matcher) {
	m.Match(
		`context.Background()`,
	).
		Where(m.File().Name.Matches(`_test\.go$`) && m.File().Imports("testing")).
		Report("consider t.Context() (Go 1.24+), canceled when the test ends")
}
