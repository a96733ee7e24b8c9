// Package vibecode marks places in a Go template file whose code should be
// written by a language model.
//
// A template is an ordinary Go file, normally guarded by the vibecode build
// tag so it only takes part in generation:
//
//	//go:build vibecode
//
//	//go:generate vibecode generate
//
//	package mathx
//
//	import "github.com/jxucoder/vibecode"
//
//	//vibecode:fn prompt="Sort in descending order"
//	func Sort(values []uint64) []uint64 {}
//
//	func Product() int {
//		return vibecode.Run[int]("Multiply 3 and 4")
//	}
//
// Running `go generate -tags vibecode` writes mathx_vibecoded.go, guarded
// by !vibecode, with every empty body filled in and every Run call replaced
// by an immediately invoked function literal.
package vibecode

import "github.com/jxucoder/vibecode/pkg/llm"

// Complexity selects the model tier for RunWith.
type Complexity = llm.Complexity

const (
	Low    = llm.Low
	Medium = llm.Medium
	High   = llm.High
)

// Run is replaced at generation time by a function literal written for
// prompt, called with args and returning T. It panics if it is ever
// executed.
func Run[T any](prompt string, args ...any) T {
	panic("vibecode.Run(" + prompt + ") was not expanded; run `go generate -tags vibecode`")
}

// RunWith is Run with an explicit complexity tier.
func RunWith[T any](c Complexity, prompt string, args ...any) T {
	panic("vibecode.RunWith(" + prompt + ") was not expanded; run `go generate -tags vibecode`")
}
