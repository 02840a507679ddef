package scriptify

import "strings"

// script is committed target text plus the byte offsets of stateful call sites within it. Offsets are kept
// ascending, so their order is the left to right order of the call sites.
type script struct {
	text  string
	marks []int
}

func plainScript(text string) script {
	return script{text: text}
}

type scriptBuilder struct {
	sb    strings.Builder
	marks []int
}

func (b *scriptBuilder) WriteString(s string) {
	b.sb.WriteString(s)
}

func (b *scriptBuilder) WriteScript(s script) {
	off := b.sb.Len()
	for _, m := range s.marks {
		b.marks = append(b.marks, off+m)
	}
	b.sb.WriteString(s.text)
}

// Mark records a stateful call site at the current position.
func (b *scriptBuilder) Mark() {
	b.marks = append(b.marks, b.sb.Len())
}

func (b *scriptBuilder) Script() script {
	return script{text: b.sb.String(), marks: b.marks}
}

func joinScripts(parts []script, sep string) script {
	var b scriptBuilder
	for i, p := range parts {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteScript(p)
	}
	return b.Script()
}

// Result is the outcome of evaluating one node: either Deferred, still backed by its foldable subtree, or
// Committed to target text. A parent is Deferred only while everything it depends on is Deferred.
type Result struct {
	node   Node
	script script
}

// Deferred wraps a subtree which can still be folded on the host.
func Deferred(n Node) Result {
	return Result{node: n}
}

// Committed wraps final target text.
func Committed(text string) Result {
	return Result{script: plainScript(text)}
}

func committedScript(s script) Result {
	return Result{script: s}
}

// IsDeferred reports if the result is still foldable.
func (r Result) IsDeferred() bool {
	return r.node != nil
}

// Node returns the foldable subtree of a Deferred result, nil once committed.
func (r Result) Node() Node {
	return r.node
}

// Text returns the committed text, empty for a Deferred result. Stateful call sites are not yet bound.
func (r Result) Text() string {
	return r.script.text
}
