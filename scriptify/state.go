package scriptify

import (
	"strconv"
	"strings"
)

// DefaultStatePrefix names the hoisted state slots, state0, state1, ...
const DefaultStatePrefix = "state"

// bindStates binds every stateful call site of s to its own state slot, numbered in left to right order,
// and hoists the slots into an enclosing closure so they persist across invocations of the compiled
// function. A script without stateful calls is returned unchanged.
func bindStates(s script, prefix string) string {
	if len(s.marks) == 0 {
		return s.text
	}

	var body strings.Builder
	var last int
	for i, m := range s.marks {
		body.WriteString(s.text[last:m])
		body.WriteString(".bind(" + prefix + strconv.Itoa(i) + ")")
		last = m
	}
	body.WriteString(s.text[last:])

	slots := make([]string, len(s.marks))
	for i := range slots {
		slots[i] = prefix + strconv.Itoa(i) + "={}"
	}
	return "(()=>{const " + strings.Join(slots, ",") + ";return " + body.String() + "})()"
}
