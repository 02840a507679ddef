package scriptify

import (
	"fmt"
	"strconv"
)

// formatTemplate renders a positional template such as "nativeMethod({1},{0})", substituting {N} with
// args[N]. Braces are escaped by doubling them.
func formatTemplate(tmpl string, args []script) (script, error) {
	var b scriptBuilder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteString("{")
				i++
				continue
			}
			end := i + 1
			for end < len(tmpl) && tmpl[end] != '}' {
				end++
			}
			if end == len(tmpl) {
				return script{}, fmt.Errorf("%w: unclosed '{' in %q", ErrTemplate, tmpl)
			}
			idx, err := strconv.Atoi(tmpl[i+1 : end])
			if err != nil || idx < 0 {
				return script{}, fmt.Errorf("%w: bad placeholder %q in %q", ErrTemplate, tmpl[i:end+1], tmpl)
			} else if idx >= len(args) {
				return script{}, fmt.Errorf("%w: placeholder {%d} out of range for %d arguments in %q",
					ErrTemplate, idx, len(args), tmpl)
			}
			b.WriteScript(args[idx])
			i = end
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteString("}")
				i++
				continue
			}
			return script{}, fmt.Errorf("%w: unmatched '}' in %q", ErrTemplate, tmpl)
		default:
			start := i
			for i+1 < len(tmpl) && tmpl[i+1] != '{' && tmpl[i+1] != '}' {
				i++
			}
			b.WriteString(tmpl[start : i+1])
		}
	}
	return b.Script(), nil
}
