package scriptify

import (
	"errors"
	"fmt"
)

// ErrUnsupportedConstruct is returned when the compiler meets a node kind, operator, call shape or host value
// it has no translation for. The whole compile fails, there is no best-effort output.
var ErrUnsupportedConstruct = errors.New("unsupported construct")

// ErrTemplate is returned when a call or getter format template can not be rendered.
var ErrTemplate = errors.New("invalid format template")

// ErrHostEvaluation is returned when folding a sub-expression fails inside host code.
var ErrHostEvaluation = errors.New("host evaluation failed")

// UnsupportedError describes the node that stopped a compile.
type UnsupportedError struct {
	Kind   NodeKind
	Op     Op // zero when the node has no operator
	Detail string
}

func (e *UnsupportedError) Error() string {
	msg := ErrUnsupportedConstruct.Error() + ": kind " + e.Kind.String()
	if e.Op != 0 {
		msg += " operator " + e.Op.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupportedConstruct
}

func unsupported(n Node, format string, args ...any) error {
	err := &UnsupportedError{Detail: fmt.Sprintf(format, args...)}
	if n != nil {
		err.Kind = n.Kind()
		switch x := n.(type) {
		case *BinaryExpr:
			err.Op = x.Op
		case *UnaryExpr:
			err.Op = x.Op
		}
	}
	return err
}
