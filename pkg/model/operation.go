package model

import (
	"fmt"
	"slices"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// OperationFunc is the Go body of an operation.
type OperationFunc func(self *Object, args []any) (any, error)

// Parameter is a named operation parameter.
type Parameter struct {
	Type Classifier
	Name string
}

// Operation is a behavioral feature of a class. Its body is either a Go
// function or an expression evaluated with self, get(name), args and the
// named parameters in scope.
type Operation struct {
	class   *Class
	result  Classifier
	fn      OperationFunc
	program *exprvm.Program
	err     error
	name    string
	expr    string
	params  []Parameter
	once    sync.Once
}

// OperationOption configures an operation at declaration.
type OperationOption func(*Operation)

// Params declares the operation parameters.
func Params(params ...Parameter) OperationOption {
	return func(op *Operation) { op.params = append(op.params, params...) }
}

// Returns sets the result type.
func Returns(c Classifier) OperationOption { return func(op *Operation) { op.result = c } }

// Body sets a Go body.
func Body(fn OperationFunc) OperationOption { return func(op *Operation) { op.fn = fn } }

// Expr sets an expression body.
func Expr(src string) OperationOption { return func(op *Operation) { op.expr = src } }

// AddOperation declares an operation.
func (c *Class) AddOperation(name string, opts ...OperationOption) *Operation {
	op := &Operation{name: name, class: c}
	for _, opt := range opts {
		opt(op)
	}
	c.ops = append(c.ops, op)
	touch()
	return op
}

// Name returns the operation name.
func (op *Operation) Name() string { return op.name }

// Class returns the declaring class.
func (op *Operation) Class() *Class { return op.class }

// Params returns the declared parameters.
func (op *Operation) Params() []Parameter { return slices.Clone(op.params) }

// Result returns the result type, or nil.
func (op *Operation) Result() Classifier { return op.result }

// compile checks the expression once. Parameters are left undeclared so the
// checker treats them as untyped; get must stay declared to shadow the
// builtin of the same name.
func (op *Operation) compile() (*exprvm.Program, error) {
	op.once.Do(func() {
		proto := map[string]any{
			"self": (*Object)(nil),
			"get":  func(string) any { return nil },
			"args": []any(nil),
		}
		op.program, op.err = exprlang.Compile(op.expr,
			exprlang.Env(proto),
			exprlang.AllowUndefinedVariables(),
		)
		if op.err != nil {
			op.err = fmt.Errorf("compile %s.%s: %w", op.class.name, op.name, op.err)
		}
	})
	return op.program, op.err
}

// Invoke calls op on o with args.
func (o *Object) Invoke(op *Operation, args ...any) (any, error) {
	if op == nil || !slices.Contains(o.class.current().ops, op) {
		return nil, fmt.Errorf("%s: %w", o.class.name, ErrInvalidOperation)
	}
	if len(args) != len(op.params) {
		return nil, fmt.Errorf("%s.%s: got %d arguments, want %d", o.class.name, op.name, len(args), len(op.params))
	}
	if op.fn != nil {
		return op.fn(o, args)
	}
	if op.expr == "" {
		return nil, fmt.Errorf("%s.%s: operation has no body", o.class.name, op.name)
	}
	program, err := op.compile()
	if err != nil {
		return nil, err
	}
	env := map[string]any{
		"self": o,
		"get":  o.getByName,
		"args": args,
	}
	for i, p := range op.params {
		env[p.Name] = args[i]
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("invoke %s.%s: %w", o.class.name, op.name, err)
	}
	return out, nil
}

// getByName exposes feature values to expression bodies; lists become slices.
func (o *Object) getByName(name string) any {
	f := o.class.Feature(name)
	if f == nil {
		return nil
	}
	v := o.Get(f)
	if l, ok := v.(*List); ok {
		return l.Values()
	}
	return v
}
