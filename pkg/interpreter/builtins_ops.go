package interpreter

import (
	"math"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installOperatorBuiltins() {
	for _, op := range []string{"+", "-", "*", "/", "^", "%%", "%/%"} {
		op := op
		i.def(op, "", func(c *CallContext) (runtime.Value, error) {
			vals, err := c.Values()
			if err != nil {
				return nil, err
			}
			switch len(vals) {
			case 1:
				if op != "+" && op != "-" {
					return nil, runtime.Errorf("invalid unary operator")
				}
				return unaryArith(op, vals[0])
			case 2:
				return c.arithmetic(op, vals[0], vals[1])
			}
			return nil, runtime.Errorf("operator needs one or two arguments")
		})
	}
	for _, op := range []string{"==", "!=", "<", ">", "<=", ">="} {
		op := op
		i.def(op, "", func(c *CallContext) (runtime.Value, error) {
			vals, err := c.Values()
			if err != nil {
				return nil, err
			}
			if len(vals) != 2 {
				return nil, runtime.Errorf("operator needs two arguments")
			}
			return c.compareValues(op, vals[0], vals[1])
		})
	}
	for _, op := range []string{"&", "|"} {
		op := op
		i.def(op, "", func(c *CallContext) (runtime.Value, error) {
			vals, err := c.Values()
			if err != nil {
				return nil, err
			}
			if len(vals) != 2 {
				return nil, runtime.Errorf("operator needs two arguments")
			}
			return c.logicalBinary(op, vals[0], vals[1])
		})
	}
	i.def("!", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return logicalNot(x)
	})
	i.special("&&", "", builtinShortCircuit("&&"))
	i.special("||", "", builtinShortCircuit("||"))
	i.def(":", "", builtinColon)
	i.def("xor", "x, y", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		y, err := c.Require(1)
		if err != nil {
			return nil, err
		}
		or, err := c.logicalBinary("|", x, y)
		if err != nil {
			return nil, err
		}
		and, err := c.logicalBinary("&", x, y)
		if err != nil {
			return nil, err
		}
		notAnd, err := logicalNot(and)
		if err != nil {
			return nil, err
		}
		return c.logicalBinary("&", or, notAnd)
	})

	i.def("[", "", builtinSubset)
	i.def("[[", "", builtinSubset2)
	i.special("$", "", builtinDollar)
	i.special("@", "", builtinAt)
	i.def("[<-", "", builtinSubassign)
	i.def("[[<-", "", builtinSubassign2)
	i.special("$<-", "", builtinDollarAssign)
	i.special("@<-", "", builtinAtAssign)
}

func builtinShortCircuit(op string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		if len(c.Args) != 2 {
			return nil, runtime.Errorf("'%s' requires two arguments", op)
		}
		x, err := c.Force(c.Args[0].Value)
		if err != nil {
			return nil, err
		}
		a, err := scalarLogical(x, "x", op)
		if err != nil {
			return nil, err
		}
		if op == "&&" && a == 0 {
			return runtime.LogicalScalar(false), nil
		}
		if op == "||" && a == 1 {
			return runtime.LogicalScalar(true), nil
		}
		y, err := c.Force(c.Args[1].Value)
		if err != nil {
			return nil, err
		}
		b, err := scalarLogical(y, "y", op)
		if err != nil {
			return nil, err
		}
		return runtime.NewLogicalVector([]int32{logic3(op[:1], a, b)}), nil
	}
}

func builtinColon(c *CallContext) (runtime.Value, error) {
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	if len(vals) != 2 {
		return nil, runtime.Errorf("operator needs two arguments")
	}
	var ends [2]float64
	for k, v := range vals {
		if runtime.Length(v) == 0 {
			return nil, runtime.Errorf("argument of length 0")
		}
		if runtime.Length(v) > 1 {
			if err := c.Warn("numerical expression has %d elements: only the first used", runtime.Length(v)); err != nil {
				return nil, err
			}
		}
		x, err := runtime.AsDoubleScalar(v)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(x) {
			return nil, runtime.Errorf("NA/NaN argument")
		}
		ends[k] = x
	}
	from, to := ends[0], ends[1]
	n := int(math.Floor(math.Abs(to-from)+1e-10)) + 1
	step := 1.0
	if to < from {
		step = -1
	}
	useInt := from == math.Trunc(from) && math.Abs(from) <= math.MaxInt32 && math.Abs(from+step*float64(n-1)) <= math.MaxInt32
	if useInt {
		out := make([]int32, n)
		for k := range out {
			out[k] = int32(from + step*float64(k))
		}
		return runtime.NewIntegerVector(out), nil
	}
	out := make([]float64, n)
	for k := range out {
		out[k] = from + step*float64(k)
	}
	return runtime.NewDoubleVector(out), nil
}

// splitIndexArgs separates x, the subscripts and the named options of a
// subsetting call.
func splitIndexArgs(args []Arg, options ...string) (runtime.Value, []runtime.Value, map[string]runtime.Value) {
	opts := map[string]runtime.Value{}
	var x runtime.Value = runtime.Null
	var indices []runtime.Value
	first := true
	for _, a := range args {
		isOpt := false
		for _, o := range options {
			if a.Name == o {
				opts[o] = a.Value
				isOpt = true
			}
		}
		if isOpt {
			continue
		}
		if first {
			x = a.Value
			first = false
			continue
		}
		indices = append(indices, a.Value)
	}
	return x, indices, opts
}

func optionFlag(opts map[string]runtime.Value, name string, def bool) bool {
	v, ok := opts[name]
	if !ok {
		return def
	}
	b, err := runtime.AsLogicalScalar(v)
	if err != nil || b == runtime.NALogical {
		return def
	}
	return b != 0
}

func builtinSubset(c *CallContext) (runtime.Value, error) {
	x, indices, opts := splitIndexArgs(c.Args, "drop", "exact")
	if res, ok, err := c.dispatchInternal("[", x, c.Args); ok || err != nil {
		return res, err
	}
	switch v := x.(type) {
	case *runtime.NullValue:
		return runtime.Null, nil
	case runtime.Vector:
		if len(indices) == 0 {
			return v, nil
		}
		if len(indices) == 1 {
			if _, missing := indices[0].(*runtime.MissingValue); missing {
				return v, nil
			}
			if m, ok := indices[0].(runtime.Vector); ok && runtime.Dim(m) != nil && len(runtime.Dim(m)) == 2 && len(runtime.Dim(v)) == runtime.Dim(m)[1] && m.Kind() != runtime.KindLogical {
				return subsetByMatrix(v, m)
			}
			return subsetVector(v, indices[0])
		}
		if runtime.Dim(v) == nil {
			return nil, runtime.Errorf("incorrect number of dimensions")
		}
		return subsetArray(v, indices, optionFlag(opts, "drop", true))
	case *runtime.LanguageValue:
		return languageSubset(v, indices)
	}
	return nil, runtime.Errorf("object of type '%s' is not subsettable", x.Kind())
}

// subsetByMatrix indexes an array by a matrix with one row per cell.
func subsetByMatrix(x runtime.Vector, m runtime.Vector) (runtime.Value, error) {
	dims := runtime.Dim(x)
	rows := runtime.Dim(m)[0]
	idx := asInts(m)
	sel := make([]int, rows)
	for r := 0; r < rows; r++ {
		off, stride := 0, 1
		for k := range dims {
			p := int(idx[r+k*rows]) - 1
			if p < 0 || p >= dims[k] {
				return nil, runtime.Errorf("subscript out of bounds")
			}
			off += p * stride
			stride *= dims[k]
		}
		sel[r] = off
	}
	return x.Select(sel), nil
}

func builtinSubset2(c *CallContext) (runtime.Value, error) {
	x, indices, opts := splitIndexArgs(c.Args, "exact", "drop")
	if res, ok, err := c.dispatchInternal("[[", x, c.Args); ok || err != nil {
		return res, err
	}
	if len(indices) == 0 {
		return nil, runtime.Errorf("invalid subscript type 'symbol'")
	}
	for _, idx := range indices {
		if _, missing := idx.(*runtime.MissingValue); missing {
			return nil, runtime.Errorf("invalid subscript type 'symbol'")
		}
	}
	return getElement(x, indices, optionFlag(opts, "exact", true))
}

// memberName extracts the name operand of $ and @.
func memberName(a Arg) (string, error) {
	switch e := a.Expr.(type) {
	case *ast.Identifier:
		return e.Name, nil
	case *ast.StringLiteral:
		return e.Value, nil
	}
	if s, ok := runtime.AsStringScalar(a.Value); ok {
		return s, nil
	}
	return "", runtime.Errorf("invalid subscript type '%s'", a.Value.Kind())
}

func builtinDollar(c *CallContext) (runtime.Value, error) {
	if len(c.Args) != 2 {
		return nil, runtime.Errorf("invalid use of $")
	}
	x, err := c.Force(c.Args[0].Value)
	if err != nil {
		return nil, err
	}
	name, err := memberName(c.Args[1])
	if err != nil {
		return nil, err
	}
	if res, ok, err := c.dispatchInternal("$", x, []Arg{{Value: x}, {Value: runtime.StringScalar(name)}}); ok || err != nil {
		return res, err
	}
	return dollar(x, name)
}

func builtinAt(c *CallContext) (runtime.Value, error) {
	if len(c.Args) != 2 {
		return nil, runtime.Errorf("invalid use of @")
	}
	x, err := c.Force(c.Args[0].Value)
	if err != nil {
		return nil, err
	}
	name, err := memberName(c.Args[1])
	if err != nil {
		return nil, err
	}
	if v := runtime.GetAttr(x, name); v != nil {
		return v, nil
	}
	return nil, runtime.Errorf("no slot of name \"%s\" for this object of class \"%s\"", name, explicitClass(x)[0])
}

// splitAssignArgs separates x, the subscripts and value of a subassignment.
func splitAssignArgs(args []Arg) (runtime.Value, []runtime.Value, runtime.Value, error) {
	var value runtime.Value
	rest := make([]Arg, 0, len(args))
	for k, a := range args {
		if a.Name == "value" || (value == nil && k == len(args)-1 && !hasNamedValue(args)) {
			value = a.Value
			continue
		}
		rest = append(rest, a)
	}
	if value == nil {
		return nil, nil, nil, runtime.Errorf("argument \"value\" is missing, with no default")
	}
	x, indices, _ := splitIndexArgs(rest)
	return x, indices, value, nil
}

func hasNamedValue(args []Arg) bool {
	for _, a := range args {
		if a.Name == "value" {
			return true
		}
	}
	return false
}

func builtinSubassign(c *CallContext) (runtime.Value, error) {
	x, indices, value, err := splitAssignArgs(c.Args)
	if err != nil {
		return nil, err
	}
	switch {
	case len(indices) == 0:
		return c.assignVector(x, runtime.MissingArg, value)
	case len(indices) == 1:
		return c.assignVector(x, indices[0], value)
	}
	vec, ok := x.(runtime.Vector)
	if !ok || runtime.Dim(vec) == nil {
		return nil, runtime.Errorf("incorrect number of subscripts on matrix")
	}
	if value.Kind() == runtime.KindNull {
		return nil, runtime.Errorf("number of items to replace is not a multiple of replacement length")
	}
	return c.assignArray(vec, indices, value)
}

func builtinSubassign2(c *CallContext) (runtime.Value, error) {
	x, indices, value, err := splitAssignArgs(c.Args)
	if err != nil {
		return nil, err
	}
	switch len(indices) {
	case 0:
		return nil, runtime.Errorf("[[ ]] with missing subscript")
	case 1:
		return c.setElement(x, indices[0], value)
	}
	vec, ok := x.(runtime.Vector)
	if !ok || runtime.Dim(vec) == nil {
		return nil, runtime.Errorf("[[ ]] improper number of subscripts")
	}
	if runtime.Length(value) != 1 {
		return nil, runtime.Errorf("more elements supplied than there are to replace")
	}
	return c.assignArray(vec, indices, value)
}

func builtinDollarAssign(c *CallContext) (runtime.Value, error) {
	if len(c.Args) != 3 {
		return nil, runtime.Errorf("invalid use of $<-")
	}
	x, err := c.Force(c.Args[0].Value)
	if err != nil {
		return nil, err
	}
	name, err := memberName(c.Args[1])
	if err != nil {
		return nil, err
	}
	value, err := c.Force(c.Args[2].Value)
	if err != nil {
		return nil, err
	}
	return c.setDollar(x, name, value)
}

func builtinAtAssign(c *CallContext) (runtime.Value, error) {
	if len(c.Args) != 3 {
		return nil, runtime.Errorf("invalid use of @<-")
	}
	x, err := c.Force(c.Args[0].Value)
	if err != nil {
		return nil, err
	}
	name, err := memberName(c.Args[1])
	if err != nil {
		return nil, err
	}
	value, err := c.Force(c.Args[2].Value)
	if err != nil {
		return nil, err
	}
	target, ok := c.Mutable(x).(runtime.Attributed)
	if !ok {
		return nil, runtime.Errorf("no slot of name \"%s\"", name)
	}
	if err := runtime.SetAttr(target, name, value); err != nil {
		return nil, err
	}
	return target, nil
}
