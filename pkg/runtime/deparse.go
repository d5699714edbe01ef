package runtime

import (
	"strconv"
	"strings"

	"rcore/interpreter-go/pkg/ast"
)

// DeparseValue renders a value as R source that would recreate it.
func DeparseValue(v Value) string {
	switch val := v.(type) {
	case nil, *NullValue:
		return "NULL"
	case *SymbolValue:
		return ast.QuoteName(val.Name)
	case *MissingValue:
		return ""
	case *LanguageValue:
		return ast.Deparse(val.Expr)
	case *ClosureValue:
		if val.Source != "" {
			return val.Source
		}
		return ast.Deparse(ast.NewFunctionLiteral(val.Params, val.Body))
	case *Environment:
		return "<environment>"
	case *Promise:
		if val.Forced() {
			return DeparseValue(val.Value())
		}
		return ast.Deparse(val.Expr)
	case Vector:
		return deparseVector(val)
	}
	return "<" + v.Kind().String() + ">"
}

func deparseVector(v Vector) string {
	body := deparseElements(v)
	attrs := v.Attributes()
	var extra []string
	attrs.Each(func(name string, value Value) {
		if name == "names" {
			return
		}
		tag := name
		switch name {
		case "dim":
			tag = ".Dim"
		case "dimnames":
			tag = ".Dimnames"
		default:
			if !ast.IsSyntacticName(name) {
				tag = ast.QuoteString(name)
			}
		}
		extra = append(extra, tag+" = "+DeparseValue(value))
	})
	if len(extra) == 0 {
		return body
	}
	return "structure(" + body + ", " + strings.Join(extra, ", ") + ")"
}

func deparseElements(v Vector) string {
	n := v.Len()
	names := Names(v)
	if n == 0 {
		switch v.Kind() {
		case KindLogical:
			return "logical(0)"
		case KindInteger:
			return "integer(0)"
		case KindDouble:
			return "numeric(0)"
		case KindComplex:
			return "complex(0)"
		case KindCharacter:
			return "character(0)"
		case KindRaw:
			return "raw(0)"
		default:
			return "list()"
		}
	}
	if ints, ok := v.(*IntegerVector); ok && names == nil && n > 1 && isIntegerRange(ints.Data) {
		return strconv.Itoa(int(ints.Data[0])) + ":" + strconv.Itoa(int(ints.Data[n-1]))
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		elem := deparseElement(v, i, n == 1)
		if names != nil && !names.Data[i].NA && names.Data[i].Val != "" {
			elem = ast.QuoteName(names.Data[i].Val) + " = " + elem
		}
		parts[i] = elem
	}
	if v.Kind() == KindList {
		return "list(" + strings.Join(parts, ", ") + ")"
	}
	if v.Kind() == KindRaw {
		return "as.raw(c(" + strings.Join(parts, ", ") + "))"
	}
	if n == 1 && names == nil {
		return parts[0]
	}
	return "c(" + strings.Join(parts, ", ") + ")"
}

func isIntegerRange(data []int32) bool {
	for i := 1; i < len(data); i++ {
		if data[i-1] == NAInteger || data[i] != data[i-1]+1 {
			return false
		}
	}
	return true
}

func deparseElement(v Vector, i int, scalar bool) string {
	switch val := v.(type) {
	case *LogicalVector:
		switch val.Data[i] {
		case NALogical:
			return "NA"
		case 0:
			return "FALSE"
		}
		return "TRUE"
	case *IntegerVector:
		if val.Data[i] == NAInteger {
			if scalar {
				return "NA_integer_"
			}
			return "NA"
		}
		return strconv.Itoa(int(val.Data[i])) + "L"
	case *DoubleVector:
		x := val.Data[i]
		if IsNAReal(x) {
			if scalar {
				return "NA_real_"
			}
			return "NA"
		}
		return ast.FormatNumber(x)
	case *ComplexVector:
		if IsNAComplex(val.Data[i]) {
			if scalar {
				return "NA_complex_"
			}
			return "NA"
		}
		return FormatComplex15(val.Data[i])
	case *CharacterVector:
		if val.Data[i].NA {
			if scalar {
				return "NA_character_"
			}
			return "NA"
		}
		return ast.QuoteString(val.Data[i].Val)
	case *RawVector:
		return "0x" + strconv.FormatUint(uint64(val.Data[i]), 16)
	case *ListValue:
		return DeparseValue(val.Data[i])
	}
	return ""
}
