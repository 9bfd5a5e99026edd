package model

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// EcoreNsURI is the namespace of the predeclared Ecore package.
const EcoreNsURI = "http://www.eclipse.org/emf/2002/Ecore"

// DateLayout is the literal form of EDate values.
const DateLayout = "2006-01-02T15:04:05.000-0700"

var (
	// Ecore is the predeclared package holding the root class and the primitive data types.
	Ecore = NewPackage("ecore", EcoreNsURI, "ecore")
	// EObject is the implicit super type of every class.
	EObject = Ecore.AddClass("EObject")

	EString  = Ecore.AddDataType("EString")
	EBoolean = builtin("EBoolean", false, strconv.ParseBool)
	EInt     = builtin("EInt", 0, func(s string) (int, error) { return strconv.Atoi(s) })
	ELong    = builtin("ELong", int64(0), func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
	EShort   = builtin("EShort", int16(0), func(s string) (int16, error) {
		v, err := strconv.ParseInt(s, 10, 16)
		return int16(v), err
	})
	EByte = builtin("EByte", int8(0), func(s string) (int8, error) {
		v, err := strconv.ParseInt(s, 10, 8)
		return int8(v), err
	})
	EDouble = builtin("EDouble", float64(0), func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	EFloat  = builtin("EFloat", float32(0), func(s string) (float32, error) {
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), err
	})
	EChar = builtin("EChar", rune(0), func(s string) (rune, error) {
		r := []rune(s)
		if len(r) != 1 {
			return 0, fmt.Errorf("EChar literal %q is not a single character", s)
		}
		return r[0], nil
	})
	EDate = Ecore.AddDataType("EDate",
		WithGoType(reflect.TypeFor[time.Time]()),
		WithConverter(parseDate, formatDate))
)

func builtin[T any](name string, zero T, parse func(string) (T, error)) *DataType {
	return Ecore.AddDataType(name,
		WithGoType(reflect.TypeFor[T]()),
		WithDefault(zero),
		WithConverter(
			func(s string) (any, error) {
				v, err := parse(s)
				if err != nil {
					return nil, err
				}
				return v, nil
			},
			formatAny,
		))
}

func parseString(s string) (any, error) { return s, nil }

func formatAny(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case rune:
		return string(x), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func parseDate(s string) (any, error) {
	for _, layout := range []string{DateLayout, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("EDate literal %q has no known layout", s)
}

func formatDate(v any) (string, error) {
	t, ok := v.(time.Time)
	if !ok {
		return "", fmt.Errorf("EDate value has type %T", v)
	}
	return t.Format(DateLayout), nil
}

func errUnknownLiteral(d *DataType, s string) error {
	return fmt.Errorf("%q is not a literal of %s", s, d.name)
}

// ConvertFromString converts a literal using the data type converter.
func (d *DataType) ConvertFromString(s string) (any, error) {
	v, err := d.parse(s)
	if err != nil {
		return nil, fmt.Errorf("convert %q to %s: %w", s, d.name, err)
	}
	return v, nil
}

// ConvertToString formats a value using the data type converter.
func (d *DataType) ConvertToString(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	s, err := d.format(v)
	if err != nil {
		return "", fmt.Errorf("convert %s value: %w", d.name, err)
	}
	return s, nil
}

// Accepts reports whether v can be stored in attributes of the type.
func (d *DataType) Accepts(v any) bool {
	if v == nil || d.goType == nil {
		return true
	}
	if reflect.TypeOf(v) != d.goType {
		return false
	}
	if d.literals != nil {
		_, err := d.parse(v.(string))
		return err == nil
	}
	return true
}
