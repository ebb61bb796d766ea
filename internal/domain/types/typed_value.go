package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValueType es el tag del union de valores persistidos (propiedades de tenant
// y atributos de principal). Conjunto cerrado.
type ValueType string

const (
	TypeString  ValueType = "STRING"
	TypeNumber  ValueType = "NUMBER"
	TypeJSON    ValueType = "JSON"
	TypeBoolean ValueType = "BOOLEAN"
)

// ErrInvalidPropertyType se retorna ante un tag desconocido o un valor que no
// corresponde a su tag.
var ErrInvalidPropertyType = errors.New("invalid property type")

// ParseValueType valida un nombre de tipo. Vacío equivale a STRING.
func ParseValueType(s string) (ValueType, error) {
	switch ValueType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", TypeString:
		return TypeString, nil
	case TypeNumber:
		return TypeNumber, nil
	case TypeJSON:
		return TypeJSON, nil
	case TypeBoolean:
		return TypeBoolean, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPropertyType, s)
}

// TypedValue es un valor almacenado como texto junto a su tipo declarado.
type TypedValue struct {
	Type ValueType
	Raw  string
}

func String(s string) TypedValue { return TypedValue{Type: TypeString, Raw: s} }

func Number(f float64) TypedValue {
	return TypedValue{Type: TypeNumber, Raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

func Bool(b bool) TypedValue { return TypedValue{Type: TypeBoolean, Raw: strconv.FormatBool(b)} }

// Encode convierte un valor recibido por la API (ya decodificado de JSON) al
// tipo declarado.
func Encode(t ValueType, v any) (TypedValue, error) {
	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return String(s), nil
		}
		return String(fmt.Sprint(v)), nil

	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return Number(n), nil
		case int:
			return Number(float64(n)), nil
		case int64:
			return Number(float64(n)), nil
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return TypedValue{}, fmt.Errorf("%w: %v", ErrInvalidPropertyType, err)
			}
			return Number(f), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return TypedValue{}, fmt.Errorf("%w: not a number", ErrInvalidPropertyType)
			}
			return Number(f), nil
		}
		return TypedValue{}, fmt.Errorf("%w: not a number", ErrInvalidPropertyType)

	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return Bool(b), nil
		case string:
			pb, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return TypedValue{}, fmt.Errorf("%w: not a boolean", ErrInvalidPropertyType)
			}
			return Bool(pb), nil
		}
		return TypedValue{}, fmt.Errorf("%w: not a boolean", ErrInvalidPropertyType)

	case TypeJSON:
		// Un string se toma como documento JSON ya serializado.
		if s, ok := v.(string); ok {
			if !json.Valid([]byte(s)) {
				return TypedValue{}, fmt.Errorf("%w: invalid json", ErrInvalidPropertyType)
			}
			return TypedValue{Type: TypeJSON, Raw: s}, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return TypedValue{}, fmt.Errorf("%w: %v", ErrInvalidPropertyType, err)
		}
		return TypedValue{Type: TypeJSON, Raw: string(b)}, nil
	}
	return TypedValue{}, fmt.Errorf("%w: %q", ErrInvalidPropertyType, t)
}

// Decode interpreta Raw según Type.
func (v TypedValue) Decode() (any, error) {
	switch v.Type {
	case TypeString:
		return v.Raw, nil
	case TypeNumber:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: stored number %q", ErrInvalidPropertyType, v.Raw)
		}
		return f, nil
	case TypeBoolean:
		b, err := strconv.ParseBool(v.Raw)
		if err != nil {
			return nil, fmt.Errorf("%w: stored boolean %q", ErrInvalidPropertyType, v.Raw)
		}
		return b, nil
	case TypeJSON:
		var out any
		if err := json.Unmarshal([]byte(v.Raw), &out); err != nil {
			return nil, fmt.Errorf("%w: stored json", ErrInvalidPropertyType)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidPropertyType, v.Type)
}

// MarshalJSON emite el valor decodificado. Un valor corrupto se emite como null.
func (v TypedValue) MarshalJSON() ([]byte, error) {
	d, err := v.Decode()
	if err != nil {
		return []byte("null"), nil
	}
	return json.Marshal(d)
}
