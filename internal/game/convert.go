package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Приведение типов данных, пришедших от клиентов. JSON-декодер отдает
// числа как float64, а клиенты на слабо типизированных рантаймах шлют
// "true" вместо true и "3" вместо 3 - нормализуем на входе.

// ToBool - коэрсер булева результата.
func ToBool(v any) any {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1"
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

// ToInt - коэрсер целочисленного результата.
func ToInt(v any) any {
	n, _ := AsInt(v)
	return n
}

// ToString - коэрсер строкового результата.
func ToString(v any) any {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// AsInt пытается извлечь целое из произвольного клиентского значения.
func AsInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
