package state

import (
	"reflect"
	"strconv"
)

// Diff возвращает минимальную разницу между двумя снапшотами.
// Инвариант: Apply(prev, Diff(prev, cur)) структурно равно cur,
// а Diff(s, s) пуст.
func Diff(prev, cur Snapshot) Delta {
	d, changed := diffValue(prev, cur)
	if !changed {
		return Delta{}
	}
	if m, ok := d.(map[string]any); ok {
		return m
	}
	// Корень снапшота всегда map, сюда попадать не должны.
	return Delta{}
}

// IsEmpty проверяет, что дельта не несет изменений.
func IsEmpty(d Delta) bool {
	return len(d) == 0
}

// diffValue сравнивает два произвольных значения.
// Возвращает (дельта, были ли изменения).
func diffValue(prev, cur any) (any, bool) {
	pm, pmOK := prev.(map[string]any)
	cm, cmOK := cur.(map[string]any)

	// Ссылки сравниваем по ID и заменяем целиком.
	if pmOK && cmOK && IsRef(pm) && IsRef(cm) {
		if pm[RefKey] == cm[RefKey] {
			return nil, false
		}
		return cm, true
	}

	// Рекурсивный дифф словарей - только если обе стороны "простые" словари.
	// Во всех остальных случаях (смена типа, ссылка вместо словаря и т.п.)
	// новое значение кладется в дельту целиком.
	if pmOK && cmOK && !IsRef(pm) && !IsRef(cm) {
		return diffMap(pm, cm)
	}

	ps, psOK := prev.([]any)
	cs, csOK := cur.([]any)
	if psOK && csOK {
		return diffSlice(ps, cs)
	}

	if reflect.DeepEqual(prev, cur) {
		return nil, false
	}
	return cur, true
}

func diffMap(prev, cur map[string]any) (any, bool) {
	out := map[string]any{}

	for k, cv := range cur {
		pv, had := prev[k]
		if !had {
			out[k] = Marshal(cv) // новый ключ - целиком
			continue
		}
		if d, changed := diffValue(pv, cv); changed {
			out[k] = d
		}
	}

	for k := range prev {
		if _, still := cur[k]; !still {
			out[k] = Removed
		}
	}

	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// diffSlice сравнивает списки позиционно: в дельту попадает новая длина
// и только изменившиеся индексы (строковыми ключами).
func diffSlice(prev, cur []any) (any, bool) {
	out := map[string]any{}

	for i, cv := range cur {
		if i >= len(prev) {
			out[strconv.Itoa(i)] = Marshal(cv)
			continue
		}
		if d, changed := diffValue(prev[i], cv); changed {
			out[strconv.Itoa(i)] = d
		}
	}

	if len(out) == 0 && len(prev) == len(cur) {
		return nil, false
	}
	out[LenKey] = len(cur)
	return out, true
}

// Apply накатывает дельту на снапшот и возвращает новый снапшот.
// Используется клиентами, реплеями и тестами раунд-трипа; сам движок
// хранит полные снапшоты и в Apply не нуждается.
func Apply(prev Snapshot, d Delta) Snapshot {
	if IsEmpty(d) {
		return cloneMap(prev)
	}
	out := applyValue(prev, map[string]any(d))
	if m, ok := out.(map[string]any); ok {
		return m
	}
	return Snapshot{}
}

func applyValue(prev any, d any) any {
	dm, ok := d.(map[string]any)
	if !ok {
		return d // скалярная замена
	}
	if IsRef(dm) {
		return dm // ссылка заменяется целиком
	}
	if _, isList := dm[LenKey]; isList {
		return applySlice(prev, dm)
	}
	return applyMap(prev, dm)
}

func applyMap(prev any, d map[string]any) any {
	base, _ := prev.(map[string]any)
	if IsRef(base) {
		base = nil // словарь поверх ссылки - полная замена
	}

	out := cloneMap(base)
	for k, dv := range d {
		if _, removed := dv.(RemovedToken); removed {
			delete(out, k)
			continue
		}
		out[k] = applyValue(base[k], dv)
	}
	return out
}

func applySlice(prev any, d map[string]any) any {
	base, _ := prev.([]any)

	length, _ := d[LenKey].(int)
	out := make([]any, length)
	for i := 0; i < length && i < len(base); i++ {
		out[i] = base[i]
	}

	for k, dv := range d {
		if k == LenKey {
			continue
		}
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= length {
			continue
		}
		var prevElem any
		if i < len(base) {
			prevElem = base[i]
		}
		out[i] = applyValue(prevElem, dv)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
