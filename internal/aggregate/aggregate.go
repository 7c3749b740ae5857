// Package aggregate содержит общие функции группировки и суммирования,
// которые используют движки лояльности, зарплаты и отчётов.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// GroupBy раскладывает элементы по ключу, сохраняя исходный порядок внутри группы.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		groups[k] = append(groups[k], item)
	}
	return groups
}

// Sum складывает денежные значения элементов.
func Sum[T any](items []T, value func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(value(item))
	}
	return total
}

// Count возвращает число элементов, удовлетворяющих условию.
func Count[T any](items []T, pred func(T) bool) int {
	n := 0
	for _, item := range items {
		if pred(item) {
			n++
		}
	}
	return n
}

// Filter возвращает элементы, удовлетворяющие условию.
func Filter[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Bucket - именованная сумма для временных рядов.
type Bucket[K any] struct {
	Key   K
	Value decimal.Decimal
}

// SumBy суммирует значения по ключу и возвращает корзины, упорядоченные функцией compare.
func SumBy[T any, K comparable](items []T, key func(T) K, value func(T) decimal.Decimal, compare func(a, b K) int) []Bucket[K] {
	sums := make(map[K]decimal.Decimal)
	for _, item := range items {
		k := key(item)
		sums[k] = sums[k].Add(value(item))
	}

	out := make([]Bucket[K], 0, len(sums))
	for k, v := range sums {
		out = append(out, Bucket[K]{Key: k, Value: v})
	}
	slices.SortFunc(out, func(a, b Bucket[K]) int { return compare(a.Key, b.Key) })
	return out
}

// SortedKeys возвращает ключи отображения в порядке возрастания.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
