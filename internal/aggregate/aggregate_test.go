package aggregate

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sale struct {
	customer string
	day      string
	amount   int64
}

func (s sale) value() decimal.Decimal { return decimal.NewFromInt(s.amount) }

var sales = []sale{
	{customer: "a", day: "2024-01-03", amount: 100},
	{customer: "b", day: "2024-01-01", amount: 250},
	{customer: "a", day: "2024-01-01", amount: 50},
	{customer: "c", day: "2024-01-02", amount: 0},
}

func TestGroupByPreservesOrderAndCount(t *testing.T) {
	groups := GroupBy(sales, func(s sale) string { return s.customer })

	require.Len(t, groups, 3)
	assert.Equal(t, []sale{sales[0], sales[2]}, groups["a"])

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, len(sales), total)
}

func TestSumAndCount(t *testing.T) {
	assert.True(t, decimal.NewFromInt(400).Equal(Sum(sales, sale.value)))
	assert.True(t, decimal.Zero.Equal(Sum([]sale{}, sale.value)))
	assert.Equal(t, 2, Count(sales, func(s sale) bool { return s.customer == "a" }))
	assert.Len(t, Filter(sales, func(s sale) bool { return s.amount > 60 }), 2)
}

func TestSumByOrdersBuckets(t *testing.T) {
	buckets := SumBy(sales, func(s sale) string { return s.day }, sale.value, strings.Compare)

	require.Len(t, buckets, 3)
	assert.Equal(t, "2024-01-01", buckets[0].Key)
	assert.True(t, decimal.NewFromInt(300).Equal(buckets[0].Value))
	assert.Equal(t, "2024-01-02", buckets[1].Key)
	assert.Equal(t, "2024-01-03", buckets[2].Key)
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
