package decimalx

import "github.com/shopspring/decimal"

// SumBy 对切片中每一项取值后求和
func SumBy[T any](items []T, value func(item T) decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(value(item))
	}
	return sum
}

// Float 精度损失可以接受的场景下使用, 例如统计计算
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Floats 批量转换
func Floats(ds []decimal.Decimal) []float64 {
	res := make([]float64, 0, len(ds))
	for _, d := range ds {
		res = append(res, Float(d))
	}
	return res
}
