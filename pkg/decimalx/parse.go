package decimalx

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func MustFromString(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}

// ParseNonNegative 解析价格等不能为负的数值
func ParseNonNegative(s string) (decimal.Decimal, error) {
	res, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if res.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %s", s)
	}
	return res, nil
}
