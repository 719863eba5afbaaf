package spike

import "math"

// ComputeBaseline 总体标准差(除以 N), 空输入返回零值
func ComputeBaseline(values []float64) Baseline {
	if len(values) == 0 {
		return Baseline{}
	}
	n := float64(len(values))
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= n
	return Baseline{
		Mean:   mean,
		Stddev: math.Sqrt(variance),
	}
}
