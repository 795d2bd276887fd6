package seispick

import (
	"math"
	"sort"
)

// DefaultNoiseMADScalar 噪声阈值相对 MAD 的默认放大系数
const DefaultNoiseMADScalar = 15.0

// MADScale 使 MAD 在正态分布下逼近标准差的一致性系数
const MADScale = 1.4826

// MAD 返回 scale × 中位数绝对偏差。噪声阈值本身用原始 MAD
// (scale = 1)；需要标准差估计的调用方可传 MADScale。
func MAD(x []float64, scale float64) float64 {
	med := median(x)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = abs(v - med)
	}
	return scale * median(dev)
}

// FindNoiseThreshold 用窗口外的 onset 数据估计背景噪声阈值：
// 屏蔽该台站所有相位的 pick 窗口，对剩余样本求中位数与 MAD，
// 返回 scalar × MAD。所有样本都被屏蔽时返回 ErrDegenerateNoise——
// 退化的阈值会让每个 pick 都不可信，必须上抛而不是返回 0。
func FindNoiseThreshold(onset []float64, windows map[string]PickWindow, scalar float64) (float64, error) {
	masked := make([]bool, len(onset))
	for _, w := range windows {
		lo, hi := maxInt(w.Lower, 0), minInt(w.Upper, len(onset))
		for i := lo; i < hi; i++ {
			masked[i] = true
		}
	}

	noise := make([]float64, 0, len(onset))
	for i, v := range onset {
		if !masked[i] {
			noise = append(noise, v)
		}
	}
	if len(noise) == 0 {
		return 0, ErrDegenerateNoise
	}

	return scalar * MAD(noise, 1.0), nil
}

// median 样本中位数：奇数长度取中间的次序统计量，
// 偶数长度取中间两个的均值
func median(x []float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// percentile 百分位数，p 取 [0, 1]。
// 在次序统计量之间按 p·(n-1) 线性插值。
func percentile(x []float64, p float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	if lo+1 >= n {
		return s[n-1]
	}
	return s[lo] + (h-float64(lo))*(s[lo+1]-s[lo])
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
