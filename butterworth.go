package seispick

import "math"

// BiquadFilter 二阶 IIR 滤波器节，高阶滤波器由多个节级联实现
type BiquadFilter struct {
	// 系数
	a0, a1, a2, b1, b2 float64
	// 状态 (延迟线)
	z1, z2 float64
}

// Process 处理单个采样点
func (f *BiquadFilter) Process(in float64) float64 {
	out := in*f.a0 + f.z1
	f.z1 = in*f.a1 - out*f.b1 + f.z2
	f.z2 = in*f.a2 - out*f.b2
	return out
}

// ButterworthFilter 由多个 Biquad 节级联组成的巴特沃斯滤波器
type ButterworthFilter struct {
	sections []*BiquadFilter
}

// Process 处理单个采样点，依次通过所有级联节
func (f *ButterworthFilter) Process(in float64) float64 {
	out := in
	for _, s := range f.sections {
		out = s.Process(out)
	}
	return out
}

// butterSection 巴特沃斯原型极点对应的一个滤波器节的中间量。
// 使用双线性变换把模拟原型映射到数字域；二阶节 (共轭极点对) 的
// alpha 是分母的 z^0 系数：K^2 - 2*K*p_re + |p|^2（p_re 为负，故取正）；
// 奇数阶多出的实极点 s = -w 对应一个一阶节，alpha = K + w。
type butterSection struct {
	firstOrder bool
	alpha      float64
	b1, b2     float64
	w          float64 // 预畸变后的截止角频率
	k          float64 // 双线性变换增益 K = 2 * sampleRate
	fs2        float64 // 4 * sampleRate^2
}

// butterSections 计算 N 阶巴特沃斯滤波器各节的公共量。
// 偶数阶全部由二阶节组成，奇数阶末尾多一个一阶节；
// 截止频率贴近 Nyquist 时会被压低以保证数值稳定
// (math.Tan 在 Nyquist 附近趋向无穷大)。
func butterSections(order int, sampleRate, cutoffFreq float64) []butterSection {
	if order <= 0 {
		return nil
	}
	if cutoffFreq >= sampleRate*0.499 {
		cutoffFreq = sampleRate * 0.499
	}

	// 预畸变截止频率
	w := 2.0 * sampleRate * math.Tan(math.Pi*cutoffFreq/sampleRate)
	k := 2.0 * sampleRate
	fs2 := k * k

	pairs := order / 2
	sections := make([]butterSection, 0, pairs+order%2)
	for i := 0; i < pairs; i++ {
		// 级联顺序优化：低 Q 节放在前面，倒序索引取极点
		poleIdx := (pairs - 1) - i

		theta := math.Pi * (2.0*float64(poleIdx) + 1.0) / (2.0 * float64(order))

		// 模拟原型极点
		pRe := -w * math.Sin(theta)
		pIm := w * math.Cos(theta)

		alpha := fs2 - 2.0*k*pRe + pRe*pRe + pIm*pIm
		b1 := (-2.0*fs2 + 2.0*(pRe*pRe+pIm*pIm)) / alpha
		b2 := (fs2 + 2.0*k*pRe + pRe*pRe + pIm*pIm) / alpha

		sections = append(sections, butterSection{alpha: alpha, b1: b1, b2: b2, w: w, k: k, fs2: fs2})
	}

	if order%2 == 1 {
		// 实极点 s = -w，双线性变换后分母为 (K+w) + (w-K)z^-1
		sections = append(sections, butterSection{
			firstOrder: true,
			alpha:      k + w,
			b1:         (w - k) / (k + w),
			w:          w,
			k:          k,
			fs2:        fs2,
		})
	}
	return sections
}

// NewButterworthLowpass 创建 N 阶巴特沃斯低通滤波器
func NewButterworthLowpass(order int, sampleRate, cutoffFreq float64) *ButterworthFilter {
	raw := butterSections(order, sampleRate, cutoffFreq)
	sections := make([]*BiquadFilter, len(raw))
	for i, s := range raw {
		if s.firstOrder {
			// 一阶低通分子: w * (1 + z^-1)
			sections[i] = &BiquadFilter{
				a0: s.w / s.alpha,
				a1: s.w / s.alpha,
				b1: s.b1,
			}
			continue
		}
		// 二阶低通分子: w^2 * (1 + z^-1)^2
		sections[i] = &BiquadFilter{
			a0: (s.w * s.w) / s.alpha,
			a1: (2.0 * s.w * s.w) / s.alpha,
			a2: (s.w * s.w) / s.alpha,
			b1: s.b1, b2: s.b2,
		}
	}
	return &ButterworthFilter{sections: sections}
}

// NewButterworthHighpass 创建 N 阶巴特沃斯高通滤波器。
// 单位原型极点的模为 1，低通到高通变换 (s -> w/s) 后极点模仍为 w，
// 分母与同截止频率的低通一致，分子换成 K^2 * (1 - z^-1)^2
// （一阶节为 K * (1 - z^-1)）。
func NewButterworthHighpass(order int, sampleRate, cutoffFreq float64) *ButterworthFilter {
	raw := butterSections(order, sampleRate, cutoffFreq)
	sections := make([]*BiquadFilter, len(raw))
	for i, s := range raw {
		if s.firstOrder {
			sections[i] = &BiquadFilter{
				a0: s.k / s.alpha,
				a1: -s.k / s.alpha,
				b1: s.b1,
			}
			continue
		}
		sections[i] = &BiquadFilter{
			a0: s.fs2 / s.alpha,
			a1: -2.0 * s.fs2 / s.alpha,
			a2: s.fs2 / s.alpha,
			b1: s.b1, b2: s.b2,
		}
	}
	return &ButterworthFilter{sections: sections}
}

// filterSlice 用给定滤波器就地处理整个切片
func filterSlice(f *ButterworthFilter, data []float64) {
	for i, v := range data {
		data[i] = f.Process(v)
	}
}

// reverseSlice 就地反转
func reverseSlice(data []float64) {
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}

// ZeroPhaseBandpass 零相位带通滤波：高通+低通级联，正向滤一遍、
// 反向再滤一遍以抵消相位偏移。两次滤波使等效极点数翻倍。
// 就地修改 data。
func ZeroPhaseBandpass(data []float64, sampleRate, lowCut, highCut float64, corners int) {
	for pass := 0; pass < 2; pass++ {
		// 每一遍都用全新的滤波器实例，避免状态串扰
		hp := NewButterworthHighpass(corners, sampleRate, lowCut)
		lp := NewButterworthLowpass(corners, sampleRate, highCut)
		filterSlice(hp, data)
		filterSlice(lp, data)
		reverseSlice(data)
	}
}

// ZeroPhaseLowpass 零相位低通滤波，抽取前的抗混叠用
func ZeroPhaseLowpass(data []float64, sampleRate, cutoffFreq float64, corners int) {
	for pass := 0; pass < 2; pass++ {
		lp := NewButterworthLowpass(corners, sampleRate, cutoffFreq)
		filterSlice(lp, data)
		reverseSlice(data)
	}
}
