package seispick

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// PreProcess 对一个相位的多通道记录做预处理：
// 重采样到目标采样率（默认只做抽取；resample 为真且无法直接抽取时，
// 先按 upfactor 整数倍上采样再抽取）、去线性趋势、去均值、
// 两端 5% 余弦尖灭，最后做零相位带通滤波。
// 始终返回独立的新记录，绝不修改调用方的原始数据。
func PreProcess(rec *MultiChannelRecord, samplingRate float64, resample bool, upfactor int, filt FilterSpec) (*MultiChannelRecord, error) {
	out, err := Resample(rec, samplingRate, resample, upfactor)
	if err != nil {
		return nil, err
	}

	// 滤波参数必须与目标采样率兼容，否则直接上抛，不做滤波
	if filt.HighCut >= 0.5*samplingRate {
		return nil, &NyquistViolation{HighCut: filt.HighCut, Nyquist: 0.5 * samplingRate}
	}

	for _, tr := range out.Traces {
		DetrendLinear(tr.Data)
		Demean(tr.Data)
		CosineTaper(tr.Data, 0.05)
		ZeroPhaseBandpass(tr.Data, samplingRate, filt.LowCut, filt.HighCut, filt.Corners)
	}
	return out, nil
}

// Resample 把记录里的每个通道变换到目标采样率。
// 采样率已一致的通道只做拷贝；整数倍的做抽取；
// 其余通道在 resample 开启时先做 upfactor 倍的傅里叶上采样，
// 若上采样后仍无法整除则返回 SamplingRateError。
func Resample(rec *MultiChannelRecord, samplingRate float64, resample bool, upfactor int) (*MultiChannelRecord, error) {
	out := &MultiChannelRecord{
		StartTime:    rec.StartTime,
		EndTime:      rec.EndTime,
		SamplingRate: samplingRate,
		Resample:     rec.Resample,
		UpFactor:     rec.UpFactor,
	}

	for _, tr := range rec.Traces {
		switch {
		case rateEqual(tr.SamplingRate, samplingRate):
			out.Traces = append(out.Traces, tr.Copy())

		case isIntegerRatio(tr.SamplingRate, samplingRate):
			out.Traces = append(out.Traces, decimate(tr, int(math.Round(tr.SamplingRate/samplingRate))))

		case resample && upfactor > 1 && isIntegerRatio(tr.SamplingRate*float64(upfactor), samplingRate):
			up := upsampleTrace(tr, upfactor)
			factor := int(math.Round(up.SamplingRate / samplingRate))
			if factor == 1 {
				out.Traces = append(out.Traces, up)
			} else {
				out.Traces = append(out.Traces, decimate(up, factor))
			}

		default:
			return nil, fmt.Errorf("resample %s: %w", tr.ID(),
				&SamplingRateError{Have: tr.SamplingRate, Want: samplingRate, UpFactor: upfactor})
		}
	}
	return out, nil
}

// decimate 按整数因子抽取。抽取前先去趋势、尖灭并做零相位
// 抗混叠低通 (0.45 × 新采样率)，避免低通在边缘产生振铃。
func decimate(tr *Trace, factor int) *Trace {
	work := tr.Copy()
	DetrendLinear(work.Data)
	Demean(work.Data)
	CosineTaper(work.Data, 0.05)
	newRate := tr.SamplingRate / float64(factor)
	ZeroPhaseLowpass(work.Data, tr.SamplingRate, 0.45*newRate, 4)

	n := (len(work.Data) + factor - 1) / factor
	out := &Trace{
		Station:      tr.Station,
		Channel:      tr.Channel,
		StartTime:    tr.StartTime,
		SamplingRate: newRate,
	}
	out.Data = make([]float64, 0, n)
	for i := 0; i < len(work.Data); i += factor {
		out.Data = append(out.Data, work.Data[i])
	}
	for _, g := range tr.Gaps {
		out.Gaps = append(out.Gaps, GapSpan{g.Start / factor, (g.End + factor - 1) / factor})
	}
	return out
}

// upsampleTrace 傅里叶域整数倍上采样：频谱补零后逆变换。
// 对带限信号是精确插值；偶数长度时 Nyquist 分量对半拆到正负频率，
// 保持频谱共轭对称。
func upsampleTrace(tr *Trace, factor int) *Trace {
	n := len(tr.Data)
	out := &Trace{
		Station:      tr.Station,
		Channel:      tr.Channel,
		StartTime:    tr.StartTime,
		SamplingRate: tr.SamplingRate * float64(factor),
	}
	if n == 0 || factor <= 1 {
		out.Data = append([]float64(nil), tr.Data...)
		out.Gaps = append([]GapSpan(nil), tr.Gaps...)
		return out
	}

	spec := fft.FFTReal(tr.Data)
	m := n * factor
	padded := make([]complex128, m)

	half := n / 2
	if n%2 == 0 {
		for i := 0; i < half; i++ {
			padded[i] = spec[i]
		}
		padded[half] = spec[half] / 2
		padded[m-half] = spec[half] / 2
		for i := half + 1; i < n; i++ {
			padded[m-n+i] = spec[i]
		}
	} else {
		for i := 0; i <= half; i++ {
			padded[i] = spec[i]
		}
		for i := half + 1; i < n; i++ {
			padded[m-n+i] = spec[i]
		}
	}

	interp := fft.IFFT(padded)
	out.Data = make([]float64, m)
	for i, v := range interp {
		out.Data[i] = real(v) * float64(factor)
	}
	for _, g := range tr.Gaps {
		out.Gaps = append(out.Gaps, GapSpan{g.Start * factor, g.End * factor})
	}
	return out
}

// DetrendLinear 去除最小二乘拟合的线性趋势，就地修改
func DetrendLinear(data []float64) {
	n := len(data)
	if n < 2 {
		return
	}
	// y = a + b*x 的最小二乘解，x 取采样下标
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range data {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return
	}
	b := (fn*sumXY - sumX*sumY) / denom
	a := (sumY - b*sumX) / fn
	for i := range data {
		data[i] -= a + b*float64(i)
	}
}

// Demean 去均值，就地修改
func Demean(data []float64) {
	n := len(data)
	if n == 0 {
		return
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(n)
	for i := range data {
		data[i] -= mean
	}
}

// CosineTaper 两端各 fraction 长度的余弦尖灭，就地修改
func CosineTaper(data []float64, fraction float64) {
	n := len(data)
	taper := int(fraction * float64(n))
	if taper < 1 {
		return
	}
	for i := 0; i < taper && i < n; i++ {
		w := 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(taper)))
		data[i] *= w
		data[n-1-i] *= w
	}
}

func rateEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// isIntegerRatio 判断 a/b 是否为 ≥1 的整数（允许极小的浮点误差）
func isIntegerRatio(a, b float64) bool {
	if b <= 0 || a < b {
		return false
	}
	ratio := a / b
	return math.Abs(ratio-math.Round(ratio)) < 1e-9
}
