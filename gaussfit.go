package seispick

import (
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
)

// PickSentinel 未产出 pick 时 幅值/均值/sigma 的哨兵值。
// 用确切的 -1 而不是 NaN，方便下游直接做相等判断。
const PickSentinel = -1.0

// FitCause 区分一次拟合的结局，日志里必须能分辨失败原因
type FitCause string

const (
	CausePicked          FitCause = "picked"
	CauseNoOnsetData     FitCause = "no onset data"
	CauseNoExceedance    FitCause = "no exceedance"
	CauseFitFailure      FitCause = "fit failure"
	CauseMeanOutOfBounds FitCause = "fit mean out of bounds"
)

// GaussianFit 一次高斯拟合的完整记录。
// 没有产出 pick 时 Amplitude/Mean/Sigma 都是哨兵值 -1，
// 但实际使用的判定阈值仍会保留，供诊断绘图使用。
type GaussianFit struct {
	Amplitude float64   // 拟合峰值
	Mean      float64   // 拟合均值，相对记录起点的秒数
	Sigma     float64   // 拟合标准差，秒
	Times     []float64 // 参与拟合的采样点时刻（相对记录起点的秒数）
	Threshold float64   // 实际使用的判定阈值
	Cause     FitCause
}

// Valid 是否产出了有效 pick
func (f GaussianFit) Valid() bool {
	return f.Cause == CausePicked
}

// Gaussian1D 一维高斯函数
func Gaussian1D(x, amplitude, mean, sigma float64) float64 {
	if sigma == 0 {
		return 0
	}
	d := (x - mean) / sigma
	return amplitude * math.Exp(-0.5*d*d)
}

// GaussianFitter 在 pick 窗口内对 onset 函数做一维高斯拟合。
// 迭代次数有硬性上限，保证单个台站/相位的最坏延迟有界。
type GaussianFitter struct {
	SamplingRate  float64
	MaxIterations int
}

// NewGaussianFitter 创建拟合器
func NewGaussianFitter(samplingRate float64, maxIterations int) *GaussianFitter {
	if maxIterations <= 0 {
		maxIterations = 500
	}
	return &GaussianFitter{SamplingRate: samplingRate, MaxIterations: maxIterations}
}

// Fit 在窗口内寻找到时：
//  1. 把 onset 限制在 pick 窗口内；
//  2. 信号阈值 = min(窗口峰值的一半, 88 百分位)；
//  3. 判定阈值 = max(噪声阈值, 信号阈值)；
//  4. 没有样本超阈 → 哨兵结果（只保留阈值）；
//  5. 在超阈样本里找包含窗口全局最大值的连续段，两端各向下
//     扩一个采样点作为拟合数据；
//  6. 以 (峰值, 峰值时刻, 短窗推出的半宽) 为初值做非线性最小
//     二乘高斯拟合；
//  7. 不收敛或数值异常 → 哨兵结果（原因记 fit failure）；
//  8. 收敛但均值落在拟合区间之外 → 哨兵结果（原因单独记录）；
//  9. 成功则返回拟合参数、pick 绝对时刻、|sigma| 作为误差、峰值幅度。
//
// halfwidth 单位是采样点。返回值依次是拟合记录、pick 时刻
// （没有 pick 时为零值 time.Time）、pick 误差（秒）和峰值幅度
// （后两者没有 pick 时为 -1）。
func (g *GaussianFitter) Fit(onset []float64, halfwidth float64, startTime time.Time, noiseThreshold float64, w PickWindow) (GaussianFit, time.Time, float64, float64) {
	lo := maxInt(w.Lower, 0)
	hi := minInt(w.Upper, len(onset))
	if hi-lo < 1 {
		return sentinelFit(noiseThreshold, CauseNoExceedance), time.Time{}, PickSentinel, PickSentinel
	}
	signal := onset[lo:hi]

	peak, peakIdx := maxWithIndex(signal)
	signalThreshold := math.Min(peak/2, percentile(signal, 0.88))
	threshold := math.Max(noiseThreshold, signalThreshold)

	exceed := make([]int, 0, len(signal))
	for i, v := range signal {
		if v > threshold {
			exceed = append(exceed, i)
		}
	}
	if len(exceed) == 0 {
		return sentinelFit(threshold, CauseNoExceedance), time.Time{}, PickSentinel, PickSentinel
	}

	// 找包含窗口全局最大值的连续超阈段
	run := runContaining(exceed, peakIdx)

	// 两端各向下扩一个采样点，给拟合留出回落到阈值以下的支点
	gauIdxMin := maxInt(run[0]+lo-1, 0)
	gauIdxMax := minInt(run[len(run)-1]+lo+2, len(onset))

	yData := onset[gauIdxMin:gauIdxMax]
	xData := make([]float64, len(yData))
	for i := range xData {
		xData[i] = float64(gauIdxMin+i) / g.SamplingRate
	}

	// 初值：峰值、峰值时刻、短窗推出的半宽
	yPeak, yPeakIdx := maxWithIndex(yData)
	p0 := []float64{
		yPeak,
		float64(gauIdxMin+yPeakIdx) / g.SamplingRate,
		halfwidth / g.SamplingRate,
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			var sse float64
			for i, x := range xData {
				r := yData[i] - Gaussian1D(x, p[0], p[1], p[2])
				sse += r * r
			}
			return sse
		},
	}
	settings := &optimize.Settings{MajorIterations: g.MaxIterations}

	result, err := optimize.Minimize(problem, p0, settings, &optimize.NelderMead{})
	if err != nil || result == nil || !allFinite(result.X) {
		return sentinelFit(threshold, CauseFitFailure), time.Time{}, PickSentinel, PickSentinel
	}

	amplitude, mean, sigma := result.X[0], result.X[1], math.Abs(result.X[2])

	// 均值必须落在拟合数据的下标范围内，否则视为无效拟合
	meanIdx := mean * g.SamplingRate
	if !(float64(gauIdxMin) < meanIdx && meanIdx < float64(gauIdxMax)) {
		return sentinelFit(threshold, CauseMeanOutOfBounds), time.Time{}, PickSentinel, PickSentinel
	}

	fit := GaussianFit{
		Amplitude: amplitude,
		Mean:      mean,
		Sigma:     sigma,
		Times:     xData,
		Threshold: threshold,
		Cause:     CausePicked,
	}
	pickTime := startTime.Add(secondsToDuration(mean))
	return fit, pickTime, sigma, amplitude
}

func sentinelFit(threshold float64, cause FitCause) GaussianFit {
	return GaussianFit{
		Amplitude: PickSentinel,
		Mean:      PickSentinel,
		Sigma:     PickSentinel,
		Threshold: threshold,
		Cause:     cause,
	}
}

// runContaining 在升序超阈下标里找包含 target 的连续段
func runContaining(exceed []int, target int) []int {
	start := 0
	var run []int
	for k := 1; k <= len(exceed); k++ {
		if k == len(exceed) || exceed[k] != exceed[k-1]+1 {
			run = exceed[start:k]
			if run[0] <= target && target <= run[len(run)-1] {
				return run
			}
			start = k
		}
	}
	// target 一定超阈（阈值低于窗口峰值），理论上到不了这里；
	// 兜底返回最后一段
	return run
}

func maxWithIndex(x []float64) (float64, int) {
	best, idx := math.Inf(-1), 0
	for i, v := range x {
		if v > best {
			best, idx = v, i
		}
	}
	return best, idx
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
