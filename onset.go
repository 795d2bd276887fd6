package seispick

import (
	"fmt"
	"math"
	"strings"
)

// OnsetCalculator 对每个台站/相位计算 STA/LTA 特征 (onset) 函数。
// 对齐策略在构造时用 AlignmentPolicy 显式指定，
// preprocess / compute onset / gaussian halfwidth 共用同一套配置。
type OnsetCalculator struct {
	cfg  *Config
	sink DiagnosticSink
}

// NewOnsetCalculator 创建 onset 计算器；配置在此处校验，
// 缺失的相位条目立即报错。sink 传 nil 时使用空实现。
func NewOnsetCalculator(cfg *Config, sink DiagnosticSink) (*OnsetCalculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &OnsetCalculator{cfg: cfg, sink: sink}, nil
}

// String 返回参数概要，用于运行日志
func (o *OnsetCalculator) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Onset parameters - using the %s STA/LTA onset\n", o.cfg.Position)
	fmt.Fprintf(&b, "\tOnset function sampling rate = %g Hz\n", o.cfg.SamplingRate)
	fmt.Fprintf(&b, "\tPhase(s) = %v\n", o.cfg.Phases)
	for _, phase := range o.cfg.Phases {
		if f, ok := o.cfg.Onset.BandpassFilters[phase]; ok {
			fmt.Fprintf(&b, "\t%s bandpass filter = [%g, %g, %d] (Hz, Hz, -)\n", phase, f.LowCut, f.HighCut, f.Corners)
		}
		if w, ok := o.cfg.Onset.STALTAWindows[phase]; ok {
			fmt.Fprintf(&b, "\t%s onset [STA, LTA] = [%g, %g] (s, s)\n", phase, w[0], w[1])
		}
	}
	return b.String()
}

// SamplingRate onset 函数的采样率
func (o *OnsetCalculator) SamplingRate() float64 {
	return o.cfg.SamplingRate
}

// CalculateOnsets 对事件记录逐相位、逐台站计算 onset 函数。
// 结果累积到 ev.Onsets（台站 → 相位），同时返回可直接喂给外部
// 网格扫描器的堆叠矩阵和与行对应的 "台站.相位" 键。
// takeLog 为真时对每通道比值取对数后再做通道间 RMS 叠加
// （扫描用 log 版本，picking 时用原始版本重算）。
// 可用性不足的台站/相位被跳过并记入 sink，绝不中断整个事件；
// Nyquist 违规是该相位预处理的致命错误，直接上抛。
func (o *OnsetCalculator) CalculateOnsets(ev *Event, takeLog bool) ([][]float64, []string, error) {
	rec := ev.Record
	rate := o.cfg.SamplingRate

	if ev.Onsets == nil {
		ev.Onsets = make(map[string]map[string][]float64)
	}
	if ev.Availability == nil {
		ev.Availability = make(map[string]int)
	}
	// 重新计算时从空的过滤波形开始，避免叠加旧数据
	ev.FilteredRecord = &MultiChannelRecord{
		StartTime:    rec.StartTime,
		EndTime:      rec.EndTime,
		SamplingRate: rate,
	}

	var stacked [][]float64
	var keys []string
	stations := rec.Stations()

	for _, phase := range o.cfg.Phases {
		spec, err := o.cfg.PhaseSpec(phase)
		if err != nil {
			return nil, nil, err
		}

		// 窗口长度换算到采样点
		stw := timeToSamples(spec.STAWindow, rate) + 1
		ltw := timeToSamples(spec.LTAWindow, rate) + 1

		// 对每个相位只求值一次通道选择谓词
		phaseRec := rec.SelectChannels(PatternSelector(spec.ChannelPattern))

		// 预处理按通道进行，不会被空洞数据打断（可用性在下面逐台检查）
		filtered, err := PreProcess(phaseRec, rate, rec.Resample, rec.UpFactor, spec.Bandpass)
		if err != nil {
			return nil, nil, fmt.Errorf("phase %s: %w", phase, err)
		}

		for _, station := range stations {
			traces := filtered.SelectStation(station)

			av := CheckAvailability(traces, rec.StartTime, rec.EndTime, AvailabilityOptions{
				NChannels:    spec.ChannelCount,
				AllChannels:  spec.AllChannels,
				AllowGaps:    spec.AllowGaps,
				FullTimespan: spec.FullTimespan,
			})
			ev.Availability[station+"."+phase] = av.Count

			if !av.Usable() {
				o.sink.OnsetSkipped(station, phase, av.Count)
				continue
			}

			// 剔除未通过逐通道检查的通道，再裁剪/填零到请求时段，
			// 保证同一事件所有 onset 数组等长、采样对齐
			traces = PruneChannels(traces, av.Channels)
			for i, tr := range traces {
				traces[i] = tr.TrimPad(rec.StartTime, rec.EndTime)
			}

			onset := o.computeOnset(traces, stw, ltw, takeLog)
			if ev.Onsets[station] == nil {
				ev.Onsets[station] = make(map[string][]float64)
			}
			ev.Onsets[station][phase] = onset
			stacked = append(stacked, onset)
			keys = append(keys, station+"."+phase)
			ev.FilteredRecord.Traces = append(ev.FilteredRecord.Traces, traces...)
		}
	}

	return stacked, keys, nil
}

// computeOnset 对一个台站某相位的通道集生成 onset 函数。
// 多通道时先逐通道 clip（可选再取对数），然后按通道取均方根合成。
func (o *OnsetCalculator) computeOnset(traces []*Trace, stw, ltw int, takeLog bool) []float64 {
	ratios := make([][]float64, len(traces))
	for i, tr := range traces {
		var r []float64
		if o.cfg.Position == AlignCentred {
			r = staLTACentred(tr.Data, stw, ltw)
		} else {
			r = staLTAClassic(tr.Data, stw, ltw)
		}
		// 1+比值 下限裁剪到 0.8：既防 log(0)，
		// 也抑制比值低于 1 的噪声段主导叠加
		for j, v := range r {
			v = 1 + v
			if v < 0.8 {
				v = 0.8
			}
			if takeLog {
				v = math.Log(v)
			}
			r[j] = v
		}
		ratios[i] = r
	}

	n := 0
	if len(ratios) > 0 {
		n = len(ratios[0])
	}
	out := make([]float64, n)
	for j := 0; j < n; j++ {
		var ss float64
		for i := range ratios {
			ss += ratios[i][j] * ratios[i][j]
		}
		out[j] = math.Sqrt(ss / float64(len(ratios)))
	}
	return out
}

// GaussianHalfwidth 相位对应的高斯半宽初值（采样点），
// 由短窗长度推出，作为拟合的 sigma 种子。
func (o *OnsetCalculator) GaussianHalfwidth(phase string) float64 {
	win, ok := o.cfg.Onset.STALTAWindows[phase]
	if !ok {
		return 0
	}
	return win[0] * o.cfg.SamplingRate / 2
}

// PrePad 档案查询在时窗前应多取的秒数，由最长的 LTA/STA 窗推出
func (o *OnsetCalculator) PrePad() float64 {
	var staMax, ltaMax float64
	for _, w := range o.cfg.Onset.STALTAWindows {
		staMax = math.Max(staMax, w[0])
		ltaMax = math.Max(ltaMax, w[1])
	}
	return ltaMax + 3*staMax
}

// PostPad 档案查询在时窗后应多取的秒数，
// 取最大走时加两倍最长 LTA 窗（以覆盖 centred 对齐的需求）。
func (o *OnsetCalculator) PostPad(ttMax float64) float64 {
	var ltaMax float64
	for _, w := range o.cfg.Onset.STALTAWindows {
		ltaMax = math.Max(ltaMax, w[1])
	}
	return math.Ceil(ttMax + 2*ltaMax)
}

// staLTAClassic 经典 STA/LTA：短窗是长窗的尾部，比值记在两窗共同的
// 结束点。用累积和求滑动平均；前 nlta-1 个点历史不足，强制为零。
func staLTAClassic(a []float64, nsta, nlta int) []float64 {
	n := len(a)
	out := make([]float64, n)
	if n == 0 || nsta <= 0 || nlta <= 0 {
		return out
	}

	csum := cumsumSquares(a)
	for i := 0; i < n; i++ {
		s := csum[i]
		if i >= nsta {
			s -= csum[i-nsta]
		}
		l := csum[i]
		if i >= nlta {
			l -= csum[i-nlta]
		}
		sta := s / float64(nsta)
		lta := l / float64(nlta)
		if i < nlta-1 {
			sta = 0
		}
		// 长窗均值为零时垫成最小正数避免除零；
		// 经典对齐下短窗是长窗的子集，此时短窗均值同样为零
		if lta < math.SmallestNonzeroFloat64 {
			lta = math.SmallestNonzeroFloat64
		}
		out[i] = sta / lta
	}
	return out
}

// staLTACentred 居中 STA/LTA：短窗紧跟在长窗之后，比值记在
// 长窗结束/短窗开始的边界点（比经典对齐相位偏移更小）。
// 实现上把短窗均值整体前移 nsta；前 nlta-1 个和最后 nsta 个
// 采样点历史/前瞻不足，强制为零。
func staLTACentred(a []float64, nsta, nlta int) []float64 {
	n := len(a)
	out := make([]float64, n)
	if n == 0 || nsta <= 0 || nlta <= 0 {
		return out
	}

	csum := cumsumSquares(a)
	sta := make([]float64, n)
	lta := make([]float64, n)
	for i := 0; i < n; i++ {
		s := csum[i]
		if i >= nsta {
			s -= csum[i-nsta]
		}
		sta[i] = s / float64(nsta)

		l := csum[i]
		if i >= nlta {
			l -= csum[i-nlta]
		}
		lta[i] = l / float64(nlta)
	}

	// 短窗均值前移 nsta，使记值点落在 LTA/STA 边界上
	shifted := make([]float64, n)
	copy(shifted, sta)
	for i := nsta; i < n-nsta; i++ {
		shifted[i] = sta[i+nsta]
	}
	sta = shifted

	for i := 0; i < nlta-1 && i < n; i++ {
		sta[i] = 0
	}
	for i := maxInt(n-nsta, 0); i < n; i++ {
		sta[i] = 0
	}

	for i := 0; i < n; i++ {
		if lta[i] < math.SmallestNonzeroFloat64 {
			lta[i] = math.SmallestNonzeroFloat64
			sta[i] = 0
		}
		out[i] = sta[i] / lta[i]
	}
	return out
}

func cumsumSquares(a []float64) []float64 {
	out := make([]float64, len(a))
	var acc float64
	for i, v := range a {
		acc += v * v
		out[i] = acc
	}
	return out
}
