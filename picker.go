package seispick

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TravelTimeLookup 外部走时查询层。对给定 (台站, 相位) 返回
// 假设震源位置到台站的走时（秒），并提供默认的走时不确定度比例。
type TravelTimeLookup interface {
	TravelTime(station, phase string) (float64, error)
	FractionTT() float64
}

// Pick 输出表的一行。每个尝试过的台站/相位都有一行：
// ModelledTime 总是存在（由走时查询推出）；未产出 pick 时
// PickTime 为零值 time.Time（用 IsZero 判断），
// PickError 和 SNR 为哨兵值 -1。
type Pick struct {
	Station      string
	Phase        string
	ModelledTime time.Time
	PickTime     time.Time
	PickError    float64
	SNR          float64
}

// Picked 该行是否有有效 pick
func (p Pick) Picked() bool {
	return !p.PickTime.IsZero()
}

// GaussianPicker 对每个台站/相位的 onset 函数拟合一维高斯，
// 得到到时、误差和峰值幅度。
type GaussianPicker struct {
	cfg    *Config
	onset  *OnsetCalculator
	fitter *GaussianFitter
	sink   DiagnosticSink
}

// NewGaussianPicker 创建 picker。onset 传入用于 picking 前以
// 非 log 方式重算 onset 函数；传 nil 时直接使用事件上已累积的
// onset（主要供测试和离线重放使用）。
func NewGaussianPicker(cfg *Config, onset *OnsetCalculator, sink DiagnosticSink) (*GaussianPicker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &GaussianPicker{
		cfg:    cfg,
		onset:  onset,
		fitter: NewGaussianFitter(cfg.SamplingRate, cfg.Picker.MaxFitIterations),
		sink:   sink,
	}, nil
}

// String 返回参数概要，用于运行日志
func (p *GaussianPicker) String() string {
	var b strings.Builder
	b.WriteString("Phase picking by fitting a 1-D Gaussian to onsets\n")
	fmt.Fprintf(&b, "\tMAD noise scalar = %g\n", p.cfg.Picker.NoiseMADScalar)
	if p.cfg.Picker.FractionTT > 0 {
		fmt.Fprintf(&b, "\tSearch window = %g%% of traveltime\n", p.cfg.Picker.FractionTT*100)
	}
	return b.String()
}

// PickPhases 对事件的所有台站/相位做 picking。
// 流程：（可选）以原始（非 log）onset 重算；按预计到时推出各相位
// 搜索窗并消除重叠；用窗口外数据估计噪声阈值；逐相位做高斯拟合。
// 返回 pick 表（每个尝试过的台站/相位一行，无 pick 的行保留哨兵值
// 以便审计），同时把窗口映射和拟合详情挂到事件上供诊断绘图。
// 噪声统计退化（所有样本被窗口屏蔽）会中止整个事件并上抛。
func (p *GaussianPicker) PickPhases(ev *Event, lookup TravelTimeLookup) ([]Pick, error) {
	if p.onset != nil {
		if _, _, err := p.onset.CalculateOnsets(ev, false); err != nil {
			return nil, fmt.Errorf("recalculate onsets: %w", err)
		}
	}

	fractionTT := p.cfg.Picker.FractionTT
	if fractionTT <= 0 {
		fractionTT = lookup.FractionTT()
	}

	recordStart := ev.Record.StartTime
	originOffset := ev.OriginTime.Sub(recordStart).Seconds()
	rate := p.cfg.SamplingRate

	var picks []Pick
	fits := make(map[string]map[string]GaussianFit)
	windows := make(map[string]map[string]PickWindow)

	for _, station := range ev.Record.Stations() {
		onsets := ev.Onsets[station]

		traveltimes := make(map[string]float64, len(p.cfg.Phases))
		for _, phase := range p.cfg.Phases {
			tt, err := lookup.TravelTime(station, phase)
			if err != nil {
				return nil, fmt.Errorf("traveltime lookup %s.%s: %w", station, phase, err)
			}
			traveltimes[phase] = tt
		}

		// 只为算出了 onset 的相位建窗口，并按预计到时排序后消重叠
		var withOnset []string
		nSamples := 0
		for _, phase := range p.cfg.Phases {
			if onset, ok := onsets[phase]; ok {
				withOnset = append(withOnset, phase)
				nSamples = len(onset)
			}
		}
		sort.Slice(withOnset, func(i, j int) bool {
			return traveltimes[withOnset[i]] < traveltimes[withOnset[j]]
		})

		stationWindows := make(map[string]PickWindow, len(withOnset))
		for _, phase := range withOnset {
			tt := traveltimes[phase]
			stationWindows[phase] = DeriveWindow(originOffset+tt, tt, fractionTT, rate)
		}
		DistinguishWindows(stationWindows, withOnset, nSamples)
		if len(stationWindows) > 0 {
			windows[station] = stationWindows
		}

		for _, phase := range p.cfg.Phases {
			modelled := ev.OriginTime.Add(secondsToDuration(traveltimes[phase]))

			onset, ok := onsets[phase]
			if !ok {
				// 数据不可用：保留哨兵行，保证每个尝试过的
				// 台站/相位在输出表里都有一行
				p.sink.NoPick(station, phase, CauseNoOnsetData, 0)
				picks = append(picks, Pick{
					Station:      station,
					Phase:        phase,
					ModelledTime: modelled,
					PickError:    PickSentinel,
					SNR:          PickSentinel,
				})
				continue
			}

			noiseThreshold, err := FindNoiseThreshold(onset, stationWindows, p.cfg.Picker.NoiseMADScalar)
			if err != nil {
				return nil, fmt.Errorf("noise threshold %s: %w", station, err)
			}

			win := p.cfg.Onset.STALTAWindows[phase]
			halfwidth := win[0] * rate / 2

			fit, pickTime, pickError, amplitude := p.fitter.Fit(
				onset, halfwidth, recordStart, noiseThreshold, stationWindows[phase])

			if fits[station] == nil {
				fits[station] = make(map[string]GaussianFit)
			}
			fits[station][phase] = fit

			if fit.Valid() {
				p.sink.PickMade(station, phase, pickTime, pickError, amplitude)
			} else {
				p.sink.NoPick(station, phase, fit.Cause, fit.Threshold)
			}

			picks = append(picks, Pick{
				Station:      station,
				Phase:        phase,
				ModelledTime: modelled,
				PickTime:     pickTime,
				PickError:    pickError,
				SNR:          amplitude,
			})
		}
	}

	ev.AddPicks(picks, fits, windows)
	return picks, nil
}
