package seispick

import "fmt"

// AlignmentPolicy STA/LTA 窗口对齐策略
type AlignmentPolicy string

const (
	// AlignClassic 短窗是长窗的尾部，比值记在两窗共同的结束点。
	// 相位偏移较大（偏晚），但对仪器故障造成的阶跃不敏感，适合扫描。
	AlignClassic AlignmentPolicy = "classic"
	// AlignCentred 短窗紧跟在长窗之后，比值记在两窗边界点。
	// 形状更接近高斯，适合定位和 picking，但对坏数据更敏感。
	AlignCentred AlignmentPolicy = "centred"
)

// FilterSpec 带通滤波参数。零相位（两次）滤波的等效极点数是 Corners 的两倍。
type FilterSpec struct {
	LowCut  float64 // Hz
	HighCut float64 // Hz
	Corners int     // 单次滤波的阶数
}

// PhaseSpec 某一相位的完整只读配置视图，由 Config 的各相位映射拼装而成
type PhaseSpec struct {
	Phase          string
	ChannelPattern string
	ChannelCount   int
	STAWindow      float64 // 秒
	LTAWindow      float64 // 秒
	Bandpass       FilterSpec
	AllChannels    bool
	AllowGaps      bool
	FullTimespan   bool
}

// Config 结构体集中管理 onset 计算与 picker 的所有可调参数。
// 各相位映射 (STALTAWindows / BandpassFilters / ChannelMaps /
// ChannelCounts) 必须对 Phases 里出现的每个相位都有条目，
// 缺项是配置错误，不允许静默兜底。
type Config struct {
	// 目标采样率 (Hz)，onset 函数在该采样率上计算
	SamplingRate float64
	// STA/LTA 对齐策略
	Position AlignmentPolicy
	// 需要计算 onset 的相位列表（如 "P"、"S"）
	Phases []string

	Onset struct {
		STALTAWindows   map[string][2]float64 // [STA, LTA] 秒
		BandpassFilters map[string]FilterSpec
		ChannelMaps     map[string]string // 通道通配模式，如 "*Z"
		ChannelCounts   map[string]int    // 计算 onset 所需的通道数
		AllChannels     bool              // 要求通道模式命中的全部通道都可用
		AllowGaps       bool              // 容忍数据空洞（之后填零）
		FullTimespan    bool              // 要求数据覆盖完整的请求时段
	}

	Picker struct {
		NoiseMADScalar   float64 // 噪声阈值 = 该系数 × 窗口外 onset 的 MAD
		FractionTT       float64 // 走时的不确定度比例；0 表示使用查询表自带的默认值
		MaxFitIterations int     // 高斯拟合的最大迭代次数（硬性上限，保证单次延迟有界）
	}
}

// DefaultConfig 返回 P/S 两相位的默认配置
func DefaultConfig() *Config {
	cfg := &Config{
		SamplingRate: 50,
		Position:     AlignClassic,
		Phases:       []string{"P", "S"},
	}

	cfg.Onset.STALTAWindows = map[string][2]float64{
		"P": {0.2, 1.0},
		"S": {0.2, 1.0},
	}
	cfg.Onset.BandpassFilters = map[string]FilterSpec{
		"P": {LowCut: 2.0, HighCut: 16.0, Corners: 2},
		"S": {LowCut: 2.0, HighCut: 16.0, Corners: 2},
	}
	cfg.Onset.ChannelMaps = map[string]string{
		"P": "*Z",
		"S": "*[NE12]",
	}
	cfg.Onset.ChannelCounts = map[string]int{
		"P": 1,
		"S": 2,
	}
	cfg.Onset.AllChannels = false
	cfg.Onset.AllowGaps = false
	cfg.Onset.FullTimespan = true

	cfg.Picker.NoiseMADScalar = 15.0
	cfg.Picker.FractionTT = 0
	cfg.Picker.MaxFitIterations = 500

	return cfg
}

// PhaseSpec 拼装某相位的只读配置视图；任何映射缺项都返回 ConfigError
func (c *Config) PhaseSpec(phase string) (PhaseSpec, error) {
	win, ok := c.Onset.STALTAWindows[phase]
	if !ok {
		return PhaseSpec{}, &ConfigError{Field: "Onset.STALTAWindows", Reason: "missing entry for phase " + phase}
	}
	filt, ok := c.Onset.BandpassFilters[phase]
	if !ok {
		return PhaseSpec{}, &ConfigError{Field: "Onset.BandpassFilters", Reason: "missing entry for phase " + phase}
	}
	pattern, ok := c.Onset.ChannelMaps[phase]
	if !ok {
		return PhaseSpec{}, &ConfigError{Field: "Onset.ChannelMaps", Reason: "missing entry for phase " + phase}
	}
	count, ok := c.Onset.ChannelCounts[phase]
	if !ok {
		return PhaseSpec{}, &ConfigError{Field: "Onset.ChannelCounts", Reason: "missing entry for phase " + phase}
	}

	return PhaseSpec{
		Phase:          phase,
		ChannelPattern: pattern,
		ChannelCount:   count,
		STAWindow:      win[0],
		LTAWindow:      win[1],
		Bandpass:       filt,
		AllChannels:    c.Onset.AllChannels,
		AllowGaps:      c.Onset.AllowGaps,
		FullTimespan:   c.Onset.FullTimespan,
	}, nil
}

// Validate 检查配置自洽性
func (c *Config) Validate() error {
	if c.SamplingRate <= 0 {
		return &ConfigError{Field: "SamplingRate", Reason: "must be > 0"}
	}
	if c.Position != AlignClassic && c.Position != AlignCentred {
		return &ConfigError{Field: "Position", Reason: fmt.Sprintf("unknown alignment policy %q", c.Position)}
	}
	if len(c.Phases) == 0 {
		return &ConfigError{Field: "Phases", Reason: "at least one phase required"}
	}
	for _, phase := range c.Phases {
		spec, err := c.PhaseSpec(phase)
		if err != nil {
			return err
		}
		if spec.STAWindow <= 0 || spec.LTAWindow <= spec.STAWindow {
			return &ConfigError{Field: "Onset.STALTAWindows", Reason: "require 0 < STA < LTA for phase " + phase}
		}
		if spec.Bandpass.LowCut <= 0 || spec.Bandpass.HighCut <= spec.Bandpass.LowCut {
			return &ConfigError{Field: "Onset.BandpassFilters", Reason: "require 0 < lowcut < highcut for phase " + phase}
		}
		if spec.Bandpass.Corners <= 0 {
			return &ConfigError{Field: "Onset.BandpassFilters", Reason: "corner count must be > 0 for phase " + phase}
		}
		if spec.ChannelCount <= 0 {
			return &ConfigError{Field: "Onset.ChannelCounts", Reason: "channel count must be > 0 for phase " + phase}
		}
	}
	if c.Picker.NoiseMADScalar <= 0 {
		return &ConfigError{Field: "Picker.NoiseMADScalar", Reason: "must be > 0"}
	}
	if c.Picker.MaxFitIterations <= 0 {
		return &ConfigError{Field: "Picker.MaxFitIterations", Reason: "must be > 0 (fit latency must be bounded)"}
	}
	return nil
}

// MigrateLegacyOptions 把历史参数名一次性映射到当前配置。
// 映射表是显式的：未知键直接报错，不做运行期属性拦截。
func MigrateLegacyOptions(cfg *Config, legacy map[string]any) error {
	for key, value := range legacy {
		switch key {
		case "onset_centred":
			v, ok := value.(bool)
			if !ok {
				return &ConfigError{Field: key, Reason: "expected bool"}
			}
			if v {
				cfg.Position = AlignCentred
			} else {
				cfg.Position = AlignClassic
			}
		case "p_bp_filter", "s_bp_filter":
			v, ok := value.([]float64)
			if !ok || len(v) != 3 {
				return &ConfigError{Field: key, Reason: "expected [lowcut, highcut, corners]"}
			}
			phase := "P"
			if key == "s_bp_filter" {
				phase = "S"
			}
			cfg.Onset.BandpassFilters[phase] = FilterSpec{LowCut: v[0], HighCut: v[1], Corners: int(v[2])}
		case "p_onset_win", "s_onset_win":
			v, ok := value.([]float64)
			if !ok || len(v) != 2 {
				return &ConfigError{Field: key, Reason: "expected [STA, LTA]"}
			}
			phase := "P"
			if key == "s_onset_win" {
				phase = "S"
			}
			cfg.Onset.STALTAWindows[phase] = [2]float64{v[0], v[1]}
		case "fraction_tt":
			v, ok := value.(float64)
			if !ok {
				return &ConfigError{Field: key, Reason: "expected float64"}
			}
			cfg.Picker.FractionTT = v
		case "pick_threshold":
			return &ConfigError{Field: key, Reason: "removed; use Picker.NoiseMADScalar (scale factor on the noise MAD)"}
		default:
			return &ConfigError{Field: key, Reason: "unknown legacy option"}
		}
	}
	return nil
}
