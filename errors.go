package seispick

import (
	"errors"
	"fmt"
)

// NyquistViolation 带通滤波的高截止频率达到或超过了目标采样率的
// Nyquist 频率。对该相位的预处理是致命错误，直接上抛，不做滤波。
type NyquistViolation struct {
	HighCut float64
	Nyquist float64
}

func (e *NyquistViolation) Error() string {
	return fmt.Sprintf("bandpass highcut %.2f Hz >= Nyquist frequency %.2f Hz", e.HighCut, e.Nyquist)
}

// SamplingRateError 通道采样率无法通过抽取（或抽取+整数倍上采样）
// 变换到目标采样率。
type SamplingRateError struct {
	Have     float64
	Want     float64
	UpFactor int
}

func (e *SamplingRateError) Error() string {
	if e.UpFactor > 1 {
		return fmt.Sprintf("sampling rate %.2f Hz cannot reach %.2f Hz even with upfactor %d", e.Have, e.Want, e.UpFactor)
	}
	return fmt.Sprintf("sampling rate %.2f Hz cannot be decimated to %.2f Hz", e.Have, e.Want)
}

// ConfigError 配置错误（缺少相位条目、非法参数等）。
// 必须立即上抛，绝不允许静默取默认值。
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// ErrDegenerateNoise 所有采样点都落在 pick 窗口内，噪声统计无法计算。
// 被污染的阈值会让每个 pick 都不可信，必须上抛。
var ErrDegenerateNoise = errors.New("noise threshold: all samples masked by pick windows")
