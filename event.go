package seispick

import "time"

// Event 一次事件的处理上下文。onset 函数按相位逐个累积到
// Onsets 映射里；窗口、拟合详情等附件留给外部的绘图/落盘协作方。
// 同一个 Event 实例不做并发保护，并行跑多个事件时每个 worker
// 必须持有独立的记录和映射。
type Event struct {
	// 档案层查询得到的原始多通道记录（只读引用）
	Record *MultiChannelRecord
	// 事件发震时刻
	OriginTime time.Time

	// 台站 → 相位 → onset 函数，由 onset 计算逐相位累积；
	// picking 时会以非 log 版本重算覆盖
	Onsets map[string]map[string][]float64
	// 通过可用性检查并完成预处理的波形
	FilteredRecord *MultiChannelRecord
	// "台站.相位" → 可用通道数的汇总日志
	Availability map[string]int

	// picking 的诊断附件
	PickWindows map[string]map[string]PickWindow
	GaussFits   map[string]map[string]GaussianFit
	Picks       []Pick
}

// NewEvent 创建事件上下文
func NewEvent(rec *MultiChannelRecord, origin time.Time) *Event {
	return &Event{
		Record:       rec,
		OriginTime:   origin,
		Onsets:       make(map[string]map[string][]float64),
		Availability: make(map[string]int),
	}
}

// AddPicks 把 picking 的结果与诊断附件挂到事件上
func (e *Event) AddPicks(picks []Pick, fits map[string]map[string]GaussianFit, windows map[string]map[string]PickWindow) {
	e.Picks = picks
	e.GaussFits = fits
	e.PickWindows = windows
}
