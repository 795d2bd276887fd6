package seispick

import (
	"math"
	"path"
	"sort"
	"time"
)

// GapSpan 表示波形中的一段无数据区间（采样点下标，左闭右开）。
// 这些区间在补齐 (TrimPad) 时会被填零，可用性检查会参考它们。
type GapSpan struct {
	Start int
	End   int
}

// Trace 单通道波形数据
// 由外部的波形档案层 (archive) 查询得到，本包只读引用，
// 任何处理都在副本上进行。
type Trace struct {
	Station      string
	Channel      string
	StartTime    time.Time
	SamplingRate float64
	Data         []float64
	Gaps         []GapSpan
}

// ID 返回 "台站.通道" 形式的标识
func (t *Trace) ID() string {
	return t.Station + "." + t.Channel
}

// NumSamples 采样点数
func (t *Trace) NumSamples() int {
	return len(t.Data)
}

// EndTime 数据覆盖的结束时刻（最后一个采样点之后一个采样间隔），
// 与记录的 [StartTime, EndTime) 区间约定保持一致
func (t *Trace) EndTime() time.Time {
	if len(t.Data) == 0 {
		return t.StartTime
	}
	return t.StartTime.Add(secondsToDuration(float64(len(t.Data)) / t.SamplingRate))
}

// HasData 是否含有任何采样点
func (t *Trace) HasData() bool {
	return len(t.Data) > 0
}

// HasGaps 是否含有数据空洞
func (t *Trace) HasGaps() bool {
	return len(t.Gaps) > 0
}

// Covers 判断本通道是否完整覆盖 [start, end] 时间段
func (t *Trace) Covers(start, end time.Time) bool {
	if !t.HasData() {
		return false
	}
	return !t.StartTime.After(start) && !t.EndTime().Before(end)
}

// Copy 深拷贝
func (t *Trace) Copy() *Trace {
	out := &Trace{
		Station:      t.Station,
		Channel:      t.Channel,
		StartTime:    t.StartTime,
		SamplingRate: t.SamplingRate,
		Data:         append([]float64(nil), t.Data...),
		Gaps:         append([]GapSpan(nil), t.Gaps...),
	}
	return out
}

// TrimPad 把通道裁剪/零填充到恰好覆盖 [start, end) 的长度，
// 保证同一事件的所有 onset 数组等长、采样对齐。
// 新产生的填充区间会记入 Gaps。
func (t *Trace) TrimPad(start, end time.Time) *Trace {
	n := timeToSamples(end.Sub(start).Seconds(), t.SamplingRate)
	out := &Trace{
		Station:      t.Station,
		Channel:      t.Channel,
		StartTime:    start,
		SamplingRate: t.SamplingRate,
		Data:         make([]float64, n),
	}
	if !t.HasData() {
		if n > 0 {
			out.Gaps = []GapSpan{{0, n}}
		}
		return out
	}

	// 原数据第 0 个采样点在新时间轴上的下标（可为负）
	offset := timeToSamples(t.StartTime.Sub(start).Seconds(), t.SamplingRate)
	for i := 0; i < n; i++ {
		src := i - offset
		if src >= 0 && src < len(t.Data) {
			out.Data[i] = t.Data[src]
		}
	}

	// 记录头尾填充区间
	if offset > 0 {
		out.Gaps = append(out.Gaps, GapSpan{0, minInt(offset, n)})
	}
	tail := offset + len(t.Data)
	if tail < n {
		out.Gaps = append(out.Gaps, GapSpan{maxInt(tail, 0), n})
	}
	// 原有空洞平移到新时间轴
	for _, g := range t.Gaps {
		s, e := g.Start+offset, g.End+offset
		if e <= 0 || s >= n {
			continue
		}
		out.Gaps = append(out.Gaps, GapSpan{maxInt(s, 0), minInt(e, n)})
	}
	return out
}

// ChannelSelector 通道选择谓词。对每个相位只求值一次，
// 得到一个固定、可测试的通道子集。
type ChannelSelector func(channel string) bool

// PatternSelector 根据 "*Z"、"*[NE12]" 这类通配模式构造选择谓词
func PatternSelector(pattern string) ChannelSelector {
	return func(channel string) bool {
		ok, err := path.Match(pattern, channel)
		return err == nil && ok
	}
}

// MultiChannelRecord 一次档案查询返回的多通道记录：
// 共享名义起始时间、采样率与时间范围的一组 Trace。
// Resample / UpFactor 是档案层随数据一并返回的重采样策略。
type MultiChannelRecord struct {
	StartTime    time.Time
	EndTime      time.Time
	SamplingRate float64
	Traces       []*Trace

	Resample bool
	UpFactor int
}

// NumSamples 处理窗口内应有的采样点数
func (r *MultiChannelRecord) NumSamples() int {
	return timeToSamples(r.EndTime.Sub(r.StartTime).Seconds(), r.SamplingRate)
}

// Stations 返回排序去重后的台站列表
func (r *MultiChannelRecord) Stations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range r.Traces {
		if !seen[t.Station] {
			seen[t.Station] = true
			out = append(out, t.Station)
		}
	}
	sort.Strings(out)
	return out
}

// SelectChannels 返回通道名匹配的子集（浅拷贝，不复制数据）
func (r *MultiChannelRecord) SelectChannels(sel ChannelSelector) *MultiChannelRecord {
	out := r.shallow()
	for _, t := range r.Traces {
		if sel(t.Channel) {
			out.Traces = append(out.Traces, t)
		}
	}
	return out
}

// SelectStation 返回属于某台站的通道子集（浅拷贝）
func (r *MultiChannelRecord) SelectStation(station string) []*Trace {
	var out []*Trace
	for _, t := range r.Traces {
		if t.Station == station {
			out = append(out, t)
		}
	}
	return out
}

// Copy 深拷贝整条记录
func (r *MultiChannelRecord) Copy() *MultiChannelRecord {
	out := r.shallow()
	for _, t := range r.Traces {
		out.Traces = append(out.Traces, t.Copy())
	}
	return out
}

func (r *MultiChannelRecord) shallow() *MultiChannelRecord {
	return &MultiChannelRecord{
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		SamplingRate: r.SamplingRate,
		Resample:     r.Resample,
		UpFactor:     r.UpFactor,
	}
}

// timeToSamples 秒数换算为采样点数（四舍五入）
func timeToSamples(seconds, samplingRate float64) int {
	return int(math.Round(seconds * samplingRate))
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
