package seispick

import "time"

// AvailabilityOptions 某相位的数据可用性门限
type AvailabilityOptions struct {
	NChannels    int  // 可用通道数下限
	AllChannels  bool // 要求全部通道都通过检查
	AllowGaps    bool // 容忍数据空洞（之后填零）
	FullTimespan bool // 要求覆盖完整的请求时段
}

// Availability 一次可用性检查的结果：可用通道计数 (0 = 不可用)
// 加上逐通道的通过标记。每个台站/相位都重新计算，除日志外不留存。
type Availability struct {
	Count    int
	Channels map[string]bool
}

// Usable 数据是否足以计算 onset
func (a Availability) Usable() bool {
	return a.Count > 0
}

// CheckAvailability 检查一个台站某相位的通道集能否用来计算 onset。
// 单通道通过的条件：有数据；开启 FullTimespan 时必须覆盖完整请求
// 时段；不允许空洞时不能有空洞。AllChannels 开启时任何一个通道
// 不通过（包括缺失的通道）整体都记 0；否则可用数就是通过的通道数，
// 但低于 NChannels 仍记 0。
func CheckAvailability(traces []*Trace, start, end time.Time, opt AvailabilityOptions) Availability {
	av := Availability{Channels: make(map[string]bool)}

	pass, fail := 0, 0
	for _, tr := range traces {
		ok := channelUsable(tr, start, end, opt)
		av.Channels[tr.ID()] = ok
		if ok {
			pass++
		} else {
			fail++
		}
	}

	av.Count = pass
	if opt.AllChannels && (fail > 0 || pass < opt.NChannels) {
		av.Count = 0
	}
	if pass < opt.NChannels {
		av.Count = 0
	}
	return av
}

func channelUsable(tr *Trace, start, end time.Time, opt AvailabilityOptions) bool {
	if !tr.HasData() {
		return false
	}
	if tr.HasGaps() && !opt.AllowGaps {
		return false
	}
	if opt.FullTimespan && !tr.Covers(start, end) {
		return false
	}
	return true
}

// PruneChannels 把未通过逐通道检查的通道从工作集中剔除
func PruneChannels(traces []*Trace, channels map[string]bool) []*Trace {
	var out []*Trace
	for _, tr := range traces {
		if channels[tr.ID()] {
			out = append(out, tr)
		}
	}
	return out
}
