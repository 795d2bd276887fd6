package seispick

// PickWindow 搜索单个到时的有界下标区间，
// 满足 0 ≤ Lower ≤ Arrival ≤ Upper ≤ 信号长度。
type PickWindow struct {
	Lower   int
	Arrival int
	Upper   int
}

// DeriveWindow 由预计到时与走时比例不确定度推出对称搜索窗。
// arrivalOffset 是预计到时相对记录起点的秒数
// （发震时刻 + 走时 − 记录起点），半宽取 走时 × 比例。
func DeriveWindow(arrivalOffset, traveltime, fractionTT, samplingRate float64) PickWindow {
	arrivalIdx := timeToSamples(arrivalOffset, samplingRate)
	samples := timeToSamples(traveltime*fractionTT, samplingRate)
	return PickWindow{
		Lower:   arrivalIdx - samples,
		Arrival: arrivalIdx,
		Upper:   arrivalIdx + samples,
	}
}

// DistinguishWindows 消除同一台站相邻相位窗口的重叠。
// phases 必须按预计到时升序排列。策略：首个窗口下界钳到 ≥0；
// 相邻两窗交叉时都收到两者的整数中点（中点再钳到两个到时之间，
// 保证 Lower ≤ Arrival ≤ Upper 恒成立）；最后一个窗口上界钳到
// ≤ numSamples。相位到时接近时合法的宽窗会被截短——这是既定行为，
// 不做静默补偿。
func DistinguishWindows(windows map[string]PickWindow, phases []string, numSamples int) {
	if len(phases) == 0 {
		return
	}

	first := windows[phases[0]]
	if first.Lower < 0 {
		first.Lower = 0
	}
	windows[phases[0]] = first

	for i := 0; i+1 < len(phases); i++ {
		w1, w2 := windows[phases[i]], windows[phases[i+1]]
		mid := (w1.Upper + w2.Lower) / 2
		// 中点钳到两个到时之间，窗口只向内收缩
		if mid < w1.Arrival {
			mid = w1.Arrival
		}
		if mid > w2.Arrival {
			mid = w2.Arrival
		}
		if mid < w1.Upper {
			w1.Upper = mid
		}
		if mid > w2.Lower {
			w2.Lower = mid
		}
		windows[phases[i]] = w1
		windows[phases[i+1]] = w2
	}

	last := windows[phases[len(phases)-1]]
	if last.Upper > numSamples {
		last.Upper = numSamples
	}
	windows[phases[len(phases)-1]] = last
}
