package seispick

import (
	"math"
	"testing"
)

// steadyRMS 求中段稳态区间的 RMS，避开滤波器暂态和尖灭区
func steadyRMS(data []float64) float64 {
	lo, hi := len(data)/4, 3*len(data)/4
	var sum float64
	for _, v := range data[lo:hi] {
		sum += v * v
	}
	return math.Sqrt(sum / float64(hi-lo))
}

func sineSlice(freq, rate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return out
}

func TestZeroPhaseBandpass_PassAndStop(t *testing.T) {
	const rate = 100.0
	inBand := sineSlice(8, rate, 2000)
	ZeroPhaseBandpass(inBand, rate, 2, 16, 2)
	if rms := steadyRMS(inBand); rms < 0.6 {
		t.Errorf("in-band RMS = %v, want near 1/sqrt(2)", rms)
	}

	lowSide := sineSlice(0.2, rate, 2000)
	ZeroPhaseBandpass(lowSide, rate, 2, 16, 2)
	if rms := steadyRMS(lowSide); rms > 0.1 {
		t.Errorf("low-side RMS = %v, want strong attenuation", rms)
	}

	highSide := sineSlice(45, rate, 2000)
	ZeroPhaseBandpass(highSide, rate, 2, 16, 2)
	if rms := steadyRMS(highSide); rms > 0.1 {
		t.Errorf("high-side RMS = %v, want strong attenuation", rms)
	}
	t.Logf("steady RMS: in-band %.3f, 0.2Hz %.4f, 45Hz %.4f",
		steadyRMS(inBand), steadyRMS(lowSide), steadyRMS(highSide))
}

func TestZeroPhaseBandpass_NoPhaseShift(t *testing.T) {
	const (
		rate = 100.0
		freq = 8.0
		n    = 2000
	)
	data := sineSlice(freq, rate, n)
	ZeroPhaseBandpass(data, rate, 2, 16, 2)

	// 稳态区内零交叉位置应与原始正弦一致
	period := int(math.Round(rate / freq))
	for i := n / 2; i < n/2+3*period; i++ {
		orig := math.Sin(2 * math.Pi * freq * float64(i) / rate)
		if orig > 0.9 && data[i] < 0 {
			t.Fatalf("sample %d: filtered output out of phase (%v vs %v)", i, data[i], orig)
		}
		if orig < -0.9 && data[i] > 0 {
			t.Fatalf("sample %d: filtered output out of phase (%v vs %v)", i, data[i], orig)
		}
	}
}

func TestZeroPhaseLowpass(t *testing.T) {
	const rate = 200.0
	high := sineSlice(80, rate, 2000)
	ZeroPhaseLowpass(high, rate, 45, 4)
	if rms := steadyRMS(high); rms > 0.05 {
		t.Errorf("above-cutoff RMS = %v, want near zero", rms)
	}

	low := sineSlice(5, rate, 2000)
	ZeroPhaseLowpass(low, rate, 45, 4)
	if rms := steadyRMS(low); rms < 0.6 {
		t.Errorf("below-cutoff RMS = %v, want near 1/sqrt(2)", rms)
	}
}

func TestOddOrderFilters(t *testing.T) {
	const rate = 100.0

	// 一阶低通：截止频率 10 倍处增益约 0.1
	high := sineSlice(20, rate, 2000)
	filterSlice(NewButterworthLowpass(1, rate, 2), high)
	if rms := steadyRMS(high); rms > 0.12 {
		t.Errorf("first-order stop-band RMS = %v, want <= ~0.1/sqrt(2)", rms)
	}
	low := sineSlice(0.5, rate, 2000)
	filterSlice(NewButterworthLowpass(1, rate, 2), low)
	if rms := steadyRMS(low); rms < 0.6 {
		t.Errorf("first-order pass-band RMS = %v, want near 1/sqrt(2)", rms)
	}

	// 奇数阶带通：二阶节 + 一阶节级联，输出必须有限且通带保留
	data := sineSlice(8, rate, 2000)
	ZeroPhaseBandpass(data, rate, 2, 16, 3)
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite output at %d", i)
		}
	}
	if rms := steadyRMS(data); rms < 0.5 {
		t.Errorf("odd-order in-band RMS = %v, want near 1/sqrt(2)", rms)
	}
}

func TestButterworthFilter_Stability(t *testing.T) {
	// 冲激响应必须衰减而不是发散
	f := NewButterworthLowpass(4, 100, 20)
	out := f.Process(1.0)
	var last float64
	for i := 0; i < 5000; i++ {
		last = f.Process(0)
	}
	if math.IsNaN(out) || math.Abs(last) > 1e-9 {
		t.Errorf("impulse response did not decay: first=%v last=%v", out, last)
	}
}
