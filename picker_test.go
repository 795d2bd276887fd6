package seispick

import (
	"math"
	"testing"
	"time"
)

// staticLookup 测试用的固定走时表
type staticLookup struct {
	times    map[string]map[string]float64
	fraction float64
}

func (l staticLookup) TravelTime(station, phase string) (float64, error) {
	return l.times[station][phase], nil
}

func (l staticLookup) FractionTT() float64 { return l.fraction }

func pickTestConfig(rate float64, phases ...string) *Config {
	cfg := DefaultConfig()
	cfg.SamplingRate = rate
	cfg.Phases = phases
	return cfg
}

// 只为列出台站名用的占位记录
func stationOnlyRecord(start time.Time, rate float64, n int, stations ...string) *MultiChannelRecord {
	rec := &MultiChannelRecord{
		StartTime:    start,
		EndTime:      start.Add(secondsToDuration(float64(n) / rate)),
		SamplingRate: rate,
	}
	for _, sta := range stations {
		rec.Traces = append(rec.Traces, &Trace{
			Station:      sta,
			Channel:      "HHZ",
			StartTime:    start,
			SamplingRate: rate,
			Data:         make([]float64, n),
		})
	}
	return rec
}

func TestPickPhases_InjectedOnset(t *testing.T) {
	const (
		rate = 100.0
		n    = 1000
	)
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	rec := stationOnlyRecord(start, rate, n, "TST")
	ev := NewEvent(rec, start)

	// 合成 onset：底板 0.8，5s 处一个窄高斯峰
	onset := make([]float64, n)
	for i := range onset {
		x := float64(i) / rate
		onset[i] = 0.8 + Gaussian1D(x, 10, 5.0, 0.05)
	}
	ev.Onsets["TST"] = map[string][]float64{"P": onset}

	cfg := pickTestConfig(rate, "P")
	picker, err := NewGaussianPicker(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewGaussianPicker: %v", err)
	}

	lookup := staticLookup{
		times:    map[string]map[string]float64{"TST": {"P": 5.0}},
		fraction: 0.1,
	}
	picks, err := picker.PickPhases(ev, lookup)
	if err != nil {
		t.Fatalf("PickPhases: %v", err)
	}
	if len(picks) != 1 {
		t.Fatalf("len(picks) = %d, want 1", len(picks))
	}

	p := picks[0]
	if p.Station != "TST" || p.Phase != "P" {
		t.Errorf("pick identity = %s.%s", p.Station, p.Phase)
	}
	if !p.Picked() {
		t.Fatalf("no pick produced: %+v", p)
	}
	wantModelled := start.Add(5 * time.Second)
	if !p.ModelledTime.Equal(wantModelled) {
		t.Errorf("modelled = %v, want %v", p.ModelledTime, wantModelled)
	}
	if d := p.PickTime.Sub(wantModelled); d < -20*time.Millisecond || d > 20*time.Millisecond {
		t.Errorf("pickTime = %v, want within 20ms of %v", p.PickTime, wantModelled)
	}
	if p.PickError < 0.03 || p.PickError > 0.07 {
		t.Errorf("pickError = %v, want near 0.05", p.PickError)
	}
	if p.SNR < 5 {
		t.Errorf("SNR = %v, want > 5", p.SNR)
	}

	if ev.Picks == nil || ev.GaussFits["TST"]["P"].Cause != CausePicked {
		t.Error("event diagnostics not attached")
	}
	w := ev.PickWindows["TST"]["P"]
	if w.Lower != 450 || w.Arrival != 500 || w.Upper != 550 {
		t.Errorf("window = %+v, want {450 500 550}", w)
	}
}

func TestPickPhases_SentinelRowForMissingOnset(t *testing.T) {
	const (
		rate = 100.0
		n    = 1000
	)
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	rec := stationOnlyRecord(start, rate, n, "TST")
	ev := NewEvent(rec, start)

	onset := make([]float64, n)
	for i := range onset {
		x := float64(i) / rate
		onset[i] = 0.8 + Gaussian1D(x, 10, 3.0, 0.05)
	}
	// 只有 P 有 onset，S 数据不可用
	ev.Onsets["TST"] = map[string][]float64{"P": onset}

	cfg := pickTestConfig(rate, "P", "S")
	picker, err := NewGaussianPicker(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewGaussianPicker: %v", err)
	}
	lookup := staticLookup{
		times:    map[string]map[string]float64{"TST": {"P": 3.0, "S": 6.0}},
		fraction: 0.1,
	}

	picks, err := picker.PickPhases(ev, lookup)
	if err != nil {
		t.Fatalf("PickPhases: %v", err)
	}
	if len(picks) != 2 {
		t.Fatalf("len(picks) = %d, want one row per attempted phase", len(picks))
	}

	var sRow *Pick
	for i := range picks {
		if picks[i].Phase == "S" {
			sRow = &picks[i]
		}
	}
	if sRow == nil {
		t.Fatal("no row for phase S")
	}
	if sRow.Picked() {
		t.Errorf("unavailable phase produced a pick: %+v", sRow)
	}
	if sRow.PickError != PickSentinel || sRow.SNR != PickSentinel {
		t.Errorf("sentinel row fields = %v/%v, want -1/-1", sRow.PickError, sRow.SNR)
	}
	if !sRow.ModelledTime.Equal(start.Add(6 * time.Second)) {
		t.Errorf("modelled = %v, want origin + 6s", sRow.ModelledTime)
	}
}

func TestPickPhases_FullPipeline(t *testing.T) {
	const (
		rate = 50.0
		dur  = 40.0
	)
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	n := int(dur * rate)

	rec := &MultiChannelRecord{
		StartTime:    start,
		EndTime:      start.Add(secondsToDuration(dur)),
		SamplingRate: rate,
	}
	for _, ch := range []string{"HHZ", "HHN", "HHE"} {
		data := make([]float64, n)
		for i := range data {
			ti := float64(i) / rate
			data[i] = 0.02*math.Sin(2*math.Pi*1.7*ti) + 0.01*math.Sin(2*math.Pi*3.1*ti)
		}
		burstAt := 20.0 // 水平分量给 S
		if ch == "HHZ" {
			burstAt = 12.0 // 垂直分量给 P
		}
		// 波列幅度需让 STA/LTA 峰值越过 15 × MAD 的噪声阈值
		for i := range data {
			ti := float64(i)/rate - burstAt
			if ti >= 0 {
				data[i] += 10.0 * math.Exp(-ti/0.3) * math.Sin(2*math.Pi*8*ti)
			}
		}
		rec.Traces = append(rec.Traces, &Trace{
			Station:      "TST",
			Channel:      ch,
			StartTime:    start,
			SamplingRate: rate,
			Data:         data,
		})
	}

	cfg := DefaultConfig()
	onset, err := NewOnsetCalculator(cfg, nil)
	if err != nil {
		t.Fatalf("NewOnsetCalculator: %v", err)
	}
	picker, err := NewGaussianPicker(cfg, onset, nil)
	if err != nil {
		t.Fatalf("NewGaussianPicker: %v", err)
	}

	ev := NewEvent(rec, start)
	if _, _, err := onset.CalculateOnsets(ev, true); err != nil {
		t.Fatalf("CalculateOnsets: %v", err)
	}

	lookup := staticLookup{
		times:    map[string]map[string]float64{"TST": {"P": 12.0, "S": 20.0}},
		fraction: 0.05,
	}
	picks, err := picker.PickPhases(ev, lookup)
	if err != nil {
		t.Fatalf("PickPhases: %v", err)
	}
	if len(picks) != 2 {
		t.Fatalf("len(picks) = %d, want 2", len(picks))
	}

	for _, p := range picks {
		arrival := start.Add(secondsToDuration(lookup.times["TST"][p.Phase]))
		if !p.Picked() {
			t.Errorf("%s: no pick despite strong burst", p.Phase)
			continue
		}
		if d := p.PickTime.Sub(arrival); d < -500*time.Millisecond || d > 500*time.Millisecond {
			t.Errorf("%s: pickTime = %v, want within 0.5s of %v", p.Phase, p.PickTime, arrival)
		}
		if p.PickError < 0 {
			t.Errorf("%s: negative pick error %v", p.Phase, p.PickError)
		}
		t.Logf("%s: picked %v (modelled %v, error %.3fs, SNR %.1f)",
			p.Phase, p.PickTime.Format("15:04:05.000"), arrival.Format("15:04:05.000"), p.PickError, p.SNR)
	}
}
