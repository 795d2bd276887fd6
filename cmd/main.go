package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"go.uber.org/zap"

	"seispick"
)

// demoLookup 静态走时表，演示用
type demoLookup struct {
	traveltimes map[string]map[string]float64
	fraction    float64
}

func (l demoLookup) TravelTime(station, phase string) (float64, error) {
	tt, ok := l.traveltimes[station][phase]
	if !ok {
		return 0, fmt.Errorf("no traveltime for %s.%s", station, phase)
	}
	return tt, nil
}

func (l demoLookup) FractionTT() float64 { return l.fraction }

func main() {
	// 1. 解析命令行参数
	position := flag.String("position", "classic", "STA/LTA alignment policy: classic or centred")
	rate := flag.Float64("rate", 100, "Onset sampling rate (Hz)")
	csvFile := flag.String("csv", "", "Write pick diagnostics to this CSV file")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	// 2. 配置与诊断出口
	cfg := seispick.DefaultConfig()
	cfg.SamplingRate = *rate
	cfg.Position = seispick.AlignmentPolicy(*position)

	var sink seispick.DiagnosticSink
	if *csvFile != "" {
		var err error
		sink, err = seispick.NewCsvDiagnostics(*csvFile)
		if err != nil {
			log.Fatalf("Create CSV diagnostics failed: %v", err)
		}
	} else {
		var logger *zap.Logger
		var err error
		if *verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			log.Fatalf("Create logger failed: %v", err)
		}
		sink = seispick.NewZapSink(logger)
	}
	defer sink.Close()

	// 3. 组件初始化
	calc, err := seispick.NewOnsetCalculator(cfg, sink)
	if err != nil {
		log.Fatalf("Onset calculator init failed: %v", err)
	}
	picker, err := seispick.NewGaussianPicker(cfg, calc, sink)
	if err != nil {
		log.Fatalf("Picker init failed: %v", err)
	}

	fmt.Print(calc)
	fmt.Print(picker)

	// 4. 合成一条记录并跑完整流水线
	rec := buildSyntheticRecord(*rate)
	ev := seispick.NewEvent(rec, rec.StartTime)
	lookup := demoLookup{
		traveltimes: map[string]map[string]float64{
			"DEMO": {"P": 12.0, "S": 20.0},
		},
		fraction: 0.05,
	}

	stacked, keys, err := calc.CalculateOnsets(ev, true)
	if err != nil {
		log.Fatalf("Onset calculation failed: %v", err)
	}
	fmt.Printf("Stacked %d onset functions: %v\n\n", len(stacked), keys)

	picks, err := picker.PickPhases(ev, lookup)
	if err != nil {
		log.Fatalf("Picking failed: %v", err)
	}

	// 5. 输出 pick 表
	fmt.Printf("%-8s %-5s %-27s %-27s %10s %10s\n",
		"Station", "Phase", "ModelledTime", "PickTime", "PickError", "SNR")
	for _, pk := range picks {
		pickStr := "-"
		if pk.Picked() {
			pickStr = pk.PickTime.UTC().Format("2006-01-02T15:04:05.000")
		}
		fmt.Printf("%-8s %-5s %-27s %-27s %10.4f %10.2f\n",
			pk.Station, pk.Phase,
			pk.ModelledTime.UTC().Format("2006-01-02T15:04:05.000"),
			pickStr, pk.PickError, pk.SNR)
	}
}

// buildSyntheticRecord 三通道合成记录：微弱背景加上
// 12 秒 (Z) 和 20 秒 (水平分量) 处的衰减波列
func buildSyntheticRecord(rate float64) *seispick.MultiChannelRecord {
	start := time.Date(2021, 7, 14, 3, 15, 0, 0, time.UTC)
	const duration = 40.0
	n := int(duration * rate)

	mk := func(channel string, arrivals ...float64) *seispick.Trace {
		data := make([]float64, n)
		for i := range data {
			t := float64(i) / rate
			// 微弱背景，保证长窗均值非零
			data[i] = 0.02*math.Sin(2*math.Pi*1.7*t) + 0.01*math.Sin(2*math.Pi*3.1*t+0.5)
		}
		// 波列幅度需让 STA/LTA 峰值越过 15 × MAD 的噪声阈值
		for _, at := range arrivals {
			for i := range data {
				t := float64(i)/rate - at
				if t >= 0 {
					data[i] += 10.0 * math.Exp(-t/0.3) * math.Sin(2*math.Pi*8*t)
				}
			}
		}
		return &seispick.Trace{
			Station:      "DEMO",
			Channel:      channel,
			StartTime:    start,
			SamplingRate: rate,
			Data:         data,
		}
	}

	return &seispick.MultiChannelRecord{
		StartTime:    start,
		EndTime:      start.Add(secondsDuration(duration)),
		SamplingRate: rate,
		Traces: []*seispick.Trace{
			mk("HHZ", 12.0),
			mk("HHN", 20.0),
			mk("HHE", 20.0),
		},
	}
}

func secondsDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
