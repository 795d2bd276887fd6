package seispick

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// DiagnosticSink 结构化诊断事件的显式出口。
// 计算组件只依赖这个接口，不依赖任何全局日志状态，
// 因此核心逻辑对全局状态无副作用，可以独立测试。
type DiagnosticSink interface {
	// OnsetSkipped 某台站/相位因可用性不足被跳过
	OnsetSkipped(station, phase string, available int)
	// NoPick 某台站/相位没有产出 pick，cause 区分失败原因
	NoPick(station, phase string, cause FitCause, threshold float64)
	// PickMade 成功产出一个 pick
	PickMade(station, phase string, pickTime time.Time, pickError, amplitude float64)
	// Close 刷新并释放资源
	Close() error
}

// NopSink 空实现，测试或不需要诊断时使用，
// 避免核心代码里到处判 nil。
type NopSink struct{}

func (NopSink) OnsetSkipped(station, phase string, available int)                         {}
func (NopSink) NoPick(station, phase string, cause FitCause, threshold float64)           {}
func (NopSink) PickMade(station, phase string, t time.Time, pickError, amplitude float64) {}
func (NopSink) Close() error                                                              { return nil }

// ZapSink 基于 zap 的结构化日志实现
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink 包装一个已有的 zap.Logger
func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log}
}

func (s *ZapSink) OnsetSkipped(station, phase string, available int) {
	s.log.Info("onset skipped",
		zap.String("station", station),
		zap.String("phase", phase),
		zap.Int("available", available))
}

func (s *ZapSink) NoPick(station, phase string, cause FitCause, threshold float64) {
	s.log.Debug("no pick",
		zap.String("station", station),
		zap.String("phase", phase),
		zap.String("cause", string(cause)),
		zap.Float64("threshold", threshold))
}

func (s *ZapSink) PickMade(station, phase string, pickTime time.Time, pickError, amplitude float64) {
	s.log.Debug("pick made",
		zap.String("station", station),
		zap.String("phase", phase),
		zap.Time("pick_time", pickTime),
		zap.Float64("pick_error", pickError),
		zap.Float64("amplitude", amplitude))
}

func (s *ZapSink) Close() error {
	return s.log.Sync()
}

// CsvDiagnostics 把诊断事件按行写进 CSV 文件，方便离线比对。
// 文件句柄封装在内部，不向外暴露。
type CsvDiagnostics struct {
	file   *os.File
	writer *bufio.Writer
}

// NewCsvDiagnostics 创建 CSV 诊断文件并写入表头
func NewCsvDiagnostics(filename string) (*CsvDiagnostics, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("Event,Station,Phase,Cause,Threshold,PickTime,PickError,Amplitude\n"); err != nil {
		f.Close()
		return nil, err
	}

	return &CsvDiagnostics{file: f, writer: w}, nil
}

func (d *CsvDiagnostics) OnsetSkipped(station, phase string, available int) {
	fmt.Fprintf(d.writer, "onset_skipped,%s,%s,available=%d,,,,\n", station, phase, available)
}

func (d *CsvDiagnostics) NoPick(station, phase string, cause FitCause, threshold float64) {
	fmt.Fprintf(d.writer, "no_pick,%s,%s,%s,%f,,,\n", station, phase, cause, threshold)
}

func (d *CsvDiagnostics) PickMade(station, phase string, pickTime time.Time, pickError, amplitude float64) {
	fmt.Fprintf(d.writer, "pick,%s,%s,,,%s,%f,%f\n",
		station, phase, pickTime.Format(time.RFC3339Nano), pickError, amplitude)
}

// Close 刷新缓冲区并关闭文件
func (d *CsvDiagnostics) Close() error {
	if d.writer != nil {
		if err := d.writer.Flush(); err != nil {
			d.file.Close()
			return err
		}
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
