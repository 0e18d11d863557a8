package core

import "time"

const avgCount = 30

// Metrics keeps a rolling frame-time average and a frames-per-second count.
type Metrics struct {
	frameAvgCounter int
	msTimes         [avgCount]float64
	msAvg           float64
	frames          int
	accumulatedMS   float64
	fps             float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Update(frameTime time.Duration) {
	frameMS := float64(frameTime) / float64(time.Millisecond)

	m.msTimes[m.frameAvgCounter] = frameMS
	if m.frameAvgCounter == avgCount-1 {
		m.msAvg = 0
		for _, t := range m.msTimes {
			m.msAvg += t
		}
		m.msAvg /= avgCount
	}
	m.frameAvgCounter = (m.frameAvgCounter + 1) % avgCount

	m.frames++
	m.accumulatedMS += frameMS
	if m.accumulatedMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedMS -= 1000
		m.frames = 0
	}
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average frame time in milliseconds.
func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}
