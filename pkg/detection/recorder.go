package detection

import "time"

// Recorder receives pipeline events, typically to export them as metrics
type Recorder interface {
	ModelCall(prompt string, elapsed time.Duration, err error)
	PassCompleted(stats PassStats)
	AlternativeTriggered()
	RequestCompleted(detections int, err error)
}

type nopRecorder struct{}

func (nopRecorder) ModelCall(string, time.Duration, error) {}
func (nopRecorder) PassCompleted(PassStats)                {}
func (nopRecorder) AlternativeTriggered()                  {}
func (nopRecorder) RequestCompleted(int, error)            {}
