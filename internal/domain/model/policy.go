package model

import "fmt"

// ReplyPolicy holds the runtime-adjustable auto-send parameters.
type ReplyPolicy struct {
	AutoSendThreshold float64
	LearningMode      bool
}

// Validate checks the threshold range.
func (p ReplyPolicy) Validate() error {
	if p.AutoSendThreshold < 0 || p.AutoSendThreshold > 1 {
		return fmt.Errorf("auto-send threshold %v out of range [0,1]", p.AutoSendThreshold)
	}
	return nil
}
