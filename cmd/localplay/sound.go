package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// sound 音效可选，初始化失败时静默
type sound struct {
	ok bool
}

func newSound() *sound {
	s := &sound{}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err == nil {
		s.ok = true
	}
	return s
}

func (s *sound) tone(freq float64, d time.Duration) {
	if !s.ok {
		return
	}
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(d), sine))
}

func (s *sound) death()      { s.tone(220, 120*time.Millisecond) }
func (s *sound) roundStart() { s.tone(880, 60*time.Millisecond) }

func (s *sound) close() {
	if s.ok {
		speaker.Close()
	}
}
