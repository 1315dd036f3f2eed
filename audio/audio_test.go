package audio

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/voxnav/engine"
	"github.com/lixenwraith/voxnav/movement"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/status"
)

var testRate = beep.SampleRate(parameter.AudioSampleRate)

// drain streams s to exhaustion and returns the sample count and peak amplitude
func drain(t *testing.T, s beep.Streamer) (int, float64) {
	t.Helper()
	buf := make([][2]float64, 512)
	total, peak := 0, 0.0
	for i := 0; i < 10000; i++ {
		n, ok := s.Stream(buf)
		for j := 0; j < n; j++ {
			peak = math.Max(peak, math.Abs(buf[j][0]))
		}
		total += n
		if !ok {
			return total, peak
		}
	}
	t.Fatal("streamer never finished")
	return 0, 0
}

func TestToneLength(t *testing.T) {
	for _, wave := range []WaveType{WaveSine, WaveSquare, WaveSaw} {
		n, peak := drain(t, NewTone(440, 50*time.Millisecond, wave, testRate))
		if n != testRate.N(50*time.Millisecond) {
			t.Errorf("wave %d: got %d samples, want %d", wave, n, testRate.N(50*time.Millisecond))
		}
		if peak > 1.0001 {
			t.Errorf("wave %d: peak %f out of range", wave, peak)
		}
	}
}

func TestToneAboveNyquistIsSilent(t *testing.T) {
	n, peak := drain(t, NewTone(float64(testRate), 10*time.Millisecond, WaveSine, testRate))
	if n != testRate.N(10*time.Millisecond) {
		t.Errorf("got %d samples, want %d", n, testRate.N(10*time.Millisecond))
	}
	if peak != 0 {
		t.Errorf("peak %f, want silence", peak)
	}
}

func TestShapeRampsFromSilence(t *testing.T) {
	s := Shape(NewTone(220, 20*time.Millisecond, WaveSquare, testRate),
		20*time.Millisecond, 5*time.Millisecond, 5*time.Millisecond, testRate)

	buf := make([][2]float64, 4)
	n, ok := s.Stream(buf)
	if !ok || n != 4 {
		t.Fatalf("got n=%d ok=%v", n, ok)
	}
	if buf[0][0] != 0 {
		t.Errorf("first sample %f, want 0 at attack start", buf[0][0])
	}
	if math.Abs(buf[3][0]) >= 1 {
		t.Errorf("sample inside attack should be attenuated, got %f", buf[3][0])
	}
}

func TestBuildCueDurations(t *testing.T) {
	n, _ := drain(t, Build(CueArrived, testRate, 1))
	want := testRate.N(parameter.ArriveNote1Duration) + testRate.N(parameter.ArriveNote2Duration)
	if n != want {
		t.Errorf("arrived cue: %d samples, want %d", n, want)
	}

	n, _ = drain(t, Build(CueBlocked, testRate, 1))
	if n != testRate.N(parameter.BlockedDuration) {
		t.Errorf("blocked cue: %d samples", n)
	}

	if Build(CueNone, testRate, 1) != nil {
		t.Error("CueNone should build nothing")
	}
}

func TestBuildSilentAtZeroVolume(t *testing.T) {
	_, peak := drain(t, Build(CueTick, testRate, 0))
	if peak != 0 {
		t.Errorf("zero volume produced peak %f", peak)
	}
}

func TestCueFor(t *testing.T) {
	cases := map[movement.FinishReason]Cue{
		movement.FinishArrived:  CueArrived,
		movement.FinishNoPath:   CueBlocked,
		movement.FinishBlocked:  CueBlocked,
		movement.FinishStopped:  CueTick,
		movement.FinishReplaced: CueTick,
	}
	for reason, want := range cases {
		if got := CueFor(reason); got != want {
			t.Errorf("%s: got %s, want %s", reason, got, want)
		}
	}
}

func TestPlayerGapAndMute(t *testing.T) {
	clock := engine.NewMockTimeProvider(time.Unix(1000, 0))
	reg := status.NewRegistry()
	p := NewPlayer(0.5, clock, reg)

	if p.Play(CueArrived) {
		t.Fatal("unopened player must not play")
	}

	var played []beep.Streamer
	p.Attach(func(s beep.Streamer) { played = append(played, s) })

	if !p.Play(CueArrived) {
		t.Fatal("first cue should play")
	}
	if p.Play(CueBlocked) {
		t.Error("cue inside the gap window should drop")
	}
	clock.Advance(parameter.MinCueGap)
	if !p.Play(CueBlocked) {
		t.Error("cue after the gap should play")
	}

	if !p.ToggleMute() {
		t.Fatal("ToggleMute should report muted")
	}
	clock.Advance(parameter.MinCueGap)
	if p.Play(CueTick) {
		t.Error("muted player should drop")
	}

	if len(played) != 2 {
		t.Errorf("sink received %d cues, want 2", len(played))
	}
	if got := reg.Ints.Get("audio.played").Load(); got != 2 {
		t.Errorf("audio.played = %d", got)
	}
	if got := reg.Ints.Get("audio.dropped").Load(); got != 3 {
		t.Errorf("audio.dropped = %d", got)
	}
}

func TestPlayerVolumeClamp(t *testing.T) {
	p := NewPlayer(3, nil, nil)
	if p.Volume() != 1 {
		t.Errorf("volume %f, want 1", p.Volume())
	}
	p.SetVolume(-1)
	if p.Volume() != 0 {
		t.Errorf("volume %f, want 0", p.Volume())
	}
	p.SetVolume(math.NaN())
	if p.Volume() != 0 {
		t.Errorf("NaN volume should clamp to 0")
	}
}
