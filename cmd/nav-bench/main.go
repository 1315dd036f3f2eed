// Command nav-bench runs a scenario headless for a fixed number of ticks and prints metrics
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lixenwraith/voxnav/engine"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/maze"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/scenario"
	"github.com/lixenwraith/voxnav/sim"
	"github.com/lixenwraith/voxnav/status"
)

var (
	scenarioFlag = flag.String("scenario", "corridor.yaml", "scenario file, or the name of a built-in level")
	ticksFlag    = flag.Int("ticks", 2000, "maximum ticks to run")
	untilIdle    = flag.Bool("until-idle", false, "stop early once every agent is idle")
	mazeFlag     = flag.String("maze", "", "generate a WxH maze instead of loading a scenario")
	seedFlag     = flag.Int64("seed", 1, "maze seed")
	braidFlag    = flag.Float64("braid", 0.2, "maze braid chance in [0, 1]")
	logLevelFlag = flag.String("log-level", "", "log level (default LOG_LEVEL or info)")
	logFormat    = flag.String("log-format", "", "text or json (default LOG_FORMAT or text)")
	prefixFlag   = flag.String("metrics", "", "only print metrics whose key starts with this prefix")
)

func main() {
	flag.Parse()

	if _, err := logger.Init(logger.Config{Level: *logLevelFlag, Format: *logFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
	}
	log := logger.For("nav-bench")

	src, err := source()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	reg := status.NewRegistry()
	sched := engine.NewScheduler()
	s, err := sim.New(src, sched, reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	// Step drives ticks synchronously; the loop goroutine is never started
	clock := engine.NewClockScheduler(sched, engine.NewPausableClock(nil), parameter.TickInterval, reg)
	clock.OnTick(s.OnTick)

	s.Dispatch()
	start := time.Now()
	for i := 0; i < *ticksFlag; i++ {
		clock.Step()
		if *untilIdle && s.Idle() {
			break
		}
	}
	elapsed := time.Since(start)

	log.WithField("ticks", clock.TickCount()).WithField("elapsed", elapsed).Info("run complete")

	fmt.Printf("scenario=%s ticks=%d wall=%s sim=%s\n",
		s.Name(), clock.TickCount(), elapsed.Round(time.Microsecond),
		time.Duration(clock.TickCount())*parameter.TickInterval)
	for _, a := range s.Agents() {
		last := "-"
		if a.Runs > 0 {
			last = a.Last.Reason.String()
		}
		fmt.Printf("agent %-10s driver=%-5s tile=%s active=%t runs=%d last=%s\n",
			a.Name(), a.Plan.Driver, a.Body.Tile, a.Driver.Active(), a.Runs, last)
	}
	for _, line := range reg.SnapshotPrefix(*prefixFlag) {
		fmt.Println(line)
	}
}

func source() (*scenario.Source, error) {
	if *mazeFlag == "" {
		return scenario.Load(*scenarioFlag)
	}
	w, h, err := maze.ParseSize(*mazeFlag)
	if err != nil {
		return nil, err
	}
	return maze.Generate(maze.Config{Width: w, Height: h, Braid: *braidFlag, Seed: *seedFlag}).Source(), nil
}
