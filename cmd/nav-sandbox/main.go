// Command nav-sandbox runs a scenario in the terminal with live editing
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/voxnav/audio"
	"github.com/lixenwraith/voxnav/core"
	"github.com/lixenwraith/voxnav/engine"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/maze"
	"github.com/lixenwraith/voxnav/movement"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/render"
	"github.com/lixenwraith/voxnav/scenario"
	"github.com/lixenwraith/voxnav/sim"
	"github.com/lixenwraith/voxnav/status"
)

var (
	scenarioFlag = flag.String("scenario", "corridor.yaml", "scenario file, or the name of a built-in level")
	logLevelFlag = flag.String("log-level", "", "log level (default LOG_LEVEL or info)")
	logDirFlag   = flag.String("log-dir", "", "write logs to this directory; discarded otherwise")
	muteFlag     = flag.Bool("mute", false, "disable audio cues")
	listFlag     = flag.Bool("list", false, "list built-in levels and exit")
	statsFlag    = flag.Bool("stats", true, "show metrics under the grid")
	mazeFlag     = flag.String("maze", "", "generate a WxH maze instead of loading a scenario")
	seedFlag     = flag.Int64("seed", 0, "maze seed, 0 picks one per load")
	braidFlag    = flag.Float64("braid", 0.2, "maze braid chance in [0, 1]")
)

const help = "[space]pause [tab]select [click]send [rclick]block [s]stop [f]field [m]mute [r]reload [q]quit"

// app owns everything that lives on the clock goroutine after Start
type app struct {
	screen   tcell.Screen
	renderer *render.Renderer
	clock    *engine.ClockScheduler
	sched    *engine.Scheduler
	reg      *status.Registry
	player   *audio.Player
	session  *sim.Session
	buttons  tcell.ButtonMask // main goroutine only
	log      *logrus.Entry
}

func main() {
	flag.Parse()

	if *listFlag {
		for _, name := range scenario.BuiltIn() {
			fmt.Println(name)
		}
		return
	}

	logFile, err := logger.Init(logger.Config{Level: *logLevelFlag, Dir: *logDirFlag, Quiet: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log: %v\n", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	src, err := source()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()
	screen.EnableMouse()

	// Background goroutines restore the terminal before the crash report
	core.SetCrashHandler(func(any) { screen.Fini() })

	reg := status.NewRegistry()
	sched := engine.NewScheduler()
	a := &app{
		screen: screen,
		sched:  sched,
		reg:    reg,
		clock:  engine.NewClockScheduler(sched, engine.NewPausableClock(nil), parameter.TickInterval, reg),
		player: audio.NewPlayer(src.Audio.Volume, nil, reg),
		log:    logger.For("nav-sandbox"),
	}
	if err := a.load(src); err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if src.Audio.Enabled && !*muteFlag {
		if err := a.player.Open(); err != nil {
			a.log.WithError(err).Warn("continuing without audio")
		}
		defer a.player.Close()
	}

	a.clock.OnTick(func(tick uint64, dt time.Duration) { a.session.OnTick(tick, dt) })
	a.clock.Start()
	defer a.clock.Stop()

	var reloads chan string
	if src.Path != "" && !src.Embedded {
		if w, err := scenario.NewWatcher(src.Path, src.ScriptPath); err != nil {
			a.log.WithError(err).Warn("hot reload disabled")
		} else {
			defer w.Close()
			reloads = w.Events
		}
	}

	events := make(chan tcell.Event, 256)
	core.Go(func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	})

	frames := time.NewTicker(parameter.FrameInterval)
	defer frames.Stop()

	for {
		select {
		case ev := <-events:
			if !a.handle(ev) {
				return
			}
		case file, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			a.log.WithField("file", file).Info("change detected")
			a.clock.Post(a.reload)
		case <-frames.C:
			a.clock.Post(a.draw)
		}
	}
}

// source loads the scenario flag, or generates a maze when -maze is set
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

// load replaces the running session; runs before Start or on the clock goroutine
func (a *app) load(src *scenario.Source) error {
	s, err := sim.New(src, a.sched, a.reg)
	if err != nil {
		return err
	}
	if a.session != nil {
		a.session.Close()
	}
	s.Finished = func(_ *sim.Agent, r movement.Result) {
		a.player.Play(audio.CueFor(r.Reason))
	}
	s.Dispatch()
	a.session = s

	if a.renderer == nil {
		a.renderer = render.New(a.screen, s.Grid(), s.Field(), s.Layer())
	} else {
		a.renderer.SetWorld(s.Grid(), s.Field())
	}
	return nil
}

func (a *app) reload() {
	src, err := source()
	if err == nil {
		err = a.load(src)
	}
	if err != nil {
		a.log.WithError(err).Error("reload failed, keeping current scenario")
		return
	}
	a.log.Info("scenario reloaded")
}

func (a *app) draw() {
	f := a.session.Frame()

	var b strings.Builder
	fmt.Fprintf(&b, "voxnav %s  tick=%d", a.session.Name(), a.clock.TickCount())
	if a.clock.IsPaused() {
		b.WriteString(" [paused]")
	}
	if a.player.Muted() {
		b.WriteString(" [muted]")
	}
	b.WriteString("  ")
	b.WriteString(help)
	f.Title = b.String()

	if *statsFlag {
		f.Status = append(f.Status, a.reg.Snapshot()...)
	}
	a.renderer.Draw(f)
}

// handle runs on the main goroutine; state changes are posted to the clock
func (a *app) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyTab:
			a.clock.Post(func() { a.session.SelectNext() })
		case ev.Key() == tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				if a.clock.IsPaused() {
					a.clock.Resume()
				} else {
					a.clock.Pause()
				}
			case 's':
				a.clock.Post(func() { a.session.StopSelected() })
			case 'f':
				a.clock.Post(func() { a.renderer.ToggleField() })
			case 'm':
				a.player.ToggleMute()
			case 'r':
				a.clock.Post(a.reload)
			}
		}
	case *tcell.EventMouse:
		// act on press only; drags repeat the same mask
		buttons := ev.Buttons()
		pressed := buttons &^ a.buttons
		a.buttons = buttons
		x, y := ev.Position()
		switch {
		case pressed&tcell.Button1 != 0:
			a.clock.Post(func() { a.session.Send(a.renderer.TileAt(x, y)) })
		case pressed&tcell.Button2 != 0:
			a.clock.Post(func() { a.session.ToggleObstacle(a.renderer.TileAt(x, y)) })
		}
	case *tcell.EventResize:
		a.clock.Post(a.screen.Sync)
	}
	return true
}
