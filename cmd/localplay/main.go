// localplay 在同一终端上多人对战，与联网版共用 game 包的模拟逻辑
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"kurve/config"
	"kurve/game"
)

type localGame struct {
	screen tcell.Screen
	match  *game.Match
	keys   *keyboard
	sound  *sound
	host   string
	status string

	tick      *time.Ticker
	tickC     <-chan time.Time
	countdown *time.Ticker
	countC    <-chan time.Time
}

func newLocalGame(t game.Tuning, players int) (*localGame, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	g := &localGame{
		screen: screen,
		match:  game.NewMatch(t, nil),
		keys:   newKeyboard(),
		sound:  newSound(),
	}
	for i := 0; i < players; i++ {
		p, err := g.match.AddPlayer(fmt.Sprintf("P%d", i+1), "")
		if err != nil {
			screen.Fini()
			return nil, err
		}
		if p.IsHost {
			g.host = p.ID
		}
		g.keys.bind(p)
	}
	return g, nil
}

// start 本地玩家无需准备，全员就绪后立即开局
func (g *localGame) start() error {
	for _, p := range g.match.Players() {
		if err := g.match.SetReady(p.ID, true); err != nil {
			return err
		}
	}
	if err := g.match.Start(g.host); err != nil {
		return err
	}
	g.status = ""
	g.sound.roundStart()
	g.startTicker()
	return nil
}

func (g *localGame) startTicker() {
	g.tick = time.NewTicker(time.Second / time.Duration(g.match.Tuning().TickRate))
	g.tickC = g.tick.C
}

func (g *localGame) stopTicker() {
	if g.tick != nil {
		g.tick.Stop()
		g.tick, g.tickC = nil, nil
	}
}

func (g *localGame) stopCountdown() {
	if g.countdown != nil {
		g.countdown.Stop()
		g.countdown, g.countC = nil, nil
	}
}

func (g *localGame) step() {
	res := g.match.Step(g.keys)
	for range res.Deaths {
		g.sound.death()
	}
	if !res.RoundOver {
		return
	}
	g.stopTicker()
	winner := "nobody"
	if p := g.match.Player(res.WinnerID); p != nil {
		winner = p.Name
	}
	if res.GameOver {
		g.status = fmt.Sprintf("%s wins the match! r: play again", winner)
	} else {
		g.status = fmt.Sprintf("round %d won by %s. space: next round", res.Round, winner)
	}
}

func (g *localGame) nextRound() {
	count, err := g.match.BeginNextRound(g.host)
	if err != nil {
		return
	}
	if count == 0 {
		g.status = ""
		g.startTicker()
		return
	}
	g.status = fmt.Sprintf("%d...", count)
	g.countdown = time.NewTicker(time.Second)
	g.countC = g.countdown.C
}

func (g *localGame) countdownStep() {
	count, started := g.match.CountdownTick()
	if started {
		g.stopCountdown()
		g.status = ""
		g.sound.roundStart()
		g.startTicker()
		return
	}
	g.status = fmt.Sprintf("%d...", count)
}

func (g *localGame) restart() {
	if err := g.match.ReturnToLobby(g.host); err != nil {
		return
	}
	if err := g.start(); err != nil {
		g.status = err.Error()
	}
}

func (g *localGame) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return false
	}
	if ev.Key() == tcell.KeyRune {
		switch ev.Rune() {
		case ' ':
			g.nextRound()
			return true
		case 'r':
			if g.match.Phase() == game.PhaseGameOver {
				g.restart()
				return true
			}
		}
	}
	g.keys.press(keyLabel(ev.Key(), ev.Rune()))
	return true
}

// draw 将竞技场按比例缩放到终端，最后一行为状态栏
func (g *localGame) draw() {
	g.screen.Clear()
	cols, rows := g.screen.Size()
	if rows < 2 || cols < 2 {
		g.screen.Show()
		return
	}
	t := g.match.Tuning()
	sx := float64(cols-1) / t.Width
	sy := float64(rows-2) / t.Height
	for _, p := range g.match.Players() {
		style := tcell.StyleDefault.Foreground(tcell.GetColor(p.Color))
		for _, pt := range p.Trail.Points() {
			g.screen.SetContent(int(pt.X*sx), int(pt.Y*sy), '█', nil, style)
		}
		if g.match.Phase() == game.PhaseLobby {
			continue
		}
		head := '●'
		if !p.Alive {
			head = 'x'
		}
		g.screen.SetContent(int(p.X*sx), int(p.Y*sy), head, nil, style.Bold(true))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "round %d  ", g.match.Round())
	for _, p := range g.match.Players() {
		fmt.Fprintf(&b, "%s[%s/%s]:%d  ", p.Name, shortLabel(p.Binding.Left), shortLabel(p.Binding.Right), g.match.Score(p.ID))
	}
	b.WriteString(g.status)
	for i, r := range []rune(b.String()) {
		if i >= cols {
			break
		}
		g.screen.SetContent(i, rows-1, r, nil, tcell.StyleDefault.Reverse(true))
	}
	g.screen.Show()
}

func shortLabel(label string) string {
	switch label {
	case "ArrowLeft":
		return "←"
	case "ArrowRight":
		return "→"
	}
	return strings.ToLower(strings.TrimPrefix(label, "Key"))
}

func (g *localGame) run() {
	frame := time.NewTicker(33 * time.Millisecond)
	defer frame.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !g.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				g.screen.Sync()
			}
		case <-g.tickC:
			g.step()
		case <-g.countC:
			g.countdownStep()
		case <-frame.C:
			g.draw()
		}
	}
}

func (g *localGame) cleanup() {
	g.stopTicker()
	g.stopCountdown()
	g.sound.close()
	g.screen.Fini()
}

func main() {
	var players int
	var envFile string
	flag.IntVar(&players, "players", 2, "number of local players (2-8)")
	flag.StringVar(&envFile, "env", ".env", "optional dotenv file")
	flag.Parse()

	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	t := config.Load().Tuning()
	if players < 2 || players > game.MaxSlots {
		fmt.Fprintf(os.Stderr, "players must be between 2 and %d\n", game.MaxSlots)
		os.Exit(2)
	}
	t.MaxPlayers = players
	if err := t.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	g, err := newLocalGame(t, players)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer g.cleanup()
	if err := g.start(); err != nil {
		g.cleanup()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	g.run()
}
