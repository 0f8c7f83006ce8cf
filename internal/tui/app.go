package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/tower-stacker/internal/game"
	"github.com/annel0/tower-stacker/internal/leaderboard"
	"github.com/annel0/tower-stacker/internal/logging"
	"github.com/annel0/tower-stacker/internal/prefs"
	"github.com/gdamore/tcell/v2"
)

// Mode - экран клиента.
type Mode int

const (
	ModeMenu Mode = iota
	ModeCountdown
	ModePlaying
	ModeResult
)

func (m Mode) String() string {
	switch m {
	case ModeMenu:
		return "menu"
	case ModeCountdown:
		return "countdown"
	case ModePlaying:
		return "playing"
	case ModeResult:
		return "result"
	default:
		return "unknown"
	}
}

const (
	// CountdownDuration - отсчёт 3-2-1 перед раундом.
	CountdownDuration = 3 * time.Second
	// TopLimit - сколько строк рейтинга показывает экран результата.
	TopLimit = 10

	tickInterval = 16 * time.Millisecond // ~60 FPS
	topTimeout   = 5 * time.Second
)

// TopLister отдаёт рейтинг лучших: api.Client или leaderboard.Repository.
type TopLister interface {
	ListTop(ctx context.Context, limit int) ([]leaderboard.Record, error)
}

// Options - зависимости клиента. Все поля, кроме Layout, необязательны.
type Options struct {
	Layout         game.Layout
	Difficulty     game.Difficulty
	PlayerName     string
	Submitter      game.ResultSubmitter
	Leaderboard    TopLister
	Prefs          *prefs.Manager
	// nil - таймаут по умолчанию, 0 - сторожевой таймер выключен
	LandingTimeout *time.Duration
}

type topResult struct {
	round   int
	records []leaderboard.Record
	err     error
}

// App - игровой цикл терминального клиента: ввод, тики сессии и отрисовка.
// Всё, кроме RequestDrop, вызывается из потока Run.
type App struct {
	screen   tcell.Screen
	session  *game.Session
	renderer *Renderer
	prefs    *prefs.Manager
	board    TopLister

	playerName   string
	hasSubmitter bool
	difficulties []game.Difficulty
	selected     int

	mode           Mode
	round          int
	countdownStart time.Time
	stats          game.Stats
	status         string

	top        []leaderboard.Record
	topErr     error
	topLoading bool
	topCh      chan topResult

	drops     chan struct{}
	mouseDown bool

	now func() time.Time
}

// NewApp собирает клиента и игровую сессию поверх screen.
// Экран должен быть уже инициализирован; Fini остаётся за вызывающим.
func NewApp(screen tcell.Screen, opts Options) *App {
	a := &App{
		screen:       screen,
		renderer:     NewRenderer(),
		prefs:        opts.Prefs,
		board:        opts.Leaderboard,
		playerName:   opts.PlayerName,
		hasSubmitter: opts.Submitter != nil,
		difficulties: game.Difficulties(),
		topCh:        make(chan topResult, 8),
		drops:        make(chan struct{}, 1),
		now:          time.Now,
	}
	if a.playerName == "" {
		a.playerName = game.DefaultPlayerName
	}

	sessionOpts := []game.Option{
		game.WithLayout(opts.Layout),
		game.WithRenderer(a.renderer),
		game.WithPlayerName(a.playerName),
	}
	if opts.Submitter != nil {
		sessionOpts = append(sessionOpts, game.WithSubmitter(opts.Submitter))
	}
	if opts.LandingTimeout != nil {
		sessionOpts = append(sessionOpts, game.WithLandingTimeout(*opts.LandingTimeout))
	}
	a.session = game.NewSession(sessionOpts...)

	a.selected = 1
	for i, d := range a.difficulties {
		if d == opts.Difficulty {
			a.selected = i
		}
	}

	a.session.OnWin(a.finish)
	a.session.OnGameOver(a.finish)
	a.session.OnFloorPlaced(func(_ game.Block, res game.Resolution) {
		if res.Kind == game.DropPerfect {
			a.renderer.Shake(a.now())
		}
	})
	a.session.OnSubmitted(func(r game.Result) {
		a.status = fmt.Sprintf("Result saved: %s, %d points", r.PlayerName, r.Score)
		a.fetchTop()
	})
	a.session.OnSubmitError(func(_ game.Result, err error) {
		a.status = "Could not save result: " + err.Error()
		a.fetchTop()
	})
	return a
}

// Mode возвращает текущий экран.
func (a *App) Mode() Mode { return a.mode }

// Session возвращает игровую сессию клиента.
func (a *App) Session() *game.Session { return a.session }

// Difficulty возвращает выбранную в меню сложность.
func (a *App) Difficulty() game.Difficulty { return a.difficulties[a.selected] }

// Stats возвращает итог последнего раунда.
func (a *App) Stats() game.Stats { return a.stats }

// Status возвращает строку состояния экрана результата.
func (a *App) Status() string { return a.status }

// Top возвращает последний полученный рейтинг.
func (a *App) Top() []leaderboard.Record { return a.top }

// RequestDrop - потокобезопасный вход для внешних контроллеров (жесты).
// Запрос исполнится на ближайшем тике.
func (a *App) RequestDrop() {
	select {
	case a.drops <- struct{}{}:
	default:
	}
}

// Run крутит цикл событий до выхода игрока или отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.screen.EnableMouse()
	a.screen.HideCursor()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				// экран закрыт
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	a.Draw(a.now())
	for {
		select {
		case <-ctx.Done():
			a.session.Flush()
			return ctx.Err()
		case ev := <-events:
			if !a.HandleEvent(ev) {
				logging.Info("👋 Игрок вышел из игры")
				a.session.Flush()
				return nil
			}
		case <-ticker.C:
			now := a.now()
			a.Tick(now)
			a.Draw(now)
		}
	}
}

// HandleEvent обрабатывает событие ввода. false - игрок выходит.
func (a *App) HandleEvent(ev tcell.Event) bool {
	now := a.now()
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
	case *tcell.EventKey:
		return a.handleKey(ev, now)
	case *tcell.EventMouse:
		pressed := ev.Buttons()&tcell.Button1 != 0
		// только нажатие, удержание не повторяет сброс
		if pressed && !a.mouseDown && a.mode == ModePlaying {
			a.drop(now)
		}
		a.mouseDown = pressed
	}
	return true
}

func (a *App) handleKey(ev *tcell.EventKey, now time.Time) bool {
	if ev.Key() == tcell.KeyCtrlC {
		return false
	}
	quit := ev.Key() == tcell.KeyEscape || isRune(ev, 'q')
	confirm := ev.Key() == tcell.KeyEnter || isRune(ev, ' ')

	switch a.mode {
	case ModeMenu:
		switch {
		case quit:
			return false
		case ev.Key() == tcell.KeyUp || isRune(ev, 'k'):
			if a.selected > 0 {
				a.selected--
			}
		case ev.Key() == tcell.KeyDown || isRune(ev, 'j'):
			if a.selected < len(a.difficulties)-1 {
				a.selected++
			}
		case confirm:
			a.startCountdown(now)
		}

	case ModeCountdown:
		if ev.Key() == tcell.KeyEscape {
			a.mode = ModeMenu
			return true
		}
		if isRune(ev, 'q') {
			return false
		}

	case ModePlaying:
		switch {
		case quit:
			return false
		case confirm:
			a.drop(now)
		case isRune(ev, 'p'):
			a.togglePause(now)
		case isRune(ev, 'r'):
			a.startCountdown(now)
		}

	case ModeResult:
		switch {
		case quit:
			return false
		case confirm, isRune(ev, 'r'):
			a.startCountdown(now)
		case isRune(ev, 'm'):
			a.mode = ModeMenu
		}
	}
	return true
}

func isRune(ev *tcell.EventKey, r rune) bool {
	return ev.Key() == tcell.KeyRune && ev.Rune() == r
}

// Tick продвигает отсчёт, раунд и анимации.
func (a *App) Tick(now time.Time) {
	a.drainDrops(now)
	a.drainTop()

	switch a.mode {
	case ModeCountdown:
		if now.Sub(a.countdownStart) >= CountdownDuration {
			a.beginRound(now)
		}
	case ModePlaying:
		a.session.Tick(now)
		if a.renderer.Update(now) {
			a.session.LandingComplete(now)
		}
	case ModeResult:
		// доставка результата отправки и догорающие обломки
		a.session.Tick(now)
		a.renderer.Update(now)
	}
}

func (a *App) drainDrops(now time.Time) {
	for {
		select {
		case <-a.drops:
			if a.mode == ModePlaying {
				a.drop(now)
			}
		default:
			return
		}
	}
}

func (a *App) drainTop() {
	for {
		select {
		case res := <-a.topCh:
			if res.round != a.round {
				continue
			}
			a.topLoading = false
			a.top, a.topErr = res.records, res.err
		default:
			return
		}
	}
}

func (a *App) startCountdown(now time.Time) {
	a.mode = ModeCountdown
	a.countdownStart = now
	if a.prefs != nil {
		a.prefs.SetDifficulty(a.Difficulty())
		if err := a.prefs.Save(); err != nil {
			logging.Warn("⚠️ %v", err)
		}
	}
}

func (a *App) beginRound(now time.Time) {
	d := a.Difficulty()
	a.round++
	a.stats = game.Stats{}
	a.status = ""
	a.top, a.topErr, a.topLoading = nil, nil, false

	a.renderer.Reset()
	a.session.Configure(game.ProfileFor(d))
	a.session.Start(now)
	a.mode = ModePlaying
	logging.Info("🎮 Раунд %d: сложность %s, игрок %s", a.round, d, a.playerName)
}

func (a *App) drop(now time.Time) {
	if a.session.RequestDrop(now) {
		a.renderer.StartLanding(now)
	}
}

func (a *App) togglePause(now time.Time) {
	if a.session.Frame().Paused {
		a.session.Resume(now)
		return
	}
	a.session.Pause(now)
}

func (a *App) finish(stats game.Stats) {
	a.mode = ModeResult
	a.stats = stats
	if stats.Won && a.hasSubmitter {
		// рейтинг запросим после ответа на отправку, чтобы в нём был этот результат
		a.status = "Saving result..."
		return
	}
	a.fetchTop()
}

func (a *App) fetchTop() {
	if a.board == nil {
		return
	}
	a.topLoading = true
	round := a.round
	board := a.board
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), topTimeout)
		defer cancel()
		records, err := board.ListTop(ctx, TopLimit)
		if err != nil {
			logging.Warn("⚠️ Рейтинг недоступен: %v", err)
		}
		select {
		case a.topCh <- topResult{round: round, records: records, err: err}:
		default:
		}
	}()
}

// Draw перерисовывает текущий экран.
func (a *App) Draw(now time.Time) {
	a.screen.Clear()
	switch a.mode {
	case ModeMenu:
		a.drawMenu()
	case ModeCountdown:
		a.drawCountdown(now)
	case ModePlaying:
		a.drawPlaying(now)
	case ModeResult:
		a.drawResult()
	}
	a.screen.Show()
}

var (
	titleStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	textStyle  = tcell.StyleDefault
	hintStyle  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	errorStyle = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

func (a *App) hint(text string) {
	_, h := a.screen.Size()
	drawCentered(a.screen, h-1, hintStyle, text)
}

func (a *App) drawMenu() {
	drawCentered(a.screen, 2, titleStyle, "TOWER STACKER")
	drawCentered(a.screen, 4, textStyle, "Player: "+a.playerName)
	drawCentered(a.screen, 6, textStyle, "Difficulty")
	for i, d := range a.difficulties {
		label := "  " + string(d) + "  "
		style := textStyle
		if i == a.selected {
			label = "> " + string(d) + " <"
			style = titleStyle
		}
		drawCentered(a.screen, 8+i, style, label)
	}
	drawCentered(a.screen, 9+len(a.difficulties), hintStyle,
		fmt.Sprintf("Stack %d floors, up to %d%% discount", a.session.Layout().MaxFloors, game.MaxDiscount))
	a.hint("Up/Down choose  Enter start  q quit")
}

func (a *App) drawCountdown(now time.Time) {
	left := CountdownDuration - now.Sub(a.countdownStart)
	n := int(left/time.Second) + 1
	if n > 3 {
		n = 3
	}
	if n < 1 {
		n = 1
	}
	_, h := a.screen.Size()
	drawCentered(a.screen, h/2-2, textStyle, "Get ready")
	drawCentered(a.screen, h/2, titleStyle, fmt.Sprintf("%d", n))
	a.hint("Esc menu")
}

func (a *App) drawPlaying(now time.Time) {
	w, h := a.screen.Size()
	f := a.session.Frame()
	drawText(a.screen, 1, 0, titleStyle, "TOWER STACKER")
	drawText(a.screen, 16, 0, textStyle,
		fmt.Sprintf("floor %d/%d  %s  %s", f.Floor, f.MaxFloors, a.Difficulty(), a.playerName))

	vp := NewViewport(w, h, a.session.Layout())
	a.renderer.Draw(a.screen, vp, now)
	if f.Paused {
		drawCentered(a.screen, vp.OriginY+vp.Rows/2, titleStyle, " PAUSED ")
	}
	a.hint("Space/Enter/click drop  p pause  r restart  q quit")
}

func (a *App) drawResult() {
	title := "GAME OVER"
	if a.stats.Won {
		title = "YOU WIN!"
	}
	drawCentered(a.screen, 1, titleStyle, title)
	drawCentered(a.screen, 3, textStyle, fmt.Sprintf("Score: %d", a.stats.Score))
	drawCentered(a.screen, 4, textStyle, fmt.Sprintf("Floors: %d/%d", a.stats.Parts, a.session.Layout().MaxFloors))
	drawCentered(a.screen, 5, titleStyle, fmt.Sprintf("Discount: %d%%", a.stats.Discount))
	if a.status != "" {
		drawCentered(a.screen, 7, hintStyle, a.status)
	}

	row := 9
	if a.board != nil {
		drawCentered(a.screen, row, titleStyle, fmt.Sprintf("TOP %d", TopLimit))
		row += 2
		switch {
		case a.topLoading:
			drawCentered(a.screen, row, hintStyle, "loading...")
		case a.topErr != nil:
			drawCentered(a.screen, row, errorStyle, "Leaderboard unavailable")
		case len(a.top) == 0:
			drawCentered(a.screen, row, hintStyle, "No results yet")
		default:
			for i, rec := range a.top {
				drawCentered(a.screen, row+i, textStyle,
					fmt.Sprintf("%2d. %-16s %3d  %2d%%", i+1, truncate(rec.PlayerName, 16), rec.Score, rec.DiscountEarned))
			}
		}
	}
	a.hint("Enter play again  m menu  q quit")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
