package game

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/tower-stacker/internal/logging"
)

// Result - результат победы, отправляемый в таблицу лидеров.
type Result struct {
	PlayerName     string `json:"playerName"`
	Score          int    `json:"score"`
	DiscountEarned int    `json:"discountEarned"`
	PartsStacked   int    `json:"partsStacked"`
}

// ResultSubmitter - внешний коллаборатор таблицы лидеров.
type ResultSubmitter interface {
	SubmitResult(ctx context.Context, r Result) error
}

// Renderer - коллаборатор отрисовки. Render вызывается на каждом тике,
// Debris - при появлении обломка.
type Renderer interface {
	Render(f Frame)
	Debris(d Debris)
}

// StatsHandler получает итоговую статистику раунда.
type StatsHandler func(Stats)

const (
	DefaultSubmitTimeout = 10 * time.Second
	DefaultPlayerName    = "Guest"
)

type submission struct {
	result Result
	err    error
}

// Session - фасад, которым управляет UI: конфигурация на входе, события жизненного цикла на выходе.
// Все методы, кроме внутренней отправки результата, вызываются из одного потока.
type Session struct {
	layout         Layout
	profile        Profile
	renderer       Renderer
	submitter      ResultSubmitter
	playerName     string
	landingTimeout time.Duration
	submitTimeout  time.Duration
	scorer         Scorer

	round      *RoundController
	generation uint64

	onGameOver    StatsHandler
	onWin         StatsHandler
	onFloor       func(Block, Resolution)
	onDebris      func(Debris)
	onSubmitted   func(Result)
	onSubmitError func(Result, error)

	// завершённые отправки ждут ближайшего Tick/Flush
	mu       sync.Mutex
	pending  []submission
	inflight sync.WaitGroup
}

// Option настраивает Session.
type Option func(*Session)

// WithLayout задаёт раскладку поля.
func WithLayout(l Layout) Option { return func(s *Session) { s.layout = l.Normalize() } }

// WithRenderer подключает рендер.
func WithRenderer(r Renderer) Option { return func(s *Session) { s.renderer = r } }

// WithSubmitter подключает таблицу лидеров.
func WithSubmitter(sub ResultSubmitter) Option { return func(s *Session) { s.submitter = sub } }

// WithPlayerName задаёт имя игрока для отправки результата.
func WithPlayerName(name string) Option { return func(s *Session) { s.SetPlayerName(name) } }

// WithLandingTimeout задаёт сторожевой таймаут приземления; 0 отключает его.
func WithLandingTimeout(d time.Duration) Option { return func(s *Session) { s.landingTimeout = d } }

// WithSubmitTimeout ограничивает время отправки результата.
func WithSubmitTimeout(d time.Duration) Option { return func(s *Session) { s.submitTimeout = d } }

// NewSession создаёт сессию с профилем normal и раскладкой по умолчанию.
func NewSession(opts ...Option) *Session {
	s := &Session{
		layout:         DefaultLayout(),
		profile:        ProfileFor(DifficultyNormal),
		playerName:     DefaultPlayerName,
		landingTimeout: DefaultLandingTimeout,
		submitTimeout:  DefaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scorer = NewScorer(s.layout)
	return s
}

// Configure задаёт профиль сложности; применяется со следующего Start.
func (s *Session) Configure(p Profile) {
	s.profile = p.Normalize()
}

// Profile возвращает текущий профиль.
func (s *Session) Profile() Profile { return s.profile }

// Layout возвращает раскладку поля.
func (s *Session) Layout() Layout { return s.layout }

// LandingTimeout возвращает сторожевой таймаут приземления (0 - выключен).
func (s *Session) LandingTimeout() time.Duration { return s.landingTimeout }

// SetPlayerName задаёт имя игрока; пустое имя заменяется DefaultPlayerName.
func (s *Session) SetPlayerName(name string) {
	if name == "" {
		name = DefaultPlayerName
	}
	s.playerName = name
}

func (s *Session) OnGameOver(h StatsHandler)               { s.onGameOver = h }
func (s *Session) OnWin(h StatsHandler)                    { s.onWin = h }
func (s *Session) OnFloorPlaced(h func(Block, Resolution)) { s.onFloor = h }
func (s *Session) OnDebris(h func(Debris))                 { s.onDebris = h }
func (s *Session) OnSubmitted(h func(Result))              { s.onSubmitted = h }
func (s *Session) OnSubmitError(h func(Result, error))     { s.onSubmitError = h }

// Start начинает новый раунд, отбрасывая предыдущий целиком.
// События отброшенного раунда больше не доставляются.
func (s *Session) Start(now time.Time) {
	s.generation++
	s.round = NewRoundController(s.layout, s.profile, &sessionListener{session: s, generation: s.generation})
	s.round.SetLandingTimeout(s.landingTimeout)
	s.round.Start(now)
	s.render()
}

// RequestDrop - единственный вход от любых контроллеров (клавиатура, мышь, жесты).
// Вне Oscillating безопасно ничего не делает.
func (s *Session) RequestDrop(now time.Time) bool {
	if s.round == nil {
		return false
	}
	return s.round.RequestDrop(now)
}

// LandingComplete передаёт раунду сигнал об окончании анимации приземления.
func (s *Session) LandingComplete(now time.Time) bool {
	if s.round == nil {
		return false
	}
	ok := s.round.LandingComplete(now)
	if ok {
		s.render()
	}
	return ok
}

// Tick продвигает раунд, доставляет результаты отправки и отдаёт кадр рендеру.
func (s *Session) Tick(now time.Time) {
	s.drainSubmissions()
	if s.round == nil {
		return
	}
	s.round.Tick(now)
	s.render()
}

// Pause ставит качание на паузу.
func (s *Session) Pause(now time.Time) {
	if s.round != nil {
		s.round.Pause(now)
	}
}

// Resume снимает паузу.
func (s *Session) Resume(now time.Time) {
	if s.round != nil {
		s.round.Resume(now)
	}
}

// State возвращает состояние текущего раунда (Idle до первого Start).
func (s *Session) State() RoundState {
	if s.round == nil {
		return StateIdle
	}
	return s.round.State()
}

// Frame возвращает снимок текущего раунда.
func (s *Session) Frame() Frame {
	if s.round == nil {
		return Frame{State: StateIdle, MaxFloors: s.layout.MaxFloors, Layout: s.layout}
	}
	return s.round.Frame()
}

// Flush дожидается всех отправок результата и доставляет их обработчикам.
func (s *Session) Flush() {
	s.inflight.Wait()
	s.drainSubmissions()
}

func (s *Session) render() {
	if s.renderer != nil && s.round != nil {
		s.renderer.Render(s.round.Frame())
	}
}

func (s *Session) finished(o Outcome) {
	stats := s.scorer.Score(o)
	logging.Info("🏁 Раунд завершён: won=%v score=%d parts=%d discount=%d%%",
		stats.Won, stats.Score, stats.Parts, stats.Discount)

	if !o.Won {
		if s.onGameOver != nil {
			s.onGameOver(stats)
		}
		return
	}

	if s.onWin != nil {
		s.onWin(stats)
	}
	s.submit(Result{
		PlayerName:     s.playerName,
		Score:          stats.Score,
		DiscountEarned: stats.Discount,
		PartsStacked:   stats.Parts,
	})
}

func (s *Session) submit(r Result) {
	if s.submitter == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
		defer cancel()
		err := s.submitter.SubmitResult(ctx, r)
		s.mu.Lock()
		s.pending = append(s.pending, submission{result: r, err: err})
		s.mu.Unlock()
	}()
}

func (s *Session) drainSubmissions() {
	s.mu.Lock()
	ready := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, sub := range ready {
		if sub.err != nil {
			logging.Warn("⚠️ Не удалось отправить результат %s: %v", sub.result.PlayerName, sub.err)
			if s.onSubmitError != nil {
				s.onSubmitError(sub.result, sub.err)
			}
			continue
		}
		if s.onSubmitted != nil {
			s.onSubmitted(sub.result)
		}
	}
}

// sessionListener привязывает события раунда к поколению сессии.
type sessionListener struct {
	session    *Session
	generation uint64
}

func (l *sessionListener) current() bool { return l.generation == l.session.generation }

func (l *sessionListener) FloorPlaced(b Block, r Resolution) {
	if l.current() && l.session.onFloor != nil {
		l.session.onFloor(b, r)
	}
}

func (l *sessionListener) DebrisCreated(d Debris) {
	if !l.current() {
		return
	}
	if l.session.renderer != nil {
		l.session.renderer.Debris(d)
	}
	if l.session.onDebris != nil {
		l.session.onDebris(d)
	}
}

func (l *sessionListener) Finished(o Outcome) {
	if l.current() {
		l.session.finished(o)
	}
}
