package game

import (
	"time"

	"github.com/annel0/tower-stacker/internal/logging"
)

// RoundState - состояние конечного автомата раунда.
type RoundState int

const (
	StateIdle RoundState = iota
	StateSpawning
	StateOscillating
	StateDropping
	StateResolving
	StateFinished
)

// String возвращает имя состояния для логов и рендера.
func (s RoundState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawning:
		return "spawning"
	case StateOscillating:
		return "oscillating"
	case StateDropping:
		return "dropping"
	case StateResolving:
		return "resolving"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// DefaultLandingTimeout ограничивает ожидание сигнала об окончании анимации приземления.
const DefaultLandingTimeout = 2 * time.Second

// RoundListener получает события раунда. Вызовы синхронные, из того же потока,
// что и Tick/RequestDrop/LandingComplete.
type RoundListener interface {
	FloorPlaced(b Block, r Resolution)
	DebrisCreated(d Debris)
	Finished(o Outcome)
}

// Frame - снимок раунда для рендера.
type Frame struct {
	State     RoundState    `json:"state"`
	Floor     int           `json:"floor"`
	MaxFloors int           `json:"max_floors"`
	Falling   *FallingBlock `json:"falling,omitempty"`
	Stack     []Block       `json:"stack"`
	Paused    bool          `json:"paused"`
	Layout    Layout        `json:"layout"`
}

// RoundController ведёт один раунд: spawn → oscillate → drop → resolve → (spawn | finish).
// Стек и падающий блок принадлежат контроллеру и наружу отдаются только копиями.
type RoundController struct {
	layout         Layout
	profile        Profile
	listener       RoundListener
	landingTimeout time.Duration

	state   RoundState
	floor   int
	stack   Stack
	falling *FallingBlock
	osc     *Oscillator

	paused      bool
	pausedPhase float64
	dropAt      time.Time
	outcome     *Outcome
}

// NewRoundController создаёт контроллер в состоянии Idle.
// listener может быть nil.
func NewRoundController(layout Layout, profile Profile, listener RoundListener) *RoundController {
	return &RoundController{
		layout:         layout.Normalize(),
		profile:        profile.Normalize(),
		listener:       listener,
		landingTimeout: DefaultLandingTimeout,
		state:          StateIdle,
	}
}

// SetLandingTimeout задаёт сторожевой таймаут приземления; 0 отключает его.
func (rc *RoundController) SetLandingTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	rc.landingTimeout = d
}

// Start кладёт основание и выпускает первый блок. Повторный вызов ничего не делает:
// новый раунд - это новый контроллер.
func (rc *RoundController) Start(now time.Time) {
	if rc.state != StateIdle {
		return
	}
	if rc.stack.Len() == 0 {
		rc.stack.Push(Block{
			CenterX: rc.layout.CenterX(),
			Width:   rc.layout.BaseWidth,
			Floor:   0,
		})
	}
	rc.floor = 0
	logging.Debug("[Round] старт: speed=%.1f tolerance=%.1f floors=%d",
		rc.profile.MoveSpeed, rc.profile.TolerancePx, rc.layout.MaxFloors)
	rc.spawn(now)
}

func (rc *RoundController) spawn(now time.Time) {
	rc.state = StateSpawning
	if rc.floor >= rc.layout.MaxFloors {
		rc.finish(true)
		return
	}

	rc.floor++
	top, _ := rc.stack.Top()
	minX, maxX := TravelBounds(rc.layout.FieldWidth, top.Width)
	rc.osc = NewOscillator(minX, maxX, Period(rc.profile.MoveSpeed), now)
	rc.falling = &FallingBlock{CenterX: minX, Width: top.Width, Floor: rc.floor}
	rc.paused = false
	rc.state = StateOscillating
}

// Tick продвигает время раунда: двигает качающийся блок и проверяет сторожевой таймаут.
func (rc *RoundController) Tick(now time.Time) {
	switch rc.state {
	case StateOscillating:
		if !rc.paused {
			rc.falling.CenterX = rc.osc.PositionAt(now)
		}
	case StateDropping:
		if rc.landingTimeout > 0 && now.Sub(rc.dropAt) >= rc.landingTimeout {
			logging.Warn("[Round] нет сигнала о приземлении за %s, этаж %d завершается принудительно",
				rc.landingTimeout, rc.floor)
			rc.land(now)
		}
	}
}

// RequestDrop фиксирует положение блока и переводит раунд в Dropping.
// Вне Oscillating (и на паузе) запрос игнорируется; возвращает true, если принят.
func (rc *RoundController) RequestDrop(now time.Time) bool {
	if rc.state != StateOscillating || rc.paused {
		return false
	}
	rc.falling.CenterX = rc.osc.PositionAt(now)
	rc.dropAt = now
	rc.state = StateDropping
	return true
}

// LandingComplete - сигнал рендера об окончании анимации падения.
func (rc *RoundController) LandingComplete(now time.Time) bool {
	if rc.state != StateDropping {
		return false
	}
	rc.land(now)
	return true
}

func (rc *RoundController) land(now time.Time) {
	rc.state = StateResolving

	top, _ := rc.stack.Top()
	fall := *rc.falling
	res := Resolve(top.CenterX, top.Width, fall.CenterX, fall.Width, rc.profile.TolerancePx)
	if res.Debris != nil {
		res.Debris.Floor = rc.floor
	}
	rc.falling = nil

	logging.Debug("[Round] этаж %d: %s offset=%.2f width=%.2f", rc.floor, res.Kind, res.Offset, res.KeptWidth)

	if res.Kind == DropMiss {
		rc.emitDebris(res.Debris)
		rc.finish(false)
		return
	}

	placed := Block{CenterX: res.KeptCenterX, Width: res.KeptWidth, Floor: rc.floor}
	if !rc.stack.Push(placed) {
		// стек не принимает блок шире вершины: этаж не построен, раунд проигран
		logging.Warn("[Round] этаж %d отклонён стеком: width=%.2f", rc.floor, placed.Width)
		rc.finish(false)
		return
	}
	if rc.listener != nil {
		rc.listener.FloorPlaced(placed, res)
	}
	rc.emitDebris(res.Debris)
	rc.spawn(now)
}

func (rc *RoundController) emitDebris(d *Debris) {
	if d == nil || rc.listener == nil {
		return
	}
	rc.listener.DebrisCreated(*d)
}

func (rc *RoundController) finish(won bool) {
	rc.state = StateFinished
	rc.falling = nil
	rc.outcome = &Outcome{
		FloorsCompleted: rc.floor,
		Widths:          rc.stack.Widths(),
		Won:             won,
	}
	logging.Debug("[Round] завершён: won=%v floors=%d", won, rc.floor)
	if rc.listener != nil {
		rc.listener.Finished(*rc.outcome)
	}
}

// Pause останавливает качание, запоминая фазу.
func (rc *RoundController) Pause(now time.Time) {
	if rc.state != StateOscillating || rc.paused {
		return
	}
	rc.pausedPhase = rc.osc.PhaseAt(now)
	rc.falling.CenterX = rc.osc.PositionAt(now)
	rc.paused = true
}

// Resume продолжает качание с той фазы, на которой оно было остановлено.
func (rc *RoundController) Resume(now time.Time) {
	if !rc.paused {
		return
	}
	rc.paused = false
	if rc.state == StateOscillating {
		rc.osc.ResumeAt(now, rc.pausedPhase)
	}
}

// State возвращает текущее состояние.
func (rc *RoundController) State() RoundState { return rc.state }

// Floor возвращает номер текущего этажа (1..MaxFloors), 0 до старта.
func (rc *RoundController) Floor() int { return rc.floor }

// Paused сообщает, стоит ли раунд на паузе.
func (rc *RoundController) Paused() bool { return rc.paused }

// Stack возвращает копию уложенных блоков.
func (rc *RoundController) Stack() []Block { return rc.stack.Blocks() }

// Falling возвращает копию падающего блока или nil.
func (rc *RoundController) Falling() *FallingBlock {
	if rc.falling == nil {
		return nil
	}
	f := *rc.falling
	return &f
}

// Outcome возвращает итог; ok=false, пока раунд не завершён.
func (rc *RoundController) Outcome() (Outcome, bool) {
	if rc.outcome == nil {
		return Outcome{}, false
	}
	return *rc.outcome, true
}

// Frame собирает снимок для рендера.
func (rc *RoundController) Frame() Frame {
	return Frame{
		State:     rc.state,
		Floor:     rc.floor,
		MaxFloors: rc.layout.MaxFloors,
		Falling:   rc.Falling(),
		Stack:     rc.stack.Blocks(),
		Paused:    rc.paused,
		Layout:    rc.layout,
	}
}
