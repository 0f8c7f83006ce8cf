package tui

import (
	"time"

	"github.com/annel0/tower-stacker/internal/game"
	"github.com/gdamore/tcell/v2"
)

const (
	// LandingDuration - длительность анимации падения блока.
	LandingDuration = 400 * time.Millisecond
	// DebrisLifetime - сколько обломок виден на экране.
	DebrisLifetime = 1200 * time.Millisecond
	// ShakeDuration - тряска башни после идеального попадания.
	ShakeDuration = 200 * time.Millisecond

	debrisRowsPerSecond = 14.0
)

var floorColors = []tcell.Color{
	tcell.ColorTeal,
	tcell.ColorGreen,
	tcell.ColorOlive,
	tcell.ColorYellow,
	tcell.ColorFuchsia,
	tcell.ColorAqua,
}

type debrisAnim struct {
	debris game.Debris
	born   time.Time
}

// Renderer реализует game.Renderer: запоминает последний кадр раунда
// и рисует его вместе с анимациями на tcell.Screen.
// Используется из одного потока с сессией.
type Renderer struct {
	frame    game.Frame
	hasFrame bool

	pending []game.Debris
	debris  []debrisAnim

	landingStart time.Time
	shakeUntil   time.Time
}

var _ game.Renderer = (*Renderer)(nil)

// NewRenderer создаёт пустой рендер.
func NewRenderer() *Renderer { return &Renderer{} }

// Render запоминает кадр для следующей отрисовки.
func (r *Renderer) Render(f game.Frame) {
	r.frame = f
	r.hasFrame = true
}

// Debris ставит обломок в очередь анимации; время появления проставит Update.
func (r *Renderer) Debris(d game.Debris) {
	r.pending = append(r.pending, d)
}

// Frame возвращает последний полученный кадр.
func (r *Renderer) Frame() (game.Frame, bool) { return r.frame, r.hasFrame }

// Reset сбрасывает анимации перед новым раундом.
func (r *Renderer) Reset() {
	r.hasFrame = false
	r.frame = game.Frame{}
	r.pending = nil
	r.debris = nil
	r.landingStart = time.Time{}
	r.shakeUntil = time.Time{}
}

// StartLanding отмечает начало анимации падения.
func (r *Renderer) StartLanding(now time.Time) { r.landingStart = now }

// Shake запускает тряску башни.
func (r *Renderer) Shake(now time.Time) { r.shakeUntil = now.Add(ShakeDuration) }

// ActiveDebris возвращает число обломков в полёте.
func (r *Renderer) ActiveDebris() int { return len(r.debris) + len(r.pending) }

// Update продвигает анимации. Возвращает true, когда анимация падения закончилась
// и раунду нужно сообщить LandingComplete.
func (r *Renderer) Update(now time.Time) bool {
	for _, d := range r.pending {
		r.debris = append(r.debris, debrisAnim{debris: d, born: now})
	}
	r.pending = r.pending[:0]

	alive := r.debris[:0]
	for _, d := range r.debris {
		if now.Sub(d.born) < DebrisLifetime {
			alive = append(alive, d)
		}
	}
	r.debris = alive

	if r.frame.State != game.StateDropping {
		r.landingStart = time.Time{}
		return false
	}
	if r.landingStart.IsZero() {
		r.landingStart = now
		return false
	}
	if now.Sub(r.landingStart) >= LandingDuration {
		r.landingStart = time.Time{}
		return true
	}
	return false
}

// landingProgress - доля пройденного пути падения [0,1].
func (r *Renderer) landingProgress(now time.Time) float64 {
	if r.landingStart.IsZero() {
		return 0
	}
	p := float64(now.Sub(r.landingStart)) / float64(LandingDuration)
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// Draw рисует поле, башню, падающий блок и обломки.
func (r *Renderer) Draw(s tcell.Screen, vp Viewport, now time.Time) {
	drawBox(s, vp.OriginX-1, vp.OriginY-1, vp.Right()+1, vp.Bottom()+1, tcell.StyleDefault.Foreground(tcell.ColorGray))
	if !r.hasFrame {
		return
	}

	shift := 0
	if now.Before(r.shakeUntil) {
		// чередуем сдвиг каждые 50мс
		if (r.shakeUntil.Sub(now)/(50*time.Millisecond))%2 == 0 {
			shift = 1
		} else {
			shift = -1
		}
	}

	for _, b := range r.frame.Stack {
		style := blockStyle(b.Floor)
		left, right := vp.Span(b.CenterX, b.Width)
		r.fillBlock(s, vp, left+shift, right+shift, vp.FloorRow(b.Floor), style)
	}

	if f := r.frame.Falling; f != nil {
		row := vp.CraneRow()
		if r.frame.State == game.StateDropping {
			target := vp.FloorRow(f.Floor)
			row += int(float64(target-row) * r.landingProgress(now))
		}
		left, right := vp.Span(f.CenterX, f.Width)
		r.fillBlock(s, vp, left, right, row, blockStyle(f.Floor).Bold(true))
	}

	debrisStyle := tcell.StyleDefault.Foreground(tcell.ColorRed)
	for _, d := range r.debris {
		fallen := int(now.Sub(d.born).Seconds() * debrisRowsPerSecond)
		row := vp.FloorRow(d.debris.Floor) + fallen
		if row > vp.Bottom() {
			continue
		}
		left, right := vp.Span(d.debris.CenterX, d.debris.Width)
		for x := left; x <= right; x++ {
			s.SetContent(x, row, '▒', nil, debrisStyle)
		}
	}
}

func (r *Renderer) fillBlock(s tcell.Screen, vp Viewport, left, right, top int, style tcell.Style) {
	for y := top; y < top+vp.RowsPerFloor && y <= vp.Bottom(); y++ {
		for x := left; x <= right; x++ {
			if x < vp.OriginX || x > vp.Right() {
				continue
			}
			s.SetContent(x, y, '█', nil, style)
		}
	}
}

func blockStyle(floor int) tcell.Style {
	if floor == 0 {
		return tcell.StyleDefault.Foreground(tcell.ColorSilver)
	}
	return tcell.StyleDefault.Foreground(floorColors[(floor-1)%len(floorColors)])
}
