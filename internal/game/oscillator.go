package game

import (
	"math"
	"time"
)

// BasePeriod - полный цикл качания (туда и обратно) при MoveSpeed=1.
const BasePeriod = 3000 * time.Millisecond

// Period возвращает период качания для скорости. Скорость <= 0 трактуется как 1.
func Period(moveSpeed float64) time.Duration {
	if moveSpeed <= 0 {
		moveSpeed = 1
	}
	return time.Duration(float64(BasePeriod) / moveSpeed)
}

// TravelBounds возвращает крайние положения центра блока шириной blockWidth
// на поле шириной fieldWidth. Амплитуда отсчитывается от середины поля.
func TravelBounds(fieldWidth, blockWidth float64) (float64, float64) {
	mid := fieldWidth / 2
	travel := (fieldWidth - blockWidth) / 2
	if travel < 0 {
		travel = 0
	}
	return mid - travel, mid + travel
}

// PositionAt вычисляет положение центра через elapsed после начала качания.
// x(0)=travelMin, x(period/2)=travelMax, x(period)=travelMin; сглаживание синусом.
func PositionAt(elapsed time.Duration, travelMin, travelMax float64, period time.Duration) float64 {
	if period <= 0 {
		return travelMin
	}
	return positionAtPhase(float64(elapsed)/float64(period), travelMin, travelMax)
}

func positionAtPhase(phase, travelMin, travelMax float64) float64 {
	phase = phase - math.Floor(phase)
	k := (1 - math.Cos(2*math.Pi*phase)) / 2
	return travelMin + (travelMax-travelMin)*k
}

// Oscillator - качание, которое можно остановить и продолжить с той же фазы.
type Oscillator struct {
	Min    float64
	Max    float64
	Period time.Duration

	origin time.Time
	phase  float64 // фаза в момент origin, [0,1)
}

// NewOscillator создаёт осциллятор, стартующий из Min в момент now.
func NewOscillator(min, max float64, period time.Duration, now time.Time) *Oscillator {
	return &Oscillator{Min: min, Max: max, Period: period, origin: now}
}

// PhaseAt возвращает фазу [0,1) в момент now.
func (o *Oscillator) PhaseAt(now time.Time) float64 {
	if o.Period <= 0 {
		return 0
	}
	p := o.phase + float64(now.Sub(o.origin))/float64(o.Period)
	return p - math.Floor(p)
}

// PositionAt возвращает положение центра в момент now.
func (o *Oscillator) PositionAt(now time.Time) float64 {
	if o.Period <= 0 {
		return o.Min
	}
	return positionAtPhase(o.PhaseAt(now), o.Min, o.Max)
}

// ResumeAt перезапускает качание с фазы phase начиная с now.
func (o *Oscillator) ResumeAt(now time.Time, phase float64) {
	o.origin = now
	o.phase = phase - math.Floor(phase)
}
