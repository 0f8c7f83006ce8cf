package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const landingDelay = 400 * time.Millisecond

type recordingListener struct {
	placed   []Block
	kinds    []DropKind
	debris   []Debris
	outcomes []Outcome
}

func (l *recordingListener) FloorPlaced(b Block, r Resolution) {
	l.placed = append(l.placed, b)
	l.kinds = append(l.kinds, r.Kind)
}
func (l *recordingListener) DebrisCreated(d Debris) { l.debris = append(l.debris, d) }
func (l *recordingListener) Finished(o Outcome)     { l.outcomes = append(l.outcomes, o) }

// centerOffset - момент после спавна, когда блок проходит середину поля (фаза 1/4).
func centerOffset(p Profile) time.Duration { return Period(p.MoveSpeed) / 4 }

func TestRoundController_StartSpawnsFirstFloor(t *testing.T) {
	l := &recordingListener{}
	rc := NewRoundController(DefaultLayout(), ProfileFor(DifficultyNormal), l)
	assert.Equal(t, StateIdle, rc.State())

	rc.Start(time.Unix(0, 0))

	assert.Equal(t, StateOscillating, rc.State())
	assert.Equal(t, 1, rc.Floor())
	stack := rc.Stack()
	require.Len(t, stack, 1)
	assert.Equal(t, Block{CenterX: 200, Width: 300, Floor: 0}, stack[0])

	f := rc.Falling()
	require.NotNil(t, f)
	assert.Equal(t, 300.0, f.Width)
	assert.Equal(t, 150.0, f.CenterX)
}

func TestRoundController_TickMovesFallingBlock(t *testing.T) {
	p := ProfileFor(DifficultyNormal)
	rc := NewRoundController(DefaultLayout(), p, nil)
	t0 := time.Unix(0, 0)
	rc.Start(t0)

	rc.Tick(t0.Add(Period(p.MoveSpeed) / 2))
	assert.InDelta(t, 250, rc.Falling().CenterX, 1e-9)
}

// Сценарий A: шесть идеальных сбросов подряд.
func TestRoundController_ScenarioA_SixPerfectDrops(t *testing.T) {
	l := &recordingListener{}
	p := ProfileFor(DifficultyNormal)
	rc := NewRoundController(DefaultLayout(), p, l)

	now := time.Unix(0, 0)
	rc.Start(now)
	for floor := 1; floor <= 6; floor++ {
		require.Equal(t, StateOscillating, rc.State(), "этаж %d", floor)
		dropAt := now.Add(centerOffset(p))
		require.True(t, rc.RequestDrop(dropAt))
		now = dropAt.Add(landingDelay)
		require.True(t, rc.LandingComplete(now))
	}

	assert.Equal(t, StateFinished, rc.State())
	require.Len(t, l.outcomes, 1)
	o := l.outcomes[0]
	assert.True(t, o.Won)
	assert.Equal(t, 6, o.FloorsCompleted)
	assert.Equal(t, []float64{300, 300, 300, 300, 300, 300}, o.Widths)
	assert.Empty(t, l.debris)
	for _, k := range l.kinds {
		assert.Equal(t, DropPerfect, k)
	}
	for i, b := range l.placed {
		assert.Equal(t, 200.0, b.CenterX, "центр должен быть привязан к основанию")
		assert.Equal(t, i+1, b.Floor)
	}

	stats := NewScorer(DefaultLayout()).Score(o)
	assert.Equal(t, Stats{Score: 100, Parts: 6, Discount: 50, Won: true}, stats)
}

// Сценарий B: полный промах на первом этаже.
func TestRoundController_ScenarioB_MissOnFirstFloor(t *testing.T) {
	l := &recordingListener{}
	layout := Layout{FieldWidth: 1000, BaseWidth: 300, BlockHeight: 60, MaxFloors: 6}
	rc := NewRoundController(layout, ProfileFor(DifficultyNormal), l)

	t0 := time.Unix(0, 0)
	rc.Start(t0)
	// в момент спавна блок в крайнем левом положении: x=150, основание в 500
	require.True(t, rc.RequestDrop(t0))
	require.True(t, rc.LandingComplete(t0.Add(landingDelay)))

	assert.Equal(t, StateFinished, rc.State())
	require.Len(t, l.outcomes, 1)
	o := l.outcomes[0]
	assert.False(t, o.Won)
	assert.Equal(t, 1, o.FloorsCompleted)
	assert.Empty(t, o.Widths)

	require.Len(t, l.debris, 1)
	assert.Equal(t, DebrisDiscard, l.debris[0].Hint)
	assert.Equal(t, 300.0, l.debris[0].Width)
	assert.Equal(t, 1, l.debris[0].Floor)

	stats := NewScorer(layout).Score(o)
	assert.Equal(t, 1, stats.Parts)
	assert.Equal(t, 13, stats.Discount)
}

func TestRoundController_PartialTrimsNextBlock(t *testing.T) {
	l := &recordingListener{}
	rc := NewRoundController(DefaultLayout(), ProfileFor(DifficultyNormal), l)

	t0 := time.Unix(0, 0)
	rc.Start(t0)
	require.True(t, rc.RequestDrop(t0)) // x=150, основание в 200
	landed := t0.Add(landingDelay)
	require.True(t, rc.LandingComplete(landed))

	require.Len(t, l.placed, 1)
	assert.Equal(t, Block{CenterX: 175, Width: 250, Floor: 1}, l.placed[0])
	require.Len(t, l.debris, 1)
	assert.Equal(t, 50.0, l.debris[0].Width)
	assert.Equal(t, 25.0, l.debris[0].CenterX)
	assert.Equal(t, DebrisSever, l.debris[0].Hint)

	// следующий блок получает обрезанную ширину
	assert.Equal(t, StateOscillating, rc.State())
	assert.Equal(t, 2, rc.Floor())
	assert.Equal(t, 250.0, rc.Falling().Width)
}

func TestRoundController_DropIsDebounced(t *testing.T) {
	rc := NewRoundController(DefaultLayout(), ProfileFor(DifficultyNormal), nil)
	t0 := time.Unix(0, 0)

	assert.False(t, rc.RequestDrop(t0), "до старта сброс игнорируется")

	rc.Start(t0)
	require.True(t, rc.RequestDrop(t0.Add(50*time.Millisecond)))
	x := rc.Falling().CenterX

	assert.False(t, rc.RequestDrop(t0.Add(60*time.Millisecond)))
	assert.Equal(t, StateDropping, rc.State())
	assert.Equal(t, x, rc.Falling().CenterX)

	// тик во время падения не двигает блок
	rc.Tick(t0.Add(100 * time.Millisecond))
	assert.Equal(t, x, rc.Falling().CenterX)
}

func TestRoundController_LandingWatchdog(t *testing.T) {
	l := &recordingListener{}
	rc := NewRoundController(DefaultLayout(), ProfileFor(DifficultyNormal), l)
	t0 := time.Unix(0, 0)
	rc.Start(t0)
	require.True(t, rc.RequestDrop(t0))

	rc.Tick(t0.Add(DefaultLandingTimeout - time.Millisecond))
	assert.Equal(t, StateDropping, rc.State())

	rc.Tick(t0.Add(DefaultLandingTimeout))
	assert.Equal(t, StateOscillating, rc.State())
	assert.Len(t, l.placed, 1)

	// запоздавший сигнал рендера уже ничего не меняет
	assert.False(t, rc.LandingComplete(t0.Add(3*time.Second)))
}

func TestRoundController_WatchdogDisabled(t *testing.T) {
	rc := NewRoundController(DefaultLayout(), ProfileFor(DifficultyNormal), nil)
	rc.SetLandingTimeout(0)
	t0 := time.Unix(0, 0)
	rc.Start(t0)
	require.True(t, rc.RequestDrop(t0))

	rc.Tick(t0.Add(time.Hour))
	assert.Equal(t, StateDropping, rc.State())
}

func TestRoundController_PauseResume(t *testing.T) {
	p := ProfileFor(DifficultyNormal)
	rc := NewRoundController(DefaultLayout(), p, nil)
	t0 := time.Unix(0, 0)
	rc.Start(t0)

	pauseAt := t0.Add(centerOffset(p))
	rc.Pause(pauseAt)
	x := rc.Falling().CenterX
	assert.True(t, rc.Paused())

	rc.Tick(pauseAt.Add(time.Second))
	assert.Equal(t, x, rc.Falling().CenterX, "на паузе блок стоит")
	assert.False(t, rc.RequestDrop(pauseAt.Add(time.Second)), "на паузе сброс запрещён")

	resumeAt := pauseAt.Add(10 * time.Second)
	rc.Resume(resumeAt)
	rc.Tick(resumeAt)
	assert.InDelta(t, x, rc.Falling().CenterX, 1e-9)

	rc.Tick(resumeAt.Add(centerOffset(p)))
	assert.InDelta(t, 250, rc.Falling().CenterX, 1e-9)
}

func TestRoundController_FinishedIgnoresInput(t *testing.T) {
	l := &recordingListener{}
	layout := Layout{FieldWidth: 1000, BaseWidth: 300, BlockHeight: 60, MaxFloors: 6}
	rc := NewRoundController(layout, ProfileFor(DifficultyNormal), l)
	t0 := time.Unix(0, 0)
	rc.Start(t0)
	rc.RequestDrop(t0)
	rc.LandingComplete(t0)
	require.Equal(t, StateFinished, rc.State())

	assert.False(t, rc.RequestDrop(t0.Add(time.Second)))
	assert.False(t, rc.LandingComplete(t0.Add(time.Second)))
	rc.Start(t0.Add(time.Second))
	assert.Equal(t, StateFinished, rc.State())
	assert.Len(t, l.outcomes, 1)

	o, ok := rc.Outcome()
	assert.True(t, ok)
	assert.False(t, o.Won)
}

func TestStack_PushInvariant(t *testing.T) {
	var s Stack
	assert.False(t, s.Push(Block{Width: 0}))
	assert.True(t, s.Push(Block{CenterX: 200, Width: 300}))
	assert.False(t, s.Push(Block{CenterX: 200, Width: 301}), "ширина не может расти")
	assert.True(t, s.Push(Block{CenterX: 200, Width: 300, Floor: 1}))
	assert.True(t, s.Push(Block{CenterX: 190, Width: 280, Floor: 2}))
	assert.Equal(t, []float64{300, 280}, s.Widths())
	assert.Equal(t, 3, s.Len())
}

func TestRoundController_RejectedPushEndsRoundWithoutFloorEvent(t *testing.T) {
	l := &recordingListener{}
	layout := DefaultLayout()
	p := ProfileFor(DifficultyNormal)
	rc := NewRoundController(layout, p, l)
	t0 := time.Unix(0, 0)
	rc.Start(t0)

	require.True(t, rc.RequestDrop(t0.Add(centerOffset(p))))
	// блок шире вершины стек не примет
	rc.falling.Width = layout.BaseWidth * 2
	require.True(t, rc.LandingComplete(t0.Add(centerOffset(p)+landingDelay)))

	assert.Empty(t, l.placed, "отклонённый блок не считается уложенным")
	assert.Len(t, rc.Stack(), 1)
	require.Len(t, l.outcomes, 1)
	assert.False(t, l.outcomes[0].Won)
	assert.Equal(t, 1, l.outcomes[0].FloorsCompleted)
	assert.Equal(t, StateFinished, rc.State())
}
