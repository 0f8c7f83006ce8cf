package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Classification(t *testing.T) {
	tests := []struct {
		name       string
		prevX      float64
		prevW      float64
		fallX      float64
		fallW      float64
		tol        float64
		wantKind   DropKind
		wantKeptX  float64
		wantKeptW  float64
		wantDebris *Debris
	}{
		{
			name: "точное попадание", prevX: 200, prevW: 300, fallX: 200, fallW: 300, tol: 10,
			wantKind: DropPerfect, wantKeptX: 200, wantKeptW: 300,
		},
		{
			name: "в пределах допуска слева", prevX: 200, prevW: 300, fallX: 192, fallW: 300, tol: 10,
			wantKind: DropPerfect, wantKeptX: 200, wantKeptW: 300,
		},
		{
			name: "граница допуска считается perfect", prevX: 200, prevW: 300, fallX: 210, fallW: 300, tol: 10,
			wantKind: DropPerfect, wantKeptX: 200, wantKeptW: 300,
		},
		{
			name: "частичное вправо", prevX: 200, prevW: 300, fallX: 250, fallW: 300, tol: 10,
			wantKind: DropPartial, wantKeptX: 225, wantKeptW: 250,
			wantDebris: &Debris{CenterX: 375, Width: 50, Hint: DebrisSever},
		},
		{
			name: "частичное влево", prevX: 200, prevW: 300, fallX: 150, fallW: 300, tol: 10,
			wantKind: DropPartial, wantKeptX: 175, wantKeptW: 250,
			wantDebris: &Debris{CenterX: 25, Width: 50, Hint: DebrisSever},
		},
		{
			name: "граница промаха считается miss", prevX: 200, prevW: 300, fallX: 500, fallW: 300, tol: 10,
			wantKind:   DropMiss,
			wantDebris: &Debris{CenterX: 500, Width: 300, Hint: DebrisDiscard},
		},
		{
			name: "полный промах влево", prevX: 200, prevW: 120, fallX: 40, fallW: 120, tol: 5,
			wantKind:   DropMiss,
			wantDebris: &Debris{CenterX: 40, Width: 120, Hint: DebrisDiscard},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.prevX, tt.prevW, tt.fallX, tt.fallW, tt.tol)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.InDelta(t, tt.wantKeptX, res.KeptCenterX, 1e-9)
			assert.InDelta(t, tt.wantKeptW, res.KeptWidth, 1e-9)
			if tt.wantDebris == nil {
				assert.Nil(t, res.Debris)
				return
			}
			require.NotNil(t, res.Debris)
			assert.InDelta(t, tt.wantDebris.CenterX, res.Debris.CenterX, 1e-9)
			assert.InDelta(t, tt.wantDebris.Width, res.Debris.Width, 1e-9)
			assert.Equal(t, tt.wantDebris.Hint, res.Debris.Hint)
		})
	}
}

// Сценарий C: diff=50 на блоке 300 при допуске 10.
func TestResolve_ScenarioC(t *testing.T) {
	res := Resolve(200, 300, 250, 300, 10)

	require.Equal(t, DropPartial, res.Kind)
	assert.Equal(t, 250.0, res.KeptWidth)
	require.NotNil(t, res.Debris)
	assert.Equal(t, 50.0, res.Debris.Width)
	assert.Greater(t, res.Debris.CenterX, res.KeptCenterX, "обломок должен быть со стороны смещения")

	// обломок примыкает к сохранённой части без зазора
	assert.InDelta(t, res.KeptCenterX+res.KeptWidth/2, res.Debris.CenterX-res.Debris.Width/2, 1e-9)
}

func TestResolve_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 5000; i++ {
		prevW := 1 + rng.Float64()*400
		prevX := rng.Float64() * 400
		fallW := prevW
		fallX := prevX + (rng.Float64()*2-1)*prevW*1.5
		tol := rng.Float64() * 25

		res := Resolve(prevX, prevW, fallX, fallW, tol)

		switch res.Kind {
		case DropPerfect:
			assert.Equal(t, fallW, res.KeptWidth)
			assert.Equal(t, prevX, res.KeptCenterX)
			assert.Nil(t, res.Debris)
		case DropPartial:
			assert.Greater(t, res.KeptWidth, 0.0)
			assert.Less(t, res.KeptWidth, prevW)
			require.NotNil(t, res.Debris)
			assert.InDelta(t, prevW, res.KeptWidth+res.Debris.Width, 1e-6)
		case DropMiss:
			assert.Zero(t, res.KeptWidth)
			require.NotNil(t, res.Debris)
			assert.Equal(t, fallW, res.Debris.Width)
		default:
			t.Fatalf("неизвестный результат %v", res.Kind)
		}
	}
}

func TestDropKind_String(t *testing.T) {
	assert.Equal(t, "perfect", DropPerfect.String())
	assert.Equal(t, "partial", DropPartial.String())
	assert.Equal(t, "miss", DropMiss.String())
}
