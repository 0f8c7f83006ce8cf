// Package tui - терминальный клиент игры на tcell: рендер раунда, ввод и экраны меню.
package tui

import (
	"math"

	"github.com/annel0/tower-stacker/internal/game"
)

const (
	maxFieldCols = 60
	minFieldCols = 20

	// строки над и под полем: заголовок, рамки, подсказка
	chromeRows = 4
)

// Viewport переводит координаты поля (пиксели) в клетки терминала.
// Основание внизу, этажи растут вверх, ряд крана - верхний ряд поля.
type Viewport struct {
	OriginX      int
	OriginY      int
	Cols         int
	Rows         int
	RowsPerFloor int
	Layout       game.Layout
}

// NewViewport вписывает поле в экран width x height.
func NewViewport(width, height int, layout game.Layout) Viewport {
	layout = layout.Normalize()

	cols := width - 2
	if cols > maxFieldCols {
		cols = maxFieldCols
	}
	if cols < minFieldCols {
		cols = minFieldCols
	}

	// основание + этажи + ряд крана
	slots := layout.MaxFloors + 2
	fieldRows := height - chromeRows
	rpf := fieldRows / slots
	if rpf > 2 {
		rpf = 2
	}
	if rpf < 1 {
		rpf = 1
	}

	rows := slots * rpf
	originX := (width - cols) / 2
	if originX < 0 {
		originX = 0
	}
	return Viewport{
		OriginX:      originX,
		OriginY:      2,
		Cols:         cols,
		Rows:         rows,
		RowsPerFloor: rpf,
		Layout:       layout,
	}
}

// Col возвращает колонку для координаты x поля.
func (v Viewport) Col(x float64) int {
	c := int(math.Floor(x / v.Layout.FieldWidth * float64(v.Cols)))
	if c < 0 {
		c = 0
	}
	if c > v.Cols {
		c = v.Cols
	}
	return v.OriginX + c
}

// Span возвращает крайние колонки (включительно) блока с центром center и шириной width.
// Любой блок ненулевой ширины занимает хотя бы одну клетку.
func (v Viewport) Span(center, width float64) (int, int) {
	left := v.Col(center - width/2)
	right := v.Col(center+width/2) - 1
	last := v.OriginX + v.Cols - 1
	if left > last {
		left = last
	}
	if right > last {
		right = last
	}
	if right < left {
		right = left
	}
	return left, right
}

// FloorRow - верхний ряд этажа floor (0 - основание).
func (v Viewport) FloorRow(floor int) int {
	return v.Bottom() - (floor+1)*v.RowsPerFloor + 1
}

// CraneRow - верхний ряд, в котором качается блок.
func (v Viewport) CraneRow() int { return v.OriginY }

// Bottom - нижний ряд поля.
func (v Viewport) Bottom() int { return v.OriginY + v.Rows - 1 }

// Right - последняя колонка поля.
func (v Viewport) Right() int { return v.OriginX + v.Cols - 1 }
