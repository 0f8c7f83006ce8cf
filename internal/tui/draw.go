package tui

import "github.com/gdamore/tcell/v2"

// drawText пишет строку начиная с (x, y); символы за краем экрана отбрасываются.
func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	w, h := s.Size()
	if y < 0 || y >= h {
		return
	}
	for _, r := range text {
		if x >= w {
			return
		}
		if x >= 0 {
			s.SetContent(x, y, r, nil, style)
		}
		x++
	}
}

// drawCentered пишет строку по центру ряда y.
func drawCentered(s tcell.Screen, y int, style tcell.Style, text string) {
	w, _ := s.Size()
	drawText(s, (w-len([]rune(text)))/2, y, style, text)
}

func drawBox(s tcell.Screen, x1, y1, x2, y2 int, style tcell.Style) {
	for x := x1 + 1; x < x2; x++ {
		s.SetContent(x, y1, '─', nil, style)
		s.SetContent(x, y2, '─', nil, style)
	}
	for y := y1 + 1; y < y2; y++ {
		s.SetContent(x1, y, '│', nil, style)
		s.SetContent(x2, y, '│', nil, style)
	}
	s.SetContent(x1, y1, '┌', nil, style)
	s.SetContent(x2, y1, '┐', nil, style)
	s.SetContent(x1, y2, '└', nil, style)
	s.SetContent(x2, y2, '┘', nil, style)
}
