package game

// Block представляет уложенный этаж башни.
// Значение неизменяемо после укладки: ширина может только уменьшаться
// от этажа к этажу за счёт обрезки.
type Block struct {
	CenterX float64 `json:"center_x"`
	Width   float64 `json:"width"`
	Floor   int     `json:"floor"`
}

// Left возвращает левую границу блока.
func (b Block) Left() float64 { return b.CenterX - b.Width/2 }

// Right возвращает правую границу блока.
func (b Block) Right() float64 { return b.CenterX + b.Width/2 }

// FallingBlock - блок, который качается над башней и ещё не уложен.
type FallingBlock struct {
	CenterX float64 `json:"center_x"`
	Width   float64 `json:"width"`
	Floor   int     `json:"floor"`
}

// Stack - упорядоченная последовательность уложенных блоков.
// Индекс 0 - основание, последний элемент - текущая вершина.
type Stack struct {
	blocks []Block
}

// Len возвращает количество блоков вместе с основанием.
func (s *Stack) Len() int { return len(s.blocks) }

// Top возвращает верхний блок. ok=false для пустого стека.
func (s *Stack) Top() (Block, bool) {
	if len(s.blocks) == 0 {
		return Block{}, false
	}
	return s.blocks[len(s.blocks)-1], true
}

// Push кладёт блок на вершину.
// Блок отклоняется, если его ширина не лежит в (0, ширина вершины].
func (s *Stack) Push(b Block) bool {
	if b.Width <= 0 {
		return false
	}
	if top, ok := s.Top(); ok && b.Width > top.Width {
		return false
	}
	s.blocks = append(s.blocks, b)
	return true
}

// Blocks возвращает копию всех блоков (для рендера).
func (s *Stack) Blocks() []Block {
	out := make([]Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Widths возвращает ширины уложенных этажей без основания.
func (s *Stack) Widths() []float64 {
	if len(s.blocks) <= 1 {
		return []float64{}
	}
	out := make([]float64, 0, len(s.blocks)-1)
	for _, b := range s.blocks[1:] {
		out = append(out, b.Width)
	}
	return out
}

// Reset очищает стек.
func (s *Stack) Reset() {
	s.blocks = s.blocks[:0]
}
