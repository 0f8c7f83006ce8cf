package game

import (
	"fmt"
	"strings"
)

// Difficulty - имя пресета сложности.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// Profile задаёт скорость качания и допуск "идеального" попадания.
// Неизменяем в пределах одного раунда.
type Profile struct {
	MoveSpeed   float64 `yaml:"move_speed" json:"moveSpeed"`
	TolerancePx float64 `yaml:"tolerance_px" json:"tolerance"`
}

var presets = map[Difficulty]Profile{
	DifficultyEasy:   {MoveSpeed: 3, TolerancePx: 20},
	DifficultyNormal: {MoveSpeed: 5, TolerancePx: 10},
	DifficultyHard:   {MoveSpeed: 8, TolerancePx: 5},
}

// Difficulties возвращает пресеты в порядке возрастания сложности.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyNormal, DifficultyHard}
}

// ProfileFor возвращает профиль пресета; неизвестное имя даёт normal.
func ProfileFor(d Difficulty) Profile {
	if p, ok := presets[d]; ok {
		return p
	}
	return presets[DifficultyNormal]
}

// ParseDifficulty разбирает имя пресета без учёта регистра.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := presets[d]; !ok {
		return DifficultyNormal, fmt.Errorf("неизвестная сложность %q", s)
	}
	return d, nil
}

// Normalize заменяет недопустимые значения значениями пресета normal.
// Ошибкой некорректный профиль не считается.
func (p Profile) Normalize() Profile {
	def := presets[DifficultyNormal]
	if p.MoveSpeed <= 0 {
		p.MoveSpeed = def.MoveSpeed
	}
	if p.TolerancePx < 0 {
		p.TolerancePx = def.TolerancePx
	}
	return p
}

// Layout - фиксированные размеры игрового поля.
type Layout struct {
	FieldWidth  float64 `yaml:"field_width" json:"fieldWidth"`
	BaseWidth   float64 `yaml:"base_width" json:"baseWidth"`
	BlockHeight float64 `yaml:"block_height" json:"blockHeight"`
	MaxFloors   int     `yaml:"max_floors" json:"totalParts"`
}

// DefaultLayout возвращает раскладку по умолчанию: поле 400, основание 300, 6 этажей.
func DefaultLayout() Layout {
	return Layout{
		FieldWidth:  400,
		BaseWidth:   300,
		BlockHeight: 60,
		MaxFloors:   6,
	}
}

// Normalize подставляет значения по умолчанию вместо нулевых и некорректных.
func (l Layout) Normalize() Layout {
	def := DefaultLayout()
	if l.FieldWidth <= 0 {
		l.FieldWidth = def.FieldWidth
	}
	if l.BaseWidth <= 0 {
		l.BaseWidth = def.BaseWidth
	}
	if l.BaseWidth > l.FieldWidth {
		l.BaseWidth = l.FieldWidth
	}
	if l.BlockHeight <= 0 {
		l.BlockHeight = def.BlockHeight
	}
	if l.MaxFloors <= 0 {
		l.MaxFloors = def.MaxFloors
	}
	return l
}

// CenterX - горизонтальный центр поля.
func (l Layout) CenterX() float64 { return l.FieldWidth / 2 }
