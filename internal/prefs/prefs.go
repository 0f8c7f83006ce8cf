// Package prefs хранит настройки терминального клиента между запусками.
package prefs

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/annel0/tower-stacker/internal/game"
	"github.com/annel0/tower-stacker/internal/logging"
	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// AppName - имя каталога данных клиента (~/.local/share/tower_stacker на Linux).
const AppName = "tower_stacker"

const (
	prefsObject   = "prefs"
	prefsProperty = "client"

	maxNameLen = 32
)

// Preferences - то, что клиент помнит между запусками.
type Preferences struct {
	PlayerName string          `yaml:"playerName"`
	Difficulty game.Difficulty `yaml:"difficulty"`
	ServerURL  string          `yaml:"serverURL"`
}

// Defaults возвращает настройки первого запуска.
func Defaults() Preferences {
	return Preferences{
		PlayerName: "",
		Difficulty: game.DifficultyNormal,
	}
}

// store - подмножество *gdata.Manager, которое нужно менеджеру.
type store interface {
	ObjectPropExists(objectKey, propKey string) bool
	LoadObjectProp(objectKey, propKey string) ([]byte, error)
	SaveObjectProp(objectKey, propKey string, data []byte) error
}

// Manager загружает и сохраняет Preferences.
// Без хранилища (nil) работает в памяти: Save ничего не делает.
type Manager struct {
	store store
	prefs Preferences
}

// Open открывает каталог данных клиента. Если он недоступен (песочница,
// только-чтение), возвращается менеджер в памяти и ошибка для лога.
func Open() (*Manager, error) {
	gm, err := gdata.Open(gdata.Config{AppName: AppName})
	if err != nil {
		m := NewManager(nil)
		return m, fmt.Errorf("каталог настроек недоступен: %w", err)
	}
	return NewManager(gm), nil
}

// NewManager создаёт менеджер поверх gdata; gm == nil - режим в памяти.
func NewManager(gm *gdata.Manager) *Manager {
	if gm == nil {
		// nil *gdata.Manager в интерфейсе не был бы nil
		return newManager(nil)
	}
	return newManager(gm)
}

func newManager(s store) *Manager {
	m := &Manager{store: s, prefs: Defaults()}
	if err := m.Load(); err != nil {
		logging.Warn("⚠️ Настройки клиента не прочитаны: %v (используются значения по умолчанию)", err)
	}
	return m
}

// Persistent сообщает, сохраняются ли настройки на диск.
func (m *Manager) Persistent() bool { return m.store != nil }

// Load перечитывает настройки; при любой ошибке остаются значения по умолчанию.
func (m *Manager) Load() error {
	m.prefs = Defaults()
	if m.store == nil || !m.store.ObjectPropExists(prefsObject, prefsProperty) {
		return nil
	}

	data, err := m.store.LoadObjectProp(prefsObject, prefsProperty)
	if err != nil {
		return fmt.Errorf("чтение настроек: %w", err)
	}

	var loaded Preferences
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("разбор настроек: %w", err)
	}
	m.prefs = loaded.normalize()
	return nil
}

// Save сохраняет текущие настройки.
func (m *Manager) Save() error {
	if m.store == nil {
		return nil
	}
	data, err := yaml.Marshal(m.prefs)
	if err != nil {
		return fmt.Errorf("сериализация настроек: %w", err)
	}
	if err := m.store.SaveObjectProp(prefsObject, prefsProperty, data); err != nil {
		return fmt.Errorf("запись настроек: %w", err)
	}
	logging.Debug("💾 Настройки клиента сохранены")
	return nil
}

// Get возвращает копию настроек.
func (m *Manager) Get() Preferences { return m.prefs }

// SetPlayerName запоминает имя (обрезанное до 32 символов).
func (m *Manager) SetPlayerName(name string) {
	m.prefs.PlayerName = clampName(name)
}

// SetDifficulty запоминает сложность; неизвестная даёт normal.
func (m *Manager) SetDifficulty(d game.Difficulty) {
	if parsed, err := game.ParseDifficulty(string(d)); err == nil {
		m.prefs.Difficulty = parsed
		return
	}
	m.prefs.Difficulty = game.DifficultyNormal
}

// SetServerURL запоминает адрес сервера таблицы лидеров.
func (m *Manager) SetServerURL(url string) {
	m.prefs.ServerURL = strings.TrimSpace(url)
}

func (p Preferences) normalize() Preferences {
	p.PlayerName = clampName(p.PlayerName)
	if d, err := game.ParseDifficulty(string(p.Difficulty)); err == nil {
		p.Difficulty = d
	} else {
		p.Difficulty = game.DifficultyNormal
	}
	p.ServerURL = strings.TrimSpace(p.ServerURL)
	return p
}

func clampName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= maxNameLen {
		return name
	}
	return string([]rune(name)[:maxNameLen])
}
