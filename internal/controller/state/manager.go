// Package state типизированное состояние диалога с клиентом:
// именованный шаг и структурные поля вместо мешка нетипизированных
// значений по строковым ключам.
package state

import (
	"sync"

	"github.com/salonlime/booking_bot/internal/model"
)

// Step текущий шаг диалога
type Step int

const (
	StepNone     Step = iota
	StepName          // ждём имя клиента
	StepPhone         // ждём телефон
	StepWaitTime      // ждём желаемое время для листа ожидания
)

// Session состояние одной сессии бронирования.
// Списки вариантов - то, что было показано клиенту кнопками: кнопки
// несут индексы в эти списки, а не сами значения.
type Session struct {
	Step     Step
	HoldID   string
	Category string
	Service  string
	Provider string
	Date     string
	Name     string
	Phone    string

	Categories   []string
	ServiceNames []string
	Providers    []string
	Dates        []string
	Slots        []model.Slot
}

// Manager управляет сессиями по chat id
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewManager создаёт новый менеджер состояний
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*Session)}
}

// Get возвращает копию сессии (пустую, если сессии нет)
func (m *Manager) Get(chatID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.sessions[chatID]; ok {
		return *s
	}
	return Session{}
}

// Update атомарно изменяет сессию, создавая её при необходимости
func (m *Manager) Update(chatID int64, fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[chatID]
	if !ok {
		s = &Session{}
		m.sessions[chatID] = s
	}
	fn(s)
}

// Clear сбрасывает сессию
func (m *Manager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
