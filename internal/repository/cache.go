package repository

import (
	"context"
	"sync"
	"time"

	"github.com/salonlime/booking_bot/internal/model"
)

// serviceLister и scheduleLister - источники справочников под кэшем
type serviceLister interface {
	ListAll(ctx context.Context) ([]*model.Service, error)
}

type scheduleLister interface {
	ListAll(ctx context.Context) ([]*model.WorkSchedule, error)
}

// RefDataCache сквозной кэш справочников (услуги и графики) с коротким
// TTL. Часы инжектируются, инвалидация явная - кэшем владеет один
// долгоживущий объект, а не глобальные переменные.
type RefDataCache struct {
	services  serviceLister
	schedules scheduleLister
	ttl       time.Duration
	now       func() time.Time

	mu           sync.RWMutex
	cachedSvcs   []*model.Service
	svcsAt       time.Time
	cachedScheds []*model.WorkSchedule
	schedsAt     time.Time
}

func NewRefDataCache(services serviceLister, schedules scheduleLister, ttl time.Duration, now func() time.Time) *RefDataCache {
	if now == nil {
		now = time.Now
	}
	return &RefDataCache{
		services:  services,
		schedules: schedules,
		ttl:       ttl,
		now:       now,
	}
}

// Services возвращает справочник услуг, перечитывая его по истечении TTL
func (c *RefDataCache) Services(ctx context.Context) ([]*model.Service, error) {
	c.mu.RLock()
	if c.cachedSvcs != nil && c.now().Sub(c.svcsAt) < c.ttl {
		svcs := c.cachedSvcs
		c.mu.RUnlock()
		return svcs, nil
	}
	c.mu.RUnlock()

	svcs, err := c.services.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cachedSvcs = svcs
	c.svcsAt = c.now()
	c.mu.Unlock()

	return svcs, nil
}

// Schedules возвращает графики мастеров, перечитывая их по истечении TTL
func (c *RefDataCache) Schedules(ctx context.Context) ([]*model.WorkSchedule, error) {
	c.mu.RLock()
	if c.cachedScheds != nil && c.now().Sub(c.schedsAt) < c.ttl {
		scheds := c.cachedScheds
		c.mu.RUnlock()
		return scheds, nil
	}
	c.mu.RUnlock()

	scheds, err := c.schedules.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cachedScheds = scheds
	c.schedsAt = c.now()
	c.mu.Unlock()

	return scheds, nil
}

// ServiceByName ищет услугу в категории, nil если не найдена
func (c *RefDataCache) ServiceByName(ctx context.Context, category, name string) (*model.Service, error) {
	svcs, err := c.Services(ctx)
	if err != nil {
		return nil, err
	}
	for _, svc := range svcs {
		if svc.Category == category && svc.Name == name {
			return svc, nil
		}
	}
	return nil, nil
}

// ScheduleByProvider ищет график мастера, nil если не найден
func (c *RefDataCache) ScheduleByProvider(ctx context.Context, provider string) (*model.WorkSchedule, error) {
	scheds, err := c.Schedules(ctx)
	if err != nil {
		return nil, err
	}
	for _, ws := range scheds {
		if ws.Provider == provider {
			return ws, nil
		}
	}
	return nil, nil
}

// Invalidate сбрасывает кэш; следующий вызов перечитает хранилище
func (c *RefDataCache) Invalidate() {
	c.mu.Lock()
	c.cachedSvcs = nil
	c.cachedScheds = nil
	c.mu.Unlock()
}

// Refresh принудительно перечитывает оба справочника
func (c *RefDataCache) Refresh(ctx context.Context) error {
	c.Invalidate()
	if _, err := c.Services(ctx); err != nil {
		return err
	}
	if _, err := c.Schedules(ctx); err != nil {
		return err
	}
	return nil
}
