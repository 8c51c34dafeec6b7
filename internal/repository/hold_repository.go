package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/salonlime/booking_bot/internal/model"
)

const (
	holdKeyPrefix    = "hold:"
	holdSessionIndex = "hold_session:"
	holdSlotIndex    = "hold_slot:"
)

// HoldRepository хранит живые hold'ы в Redis, чтобы сверочный проход
// находил их и после рестарта процесса. Ключам не ставится redis-TTL:
// истечение выполняет hold manager, ему нужно освободить заглушку
// в календаре, молчаливое удаление ключа этого не сделает.
type HoldRepository struct {
	client *redis.Client
}

func NewHoldRepository(client *redis.Client) *HoldRepository {
	return &HoldRepository{client: client}
}

// NewRedisClient создает клиент Redis
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Save сохраняет hold и его индексы по сессии и слоту
func (r *HoldRepository) Save(ctx context.Context, hold *model.Hold) error {
	data, err := json.Marshal(hold)
	if err != nil {
		return fmt.Errorf("marshal hold: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, holdKeyPrefix+hold.ID, data, 0)
	pipe.Set(ctx, holdSessionIndex+fmt.Sprint(hold.SessionID), hold.ID, 0)
	pipe.Set(ctx, holdSlotIndex+hold.Slot.Key(), hold.ID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return &model.UpstreamError{Op: "redis.save_hold", Err: err}
	}

	return nil
}

// Get возвращает hold по id, nil если не найден
func (r *HoldRepository) Get(ctx context.Context, holdID string) (*model.Hold, error) {
	data, err := r.client.Get(ctx, holdKeyPrefix+holdID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.UpstreamError{Op: "redis.get_hold", Err: err}
	}

	var hold model.Hold
	if err := json.Unmarshal(data, &hold); err != nil {
		return nil, fmt.Errorf("unmarshal hold: %w", err)
	}
	return &hold, nil
}

// GetBySession возвращает живой hold сессии, nil если нет
func (r *HoldRepository) GetBySession(ctx context.Context, sessionID int64) (*model.Hold, error) {
	return r.getByIndex(ctx, holdSessionIndex+fmt.Sprint(sessionID))
}

// GetBySlot возвращает живой hold на слот, nil если нет
func (r *HoldRepository) GetBySlot(ctx context.Context, slot model.Slot) (*model.Hold, error) {
	return r.getByIndex(ctx, holdSlotIndex+slot.Key())
}

func (r *HoldRepository) getByIndex(ctx context.Context, indexKey string) (*model.Hold, error) {
	holdID, err := r.client.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.UpstreamError{Op: "redis.get_hold_index", Err: err}
	}
	return r.Get(ctx, holdID)
}

// Delete удаляет hold и его индексы
func (r *HoldRepository) Delete(ctx context.Context, hold *model.Hold) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, holdKeyPrefix+hold.ID)
	pipe.Del(ctx, holdSessionIndex+fmt.Sprint(hold.SessionID))
	pipe.Del(ctx, holdSlotIndex+hold.Slot.Key())
	if _, err := pipe.Exec(ctx); err != nil {
		return &model.UpstreamError{Op: "redis.delete_hold", Err: err}
	}
	return nil
}

// ListLive возвращает все живые hold'ы (для сверочного прохода)
func (r *HoldRepository) ListLive(ctx context.Context) ([]*model.Hold, error) {
	var holds []*model.Hold

	iter := r.client.Scan(ctx, 0, holdKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // удалён между SCAN и GET
		}
		if err != nil {
			return nil, &model.UpstreamError{Op: "redis.list_holds", Err: err}
		}

		var hold model.Hold
		if err := json.Unmarshal(data, &hold); err != nil {
			continue // битый ключ не должен валить весь проход
		}
		if hold.Live() {
			holds = append(holds, &hold)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, &model.UpstreamError{Op: "redis.list_holds", Err: err}
	}

	return holds, nil
}
