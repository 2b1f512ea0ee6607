package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stepio-app/stepio-server/app/models"
)

const (
	queueKey       = "reminders:queue"
	entityIndexKey = "reminders:entity:%s:%s" // kind, entity uuid
)

// redisScheduler keeps the pending reminders in a sorted set scored by
// due time. A per-entity set indexes the queue members so cancel and
// reschedule can remove them without scanning.
type redisScheduler struct {
	client *redis.Client
	clock  func() time.Time
}

// NewRedisScheduler returns a Scheduler backed by the given Redis
// client, or nil when no client is configured.
func NewRedisScheduler(client *redis.Client) Scheduler {
	if client == nil {
		return nil
	}
	return &redisScheduler{client: client, clock: time.Now}
}

func (s *redisScheduler) ScheduleAppointment(ctx context.Context, appt *models.Appointment) error {
	if err := s.CancelForEntity(ctx, KindAppointment, appt.UUID); err != nil {
		return err
	}
	return s.enqueue(ctx, KindAppointment, appt.UUID, appointmentReminders(appt, s.clock()))
}

func (s *redisScheduler) ScheduleMedication(ctx context.Context, med *models.Medication) error {
	if err := s.CancelForEntity(ctx, KindMedication, med.UUID); err != nil {
		return err
	}
	return s.enqueue(ctx, KindMedication, med.UUID, medicationReminders(med, s.clock()))
}

func (s *redisScheduler) enqueue(ctx context.Context, kind Kind, entityID string, reminders []Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	indexKey := fmt.Sprintf(entityIndexKey, kind, entityID)
	pipe := s.client.TxPipeline()
	for _, r := range reminders {
		payload, err := json.Marshal(r)
		if err != nil {
			return err
		}
		member := string(payload)
		pipe.ZAdd(ctx, queueKey, redis.Z{Score: float64(r.DueAt.Unix()), Member: member})
		pipe.SAdd(ctx, indexKey, member)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// CancelForEntity removes every pending reminder for one entity.
func (s *redisScheduler) CancelForEntity(ctx context.Context, kind Kind, entityID string) error {
	indexKey := fmt.Sprintf(entityIndexKey, kind, entityID)
	members, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, m := range members {
		pipe.ZRem(ctx, queueKey, m)
	}
	pipe.Del(ctx, indexKey)
	_, err = pipe.Exec(ctx)
	return err
}

// PopDue atomically removes and returns reminders due at or before now.
func (s *redisScheduler) PopDue(ctx context.Context, now time.Time, limit int64) ([]Reminder, error) {
	members, err := s.client.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	var out []Reminder
	pipe := s.client.TxPipeline()
	for _, m := range members {
		var r Reminder
		if err := json.Unmarshal([]byte(m), &r); err != nil {
			pipe.ZRem(ctx, queueKey, m)
			continue
		}
		out = append(out, r)
		pipe.ZRem(ctx, queueKey, m)
		pipe.SRem(ctx, fmt.Sprintf(entityIndexKey, r.Kind, r.EntityID), m)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
