package hold

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSlotHeld means another patient currently holds the slot.
	ErrSlotHeld = errors.New("slot already held")
	// ErrNotHolder means a live hold on the slot belongs to someone else.
	ErrNotHolder = errors.New("hold not owned by caller")
)

// Store places short-lived holds on slots while a patient confirms a
// booking. Holds are advisory: the database constraint, not the hold,
// decides the winner when two bookings race. A hold that is never
// released expires on its own.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Hold is the receipt returned by Acquire. The token proves ownership
// on Release.
type Hold struct {
	DoctorID  string
	SlotID    string
	Token     string
	ExpiresAt time.Time
}

func holdKey(doctorID, slotID string) string {
	return fmt.Sprintf("hold:doctor:%s:slot:%s", doctorID, slotID)
}

func (s *Store) Acquire(ctx context.Context, doctorID, slotID string) (Hold, error) {
	doctorID = strings.TrimSpace(doctorID)
	slotID = strings.TrimSpace(slotID)
	if doctorID == "" || slotID == "" {
		return Hold{}, errors.New("doctor_id and slot_id are required")
	}

	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, holdKey(doctorID, slotID), token, s.ttl).Result()
	if err != nil {
		return Hold{}, fmt.Errorf("acquire hold: %w", err)
	}
	if !ok {
		return Hold{}, ErrSlotHeld
	}

	return Hold{
		DoctorID:  doctorID,
		SlotID:    slotID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.ttl),
	}, nil
}

// releaseScript deletes the hold only when the caller still owns it.
// Returns 1 when the hold was deleted or had already expired, 0 when a
// live hold carries a different token.
var releaseScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == false then
  return 1
end
if val == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`)

// Release is idempotent: releasing a hold that already expired or was
// already released succeeds. Only a live hold owned by someone else fails.
func (s *Store) Release(ctx context.Context, doctorID, slotID, token string) error {
	released, err := releaseScript.Run(ctx, s.client, []string{holdKey(doctorID, slotID)}, token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release hold: %w", err)
	}
	if released == 0 {
		return ErrNotHolder
	}
	return nil
}

func NewClient(addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
