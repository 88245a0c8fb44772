package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps every document as a hash (users:<id>, complaints:<id>),
// indexes complaint ids in a set and announces changes on a Pub/Sub channel.
type RedisStore struct {
	Redis *redis.Client

	// HealthCheck is how long the change listener waits for a message before
	// pinging the connection. RetryInterval paces reconnects after an outage.
	HealthCheck   time.Duration
	RetryInterval time.Duration
}

// setFieldScript writes one field only if the complaint still exists and
// announces the change in the same step.
var setFieldScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
redis.call("PUBLISH", ARGV[3], ARGV[4])
return 1
`)

// NewRedisStore connects and pings Redis.
func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisStoreFromClient(rdb), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		Redis:         rdb,
		HealthCheck:   config.PubSubHealthCheck,
		RetryInterval: config.PubSubRetryInterval,
	}
}

func userKey(id string) string      { return config.UsersKeyPrefix + id }
func complaintKey(id string) string { return config.ComplaintsKeyPrefix + id }

func (s *RedisStore) GetUserProfile(ctx context.Context, userID string) (models.Fields, error) {
	fields, err := s.Redis.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load user %s: %v", models.ErrStoreRead, userID, err)
	}
	if len(fields) == 0 {
		return nil, models.ErrUserNotFound
	}
	return models.Fields(fields), nil
}

func (s *RedisStore) SubscribeComplaints(ctx context.Context) (Subscription, error) {
	pubsub := s.Redis.Subscribe(ctx, config.ComplaintsChannel)
	// Wait for the subscription confirmation so no change between here and
	// the initial snapshot load is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: subscribe complaints: %v", models.ErrStoreRead, err)
	}

	f := newFeed(ctx, pubsub.Close)
	changes := make(chan struct{}, 1)
	errs := make(chan error, 1)
	go s.listen(f.ctx, pubsub, changes, errs)
	f.run(s.loadComplaints, changes, errs)
	return f, nil
}

// listen turns Pub/Sub traffic into change signals. A broken connection is
// reported once as an error; when go-redis resubscribes the listener asks for
// a reload so changes published during the outage are picked up.
func (s *RedisStore) listen(ctx context.Context, pubsub *redis.PubSub, changes chan<- struct{}, errs chan<- error) {
	defer close(changes)

	signal := func() {
		select {
		case changes <- struct{}{}:
		default: // a reload is already pending
		}
	}

	healthCheck, retry := s.HealthCheck, s.RetryInterval
	if healthCheck <= 0 {
		healthCheck = config.PubSubHealthCheck
	}
	if retry <= 0 {
		retry = config.PubSubRetryInterval
	}

	healthy := true
	for {
		msg, err := pubsub.ReceiveTimeout(ctx, healthCheck)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if err = pubsub.Ping(ctx); err == nil {
					continue
				}
			}
			if healthy {
				healthy = false
				log.Printf("ERROR: complaints change channel lost: %v", err)
				select {
				case errs <- fmt.Errorf("%w: complaints change channel: %v", models.ErrStoreRead, err):
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-time.After(retry):
			case <-ctx.Done():
				return
			}
			continue
		}

		if !healthy {
			healthy = true
			log.Printf("INFO: complaints change channel restored")
			signal()
			continue
		}
		if _, ok := msg.(*redis.Message); ok {
			signal()
		}
	}
}

func (s *RedisStore) loadComplaints(ctx context.Context) (models.Snapshot, error) {
	ids, err := s.Redis.SMembers(ctx, config.ComplaintsIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list complaints: %v", models.ErrStoreRead, err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.Redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, complaintKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: load complaints: %v", models.ErrStoreRead, err)
	}

	snap := make(models.Snapshot, 0, len(ids))
	for i, id := range ids {
		fields, err := cmds[i].Result()
		if err != nil || len(fields) == 0 {
			// index entry without a document
			continue
		}
		snap = append(snap, models.Document{ID: id, Fields: models.Fields(fields)})
	}
	sortSnapshot(snap)
	return snap, nil
}

func (s *RedisStore) SetComplaintField(ctx context.Context, complaintID, field, value string) error {
	if !allowedComplaintField(field) {
		return fmt.Errorf("%w: field %q is not writable", models.ErrStoreWrite, field)
	}
	written, err := setFieldScript.Run(ctx, s.Redis,
		[]string{complaintKey(complaintID)},
		field, value, config.ComplaintsChannel, complaintID,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: set %s on %s: %v", models.ErrStoreWrite, field, complaintID, err)
	}
	if written == 0 {
		return models.ErrComplaintNotFound
	}
	return nil
}

func (s *RedisStore) SaveComplaint(ctx context.Context, complaint *models.Complaint) error {
	key := complaintKey(complaint.ID)
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, toHashArgs(complaint.Fields()))
		pipe.SAdd(ctx, config.ComplaintsIndexKey, complaint.ID)
		pipe.Publish(ctx, config.ComplaintsChannel, complaint.ID)
		return nil
	})
	if err != nil {
		log.Printf("ERROR: Failed to save complaint %s: %v", complaint.ID, err)
		return fmt.Errorf("%w: save complaint %s: %v", models.ErrStoreWrite, complaint.ID, err)
	}
	return nil
}

func (s *RedisStore) SaveUser(ctx context.Context, user *models.User) error {
	fields := user.Fields()
	if len(fields) == 0 {
		fields[config.FieldRole] = config.DefaultRole
	}
	key := userKey(user.ID)
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, toHashArgs(fields))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save user %s: %v", models.ErrStoreWrite, user.ID, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Redis.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.Redis.Close()
}

func toHashArgs(f models.Fields) map[string]interface{} {
	m := make(map[string]interface{}, len(f))
	for k, v := range f {
		m[k] = v
	}
	return m
}
