package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/forrex322/shop/internal/domain"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/httputil"
)

const (
	keyPrefix    = "shop:session:"
	noticeSuffix = ":notices"

	// maxNotices bounds the queue of undisplayed notices per session.
	maxNotices = 20
)

// Session is the server-side state behind the session cookie. An anonymous
// session has no CustomerID.
type Session struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Owner is the cart owner for requests carrying this session.
func (s *Session) Owner() domain.Owner {
	if s.CustomerID != "" {
		return domain.CustomerOwner(s.CustomerID, s.ID)
	}
	return domain.AnonymousOwner(s.ID)
}

// Store keeps sessions and their pending notices in Redis. Every read
// slides the expiry forward by ttl.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a Redis-backed session store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func sessionKey(id string) string { return keyPrefix + id }
func noticeKey(id string) string { return keyPrefix + id + noticeSuffix }

// Create starts a new anonymous session.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	sess := &Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session and refreshes its expiry.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.GetEx(ctx, sessionKey(id), s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("session", id)
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Bind attaches a signed-in customer to the session.
func (s *Store) Bind(ctx context.Context, id, customerID, username string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.CustomerID = customerID
	sess.Username = username
	return s.save(ctx, sess)
}

// Unbind turns the session back into an anonymous one.
func (s *Store) Unbind(ctx context.Context, id string) error {
	return s.Bind(ctx, id, "", "")
}

// Delete removes the session and its notices.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id), noticeKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// PushNotice queues a notice for the next page the session renders.
func (s *Store) PushNotice(ctx context.Context, id string, n httputil.Notice) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	key := noticeKey(id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -maxNotices, -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis push notice: %w", err)
	}
	return nil
}

// DrainNotices returns and clears the queued notices, oldest first.
func (s *Store) DrainNotices(ctx context.Context, id string) ([]httputil.Notice, error) {
	key := noticeKey(id)

	var lrange *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis drain notices: %w", err)
	}

	raw := lrange.Val()
	notices := make([]httputil.Notice, 0, len(raw))
	for _, item := range raw {
		var n httputil.Notice
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("unmarshal notice: %w", err)
		}
		notices = append(notices, n)
	}
	return notices, nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}
