package credential

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	jwxt "github.com/campusbox/jwxt"
)

const (
	fieldStudentID = "student_id"
	fieldPassword  = "password"
	fieldISP       = "isp"
)

// RedisStore persists the credential snapshot as one Redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store over client. The hash lives under
// prefix:credentials; an empty prefix defaults to "jwxt".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "jwxt"
	}
	return &RedisStore{
		client: client,
		key:    prefix + ":credentials",
	}
}

// Load implements jwxt.CredentialStore. A missing hash loads as blank
// credentials, not an error.
func (s *RedisStore) Load(ctx context.Context) (jwxt.Credentials, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return jwxt.Credentials{}, err
	}

	creds := jwxt.Credentials{
		StudentID: fields[fieldStudentID],
		Password:  fields[fieldPassword],
	}
	if raw, ok := fields[fieldISP]; ok {
		if v, err := strconv.ParseUint(raw, 10, 8); err == nil {
			creds.ISP = jwxt.ISP(v)
		}
	}
	return creds, nil
}

// Save implements jwxt.CredentialStore.
func (s *RedisStore) Save(ctx context.Context, creds jwxt.Credentials) error {
	return s.client.HSet(ctx, s.key,
		fieldStudentID, creds.StudentID,
		fieldPassword, creds.Password,
		fieldISP, strconv.FormatUint(uint64(creds.ISP), 10),
	).Err()
}

// Clear implements jwxt.CredentialStore.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Present implements jwxt.CredentialStore.
func (s *RedisStore) Present(ctx context.Context) (bool, error) {
	creds, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	return !creds.Blank(), nil
}
