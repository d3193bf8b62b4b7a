package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// SetOPID records the third-party token (opid) associated with subjectID.
func (s *Store) SetOPID(ctx context.Context, subjectID, opid string) error {
	return s.client.Set(ctx, s.opidKey(subjectID), opid, 0).Err()
}

// GetOPID returns the token mapped to subjectID, or false if none exists.
func (s *Store) GetOPID(ctx context.Context, subjectID string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.opidKey(subjectID)).Result()
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// DeleteOPID forgets the token mapped to subjectID.
func (s *Store) DeleteOPID(ctx context.Context, subjectID string) error {
	return s.client.Del(ctx, s.opidKey(subjectID)).Err()
}

func isNotFound(err error) bool {
	return err == redis.Nil
}

func ignoreNotFound(err error) error {
	if isNotFound(err) {
		return nil
	}
	return err
}

func ignoreNotFoundSlice(err error) error {
	if isNotFound(err) {
		return nil
	}
	return err
}
