package storage

import (
	"context"
	"time"
)

// IncrementVisit records one visit for subjectID (the synthetic ID) and
// returns the running count. Last-writer-wins: a lost increment under
// concurrent load is acceptable, matching how this store is documented to
// behave everywhere it's used.
func (s *Store) IncrementVisit(ctx context.Context, subjectID string) (int64, error) {
	key := s.visitKey(subjectID)
	count, err := s.client.HIncrBy(ctx, key, "count", 1).Result()
	if err != nil {
		return 0, err
	}
	if err := s.client.HSet(ctx, key, "last_visit", time.Now().Unix()).Err(); err != nil {
		return count, err
	}
	return count, nil
}

// VisitCount returns the current visit count for subjectID, or 0 if none is
// recorded yet.
func (s *Store) VisitCount(ctx context.Context, subjectID string) (int64, error) {
	v, err := s.client.HGet(ctx, s.visitKey(subjectID), "count").Int64()
	if err != nil {
		return 0, ignoreNotFound(err)
	}
	return v, nil
}

// LastVisit returns the Unix timestamp of subjectID's most recent visit, and
// false if none is recorded.
func (s *Store) LastVisit(ctx context.Context, subjectID string) (int64, bool, error) {
	v, err := s.client.HGet(ctx, s.visitKey(subjectID), "last_visit").Int64()
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return v, true, nil
}

// RecordAdInteraction appends interaction (e.g. "impression:slot-1") to the
// subject's bounded interaction history.
func (s *Store) RecordAdInteraction(ctx context.Context, subjectID, interaction string) error {
	key := s.interactionsKey(subjectID)
	if err := s.client.RPush(ctx, key, interaction).Err(); err != nil {
		return err
	}
	return s.client.LTrim(ctx, key, -maxAdInteractions, -1).Err()
}

// AdInteractions returns the subject's recorded interaction history, oldest
// first.
func (s *Store) AdInteractions(ctx context.Context, subjectID string) ([]string, error) {
	vals, err := s.client.LRange(ctx, s.interactionsKey(subjectID), 0, -1).Result()
	if err != nil {
		return nil, ignoreNotFoundSlice(err)
	}
	return vals, nil
}

// AppendConsent records one GDPR consent update (JSON-encoded by the
// caller) to the subject's consent history, oldest first.
func (s *Store) AppendConsent(ctx context.Context, subjectID string, consentJSON []byte) error {
	return s.client.RPush(ctx, s.consentKey(subjectID), consentJSON).Err()
}

// ConsentHistory returns every recorded consent update for subjectID,
// oldest first, still JSON-encoded.
func (s *Store) ConsentHistory(ctx context.Context, subjectID string) ([][]byte, error) {
	vals, err := s.client.LRange(ctx, s.consentKey(subjectID), 0, -1).Result()
	if err != nil {
		return nil, ignoreNotFoundSlice(err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// ForgetSubject erases every key this store holds for subjectID: the visit
// counter, the ad-interaction history, the consent history, and the OPID
// mapping. This is the storage side of GDPR's right-to-erasure handler —
// the caller is still responsible for clearing the subject's synthetic_id
// cookie on the HTTP response.
func (s *Store) ForgetSubject(ctx context.Context, subjectID string) error {
	return s.client.Del(ctx,
		s.visitKey(subjectID),
		s.interactionsKey(subjectID),
		s.consentKey(subjectID),
		s.opidKey(subjectID),
	).Err()
}
