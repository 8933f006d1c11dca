package planner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/timeplan-api/pkg/errors"
)

// PreviewStore caches dry-run proposals in Redis so a later save can persist
// the previewed plan without re-running the search. Keys are scoped by
// account, so a preview can never be saved across tenants.
type PreviewStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPreviewStore constructs a PreviewStore with the given entry TTL.
func NewPreviewStore(client *redis.Client, ttl time.Duration) *PreviewStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PreviewStore{client: client, ttl: ttl}
}

func previewKey(accountID, previewID string) string {
	return "plan_preview:" + accountID + ":" + previewID
}

// Put stores a generation result and returns its preview id.
func (s *PreviewStore) Put(ctx context.Context, accountID string, res *GenerateResult) (string, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.client.Set(ctx, previewKey(accountID, id), payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Get loads a cached proposal. A missing or expired entry maps to the
// planner's not-found error.
func (s *PreviewStore) Get(ctx context.Context, accountID, previewID string) (*GenerateResult, error) {
	payload, err := s.client.Get(ctx, previewKey(accountID, previewID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.Clone(appErrors.ErrPlannerNotFound, "Planvorschau wurde nicht gefunden oder ist abgelaufen")
		}
		return nil, err
	}
	var res GenerateResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Delete drops a cached proposal, typically right after it was saved.
func (s *PreviewStore) Delete(ctx context.Context, accountID, previewID string) error {
	return s.client.Del(ctx, previewKey(accountID, previewID)).Err()
}
