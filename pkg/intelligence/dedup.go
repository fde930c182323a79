package intelligence

import (
	"context"
	"fmt"

	"github.com/yashdiniz/focusa-remind/pkg/core"
)

// DefaultDuplicateThreshold is the similarity at or above which an added
// fact is considered already known.
const DefaultDuplicateThreshold = 0.95

// DedupPolicy wraps a Policy and drops add intents whose content is already
// stored for the user with similarity at or above the threshold.
type DedupPolicy struct {
	inner     Policy
	store     Store
	threshold float64
}

// NewDedupPolicy wraps inner. A zero threshold uses DefaultDuplicateThreshold.
func NewDedupPolicy(inner Policy, store Store, threshold float64) *DedupPolicy {
	if threshold == 0 {
		threshold = DefaultDuplicateThreshold
	}
	return &DedupPolicy{
		inner:     inner,
		store:     store,
		threshold: threshold,
	}
}

// Decide implements Policy.
func (p *DedupPolicy) Decide(ctx context.Context, in DecisionInput) (*Decision, error) {
	decision, err := p.inner.Decide(ctx, in)
	if err != nil || decision == nil {
		return decision, err
	}

	kept := decision.Intents[:0:0]
	for _, intent := range decision.Intents {
		if intent.Action != ActionAdd {
			kept = append(kept, intent)
			continue
		}
		dup, err := p.isDuplicate(ctx, in.Turn.UserID, intent.Content)
		if err != nil {
			return decision, err
		}
		if !dup {
			kept = append(kept, intent)
		}
	}
	decision.Intents = kept
	return decision, nil
}

func (p *DedupPolicy) isDuplicate(ctx context.Context, userID, content string) (bool, error) {
	hits, err := p.store.Search(ctx, content, core.WithUserIDForSearch(userID), core.WithLimit(1))
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return len(hits) > 0 && hits[0].Score >= p.threshold, nil
}
