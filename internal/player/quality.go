package player

import (
	"context"
	"time"

	"multiview/internal/platform/retry"
)

// QualityPolicy bounds quality assertion. Embedded players tend to ignore a
// quality request made before playback starts, so it is repeated.
var QualityPolicy = retry.Policy{Interval: 250 * time.Millisecond, MaxAttempts: 12}

// AssertQuality re-sends the quality request until the player reports Playing,
// the policy runs out, or gen moves past token. An empty label is a no-op.
func AssertQuality(ctx context.Context, p *Safe, label string, policy retry.Policy, gen *retry.Generation, token uint64) bool {
	if label == "" {
		return true
	}
	return retry.Run(ctx, policy, gen, token, func(int) bool {
		if !p.SetPlaybackQuality(label) {
			return false
		}
		st, ok := p.State()
		return ok && st == Playing
	})
}
