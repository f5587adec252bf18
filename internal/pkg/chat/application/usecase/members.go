package usecase

import (
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
)

// FilterMembers removes the caller's own id and duplicates from a requested
// member list. An empty result is a NOT_FOUND failure: there is nobody left to
// talk to.
func FilterMembers(requested []string, callerID string) ([]string, error) {
	seen := make(map[string]struct{}, len(requested))
	out := make([]string, 0, len(requested))
	for _, id := range requested {
		if id == "" || id == callerID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, apperr.NotFound("no conversation members besides the caller")
	}
	return out, nil
}
