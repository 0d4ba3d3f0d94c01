package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/internal/store"
	"github.com/ascendhq/ascend/pkg/logger"
	"github.com/ascendhq/ascend/pkg/metrics"
)

// ResourceRef identifies one resource touched by a propagation.
type ResourceRef struct {
	Type hierarchy.ResourceType `json:"type"`
	ID   string                 `json:"id"`
}

// WriteFailure records one descendant write that failed during fan-out.
type WriteFailure struct {
	ResourceRef
	Err error
}

// PropagationResult summarises a completed fan-out. Writes listed in Applied
// stayed applied even when Failed is non-empty; nothing is rolled back.
type PropagationResult struct {
	Applied []ResourceRef
	Failed  []WriteFailure
}

// PartialPropagationError aggregates descendant write failures. Successful
// sibling writes remain in place; callers are expected to report the change
// as partially applied.
type PartialPropagationError struct {
	Failures []WriteFailure
	combined error
}

func (e *PartialPropagationError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		ids = append(ids, fmt.Sprintf("%s/%s", failure.Type, failure.ID))
	}
	return fmt.Sprintf("propagation: %d descendant write(s) failed: %s", len(e.Failures), strings.Join(ids, ", "))
}

// Unwrap exposes the combined underlying errors for errors.Is / errors.As.
func (e *PartialPropagationError) Unwrap() error {
	return e.combined
}

// PropagationRequest describes one permission change to fan out. A nil Grant
// means revoke. The resource's own direct change is the caller's job and must
// already be applied before propagation starts.
type PropagationRequest struct {
	ResourceType hierarchy.ResourceType
	ResourceID   string
	UserID       string
	Grant        *models.HierarchicalPermissions
	Settings     models.InheritanceSettings
}

// Propagator fans a permission change out to every descendant resource, per
// collection, honouring the inheritance settings. It holds no state between
// calls; overlapping propagations for the same resource are not fenced
// against each other, and callers needing strict ordering must serialize.
type Propagator struct {
	store store.Store
	log   *zap.Logger
}

// NewPropagator constructs a propagation engine over the supplied store.
func NewPropagator(st store.Store) (*Propagator, error) {
	if st == nil {
		return nil, errors.New("propagator: store is required")
	}
	return &Propagator{
		store: st,
		log:   logger.WithModule("propagation"),
	}, nil
}

// Propagate walks the resource's subtree breadth-first and applies the grant
// or revocation to every descendant whose collection gate is open. Writes
// within one collection batch run concurrently; the engine waits for each
// batch to settle before moving on, and for everything before returning.
// A non-nil *PartialPropagationError is returned when one or more writes
// failed; writes that succeeded are not rolled back.
func (p *Propagator) Propagate(ctx context.Context, req PropagationRequest) (*PropagationResult, error) {
	if !req.ResourceType.Valid() {
		return nil, fmt.Errorf("propagator: invalid resource type %q", req.ResourceType)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, errors.New("propagator: user id is required")
	}
	if strings.TrimSpace(req.ResourceID) == "" {
		return nil, errors.New("propagator: resource id is required")
	}

	result := &PropagationResult{}

	if !hierarchy.HasDescendants(req.ResourceType) {
		return result, nil
	}

	revoke := req.Grant == nil

	type frontier struct {
		parentType hierarchy.ResourceType
		parentIDs  []string
	}

	visited := map[ResourceRef]struct{}{}
	queue := []frontier{{parentType: req.ResourceType, parentIDs: []string{req.ResourceID}}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, rule := range hierarchy.Descendants(current.parentType) {
			var batch []store.Document
			for _, parentID := range current.parentIDs {
				children, err := p.store.QueryByParent(ctx, rule.Type, rule.ParentField, parentID)
				if err != nil {
					// A failed child listing terminates this branch only.
					result.Failed = append(result.Failed, WriteFailure{
						ResourceRef: ResourceRef{Type: current.parentType, ID: parentID},
						Err:         fmt.Errorf("list %s children of %s %s: %w", rule.Type, current.parentType, parentID, err),
					})
					continue
				}
				for i := range children {
					ref := ResourceRef{Type: rule.Type, ID: children[i].ID}
					if _, seen := visited[ref]; seen {
						continue
					}
					visited[ref] = struct{}{}
					batch = append(batch, children[i])
				}
			}

			if len(batch) == 0 {
				continue
			}

			if req.Settings.Allows(rule.Gate) {
				p.applyBatch(ctx, req, revoke, rule.Type, batch, result)
			}

			if hierarchy.HasDescendants(rule.Type) {
				ids := make([]string, 0, len(batch))
				for i := range batch {
					ids = append(ids, batch[i].ID)
				}
				queue = append(queue, frontier{parentType: rule.Type, parentIDs: ids})
			}
		}
	}

	if len(result.Failed) > 0 {
		var combined error
		for _, failure := range result.Failed {
			combined = multierr.Append(combined, failure.Err)
		}
		p.log.Warn("propagation partially failed",
			zap.String("resource_type", string(req.ResourceType)),
			zap.String("resource_id", req.ResourceID),
			zap.String("user_id", req.UserID),
			zap.Int("applied", len(result.Applied)),
			zap.Int("failed", len(result.Failed)),
		)
		return result, &PartialPropagationError{Failures: result.Failed, combined: combined}
	}

	return result, nil
}

// applyBatch issues every write for one descendant collection concurrently
// and waits for all of them to settle. Per-document failures are isolated.
func (p *Propagator) applyBatch(ctx context.Context, req PropagationRequest, revoke bool, rt hierarchy.ResourceType, batch []store.Document, result *PropagationResult) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i := range batch {
		doc := batch[i]

		if revoke && !doc.SharedWithUser(req.UserID) {
			// Nothing to remove; skip the write entirely.
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			var err error
			if revoke {
				err = p.store.RemoveGrant(ctx, rt, doc.ID, req.UserID)
			} else {
				err = p.store.MergeGrant(ctx, rt, doc.ID, req.UserID, *req.Grant)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.PropagationWrites.WithLabelValues(rt.Collection(), "failure").Inc()
				result.Failed = append(result.Failed, WriteFailure{
					ResourceRef: ResourceRef{Type: rt, ID: doc.ID},
					Err:         err,
				})
				return
			}
			metrics.PropagationWrites.WithLabelValues(rt.Collection(), "success").Inc()
			result.Applied = append(result.Applied, ResourceRef{Type: rt, ID: doc.ID})
		}()
	}

	wg.Wait()
}
