package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/logger"
)

const defaultSweepSchedule = "@hourly"

// SweepStats reports what one consistency sweep touched.
type SweepStats struct {
	Scanned  int
	Repaired int
}

// Sweeper periodically reconciles the denormalized sharing state across all
// shareable collections: the membership list must mirror the grant map's key
// set, and persisted grants must not carry inherited-from markers. Both can
// drift when a partial propagation leaves descendants half-written.
type Sweeper struct {
	db       *gorm.DB
	cron     *cron.Cron
	schedule string
	log      *zap.Logger
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the sweep.
func WithSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults.
func NewSweeper(db *gorm.DB, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		db:       db,
		schedule: defaultSweepSchedule,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the sweep with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.db == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		stats, err := s.RunOnce(context.Background())
		if err != nil {
			s.log.Warn("share consistency sweep failed", zap.Error(err))
			return
		}
		if stats.Repaired > 0 {
			s.log.Info("share consistency sweep repaired records",
				zap.Int("scanned", stats.Scanned),
				zap.Int("repaired", stats.Repaired),
			)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce sweeps every collection sequentially and aggregates failures.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepStats, error) {
	if s.db == nil {
		return SweepStats{}, errors.New("sweeper: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := SweepStats{}
	var errs error

	for _, rt := range hierarchy.Types() {
		scanned, repaired, err := s.sweepCollection(ctx, rt)
		stats.Scanned += scanned
		stats.Repaired += repaired
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sweep %s: %w", rt.Collection(), err))
		}
	}

	return stats, errs
}

type sharingRow struct {
	ID          string                            `gorm:"column:id"`
	SharedWith  datatypes.JSONSlice[string]       `gorm:"column:shared_with"`
	Permissions datatypes.JSONType[models.PermissionMap] `gorm:"column:permissions"`
}

func (s *Sweeper) sweepCollection(ctx context.Context, rt hierarchy.ResourceType) (scanned, repaired int, err error) {
	var rows []sharingRow
	if err := s.db.WithContext(ctx).
		Table(rt.Collection()).
		Select("id", "shared_with", "permissions").
		Find(&rows).Error; err != nil {
		return 0, 0, err
	}

	var errs error
	for i := range rows {
		scanned++

		perms := rows[i].Permissions.Data()
		if perms == nil {
			perms = models.PermissionMap{}
		}

		dirty := false
		for userID, grant := range perms {
			if grant.InheritedFrom != nil {
				grant.InheritedFrom = nil
				perms[userID] = grant
				dirty = true
			}
		}

		expected := make([]string, 0, len(perms))
		for userID := range perms {
			expected = append(expected, userID)
		}
		sort.Strings(expected)

		if !sameMembers(rows[i].SharedWith, expected) {
			dirty = true
		}

		if !dirty {
			continue
		}

		updates := map[string]any{
			"shared_with": datatypes.JSONSlice[string](expected),
			"permissions": datatypes.NewJSONType(perms),
		}
		if err := s.db.WithContext(ctx).
			Table(rt.Collection()).
			Where("id = ?", rows[i].ID).
			Updates(updates).Error; err != nil {
			errs = multierr.Append(errs, fmt.Errorf("repair %s: %w", rows[i].ID, err))
			continue
		}
		repaired++
	}

	return scanned, repaired, errs
}

// sameMembers compares the membership list with the expected key set,
// ignoring order.
func sameMembers(actual []string, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	seen := make(map[string]struct{}, len(actual))
	for _, id := range actual {
		seen[id] = struct{}{}
	}
	if len(seen) != len(expected) {
		return false
	}
	for _, id := range expected {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
