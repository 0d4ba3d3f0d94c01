package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/database/testutil"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/internal/permissions"
	"github.com/ascendhq/ascend/internal/store"
	"github.com/ascendhq/ascend/pkg/mail"
)

// fakeMailer records outbound messages instead of delivering them.
type fakeMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *fakeMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

type testEnv struct {
	db        *gorm.DB
	store     *store.GormStore
	access    *AccessService
	sharing   *SharingService
	resources *ResourceService
	users     *UserService
	mailer    *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	st, err := store.NewGormStore(db)
	require.NoError(t, err)

	access, err := NewAccessService(st)
	require.NoError(t, err)

	propagator, err := permissions.NewPropagator(st)
	require.NoError(t, err)

	mailer := &fakeMailer{}
	notifier, err := NewShareNotifier(mailer)
	require.NoError(t, err)

	sharing, err := NewSharingService(db, st, access, propagator, notifier)
	require.NoError(t, err)

	resources, err := NewResourceService(db, access)
	require.NoError(t, err)

	users, err := NewUserService(db)
	require.NoError(t, err)

	return &testEnv{
		db:        db,
		store:     st,
		access:    access,
		sharing:   sharing,
		resources: resources,
		users:     users,
		mailer:    mailer,
	}
}

// createUser inserts an account directly, skipping the registration path so
// fixtures stay cheap.
func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
		IsActive: true,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

// fixture is an owner plus a small containment tree rooted at one area.
type fixture struct {
	owner     *models.User
	area      *models.Area
	goal      *models.Goal
	milestone *models.Milestone
	task      *models.Task
	routine   *models.Routine
}

func (e *testEnv) createFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	owner := e.createUser(t, "owner")

	area, err := e.resources.CreateArea(ctx, owner.ID, CreateAreaInput{Name: "Health"})
	require.NoError(t, err)

	goal, err := e.resources.CreateGoal(ctx, owner.ID, CreateGoalInput{AreaID: area.ID, Name: "Run a marathon"})
	require.NoError(t, err)

	milestone, err := e.resources.CreateMilestone(ctx, owner.ID, CreateMilestoneInput{GoalID: goal.ID, Name: "Half marathon"})
	require.NoError(t, err)

	task, err := e.resources.CreateTask(ctx, owner.ID, CreateTaskInput{GoalID: goal.ID, MilestoneID: &milestone.ID, Title: "Sign up for race"})
	require.NoError(t, err)

	routine, err := e.resources.CreateRoutine(ctx, owner.ID, CreateRoutineInput{GoalID: goal.ID, Name: "Morning run", Cadence: "daily"})
	require.NoError(t, err)

	return fixture{owner: owner, area: area, goal: goal, milestone: milestone, task: task, routine: routine}
}
