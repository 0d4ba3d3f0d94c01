package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/mail"
)

func TestNotifySharedCarriesFullGrantDetails(t *testing.T) {
	mailer := &fakeMailer{}
	notifier, err := NewShareNotifier(mailer)
	require.NoError(t, err)

	notifier.NotifyShared(context.Background(), ShareNotification{
		RecipientEmail: "frodo@example.com",
		RecipientName:  "Frodo",
		GranterName:    "Sam",
		GranterEmail:   "sam@example.com",
		ResourceType:   hierarchy.TypeGoal,
		ResourceID:     "goal-1",
		ResourceName:   "Run a marathon",
		Grant: models.HierarchicalPermissions{
			Level: models.LevelViewer,
			SpecificOverrides: models.SpecificOverrides{
				models.CapabilityEditTasks: true,
				models.CapabilityInvite:    false,
			},
		},
	})

	sent := mailer.sent()
	require.Len(t, sent, 1)
	require.Equal(t, []string{"frodo@example.com"}, sent[0].To)
	require.Contains(t, sent[0].Subject, "Sam")

	body := sent[0].Body
	require.Contains(t, body, "sam@example.com")
	require.Contains(t, body, "viewer")
	require.Contains(t, body, "Run a marathon")
	require.Contains(t, body, "goal/goal-1")
	// Only capabilities granted on top of the level are called out.
	require.Contains(t, body, "edit_tasks")
	require.NotContains(t, body, "invite")
}

func TestNotifySharedSkipsEmptyRecipient(t *testing.T) {
	mailer := &fakeMailer{}
	notifier, err := NewShareNotifier(mailer)
	require.NoError(t, err)

	notifier.NotifyShared(context.Background(), ShareNotification{RecipientName: "Frodo"})
	require.Empty(t, mailer.sent())
}

func TestNotifySharedIgnoresDisabledSMTP(t *testing.T) {
	mailer := &fakeMailer{err: mail.ErrSMTPDisabled}
	notifier, err := NewShareNotifier(mailer)
	require.NoError(t, err)

	notifier.NotifyShared(context.Background(), ShareNotification{
		RecipientEmail: "frodo@example.com",
		RecipientName:  "Frodo",
	})
	require.Empty(t, mailer.sent())
}
