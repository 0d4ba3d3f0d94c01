package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ascendhq/ascend/internal/hierarchy"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/logger"
	"github.com/ascendhq/ascend/pkg/mail"
	"github.com/ascendhq/ascend/pkg/metrics"
)

// ShareNotification carries the details of a grant worth telling the
// recipient about: who shared, what was shared, and the full permission
// record that was granted.
type ShareNotification struct {
	RecipientEmail string
	RecipientName  string
	GranterName    string
	GranterEmail   string
	ResourceType   hierarchy.ResourceType
	ResourceID     string
	ResourceName   string
	Grant          models.HierarchicalPermissions
}

// ShareNotifier emails collaborators when a resource is shared with them.
// Delivery is best effort; failures are logged and counted, never surfaced to
// the sharing flow.
type ShareNotifier struct {
	mailer mail.Mailer
	log    *zap.Logger
}

// NewShareNotifier constructs a notifier over the supplied mailer.
func NewShareNotifier(mailer mail.Mailer) (*ShareNotifier, error) {
	if mailer == nil {
		return nil, errors.New("share notifier: mailer is required")
	}
	return &ShareNotifier{
		mailer: mailer,
		log:    logger.WithModule("notifier"),
	}, nil
}

// NotifyShared sends the share email. SMTP being disabled is not a failure.
func (n *ShareNotifier) NotifyShared(ctx context.Context, notification ShareNotification) {
	if notification.RecipientEmail == "" {
		return
	}

	subject := fmt.Sprintf("%s shared a %s with you", notification.GranterName, notification.ResourceType)

	var extras string
	if len(notification.Grant.SpecificOverrides) > 0 {
		granted := make([]string, 0, len(notification.Grant.SpecificOverrides))
		for capability, allowed := range notification.Grant.SpecificOverrides {
			if allowed {
				granted = append(granted, capability)
			}
		}
		sort.Strings(granted)
		if len(granted) > 0 {
			extras = fmt.Sprintf(" with additional permissions: %s", strings.Join(granted, ", "))
		}
	}

	body := fmt.Sprintf(
		"Hi %s,\n\n%s (%s) has given you %s access%s to the %s %q.\n\nSign in to see it in your shared resources (reference: %s/%s).\n",
		notification.RecipientName,
		notification.GranterName,
		notification.GranterEmail,
		notification.Grant.Level,
		extras,
		notification.ResourceType,
		notification.ResourceName,
		notification.ResourceType,
		notification.ResourceID,
	)

	err := n.mailer.Send(ctx, mail.Message{
		To:      []string{notification.RecipientEmail},
		Subject: subject,
		Body:    body,
	})
	switch {
	case errors.Is(err, mail.ErrSMTPDisabled):
		return
	case err != nil:
		metrics.ShareNotifications.WithLabelValues("failure").Inc()
		n.log.Warn("share notification failed",
			zap.String("recipient", notification.RecipientEmail),
			zap.String("resource_type", string(notification.ResourceType)),
			zap.Error(err),
		)
	default:
		metrics.ShareNotifications.WithLabelValues("success").Inc()
	}
}
