package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
)

// SlackReviewNotifier posts cases that need a clinician's review to a Slack channel.
// Messages carry the triage summary only; the patient's own words are never posted.
type SlackReviewNotifier struct {
	api       *slack.Client
	channelID string
}

// NewSlackReviewNotifier creates a notifier from config. Extra options are passed to slack.New.
func NewSlackReviewNotifier(cfg config.SlackConfig, opts ...slack.Option) (*SlackReviewNotifier, error) {
	if cfg.BotToken == "" || cfg.ReviewChannel == "" {
		return nil, errors.New("SLACK_BOT_TOKEN and SLACK_REVIEW_CHANNEL must be set")
	}
	return &SlackReviewNotifier{
		api:       slack.New(cfg.BotToken, opts...),
		channelID: cfg.ReviewChannel,
	}, nil
}

// NotifyReview posts one review request.
func (n *SlackReviewNotifier) NotifyReview(ctx context.Context, outcome *entities.CaseOutcome) error {
	if outcome == nil {
		return errors.New("case outcome is nil")
	}

	blocks := reviewBlocks(outcome)
	_, ts, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionText(reviewSummary(outcome), false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("failed to post review notification: %w", err)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("channel", n.channelID).
		Str("ts", ts).
		Msg("Review notification sent")
	return nil
}

func reviewSummary(outcome *entities.CaseOutcome) string {
	return fmt.Sprintf("Case %s needs human review (%s)", outcome.CaseID, outcome.Status)
}

func reviewBlocks(outcome *entities.CaseOutcome) []slack.Block {
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Status*\n%s", outcome.Status), false, false),
	}
	if outcome.UrgencyLevel > 0 {
		fields = append(fields,
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Urgency*\n%d (%s)", outcome.UrgencyLevel, outcome.CareType), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Specialty*\n%s", outcome.Specialty), false, false),
		)
	}
	if p := outcome.RecommendedProvider; p != nil {
		fields = append(fields,
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Provider*\n%s (%s)", p.Name, p.ProviderID), false, false),
		)
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Case "+outcome.CaseID+" needs review", false, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}

	var lines []string
	for _, r := range outcome.Reasons {
		lines = append(lines, "• "+r)
	}
	if len(outcome.RedFlags) > 0 {
		lines = append(lines, "*Red flags:* "+strings.Join(outcome.RedFlags, ", "))
	}
	if len(lines) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(lines, "\n"), false, false), nil, nil,
		))
	}
	return blocks
}
