package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
	"github.com/xavierca1/leadcapture/internal/extraction"
)

const maxEmailBody = 8000

var leadKeywords = []string{
	"devis", "quote", "quotation", "projet", "project", "budget", "event",
	"événement", "evenement", "tarif", "prix", "price", "offre", "proposal",
	"location", "réservation", "reservation", "collaboration",
}

var automatedSenders = []string{"noreply", "no-reply", "donotreply", "do-not-reply", "mailer-daemon", "postmaster", "notifications@"}

// ProcessEmailUseCase runs one inbound email through the capture pipeline.
// The entity id is the message id.
type ProcessEmailUseCase struct {
	Pipeline   *Pipeline
	Activities entity.LeadActivityRepositoryInterface
	Prompt     string
}

func NewProcessEmailUseCase(pipeline *Pipeline, activities entity.LeadActivityRepositoryInterface) *ProcessEmailUseCase {
	return &ProcessEmailUseCase{
		Pipeline:   pipeline,
		Activities: activities,
		Prompt:     extraction.SystemPrompt(entity.ChannelEmail),
	}
}

func (uc *ProcessEmailUseCase) Execute(ctx context.Context, in EmailInput) (*Outcome, error) {
	if strings.TrimSpace(in.MessageID) == "" {
		return nil, eris.New("email without message id")
	}

	payload, _ := json.Marshal(map[string]any{
		"message_id":  in.MessageID,
		"from":        in.FromAddress,
		"from_name":   in.FromName,
		"subject":     in.Subject,
		"received_at": in.ReceivedAt,
	})

	raw := entity.RawInteraction{
		Channel:     entity.ChannelEmail,
		ExternalID:  in.MessageID,
		Text:        emailContent(in),
		SenderName:  in.FromName,
		SenderEmail: in.FromAddress,
		Subject:     in.Subject,
		Detail:      truncate(in.Subject, 255),
		ReceivedAt:  in.ReceivedAt,
		Payload:     payload,
	}

	profile := ChannelProfile{
		Channel:          entity.ChannelEmail,
		RuleName:         entity.RuleEmail,
		EntityType:       "email",
		SystemPrompt:     uc.Prompt,
		Fallback:         EmailFallback,
		RequireQualified: true,
		Dedup:            DedupWindow,
	}

	hooks := Hooks{
		AfterUpsert: func(ctx context.Context, lead *entity.Lead, _ bool) error {
			return recordActivity(ctx, uc.Activities, entity.LeadActivity{
				LeadID:  lead.ID,
				Type:    entity.ChannelEmail.ActivityType(),
				Subject: in.Subject,
				Content: in.Body,
				Metadata: map[string]any{
					"message_id": in.MessageID,
					"from":       in.FromAddress,
				},
				CreatedAt: in.ReceivedAt,
			})
		},
	}

	return uc.Pipeline.Run(ctx, raw, profile, hooks)
}

func emailContent(in EmailInput) string {
	var b strings.Builder
	if in.FromName != "" {
		fmt.Fprintf(&b, "From: %s <%s>\n", in.FromName, in.FromAddress)
	} else {
		fmt.Fprintf(&b, "From: %s\n", in.FromAddress)
	}
	fmt.Fprintf(&b, "Subject: %s\n\n", in.Subject)
	b.WriteString(truncate(strings.TrimSpace(in.Body), maxEmailBody))
	return b.String()
}

// EmailFallback is the keyword heuristic used when no provider answered.
func EmailFallback(raw entity.RawInteraction) *entity.ExtractionResult {
	sender := strings.ToLower(raw.SenderEmail)
	for _, s := range automatedSenders {
		if strings.Contains(sender, s) {
			return &entity.ExtractionResult{IsLead: false, Confidence: 90, Urgency: entity.UrgencyLow}
		}
	}

	first, last := SplitName(raw.SenderName)
	result := &entity.ExtractionResult{
		FirstName:   first,
		LastName:    last,
		Email:       raw.SenderEmail,
		ProjectType: entity.ProjectTypeUnknown,
		Urgency:     entity.UrgencyMedium,
		Confidence:  20,
	}

	text := strings.ToLower(raw.Subject + " " + raw.Text)
	for _, kw := range leadKeywords {
		if strings.Contains(text, kw) {
			result.IsLead = true
			result.Confidence = DefaultConfidenceThreshold
			result.Notes = truncate(strings.TrimSpace(raw.Subject), 255)
			break
		}
	}

	return result
}
