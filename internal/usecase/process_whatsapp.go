package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
	"github.com/xavierca1/leadcapture/internal/extraction"
)

// OutcomeIgnored is returned for payloads the channel does not analyze. It is
// never written to the audit log.
const OutcomeIgnored entity.AutomationStatus = "ignored"

// ProcessWhatsAppMessageUseCase handles one inbound messaging payload. The
// entity id is the provider message id. There is no qualification threshold:
// anyone writing to the business number is a lead.
type ProcessWhatsAppMessageUseCase struct {
	Pipeline   *Pipeline
	Messages   entity.WhatsAppMessageRepositoryInterface
	Activities entity.LeadActivityRepositoryInterface
	Prompt     string
}

func NewProcessWhatsAppMessageUseCase(pipeline *Pipeline, messages entity.WhatsAppMessageRepositoryInterface, activities entity.LeadActivityRepositoryInterface) *ProcessWhatsAppMessageUseCase {
	return &ProcessWhatsAppMessageUseCase{
		Pipeline:   pipeline,
		Messages:   messages,
		Activities: activities,
		Prompt:     extraction.SystemPrompt(entity.ChannelMessaging),
	}
}

func (uc *ProcessWhatsAppMessageUseCase) Execute(ctx context.Context, in WhatsAppInput) (*Outcome, error) {
	if in.Type != "text" || strings.TrimSpace(in.Text) == "" {
		return &Outcome{Status: OutcomeIgnored, Reason: "non-text message"}, nil
	}
	if strings.TrimSpace(in.MessageID) == "" {
		return nil, eris.New("message without id")
	}

	phone := waPhone(in.From)

	raw := entity.RawInteraction{
		Channel:     entity.ChannelMessaging,
		ExternalID:  in.MessageID,
		Text:        in.Text,
		SenderName:  in.ProfileName,
		SenderPhone: phone,
		Detail:      "WhatsApp " + phone,
		ReceivedAt:  in.Timestamp,
		Payload:     in.Raw,
	}

	profile := ChannelProfile{
		Channel:      entity.ChannelMessaging,
		RuleName:     entity.RuleMessaging,
		EntityType:   "whatsapp_message",
		SystemPrompt: uc.Prompt,
		Fallback:     MessagingFallback,
		Dedup:        DedupWindow,
	}

	msg := &entity.WhatsAppMessage{
		ID:          uuid.New().String(),
		Phone:       phone,
		Direction:   "inbound",
		MessageType: in.Type,
		Content:     in.Text,
		ExternalID:  in.MessageID,
		Status:      "received",
		Metadata:    map[string]any{"profile_name": in.ProfileName},
		CreatedAt:   in.Timestamp,
	}

	hooks := Hooks{
		BeforeExtract: func(ctx context.Context) error {
			if uc.Messages == nil {
				return nil
			}
			return eris.Wrapf(uc.Messages.Create(ctx, msg), "store message %s", in.MessageID)
		},
		AfterUpsert: func(ctx context.Context, lead *entity.Lead, _ bool) error {
			if err := recordActivity(ctx, uc.Activities, entity.LeadActivity{
				LeadID:    lead.ID,
				Type:      entity.ChannelMessaging.ActivityType(),
				Subject:   "WhatsApp message",
				Content:   in.Text,
				Metadata:  map[string]any{"message_id": in.MessageID},
				CreatedAt: in.Timestamp,
			}); err != nil {
				return err
			}
			if uc.Messages == nil {
				return nil
			}
			return eris.Wrapf(uc.Messages.MarkProcessed(ctx, msg.ID, lead.ID), "mark message %s processed", in.MessageID)
		},
	}

	return uc.Pipeline.Run(ctx, raw, profile, hooks)
}

// MessagingFallback keeps the sender as a lead when no provider answered.
func MessagingFallback(raw entity.RawInteraction) *entity.ExtractionResult {
	first, last := SplitName(raw.SenderName)
	return &entity.ExtractionResult{
		IsLead:      true,
		Confidence:  50,
		FirstName:   first,
		LastName:    last,
		Phone:       raw.SenderPhone,
		ProjectType: entity.ProjectTypeUnknown,
		Notes:       truncate(strings.TrimSpace(raw.Text), 500),
		Urgency:     entity.UrgencyMedium,
	}
}

// waPhone turns the provider's bare international digits into +E.164.
func waPhone(from string) string {
	phone := NormalizePhone(from)
	if phone != "" && !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}
