package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/entity"
	"github.com/xavierca1/leadcapture/internal/extraction"
)

// ProcessCallUseCase runs one telephony call through the pipeline. The
// entity id is the provider call id; overlapping poll windows are resolved
// by an atomic processing claim taken before extraction.
type ProcessCallUseCase struct {
	Pipeline         *Pipeline
	Audit            entity.AutomationLogRepositoryInterface
	Activities       entity.LeadActivityRepositoryInterface
	InternalPrefixes []string
	Prompt           string
}

func NewProcessCallUseCase(pipeline *Pipeline, audit entity.AutomationLogRepositoryInterface, activities entity.LeadActivityRepositoryInterface, internalPrefixes []string) *ProcessCallUseCase {
	return &ProcessCallUseCase{
		Pipeline:         pipeline,
		Audit:            audit,
		Activities:       activities,
		InternalPrefixes: internalPrefixes,
		Prompt:           extraction.SystemPrompt(entity.ChannelTelephony),
	}
}

func (uc *ProcessCallUseCase) Execute(ctx context.Context, in CallInput) (*Outcome, error) {
	if strings.TrimSpace(in.CallID) == "" {
		return nil, eris.New("call without id")
	}
	in.FromNumber = callerNumber(in.FromNumber)
	in.ToNumber = callerNumber(in.ToNumber)

	raw := uc.rawInteraction(in)
	profile := ChannelProfile{
		Channel:          entity.ChannelTelephony,
		RuleName:         entity.RuleTelephony,
		EntityType:       "call",
		SystemPrompt:     uc.Prompt,
		Fallback:         func(entity.RawInteraction) *entity.ExtractionResult { return CallFallback(in) },
		RequireQualified: true,
		Dedup:            DedupClaimed,
	}

	seen, err := uc.Audit.Exists(ctx, entity.RuleTelephony, in.CallID)
	if err != nil {
		return nil, eris.Wrapf(err, "check audit log for call %s", in.CallID)
	}
	if seen {
		return uc.skip(ctx, profile, raw, "duplicate"), nil
	}

	if reason := uc.ignoreReason(in); reason != "" {
		return uc.skip(ctx, profile, raw, reason), nil
	}

	claimed, err := uc.Audit.Claim(ctx, &entity.AutomationLogEntry{
		RuleName:    entity.RuleTelephony,
		EntityType:  profile.EntityType,
		EntityID:    in.CallID,
		Status:      entity.AutomationProcessing,
		TriggerData: map[string]any{"channel": string(entity.ChannelTelephony), "from": in.FromNumber, "type": in.Type},
		ExecutedAt:  uc.Pipeline.now(),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "claim call %s", in.CallID)
	}
	if !claimed {
		return uc.skip(ctx, profile, raw, "duplicate"), nil
	}

	hooks := Hooks{
		AfterUpsert: func(ctx context.Context, lead *entity.Lead, _ bool) error {
			return recordActivity(ctx, uc.Activities, entity.LeadActivity{
				LeadID:          lead.ID,
				Type:            entity.ChannelTelephony.ActivityType(),
				Subject:         callSubject(in),
				Content:         in.Comment,
				DurationMinutes: (in.Duration + 59) / 60,
				Metadata: map[string]any{
					"call_id":   in.CallID,
					"direction": in.Direction,
					"type":      in.Type,
					"duration":  in.Duration,
				},
				CreatedAt: in.StartedAt,
			})
		},
	}

	return uc.Pipeline.Run(ctx, raw, profile, hooks)
}

func (uc *ProcessCallUseCase) skip(ctx context.Context, profile ChannelProfile, raw entity.RawInteraction, reason string) *Outcome {
	out := &Outcome{Status: entity.AutomationSkipped, Reason: reason}
	uc.Pipeline.Record(ctx, profile, raw, out, nil)
	uc.Pipeline.logger().Debug("call skipped",
		zap.String("channel", string(entity.ChannelTelephony)),
		zap.String("entity_id", raw.ExternalID),
		zap.String("outcome", string(out.Status)),
		zap.String("reason", reason),
	)
	return out
}

// ignoreReason flags calls that never become leads: internal lines and
// withheld caller ids.
func (uc *ProcessCallUseCase) ignoreReason(in CallInput) string {
	number := ExternalParty(in)
	if IsMaskedNumber(number) {
		return "no caller id"
	}
	normalized := NormalizeCallerNumber(number)
	for _, prefix := range uc.InternalPrefixes {
		prefix = NormalizeCallerNumber(prefix)
		if prefix != "" && strings.HasPrefix(normalized, prefix) {
			return "internal number"
		}
	}
	return ""
}

func (uc *ProcessCallUseCase) rawInteraction(in CallInput) entity.RawInteraction {
	payload := in.Raw
	if len(payload) == 0 {
		payload, _ = json.Marshal(in)
	}

	return entity.RawInteraction{
		Channel:      entity.ChannelTelephony,
		ExternalID:   in.CallID,
		Text:         CallMetadataText(in),
		SenderName:   in.ContactName,
		SenderPhone:  ExternalParty(in),
		Detail:       callSubject(in),
		ReceivedAt:   in.StartedAt,
		Payload:      payload,
		CallID:       in.CallID,
		CallDuration: in.Duration,
	}
}

// callerNumber keeps withheld caller ids as reported.
func callerNumber(number string) string {
	if normalized := NormalizeCallerNumber(number); normalized != "" {
		return normalized
	}
	return strings.TrimSpace(number)
}

// ExternalParty is the customer side of the call.
func ExternalParty(in CallInput) string {
	if isOutbound(in.Direction) {
		return in.ToNumber
	}
	return in.FromNumber
}

func isOutbound(direction string) bool {
	switch strings.ToLower(direction) {
	case "out", "outbound", "outgoing":
		return true
	}
	return false
}

// CallMetadataText renders the call for the extraction model.
func CallMetadataText(in CallInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Call id: %s\n", in.CallID)
	fmt.Fprintf(&b, "Direction: %s\n", in.Direction)
	fmt.Fprintf(&b, "Type: %s\n", in.Type)
	fmt.Fprintf(&b, "From: %s\n", in.FromNumber)
	fmt.Fprintf(&b, "To: %s\n", in.ToNumber)
	fmt.Fprintf(&b, "Duration: %d seconds\n", in.Duration)
	if !in.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Started at: %s\n", in.StartedAt.Format("2006-01-02 15:04"))
	}
	if in.ContactName != "" {
		fmt.Fprintf(&b, "Known contact: %s\n", in.ContactName)
	}
	if len(in.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(in.Tags, ", "))
	}
	if in.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", in.Comment)
	}
	return b.String()
}

func callSubject(in CallInput) string {
	direction := "inbound"
	if isOutbound(in.Direction) {
		direction = "outbound"
	}
	if in.Missed() {
		return fmt.Sprintf("Missed %s call (%ds)", direction, in.Duration)
	}
	return fmt.Sprintf("%s call (%ds)", strings.ToUpper(direction[:1])+direction[1:], in.Duration)
}

// CallFallback applies the duration heuristics when no provider answered.
func CallFallback(in CallInput) *entity.ExtractionResult {
	number := ExternalParty(in)
	if IsMaskedNumber(number) {
		return &entity.ExtractionResult{IsLead: false, Confidence: 90, Urgency: entity.UrgencyLow}
	}

	first, last := SplitName(in.ContactName)
	result := &entity.ExtractionResult{
		IsLead:      in.Duration > 10,
		FirstName:   first,
		LastName:    last,
		Phone:       number,
		ProjectType: entity.ProjectTypeUnknown,
		Notes:       strings.TrimSpace(in.Comment),
		Urgency:     entity.UrgencyMedium,
	}

	if result.IsLead {
		result.Confidence = DefaultConfidenceThreshold
	} else {
		result.Confidence = 30
	}
	if in.Missed() && result.IsLead {
		result.Urgency = entity.UrgencyHigh
	}

	return result
}
