package usecase

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/entity"
)

var originSlug = regexp.MustCompile(`[^a-z0-9]+`)

// SubmitWebFormUseCase is the synchronous web-form path. The score is
// computed in-process from the structured fields and the entity id is the
// submitted email.
type SubmitWebFormUseCase struct {
	Pipeline   *Pipeline
	Activities entity.LeadActivityRepositoryInterface
	Resolver   *FieldResolver
}

func NewSubmitWebFormUseCase(pipeline *Pipeline, activities entity.LeadActivityRepositoryInterface) *SubmitWebFormUseCase {
	return &SubmitWebFormUseCase{
		Pipeline:   pipeline,
		Activities: activities,
		Resolver:   NewFieldResolver(),
	}
}

func (uc *SubmitWebFormUseCase) Execute(ctx context.Context, input WebFormInput) (*WebFormOutput, error) {
	form := uc.Resolver.Resolve(input.Fields)

	validationErrors := ValidateWebForm(form)
	if len(validationErrors) > 0 {
		errMsg := "validation failed: "
		for _, e := range validationErrors {
			errMsg += e.Field + " (" + e.Message + "), "
		}
		return nil, &DomainError{
			Code:    "VALIDATION_ERROR",
			Message: strings.TrimSuffix(errMsg, ", "),
		}
	}

	email := NormalizeEmail(form.Email)
	p := uc.Pipeline

	notes := form.Message
	if phone := dropInvalidPhone(&form); phone != "" {
		p.logger().Info("unparsable web form phone kept in notes",
			zap.String("entity_id", email),
			zap.String("phone", phone),
		)
		notes = strings.TrimSpace(notes + "\n\nPhone (as submitted): " + phone)
	}

	raw := entity.RawInteraction{
		Channel:     entity.ChannelWebForm,
		ExternalID:  email,
		Text:        form.Message,
		SenderEmail: email,
		SenderPhone: form.Phone,
		Detail:      input.Origin,
		ReceivedAt:  p.now(),
		Payload:     input.Raw,
	}
	profile := ChannelProfile{
		Channel:    entity.ChannelWebForm,
		RuleName:   entity.RuleWebForm,
		EntityType: "form_submission",
		Dedup:      DedupWindow,
	}

	dup, err := p.CheckDuplicate(ctx, entity.RuleWebForm, email)
	if err != nil {
		return nil, persistenceError("failed to check previous submissions", err)
	}
	if dup {
		out := &Outcome{Status: entity.AutomationSkipped, Reason: "duplicate submission"}
		p.Record(ctx, profile, raw, out, nil)
		p.logger().Info("duplicate web form submission",
			zap.String("channel", string(entity.ChannelWebForm)),
			zap.String("entity_id", email),
			zap.String("outcome", string(out.Status)),
		)
		return &WebFormOutput{Success: true, Skipped: true, Reason: out.Reason}, nil
	}

	score := ScoreLead(ScoreInput{
		Budget:      form.Budget,
		EventDate:   form.EventDate,
		Email:       email,
		Phone:       form.Phone,
		Company:     form.Company,
		ProjectType: form.ProjectType,
	}, p.now())

	lead := entity.Lead{
		FirstName:      form.FirstName,
		LastName:       form.LastName,
		Email:          email,
		Phone:          form.Phone,
		CompanyName:    form.Company,
		Notes:          notes,
		Status:         entity.LeadStatusNew,
		Priority:       priorityForScore(score),
		Score:          score,
		EstimatedValue: form.Budget,
		EventDate:      form.EventDate,
		RawData:        input.Raw,
	}
	if form.ProjectType != "" && form.ProjectType != entity.ProjectTypeUnknown {
		lead.ProjectType = form.ProjectType
	}

	upserted, err := p.Upsert.Execute(ctx, UpsertLeadInput{
		Channel:      entity.ChannelWebForm,
		SourceCode:   webFormSourceCode(input.Origin),
		SourceDetail: input.Origin,
		Lead:         lead,
	})
	if err != nil {
		p.Record(ctx, profile, raw, &Outcome{Status: entity.AutomationError}, err)
		return nil, persistenceError("failed to save lead", err)
	}

	if err := recordActivity(ctx, uc.Activities, entity.LeadActivity{
		LeadID:   upserted.Lead.ID,
		Type:     entity.ChannelWebForm.ActivityType(),
		Subject:  "Web form submission",
		Content:  form.Message,
		Metadata: map[string]any{"origin": input.Origin, "score": score},
	}); err != nil {
		p.logger().Warn("failed to record web form activity", zap.Error(err), zap.String("lead_id", upserted.Lead.ID))
	}

	out := &Outcome{Status: entity.AutomationSuccess, LeadID: upserted.Lead.ID, Created: upserted.Created}
	p.Record(ctx, profile, raw, out, nil)
	p.Notify(ctx, entity.ChannelWebForm, upserted.Lead, upserted.Created)

	return &WebFormOutput{Success: true, LeadID: upserted.Lead.ID, Score: score}, nil
}

// webFormSourceCode registers one source per form origin.
func webFormSourceCode(origin string) string {
	base := entity.ChannelWebForm.SourceCode()
	slug := strings.Trim(originSlug.ReplaceAllString(strings.ToLower(origin), "_"), "_")
	if slug == "" {
		return base
	}
	return base + "_" + slug
}

func priorityForScore(score int) string {
	switch {
	case score >= 4:
		return entity.UrgencyHigh
	case score <= 2:
		return entity.UrgencyLow
	default:
		return entity.UrgencyMedium
	}
}
