package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

// UpsertLeadUseCase finds or creates a lead by contact identity and applies
// the trust-aware merge policy.
type UpsertLeadUseCase struct {
	Leads   entity.LeadRepositoryInterface
	Sources entity.LeadSourceRepositoryInterface
	Now     func() time.Time
}

func NewUpsertLeadUseCase(leads entity.LeadRepositoryInterface, sources entity.LeadSourceRepositoryInterface) *UpsertLeadUseCase {
	return &UpsertLeadUseCase{Leads: leads, Sources: sources, Now: time.Now}
}

func (uc *UpsertLeadUseCase) Execute(ctx context.Context, input UpsertLeadInput) (*UpsertLeadOutput, error) {
	incoming := input.Lead
	incoming.Email = NormalizeEmail(incoming.Email)
	incoming.Phone = NormalizePhone(incoming.Phone)
	if !incoming.HasIdentity() {
		return nil, entity.ErrMissingIdentity
	}

	sourceCode := input.SourceCode
	if sourceCode == "" {
		sourceCode = input.Channel.SourceCode()
	}

	existing, err := uc.find(ctx, incoming.Email, incoming.Phone)
	if err != nil {
		return nil, err
	}

	now := uc.Now()

	if existing != nil {
		if input.Channel.LowTrust() {
			if err := uc.Leads.UpdateChannelMetadata(ctx, existing.ID, sourceCode, input.SourceDetail); err != nil {
				return nil, eris.Wrapf(err, "update channel metadata of lead %s", existing.ID)
			}
			existing.SourceChannel = sourceCode
			existing.SourceDetail = input.SourceDetail
			existing.UpdatedAt = now
			return &UpsertLeadOutput{Lead: existing, Created: false}, nil
		}

		mergeLead(existing, &incoming)
		existing.SourceChannel = sourceCode
		existing.SourceDetail = input.SourceDetail
		existing.UpdatedAt = now
		if err := uc.Leads.Update(ctx, existing); err != nil {
			return nil, eris.Wrapf(err, "update lead %s", existing.ID)
		}
		return &UpsertLeadOutput{Lead: existing, Created: false}, nil
	}

	source, err := uc.Sources.GetOrCreate(ctx, sourceCode, input.Channel.SourceName(), input.Channel.SourceType())
	if err != nil {
		return nil, eris.Wrapf(err, "resolve lead source %s", sourceCode)
	}

	lead := incoming
	lead.ID = uuid.New().String()
	lead.SourceID = source.ID
	lead.SourceChannel = sourceCode
	lead.SourceDetail = input.SourceDetail
	if lead.Status == "" {
		lead.Status = entity.LeadStatusNew
	}
	if lead.FirstName == "" && lead.LastName == "" {
		lead.FirstName = fallbackFirstName(lead)
	}
	lead.Score = ClampScore(lead.Score)
	lead.CreatedAt = now
	lead.UpdatedAt = now

	if err := uc.Leads.Create(ctx, &lead); err != nil {
		if errors.Is(err, entity.ErrConflict) && !input.retried {
			input.retried = true
			return uc.Execute(ctx, input)
		}
		return nil, eris.Wrap(err, "create lead")
	}

	return &UpsertLeadOutput{Lead: &lead, Created: true}, nil
}

// find looks a lead up by email first, then by phone.
func (uc *UpsertLeadUseCase) find(ctx context.Context, email, phone string) (*entity.Lead, error) {
	if email != "" {
		lead, err := uc.Leads.FindByEmail(ctx, email)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, entity.ErrNotFound) {
			return nil, eris.Wrap(err, "find lead by email")
		}
	}

	if phone != "" {
		lead, err := uc.Leads.FindByPhone(ctx, phone)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, entity.ErrNotFound) {
			return nil, eris.Wrap(err, "find lead by phone")
		}
	}

	return nil, nil
}

// mergeLead folds a high-trust event into an existing record. Blank contact
// fields are filled, never overwritten.
func mergeLead(dst, src *entity.Lead) {
	fillBlank(&dst.FirstName, src.FirstName)
	fillBlank(&dst.LastName, src.LastName)
	fillBlank(&dst.Email, src.Email)
	fillBlank(&dst.Phone, src.Phone)
	fillBlank(&dst.CompanyName, src.CompanyName)
	fillBlank(&dst.Language, src.Language)

	if src.ProjectType != "" && src.ProjectType != entity.ProjectTypeUnknown {
		if dst.ProjectType == "" || dst.ProjectType == entity.ProjectTypeUnknown {
			dst.ProjectType = src.ProjectType
		}
	}

	if note := strings.TrimSpace(src.Notes); note != "" && !strings.Contains(dst.Notes, note) {
		if dst.Notes == "" {
			dst.Notes = note
		} else {
			dst.Notes = dst.Notes + "\n\n" + note
		}
	}

	if src.Score > dst.Score {
		dst.Score = ClampScore(src.Score)
	}
	if src.Priority == entity.UrgencyHigh {
		dst.Priority = src.Priority
	} else if dst.Priority == "" {
		dst.Priority = src.Priority
	}
	if src.EstimatedValue > dst.EstimatedValue {
		dst.EstimatedValue = src.EstimatedValue
	}
	if dst.EventDate == nil && src.EventDate != nil {
		dst.EventDate = src.EventDate
	}

	if len(src.RawData) > 0 {
		dst.RawData = src.RawData
	}
	if src.LLMSummary != "" {
		dst.LLMSummary = src.LLMSummary
	}
	if src.CallID != "" {
		dst.CallID = src.CallID
		dst.CallDuration = src.CallDuration
	}
}

func fillBlank(dst *string, value string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

// fallbackFirstName keeps first_name populated when nothing better is known.
func fallbackFirstName(lead entity.Lead) string {
	if lead.Email != "" {
		return strings.SplitN(lead.Email, "@", 2)[0]
	}
	return lead.Phone
}
