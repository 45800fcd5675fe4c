package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/entity"
)

const (
	DefaultConfidenceThreshold = 60
	DefaultDedupWindow         = 30 * time.Minute

	providerFallback = "fallback"
)

// DedupMode selects how a channel guards against reprocessing.
type DedupMode int

const (
	// DedupWindow skips an event with a success entry inside the window.
	DedupWindow DedupMode = iota
	// DedupClaimed means the caller already holds a processing claim.
	DedupClaimed
)

// ChannelProfile is the per-channel configuration of a pipeline run.
type ChannelProfile struct {
	Channel          entity.Channel
	RuleName         string
	EntityType       string
	SystemPrompt     string
	Fallback         func(raw entity.RawInteraction) *entity.ExtractionResult
	RequireQualified bool
	Dedup            DedupMode
}

// Hooks let a channel attach work around the shared flow. A BeforeExtract
// error aborts the run; AfterUpsert errors are logged only.
type Hooks struct {
	BeforeExtract func(ctx context.Context) error
	AfterUpsert   func(ctx context.Context, lead *entity.Lead, created bool) error
}

// OutcomeRecorder observes terminal outcomes, typically for metrics.
type OutcomeRecorder interface {
	ObserveOutcome(channel entity.Channel, status entity.AutomationStatus)
}

// Pipeline is the capture flow shared by every channel: dedup, extraction
// with fallback, qualification, scoring, upsert, audit and notification.
type Pipeline struct {
	Audit       entity.AutomationLogRepositoryInterface
	Extractor   Extractor
	Upsert      *UpsertLeadUseCase
	Notifier    LeadNotifier
	Recorder    OutcomeRecorder
	Threshold   int
	DedupWindow time.Duration
	Now         func() time.Time
	Log         *zap.Logger
}

func NewPipeline(audit entity.AutomationLogRepositoryInterface, extractor Extractor, upsert *UpsertLeadUseCase, notifier LeadNotifier) *Pipeline {
	return &Pipeline{
		Audit:       audit,
		Extractor:   extractor,
		Upsert:      upsert,
		Notifier:    notifier,
		Threshold:   DefaultConfidenceThreshold,
		DedupWindow: DefaultDedupWindow,
		Now:         time.Now,
		Log:         zap.L(),
	}
}

func (p *Pipeline) Run(ctx context.Context, raw entity.RawInteraction, profile ChannelProfile, hooks Hooks) (*Outcome, error) {
	log := p.logger().With(
		zap.String("channel", string(profile.Channel)),
		zap.String("entity_id", raw.ExternalID),
	)

	if profile.Dedup == DedupWindow {
		dup, err := p.CheckDuplicate(ctx, profile.RuleName, raw.ExternalID)
		if err != nil {
			return nil, err
		}
		if dup {
			out := &Outcome{Status: entity.AutomationSkipped, Reason: "duplicate"}
			p.Record(ctx, profile, raw, out, nil)
			log.Info("duplicate event skipped", zap.String("outcome", string(out.Status)))
			return out, nil
		}
	}

	if hooks.BeforeExtract != nil {
		if err := hooks.BeforeExtract(ctx); err != nil {
			p.Record(ctx, profile, raw, &Outcome{Status: entity.AutomationError}, err)
			return nil, err
		}
	}

	result := p.extract(ctx, raw, profile, log)

	if profile.RequireQualified && !result.Qualifies(p.threshold()) {
		out := &Outcome{Status: entity.AutomationSkipped, Reason: "not a qualified lead", Extraction: result}
		p.Record(ctx, profile, raw, out, nil)
		log.Info("event not qualified",
			zap.String("outcome", string(out.Status)),
			zap.Bool("is_lead", result.IsLead),
			zap.Int("confidence", result.Confidence),
		)
		return out, nil
	}

	lead := p.draftLead(raw, result)
	if !lead.HasIdentity() {
		out := &Outcome{Status: entity.AutomationSkipped, Reason: "no contact identity", Extraction: result}
		p.Record(ctx, profile, raw, out, nil)
		log.Info("event without contact identity", zap.String("outcome", string(out.Status)))
		return out, nil
	}

	upserted, err := p.Upsert.Execute(ctx, UpsertLeadInput{
		Channel:      profile.Channel,
		SourceCode:   profile.Channel.SourceCode(),
		SourceDetail: raw.Detail,
		Lead:         lead,
	})
	if err != nil {
		p.Record(ctx, profile, raw, &Outcome{Status: entity.AutomationError, Extraction: result}, err)
		log.Error("lead upsert failed", zap.Error(err), zap.String("outcome", string(entity.AutomationError)))
		return nil, err
	}

	if hooks.AfterUpsert != nil {
		if err := hooks.AfterUpsert(ctx, upserted.Lead, upserted.Created); err != nil {
			log.Warn("post-upsert step failed", zap.Error(err), zap.String("lead_id", upserted.Lead.ID))
		}
	}

	out := &Outcome{
		Status:     entity.AutomationSuccess,
		LeadID:     upserted.Lead.ID,
		Created:    upserted.Created,
		Extraction: result,
	}
	p.Record(ctx, profile, raw, out, nil)
	log.Info("lead captured",
		zap.String("outcome", string(out.Status)),
		zap.String("lead_id", out.LeadID),
		zap.Bool("created", out.Created),
		zap.String("provider", result.Provider),
	)

	p.Notify(ctx, profile.Channel, upserted.Lead, upserted.Created)
	return out, nil
}

// CheckDuplicate reports a success entry for the key inside the dedup window.
func (p *Pipeline) CheckDuplicate(ctx context.Context, ruleName, entityID string) (bool, error) {
	since := p.now().Add(-p.window())
	dup, err := p.Audit.HasSuccessSince(ctx, ruleName, entityID, since)
	if err != nil {
		return false, eris.Wrapf(err, "check audit log for %s/%s", ruleName, entityID)
	}
	return dup, nil
}

// Record appends a terminal audit entry. Failures are logged only since the
// lead write it describes already happened.
func (p *Pipeline) Record(ctx context.Context, profile ChannelProfile, raw entity.RawInteraction, out *Outcome, cause error) {
	entry := &entity.AutomationLogEntry{
		RuleName:    profile.RuleName,
		EntityType:  profile.EntityType,
		EntityID:    raw.ExternalID,
		LeadID:      out.LeadID,
		Status:      out.Status,
		TriggerData: triggerData(raw, out),
		ExecutedAt:  p.now(),
	}
	if cause != nil {
		entry.ErrorMessage = cause.Error()
	}

	if err := p.Audit.Record(ctx, entry); err != nil {
		p.logger().Error("failed to write audit entry",
			zap.Error(err),
			zap.String("rule", profile.RuleName),
			zap.String("entity_id", raw.ExternalID),
			zap.String("status", string(out.Status)),
		)
	}

	if p.Recorder != nil {
		p.Recorder.ObserveOutcome(profile.Channel, out.Status)
	}
}

// Notify fans the lead out to downstream notifiers on a detached goroutine.
func (p *Pipeline) Notify(ctx context.Context, channel entity.Channel, lead *entity.Lead, created bool) {
	if p.Notifier == nil || lead == nil {
		return
	}

	event := entity.LeadCapturedEvent{
		LeadID:     lead.ID,
		Channel:    channel,
		SourceCode: lead.SourceChannel,
		Created:    created,
		FirstName:  lead.FirstName,
		LastName:   lead.LastName,
		Email:      lead.Email,
		Phone:      lead.Phone,
		Company:    lead.CompanyName,
		Score:      lead.Score,
		Language:   lead.Language,
		OccurredAt: p.now(),
	}

	dispatchNotification(ctx, p.Notifier, event, p.logger())
}

func (p *Pipeline) extract(ctx context.Context, raw entity.RawInteraction, profile ChannelProfile, log *zap.Logger) *entity.ExtractionResult {
	if p.Extractor != nil && strings.TrimSpace(raw.Text) != "" {
		result, err := p.Extractor.Extract(ctx, profile.SystemPrompt, raw.Text)
		if err == nil && result != nil {
			return result
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("extraction unavailable, using fallback", zap.Error(err))
		}
	}

	result := &entity.ExtractionResult{}
	if profile.Fallback != nil {
		if fb := profile.Fallback(raw); fb != nil {
			result = fb
		}
	}
	result.Provider = providerFallback
	return result
}

// draftLead builds the incoming lead from the extraction, falling back to the
// transport's own sender fields.
func (p *Pipeline) draftLead(raw entity.RawInteraction, r *entity.ExtractionResult) entity.Lead {
	lead := entity.Lead{
		FirstName:    strings.TrimSpace(r.FirstName),
		LastName:     strings.TrimSpace(r.LastName),
		Email:        NormalizeEmail(r.Email),
		Phone:        NormalizePhone(r.Phone),
		CompanyName:  strings.TrimSpace(r.CompanyName),
		Notes:        strings.TrimSpace(r.Notes),
		Status:       entity.LeadStatusNew,
		Priority:     r.Priority(),
		Language:     r.Language,
		RawData:      raw.Payload,
		CallID:       raw.CallID,
		CallDuration: raw.CallDuration,
	}
	if r.KnownProjectType() {
		lead.ProjectType = strings.ToLower(strings.TrimSpace(r.ProjectType))
	}
	if r.Provider != providerFallback && lead.Notes != "" {
		lead.LLMSummary = lead.Notes
	}

	if lead.Email == "" {
		lead.Email = NormalizeEmail(raw.SenderEmail)
	}
	if lead.Phone == "" {
		lead.Phone = NormalizePhone(raw.SenderPhone)
	}
	if lead.FirstName == "" && lead.LastName == "" {
		lead.FirstName, lead.LastName = SplitName(raw.SenderName)
	}

	if r.Score > 0 {
		lead.Score = ClampScore(r.Score)
	} else {
		lead.Score = ScoreLead(ScoreInput{
			Email:       lead.Email,
			Phone:       lead.Phone,
			Company:     lead.CompanyName,
			ProjectType: lead.ProjectType,
		}, p.now())
	}

	return lead
}

func triggerData(raw entity.RawInteraction, out *Outcome) map[string]any {
	data := map[string]any{"channel": string(raw.Channel)}
	for k, v := range map[string]string{
		"sender_email": raw.SenderEmail,
		"sender_phone": raw.SenderPhone,
		"subject":      raw.Subject,
		"detail":       raw.Detail,
		"reason":       out.Reason,
	} {
		if v != "" {
			data[k] = v
		}
	}
	if raw.CallDuration > 0 {
		data["call_duration"] = raw.CallDuration
	}
	if out.Extraction != nil {
		data["is_lead"] = out.Extraction.IsLead
		data["confidence"] = out.Extraction.Confidence
		data["provider"] = out.Extraction.Provider
	}
	return data
}

func (p *Pipeline) threshold() int {
	if p.Threshold <= 0 {
		return DefaultConfidenceThreshold
	}
	return p.Threshold
}

func (p *Pipeline) window() time.Duration {
	if p.DedupWindow <= 0 {
		return DefaultDedupWindow
	}
	return p.DedupWindow
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.L()
	}
	return p.Log
}
