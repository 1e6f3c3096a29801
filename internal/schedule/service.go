package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tavolo/restaurant-reservation/internal/metrics"
	"github.com/tavolo/restaurant-reservation/internal/model"
)

// Service is the engine's entry point for staff and customer callers: it
// composes the generator and resolver into the availability pipeline and
// owns the template/policy/exception mutations, auditing each one.
type Service struct {
	versions   VersionStore
	templates  TemplateStore
	policies   PolicyStore
	exceptions ExceptionStore
	gen        *Generator
	res        *Resolver
	audit      Auditor
	log        zerolog.Logger
}

// NewService wires the engine together.  audit may be nil, in which case
// mutations are not audited (useful in tests).
func NewService(
	versions VersionStore,
	templates TemplateStore,
	policies PolicyStore,
	exceptions ExceptionStore,
	counter ReservationCounter,
	audit Auditor,
	log zerolog.Logger,
) *Service {
	return &Service{
		versions:   versions,
		templates:  templates,
		policies:   policies,
		exceptions: exceptions,
		gen:        NewGenerator(templates, policies, exceptions),
		res:        NewResolver(counter),
		audit:      audit,
		log:        log.With().Str("component", "schedule").Logger(),
	}
}

// WeeklyTemplate returns the full week of template entries for a service
// version, closed defaults included.
func (s *Service) WeeklyTemplate(ctx context.Context, serviceVersionID uint64) ([]model.TemplateDay, error) {
	if _, err := s.versions.GetByID(ctx, serviceVersionID); err != nil {
		return nil, err
	}
	return s.templates.GetWeek(ctx, serviceVersionID)
}

// AvailableSlots runs the full availability pipeline for one date:
// generation from the stored configuration, then enrichment with live
// booking counts.  The result is a pure function of current state — two
// calls without intervening writes return identical slots.
func (s *Service) AvailableSlots(ctx context.Context, serviceVersionID uint64, date time.Time) ([]model.ComputedSlot, error) {
	slots, err := s.gen.Generate(ctx, serviceVersionID, date)
	if err != nil {
		return nil, err
	}
	slots, err = s.res.Resolve(ctx, slots)
	if err != nil {
		return nil, err
	}
	metrics.AddSlotsGenerated(len(slots))
	s.log.Debug().
		Uint64("service_version_id", serviceVersionID).
		Str("date", date.Format("2006-01-02")).
		Int("slots", len(slots)).
		Msg("availability computed")
	return slots, nil
}

// RestaurantSlots merges the availability of every ACTIVE service version
// of a restaurant for one date, sorted by start time.
func (s *Service) RestaurantSlots(ctx context.Context, restaurantID uint64, date time.Time) ([]model.ComputedSlot, error) {
	versions, err := s.versions.ListActiveByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	all := make([]model.ComputedSlot, 0)
	for _, v := range versions {
		slots, err := s.AvailableSlots(ctx, v.ID, date)
		if err != nil {
			return nil, err
		}
		all = append(all, slots...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })
	return all, nil
}

// UpdateTemplateDay replaces one weekday's template entry.  The entry is
// validated before any lookup, the write is a single atomic upsert, and
// the old/new pair is audited best-effort.
func (s *Service) UpdateTemplateDay(ctx context.Context, serviceVersionID uint64, actorID uint64, d *model.TemplateDay) (*model.TemplateDay, error) {
	d.ServiceVersionID = serviceVersionID
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.versions.GetByID(ctx, serviceVersionID); err != nil {
		return nil, err
	}
	old, err := s.templates.UpsertDay(ctx, d)
	if err != nil {
		return nil, err
	}
	metrics.IncScheduleChange("template_day")
	s.recordAudit(ctx, model.AuditTemplateDay, d.ID, actorID, old, d,
		fmt.Sprintf("weekly template updated for %s", d.Weekday))
	return d, nil
}

// UpdateSlotPolicy replaces the service version's slot policy.  Already
// consumed bookings keep their commitments; only future computations see
// the new parameters.
func (s *Service) UpdateSlotPolicy(ctx context.Context, serviceVersionID uint64, actorID uint64, p *model.SlotPolicy) (*model.SlotPolicy, error) {
	p.ServiceVersionID = serviceVersionID
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.versions.GetByID(ctx, serviceVersionID); err != nil {
		return nil, err
	}
	old, err := s.policies.UpsertPolicy(ctx, p)
	if err != nil {
		return nil, err
	}
	metrics.IncScheduleChange("slot_policy")
	s.recordAudit(ctx, model.AuditSlotPolicy, p.ID, actorID, old, p, "slot policy updated")
	return p, nil
}

// CreateException records a date-specific override.
func (s *Service) CreateException(ctx context.Context, serviceVersionID uint64, actorID uint64, e *model.DateException) (*model.DateException, error) {
	e.ServiceVersionID = serviceVersionID
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.versions.GetByID(ctx, serviceVersionID); err != nil {
		return nil, err
	}
	if err := s.exceptions.Create(ctx, e); err != nil {
		return nil, err
	}
	metrics.IncScheduleChange("date_exception")
	s.recordAudit(ctx, model.AuditDateException, e.ID, actorID, nil, e,
		fmt.Sprintf("exception created for %s", e.Date.Format("2006-01-02")))
	return e, nil
}

// DeleteException removes an override and returns the deleted value, so
// callers keep the owning version and the audit trail stays
// reconstructible.
func (s *Service) DeleteException(ctx context.Context, exceptionID uint64, actorID uint64) (*model.DateException, error) {
	old, err := s.exceptions.GetByID(ctx, exceptionID)
	if err != nil {
		return nil, err
	}
	if err := s.exceptions.Delete(ctx, exceptionID); err != nil {
		return nil, err
	}
	metrics.IncScheduleChange("date_exception")
	s.recordAudit(ctx, model.AuditDateException, exceptionID, actorID, old, nil,
		fmt.Sprintf("exception deleted for %s", old.Date.Format("2006-01-02")))
	return old, nil
}

// DeactivateVersion archives a service version so it stops accepting
// reservations; ReactivateVersion reverses it.  Archived versions are
// never deleted.
func (s *Service) DeactivateVersion(ctx context.Context, serviceVersionID, restaurantID, actorID uint64) error {
	if err := s.versions.SetState(ctx, serviceVersionID, restaurantID, model.VersionArchived); err != nil {
		return err
	}
	metrics.IncScheduleChange("service_version")
	s.recordAudit(ctx, model.AuditServiceVer, serviceVersionID, actorID,
		model.VersionActive, model.VersionArchived, "schedule deactivated")
	return nil
}

// ReactivateVersion resumes accepting reservations on an archived version.
func (s *Service) ReactivateVersion(ctx context.Context, serviceVersionID, restaurantID, actorID uint64) error {
	if err := s.versions.SetState(ctx, serviceVersionID, restaurantID, model.VersionActive); err != nil {
		return err
	}
	metrics.IncScheduleChange("service_version")
	s.recordAudit(ctx, model.AuditServiceVer, serviceVersionID, actorID,
		model.VersionArchived, model.VersionActive, "schedule reactivated")
	return nil
}

// recordAudit appends an audit entry, logging and swallowing any failure:
// audit is best-effort and never blocks the mutation it describes.
func (s *Service) recordAudit(ctx context.Context, entityType string, entityID, actorID uint64, oldValue, newValue interface{}, message string) {
	if s.audit == nil {
		return
	}
	entry := &model.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		OldValue:   oldValue,
		NewValue:   newValue,
		Message:    message,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("entity_type", entityType).
			Uint64("entity_id", entityID).
			Msg("audit append failed")
	}
}
