package collection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rpggio/curator/internal/domain/notification"
	"github.com/rpggio/curator/internal/domain/suggest"
	"github.com/rpggio/curator/internal/repository"
)

var mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9._-]+)`)

// errUnchanged aborts a commit that would not modify the collection.
var errUnchanged = errors.New("unchanged")

// Service handles collection lifecycle operations.
type Service struct {
	repo      Repository
	notifier  Notifier
	suggester Suggester
	observer  Observer
	sanitizer *bluemonday.Policy
	locks     *keyedMutex
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSuggester seeds keywords and categories at creation.
func WithSuggester(sg Suggester) Option {
	return func(s *Service) { s.suggester = sg }
}

// WithObserver records transition outcomes.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a new collection service.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		repo:      repo,
		notifier:  notifier,
		sanitizer: bluemonday.StrictPolicy(),
		locks:     newKeyedMutex(),
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest defines collection creation inputs.
type CreateRequest struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Intent      string
}

// UpdateDatasetRequest describes a change to dataset facts.
type UpdateDatasetRequest struct {
	DatasetID       string
	Status          *DatasetStatus
	AccessBreakdown *AccessBreakdown
}

// ScopeRequest replaces the user assignments and scope selectors.
type ScopeRequest struct {
	Users []UserAssignment
	Roles []string
	Orgs  []string
}

// notice is the event a mutation announces after it is saved. A nil
// recipient list means the collection's watchers.
type notice struct {
	event      notification.Event
	recipients []string
}

type mutation func(c *Collection, now time.Time) (*notice, error)

// Create creates a new draft collection.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Collection, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner required", ErrValidation)
	}

	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	now := s.now()
	c := &Collection{
		ID:             id,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		State:          StateDraft,
		Owner:          req.OwnerID,
		CreatedAt:      now,
		UpdatedAt:      now,
		StateEnteredAt: now,
	}

	if s.suggester != nil {
		text := req.Intent
		if strings.TrimSpace(text) == "" {
			text = req.Name + " " + req.Description
		}
		result := s.suggester.Suggest(text)
		c.Keywords = result.Keywords
		for _, cat := range result.Categories {
			c.Categories = append(c.Categories, cat.ID)
		}
	}

	appendTimeline(c, EventCreated, req.OwnerID, fmt.Sprintf("created collection %s", c.Name), now, nil, nil)

	unlock := s.locks.Lock(id)
	defer unlock()
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, id)
		}
		return nil, fmt.Errorf("%w: saving collection: %w", ErrDependency, err)
	}

	s.logger.Info("collection created", "collection_id", c.ID, "owner", c.Owner)
	return c, nil
}

// Get fetches a collection by ID.
func (s *Service) Get(ctx context.Context, id string) (*Collection, error) {
	return s.load(ctx, id)
}

// List returns collection summaries.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]CollectionSummary, error) {
	list, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	out := make([]CollectionSummary, 0, len(list))
	for _, c := range list {
		out = append(out, c.Summary())
	}
	return out, nil
}

// ListTimeline returns the collection's history, newest first.
func (s *Service) ListTimeline(ctx context.Context, id string, opts TimelineOptions) ([]TimelineEvent, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.repo.ListTimeline(ctx, id, opts)
	if err != nil {
		return nil, fmt.Errorf("listing timeline: %w", err)
	}
	return events, nil
}

// Readiness evaluates the submission checklist.
func (s *Service) Readiness(ctx context.Context, id string) (Readiness, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return Readiness{}, err
	}
	return Evaluate(c), nil
}

// AccessSummary aggregates the datasets and estimates the completion ETA.
func (s *Service) AccessSummary(ctx context.Context, id string) (AccessSummary, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return AccessSummary{}, err
	}
	summary := Aggregate(c.Datasets)
	summary.ETA = EstimateCompletionETA(summary)
	return summary, nil
}

// Transition moves the collection to target. A draft collection asked to
// become public keeps its state and gains the public flag.
func (s *Service) Transition(ctx context.Context, id string, target State, actorID string) (*Collection, error) {
	var from State
	c, err := s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		from = c.State
		if err := ValidateTransition(c.State, target); err != nil {
			return nil, fmt.Errorf("%w: %s -> %s", err, c.State, target)
		}

		if target == StatePublic {
			if c.IsPublic {
				return nil, errUnchanged
			}
			c.IsPublic = true
			appendTimeline(c, EventPublicChanged, actorID, "collection made public", now, nil, nil)
			return nil, nil
		}

		if target == StateAIPSubmitted && !IsReadyForAIP(c) {
			return nil, fmt.Errorf("%w: readiness checklist incomplete", ErrPreconditionNotMet)
		}

		prev := c.State
		c.State = target
		c.StateEnteredAt = now
		appendTimeline(c, EventStateChange, actorID, fmt.Sprintf("state changed from %s to %s", prev, target), now, &prev, &target)

		return &notice{event: notification.Event{
			Kind:          notification.EventStateChanged,
			Actor:         notification.Actor{ID: actorID},
			Title:         fmt.Sprintf("%s moved to %s", c.Name, target),
			Message:       fmt.Sprintf("Collection %s changed state from %s to %s.", c.Name, prev, target),
			ToState:       string(target),
			StateTerminal: IsTerminal(target),
		}}, nil
	})

	s.observeTransition(from, target, err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("collection transitioned", "collection_id", id, "from", from, "to", target, "actor", actorID)
	return c, nil
}

// SetPublic toggles the public flag. Maintained collections are fixed.
func (s *Service) SetPublic(ctx context.Context, id string, public bool, actorID string) (*Collection, error) {
	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		if c.State == StateMaintaining {
			return nil, fmt.Errorf("%w: visibility is fixed in %s", ErrImmutableState, c.State)
		}
		if c.IsPublic == public {
			return nil, errUnchanged
		}
		c.IsPublic = public
		summary := "collection made private"
		if public {
			summary = "collection made public"
		}
		appendTimeline(c, EventPublicChanged, actorID, summary, now, nil, nil)
		return nil, nil
	})
}

// AddDataset attaches a dataset.
func (s *Service) AddDataset(ctx context.Context, id string, d Dataset, actorID string) (*Collection, error) {
	if d.Status == "" {
		d.Status = DatasetAvailable
	}
	if err := ValidateDataset(d); err != nil {
		return nil, err
	}
	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		if IsFrozen(c.State) {
			return nil, fmt.Errorf("%w: datasets are locked in %s", ErrImmutableState, c.State)
		}
		if datasetIndex(c, d.ID) >= 0 {
			return nil, fmt.Errorf("%w: dataset %s already attached", ErrValidation, d.ID)
		}
		c.Datasets = append(c.Datasets, d)
		appendTimeline(c, EventDatasetAdded, actorID, fmt.Sprintf("added dataset %s", d.Name), now, nil, nil)
		return nil, nil
	})
}

// RemoveDataset detaches a dataset.
func (s *Service) RemoveDataset(ctx context.Context, id, datasetID, actorID string) (*Collection, error) {
	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		if IsFrozen(c.State) {
			return nil, fmt.Errorf("%w: datasets are locked in %s", ErrImmutableState, c.State)
		}
		idx := datasetIndex(c, datasetID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: dataset %s", ErrNotFound, datasetID)
		}
		name := c.Datasets[idx].Name
		c.Datasets = slices.Delete(c.Datasets, idx, idx+1)
		appendTimeline(c, EventDatasetRemoved, actorID, fmt.Sprintf("removed dataset %s", name), now, nil, nil)
		return nil, nil
	})
}

// UpdateDataset records new facts about an attached dataset. Facts may change
// in any state; a status change is announced to watchers.
func (s *Service) UpdateDataset(ctx context.Context, id string, req UpdateDatasetRequest, actorID string) (*Collection, error) {
	if req.Status == nil && req.AccessBreakdown == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if req.Status != nil && !validDatasetStatus(*req.Status) {
		return nil, fmt.Errorf("%w: unknown dataset status %q", ErrValidation, *req.Status)
	}
	if req.AccessBreakdown != nil {
		if err := ValidateBreakdown(*req.AccessBreakdown); err != nil {
			return nil, err
		}
	}

	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		idx := datasetIndex(c, req.DatasetID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: dataset %s", ErrNotFound, req.DatasetID)
		}
		d := &c.Datasets[idx]
		statusChanged := req.Status != nil && *req.Status != d.Status
		if req.AccessBreakdown != nil {
			d.AccessBreakdown = *req.AccessBreakdown
		}
		if req.Status != nil {
			d.Status = *req.Status
		}
		appendTimeline(c, EventDatasetUpdated, actorID, fmt.Sprintf("updated dataset %s", d.Name), now, nil, nil)

		if !statusChanged {
			return nil, nil
		}
		return &notice{event: notification.Event{
			Kind:          notification.EventDatasetStatusChanged,
			Actor:         notification.Actor{ID: actorID},
			Title:         fmt.Sprintf("Dataset %s is %s", d.Name, d.Status),
			Message:       fmt.Sprintf("Dataset %s in %s changed status to %s.", d.Name, c.Name, d.Status),
			DatasetStatus: string(d.Status),
			DedupKey:      fmt.Sprintf("dataset:%s:%s:%s", c.ID, d.ID, d.Status),
		}}, nil
	})
}

// SetTerms replaces the agreement of terms.
func (s *Service) SetTerms(ctx context.Context, id string, terms AgreementOfTerms, actorID string) (*Collection, error) {
	if err := ValidateTerms(terms); err != nil {
		return nil, err
	}
	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		if IsFrozen(c.State) {
			return nil, fmt.Errorf("%w: terms are locked in %s", ErrImmutableState, c.State)
		}
		c.Terms = terms
		appendTimeline(c, EventTermsUpdated, actorID, "updated terms", now, nil, nil)
		return nil, nil
	})
}

// SetUserScope replaces user assignments and scope selectors.
func (s *Service) SetUserScope(ctx context.Context, id string, req ScopeRequest, actorID string) (*Collection, error) {
	if err := ValidateUsers(req.Users); err != nil {
		return nil, err
	}
	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		c.Users = slices.Clone(req.Users)
		c.Scope = Scope{Roles: compact(req.Roles), Orgs: compact(req.Orgs)}
		appendTimeline(c, EventScopeUpdated, actorID,
			fmt.Sprintf("scope set to %d users, %d roles, %d orgs", len(c.Users), len(c.Scope.Roles), len(c.Scope.Orgs)),
			now, nil, nil)
		return nil, nil
	})
}

// AddComment appends a sanitised comment and notifies mentioned users.
func (s *Service) AddComment(ctx context.Context, id, authorID, body string) (*Collection, error) {
	if strings.TrimSpace(authorID) == "" {
		return nil, fmt.Errorf("%w: author required", ErrValidation)
	}
	clean := strings.TrimSpace(s.sanitizer.Sanitize(body))
	if clean == "" {
		return nil, fmt.Errorf("%w: comment body required", ErrValidation)
	}
	mentions := ParseMentions(clean, authorID)

	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		comment := Comment{
			ID:        uuid.NewString(),
			AuthorID:  authorID,
			Body:      clean,
			Mentions:  mentions,
			CreatedAt: now,
		}
		c.Comments = append(c.Comments, comment)
		appendTimeline(c, EventCommentAdded, authorID, "added comment", now, nil, nil)

		if len(mentions) == 0 {
			return nil, nil
		}
		return &notice{
			event: notification.Event{
				Kind:     notification.EventComment,
				Actor:    notification.Actor{ID: authorID},
				Title:    fmt.Sprintf("%s mentioned you on %s", authorID, c.Name),
				Message:  clean,
				Mentions: mentions,
				DedupKey: "comment:" + comment.ID,
			},
			recipients: mentions,
		}, nil
	})
}

// AddWatcher subscribes a user to the collection's notifications.
func (s *Service) AddWatcher(ctx context.Context, id, userID, actorID string) (*Collection, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: watcher id required", ErrValidation)
	}
	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		if c.Owner == userID || slices.Contains(c.Watchers, userID) {
			return nil, errUnchanged
		}
		c.Watchers = append(c.Watchers, userID)
		appendTimeline(c, EventWatcherAdded, actorID, fmt.Sprintf("%s is watching", userID), now, nil, nil)
		return nil, nil
	})
}

// RequestApproval opens a pending approval for approverID.
func (s *Service) RequestApproval(ctx context.Context, id, step, approverID, actorID string) (*Collection, error) {
	if strings.TrimSpace(step) == "" || strings.TrimSpace(approverID) == "" {
		return nil, fmt.Errorf("%w: step and approver required", ErrValidation)
	}
	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		approval := Approval{
			ID:          uuid.NewString(),
			Step:        step,
			ApproverID:  approverID,
			Status:      ApprovalPending,
			RequestedAt: now,
		}
		c.Approvals = append(c.Approvals, approval)
		appendTimeline(c, EventApprovalRequested, actorID, fmt.Sprintf("requested %s approval from %s", step, approverID), now, nil, nil)
		return &notice{
			event: notification.Event{
				Kind:     notification.EventApprovalPending,
				Actor:    notification.Actor{ID: actorID},
				Title:    fmt.Sprintf("Approval requested on %s", c.Name),
				Message:  fmt.Sprintf("Your %s approval is requested for %s.", step, c.Name),
				DedupKey: "approval:" + approval.ID + ":requested",
			},
			recipients: []string{approverID},
		}, nil
	})
}

// ResolveApproval approves or rejects an unresolved approval.
func (s *Service) ResolveApproval(ctx context.Context, id, approvalID string, approved bool, actorID string) (*Collection, error) {
	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		a, err := findApproval(c, approvalID)
		if err != nil {
			return nil, err
		}
		if !a.Unresolved() {
			return nil, fmt.Errorf("%w: approval %s already %s", ErrValidation, a.ID, a.Status)
		}
		a.Status = ApprovalRejected
		if approved {
			a.Status = ApprovalApproved
		}
		resolved := now
		a.ResolvedAt = &resolved
		a.BlockedSince = nil
		appendTimeline(c, EventApprovalResolved, actorID, fmt.Sprintf("%s approval %s", a.Step, a.Status), now, nil, nil)
		return &notice{event: notification.Event{
			Kind:    notification.EventApprovalResolved,
			Actor:   notification.Actor{ID: actorID},
			Title:   fmt.Sprintf("%s approval %s", a.Step, a.Status),
			Message: fmt.Sprintf("The %s approval on %s was %s.", a.Step, c.Name, a.Status),
		}}, nil
	})
}

// BlockApproval marks a pending approval as blocked.
func (s *Service) BlockApproval(ctx context.Context, id, approvalID, reason, actorID string) (*Collection, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: block reason required", ErrValidation)
	}
	return s.commit(ctx, id, func(c *Collection, now time.Time) (*notice, error) {
		a, err := findApproval(c, approvalID)
		if err != nil {
			return nil, err
		}
		if a.Status != ApprovalPending {
			return nil, fmt.Errorf("%w: approval %s is %s", ErrValidation, a.ID, a.Status)
		}
		blocked := now
		a.Status = ApprovalBlocked
		a.BlockedSince = &blocked
		a.BlockedReason = reason
		appendTimeline(c, EventApprovalBlocked, actorID, fmt.Sprintf("%s approval blocked: %s", a.Step, reason), now, nil, nil)
		return &notice{event: notification.Event{
			Kind:    notification.EventApprovalBlocked,
			Actor:   notification.Actor{ID: actorID},
			Title:   fmt.Sprintf("%s approval blocked", a.Step),
			Message: reason,
		}}, nil
	})
}

// commit serialises a mutation on one collection. The mutation runs on a
// copy; the copy is saved and its notice delivered. If delivery fails the
// previous snapshot is restored.
func (s *Service) commit(ctx context.Context, id string, fn mutation) (*Collection, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	prev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := prev.Clone()
	n, err := fn(&next, now)
	if errors.Is(err, errUnchanged) {
		return prev, nil
	}
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = now

	if err := s.repo.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("%w: saving collection: %w", ErrDependency, err)
	}

	if n == nil || s.notifier == nil {
		return &next, nil
	}

	ev := n.event
	ev.CollectionID = next.ID
	ev.CollectionName = next.Name
	ev.OccurredAt = now
	if ev.ActionURL == "" {
		ev.ActionURL = "/collections/" + next.ID
	}
	recipients := n.recipients
	if recipients == nil {
		recipients = next.Recipients()
	}

	if _, err := s.notifier.Notify(ctx, ev, recipients); err != nil {
		if rerr := s.repo.Save(ctx, prev); rerr != nil {
			s.logger.Error("failed to restore collection after notify failure",
				"collection_id", id, "error", rerr)
		}
		return nil, fmt.Errorf("%w: notifying watchers: %w", ErrDependency, err)
	}
	return &next, nil
}

func (s *Service) load(ctx context.Context, id string) (*Collection, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: loading collection: %w", ErrDependency, err)
	}
	return c, nil
}

func (s *Service) observeTransition(from, to State, err error) {
	if s.observer == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidTransition):
		result = "invalid"
	case errors.Is(err, ErrPreconditionNotMet):
		result = "precondition"
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	s.observer.ObserveTransition(string(from), string(to), result)
}

// ParseMentions returns the distinct @handles in body, excluding the author.
func ParseMentions(body, authorID string) []string {
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(body, -1) {
		handle := strings.TrimRight(m[1], ".")
		if handle == "" || handle == authorID || slices.Contains(out, handle) {
			continue
		}
		out = append(out, handle)
	}
	return out
}

func appendTimeline(c *Collection, typ TimelineEventType, actorID, summary string, at time.Time, from, to *State) {
	c.Timeline = append(c.Timeline, TimelineEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		ActorID:    actorID,
		Summary:    summary,
		FromState:  from,
		ToState:    to,
		OccurredAt: at,
	})
}

func datasetIndex(c *Collection, datasetID string) int {
	return slices.IndexFunc(c.Datasets, func(d Dataset) bool { return d.ID == datasetID })
}

func findApproval(c *Collection, approvalID string) (*Approval, error) {
	for i := range c.Approvals {
		if c.Approvals[i].ID == approvalID {
			return &c.Approvals[i], nil
		}
	}
	return nil, fmt.Errorf("%w: approval %s", ErrNotFound, approvalID)
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

var _ Suggester = (*suggest.Engine)(nil)
