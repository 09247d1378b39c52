package approval

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"warden-hq/warden/pkg/audit"
	"warden-hq/warden/pkg/rules"
)

// DefaultExpiration is the fallback resolution deadline for new requests.
const DefaultExpiration = 24 * time.Hour

// DefaultResolvedHistoryLimit bounds the resolved-request history.
const DefaultResolvedHistoryLimit = 1000

// Observer is notified of approval lifecycle transitions. Observer errors
// and panics are isolated: they are logged and never affect the stored
// request or the caller.
type Observer func(*ApprovalRequest) error

// Config contains configuration for the approval manager.
type Config struct {
	// DefaultExpiration is the deadline applied to requests that do not
	// set their own. Default: 24h.
	DefaultExpiration time.Duration

	// ResolvedHistoryLimit caps the resolved-request history; the oldest
	// resolved requests are evicted past the cap. Default: 1000.
	ResolvedHistoryLimit int

	// OnRequested fires synchronously, exactly once, when a request is
	// created. Optional.
	OnRequested Observer

	// OnResolved fires synchronously, exactly once, when a request
	// reaches a terminal state. Optional.
	OnResolved Observer

	// Audit receives an approval_resolved event for every terminal
	// transition, plus an action_approved event when the transition
	// approves the held action. Optional.
	Audit audit.Sink
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultExpiration:    DefaultExpiration,
		ResolvedHistoryLimit: DefaultResolvedHistoryLimit,
	}
}

// Manager owns the approval request lifecycle.
//
// All mutating operations serialize on one lock; reads hand out copies so
// a caller never observes a half-written request.
type Manager struct {
	mu sync.Mutex

	pending      map[string]*ApprovalRequest
	pendingOrder []string

	resolved     []*ApprovalRequest
	resolvedByID map[string]*ApprovalRequest

	// Terminal counts are monotonic so Stats survives history eviction.
	totalCreated   int
	terminalCounts map[Status]int

	config *Config
	logger *slog.Logger

	// now is swapped out by tests to control expiry.
	now func() time.Time
}

// NewManager creates an approval manager.
func NewManager(config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DefaultExpiration <= 0 {
		config.DefaultExpiration = DefaultExpiration
	}
	if config.ResolvedHistoryLimit <= 0 {
		config.ResolvedHistoryLimit = DefaultResolvedHistoryLimit
	}

	return &Manager{
		pending:        make(map[string]*ApprovalRequest),
		resolvedByID:   make(map[string]*ApprovalRequest),
		terminalCounts: make(map[Status]int),
		config:         config,
		logger:         slog.Default().With("component", "approval.manager"),
		now:            time.Now,
	}
}

// Request creates a pending approval request and fires the OnRequested
// observer.
func (m *Manager) Request(req Request) *ApprovalRequest {
	now := m.now()

	expiresIn := req.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = m.config.DefaultExpiration
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	stored := &ApprovalRequest{
		ID:                uuid.New().String(),
		Reason:            req.Reason,
		ActionID:          req.ActionID,
		Details:           copyBag(req.Details),
		Priority:          priority,
		RequiredApprovers: append([]string(nil), req.RequiredApprovers...),
		Context:           copyBag(req.Context),
		RiskScore:         req.RiskScore,
		Violations:        append([]rules.Violation(nil), req.Violations...),
		Metadata:          make(map[string]interface{}),
		Status:            StatusPending,
		CreatedAt:         now,
		ExpiresAt:         now.Add(expiresIn),
	}

	m.mu.Lock()
	m.pending[stored.ID] = stored
	m.pendingOrder = append(m.pendingOrder, stored.ID)
	m.totalCreated++
	out := stored.clone()
	m.mu.Unlock()

	m.notify(m.config.OnRequested, out)

	return out
}

// Approve resolves a pending request as approved, recording the approver
// and optional comments in metadata.
//
// Returns (nil, false) for an unknown id. A request past its deadline is
// forced to expired instead; the expiry wins over the approval.
func (m *Manager) Approve(requestID, approverID, comments string) (*ApprovalRequest, bool) {
	return m.resolve(requestID, StatusApproved, map[string]interface{}{
		"approved_by": approverID,
		"comments":    comments,
	}, true)
}

// Deny resolves a pending request as denied, recording the denier and
// optional reason in metadata. Same expiry-wins rule as Approve.
func (m *Manager) Deny(requestID, denierID, reason string) (*ApprovalRequest, bool) {
	return m.resolve(requestID, StatusDenied, map[string]interface{}{
		"denied_by":   denierID,
		"deny_reason": reason,
	}, true)
}

// Cancel moves a pending request to cancelled with the reason in metadata.
//
// Cancellation skips the expiry check: it is explicit caller intent and
// takes effect immediately even past the deadline. Approve and Deny do not
// share this behavior.
func (m *Manager) Cancel(requestID, reason string) (*ApprovalRequest, bool) {
	return m.resolve(requestID, StatusCancelled, map[string]interface{}{
		"cancel_reason": reason,
	}, false)
}

// resolve moves a pending request into a terminal state under the lock and
// fires the OnResolved observer after releasing it.
func (m *Manager) resolve(requestID string, target Status, meta map[string]interface{}, checkExpiry bool) (*ApprovalRequest, bool) {
	m.mu.Lock()

	stored, ok := m.pending[requestID]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}

	now := m.now()
	if checkExpiry && stored.Expired(now) {
		target = StatusExpired
		meta = map[string]interface{}{"expired_at": now}
	}

	stored.Status = target
	stored.ResolvedAt = now
	for k, v := range meta {
		if v == "" {
			continue
		}
		stored.Metadata[k] = v
	}

	m.moveToResolvedLocked(stored)
	out := stored.clone()
	m.mu.Unlock()

	m.notify(m.config.OnResolved, out)
	m.emitResolved(out)

	return out, true
}

// moveToResolvedLocked relocates a request from pending to the resolved
// history, evicting the oldest resolved entry past the cap.
// Caller holds m.mu.
func (m *Manager) moveToResolvedLocked(stored *ApprovalRequest) {
	delete(m.pending, stored.ID)
	for i, id := range m.pendingOrder {
		if id == stored.ID {
			m.pendingOrder = append(m.pendingOrder[:i], m.pendingOrder[i+1:]...)
			break
		}
	}

	m.resolved = append(m.resolved, stored)
	m.resolvedByID[stored.ID] = stored
	m.terminalCounts[stored.Status]++

	if len(m.resolved) > m.config.ResolvedHistoryLimit {
		evicted := m.resolved[0]
		m.resolved = m.resolved[1:]
		delete(m.resolvedByID, evicted.ID)
	}
}

// Get returns the request with the given id, looking across both pending
// and resolved storage.
func (m *Manager) Get(requestID string) (*ApprovalRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.pending[requestID]; ok {
		return r.clone(), true
	}
	if r, ok := m.resolvedByID[requestID]; ok {
		return r.clone(), true
	}
	return nil, false
}

// GetPending returns pending, non-expired requests matching the filter,
// sorted urgent > high > normal > low, ties in creation order.
//
// Expired entries are filtered out without mutating their stored status;
// CleanupExpired is the operation that actually transitions them.
func (m *Manager) GetPending(filter Filter) []*ApprovalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	var out []*ApprovalRequest
	for _, id := range m.pendingOrder {
		r := m.pending[id]
		if r.Expired(now) || !filter.matches(r) {
			continue
		}
		out = append(out, r.clone())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() > out[j].Priority.Rank()
	})

	return out
}

// GetResolved returns resolved requests, most recently resolved first,
// truncated to limit when positive.
func (m *Manager) GetResolved(limit int) []*ApprovalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ApprovalRequest, 0, len(m.resolved))
	for i := len(m.resolved) - 1; i >= 0; i-- {
		out = append(out, m.resolved[i].clone())
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

// IsApproved returns true if the request exists and is approved.
func (m *Manager) IsApproved(requestID string) bool {
	r, ok := m.Get(requestID)
	return ok && r.Status == StatusApproved
}

// IsPending returns true if the request exists, is pending, and has not
// passed its deadline.
func (m *Manager) IsPending(requestID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.pending[requestID]
	return ok && !r.Expired(m.now())
}

// Stats returns counts by status and by priority among pending.
// The counts always satisfy: pending + terminal counts == total created.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	byStatus := map[Status]int{
		StatusPending:   len(m.pending),
		StatusApproved:  m.terminalCounts[StatusApproved],
		StatusDenied:    m.terminalCounts[StatusDenied],
		StatusCancelled: m.terminalCounts[StatusCancelled],
		StatusExpired:   m.terminalCounts[StatusExpired],
	}

	byPriority := make(map[Priority]int)
	for _, r := range m.pending {
		byPriority[r.Priority]++
	}

	return Stats{
		Total:             m.totalCreated,
		ByStatus:          byStatus,
		PendingByPriority: byPriority,
	}
}

// CleanupExpired moves every pending request past its deadline into the
// resolved history with status expired, and returns how many moved.
//
// This is the only operation that transitions status on time alone;
// callers run it opportunistically or on a schedule (see Sweeper).
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()

	now := m.now()

	var expired []*ApprovalRequest
	for _, id := range append([]string(nil), m.pendingOrder...) {
		r := m.pending[id]
		if !r.Expired(now) {
			continue
		}
		r.Status = StatusExpired
		r.ResolvedAt = now
		r.Metadata["expired_at"] = now
		m.moveToResolvedLocked(r)
		expired = append(expired, r.clone())
	}
	m.mu.Unlock()

	for _, r := range expired {
		m.notify(m.config.OnResolved, r)
		m.emitResolved(r)
	}

	if len(expired) > 0 {
		m.logger.Info("expired approval requests swept", "count", len(expired))
	}

	return len(expired)
}

// emitResolved writes the terminal transition into the audit trail,
// stamped with the correlation id captured at request time so the trail
// stays joinable from the originating evaluation through the resolution.
// An approving resolution additionally emits an action_approved event
// parented on the resolution.
func (m *Manager) emitResolved(r *ApprovalRequest) {
	sink := m.config.Audit
	if sink == nil {
		return
	}

	agentID, _ := r.AgentID()
	correlationID, _ := r.Context[ContextCorrelationID].(string)

	outcome := audit.OutcomeFailure
	if r.Status == StatusApproved {
		outcome = audit.OutcomeSuccess
	}

	resolved := &audit.Event{
		ID:            uuid.New().String(),
		Type:          audit.EventApprovalResolved,
		Timestamp:     r.ResolvedAt,
		Action:        r.ActionID,
		Outcome:       outcome,
		AgentID:       agentID,
		RiskLevel:     audit.RiskLevelForScore(r.RiskScore),
		CorrelationID: correlationID,
		Details: map[string]interface{}{
			"request_id": r.ID,
			"status":     string(r.Status),
			"priority":   string(r.Priority),
		},
		Metadata: copyBag(r.Metadata),
	}
	sink.Log(resolved)

	if r.Status != StatusApproved {
		return
	}

	sink.Log(&audit.Event{
		ID:            uuid.New().String(),
		Type:          audit.EventActionApproved,
		Timestamp:     r.ResolvedAt,
		Action:        r.ActionID,
		Outcome:       audit.OutcomeSuccess,
		AgentID:       agentID,
		RiskLevel:     audit.RiskLevelForScore(r.RiskScore),
		CorrelationID: correlationID,
		ParentEventID: resolved.ID,
		Details: map[string]interface{}{
			"request_id": r.ID,
		},
	})
}

// notify invokes an observer with panic and error isolation.
func (m *Manager) notify(obs Observer, r *ApprovalRequest) {
	if obs == nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("approval observer panicked",
				"request_id", r.ID,
				"panic", rec,
			)
		}
	}()

	if err := obs(r); err != nil {
		m.logger.Warn("approval observer failed",
			"request_id", r.ID,
			"error", err,
		)
	}
}
