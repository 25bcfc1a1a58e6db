package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventEmitter allows the approval queue to notify the frontend.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Approval events sent to the frontend.
const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
	EventActivity          = "mcp:activity"
)

const defaultApprovalTimeout = 2 * time.Minute

var (
	ErrRejected        = errors.New("action rejected by user")
	ErrApprovalExpired = errors.New("approval request expired")
)

// PendingAction is a destructive tool call waiting on the user. The
// frontend highlights ElementIDs on PageID while the prompt is open.
type PendingAction struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool"`
	Description string    `json:"description"`
	PageID      string    `json:"pageId,omitempty"`
	ElementIDs  []string  `json:"elementIds,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type pendingEntry struct {
	action PendingAction
	answer chan bool
}

// ApprovalQueue holds destructive MCP calls until the user answers them
// through Approve or Reject.
type ApprovalQueue struct {
	ctx     context.Context
	emitter EventEmitter
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEntry
}

func NewApprovalQueue(ctx context.Context, emitter EventEmitter) *ApprovalQueue {
	return &ApprovalQueue{
		ctx:     ctx,
		emitter: emitter,
		timeout: defaultApprovalTimeout,
		pending: make(map[string]*pendingEntry),
	}
}

// Request announces action and blocks until it is answered, it expires, or
// either ctx or the queue's context ends. ID and timestamps are assigned
// here.
func (q *ApprovalQueue) Request(ctx context.Context, action PendingAction) error {
	now := time.Now().UTC()
	action.ID = uuid.NewString()
	action.CreatedAt = now
	action.ExpiresAt = now.Add(q.timeout)

	entry := &pendingEntry{action: action, answer: make(chan bool, 1)}
	q.mu.Lock()
	q.pending[action.ID] = entry
	q.mu.Unlock()
	defer q.forget(action.ID)

	q.emitter.Emit(q.ctx, EventApprovalRequired, action)

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case ok := <-entry.answer:
		if !ok {
			return fmt.Errorf("%s: %w", action.Tool, ErrRejected)
		}
		return nil
	case <-timer.C:
		q.dismiss(action.ID)
		return fmt.Errorf("%s after %s: %w", action.Tool, q.timeout, ErrApprovalExpired)
	case <-ctx.Done():
		q.dismiss(action.ID)
		return ctx.Err()
	case <-q.ctx.Done():
		return q.ctx.Err()
	}
}

// Pending lists unanswered requests, oldest first.
func (q *ApprovalQueue) Pending() []PendingAction {
	q.mu.Lock()
	out := make([]PendingAction, 0, len(q.pending))
	for _, e := range q.pending {
		out = append(out, e.action)
	}
	q.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (q *ApprovalQueue) Approve(actionID string) { q.answer(actionID, true) }

func (q *ApprovalQueue) Reject(actionID string) { q.answer(actionID, false) }

// answer ignores unknown ids and repeated answers.
func (q *ApprovalQueue) answer(actionID string, ok bool) {
	q.mu.Lock()
	e, found := q.pending[actionID]
	q.mu.Unlock()
	if !found {
		return
	}
	select {
	case e.answer <- ok:
	default:
	}
}

func (q *ApprovalQueue) dismiss(actionID string) {
	q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": actionID})
}

func (q *ApprovalQueue) forget(actionID string) {
	q.mu.Lock()
	delete(q.pending, actionID)
	q.mu.Unlock()
}
