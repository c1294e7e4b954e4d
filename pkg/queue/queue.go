package queue

import (
	"container/heap"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// Default heuristic constants. Weights sum to 1.0.
const (
	weightKeywordRelevance = 0.4
	weightRecency          = 0.2
	weightRetryPenalty     = 0.2
	weightSourceDiversity  = 0.2

	relevanceBoost = 1.5

	defaultRetryPenaltyStep  = 0.2
	defaultRecencyDecayHours = 72
	defaultMaxRetries        = 3
)

// TaskRequest describes a task to be added to the queue. Priority and ID
// are optional; a nil Priority means the queue computes one from its
// heuristics, a supplied value is clamped to [0, 1].
type TaskRequest struct {
	Objective string
	Priority  *float64
	Metadata  map[string]interface{}
	ID        string
}

// Statistics summarizes queue contents by status
type Statistics struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	SourceTypes []string       `json:"source_types"`
}

// Queue is an investigation-scoped priority scheduler. All mutations to
// the heap and the id index happen under one mutex; pop-and-mark-assigned
// is a single critical section.
type Queue struct {
	mu sync.Mutex

	keywords        []string
	prioritySources map[string]bool
	seenSources     map[string]bool

	pending *taskHeap
	tasks   map[string]*domain.Task
	seq     int64

	recencyDecayHours float64
	retryPenaltyStep  float64
	maxRetries        int
}

// Option configures a Queue
type Option func(*Queue)

// WithRecencyDecay sets the age window, in hours, over which a task's
// recency score decays to zero
func WithRecencyDecay(hours float64) Option {
	return func(q *Queue) {
		if hours > 0 {
			q.recencyDecayHours = hours
		}
	}
}

// WithRetryPenalty sets the priority penalty applied per retry
func WithRetryPenalty(step float64) Option {
	return func(q *Queue) {
		if step > 0 {
			q.retryPenaltyStep = step
		}
	}
}

// WithMaxRetries caps how many times a failed task may be requeued
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxRetries = n
		}
	}
}

// New creates an empty task queue
func New(opts ...Option) *Queue {
	q := &Queue{
		prioritySources:   make(map[string]bool),
		seenSources:       make(map[string]bool),
		pending:           &taskHeap{},
		tasks:             make(map[string]*domain.Task),
		recencyDecayHours: defaultRecencyDecayHours,
		retryPenaltyStep:  defaultRetryPenaltyStep,
		maxRetries:        defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(q)
	}
	heap.Init(q.pending)
	return q
}

// SetContext records the investigation keywords used for relevance
// scoring and an optional list of favored source types. Call before Add
// for automatic priority scoring; without keywords relevance degrades to
// a neutral 0.5.
func (q *Queue) SetContext(keywords []string, prioritySources []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.keywords = make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			q.keywords = append(q.keywords, kw)
		}
	}
	q.prioritySources = make(map[string]bool, len(prioritySources))
	for _, src := range prioritySources {
		q.prioritySources[strings.ToLower(src)] = true
	}
}

// Add inserts a task and returns its id. Priority is computed from the
// weighted heuristics unless the request supplies one.
func (q *Queue) Add(req TaskRequest) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	task := &domain.Task{
		ID:        id,
		Objective: req.Objective,
		Status:    domain.TaskStatusPending,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if rc, ok := intFromMeta(metadata, domain.MetaRetryCount); ok {
		task.RetryCount = rc
	}

	if req.Priority != nil {
		task.Priority = clamp01(*req.Priority)
	} else {
		task.Priority = q.computePriority(task)
	}

	q.tasks[id] = task
	q.seq++
	heap.Push(q.pending, &heapItem{task: task, seq: q.seq})

	// Observed source types feed the diversity bonus of future tasks
	if src, ok := stringFromMeta(metadata, domain.MetaSourceType); ok {
		q.seenSources[strings.ToLower(src)] = true
	}

	return id
}

// Next pops the highest-priority pending task, skipping tasks whose
// required_capability is not among the given capabilities. Ties break by
// earlier creation time. The returned task is already marked assigned;
// nil means no eligible pending task exists.
func (q *Queue) Next(capabilities ...string) *domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	capSet := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		capSet[strings.ToLower(c)] = true
	}

	var skipped []*heapItem
	var picked *domain.Task

	for q.pending.Len() > 0 {
		item := heap.Pop(q.pending).(*heapItem)
		task := item.task

		// Stale heap entries: status moved on since insertion
		if task.Status != domain.TaskStatusPending {
			continue
		}

		if required, ok := stringFromMeta(task.Metadata, domain.MetaRequiredCapability); ok &&
			len(capabilities) > 0 && !capSet[strings.ToLower(required)] {
			skipped = append(skipped, item)
			continue
		}

		task.Status = domain.TaskStatusAssigned
		picked = task
		break
	}

	for _, item := range skipped {
		heap.Push(q.pending, item)
	}

	return picked
}

// UpdateStatus transitions a task's status. A failed status increments
// the retry count; requeueing to pending recomputes the priority so the
// retry penalty takes effect, and is refused once the retry limit is
// exhausted. Unknown ids report an error, non-fatal to the caller.
func (q *Queue) UpdateStatus(id string, status domain.TaskStatus, assignedAgent string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, exists := q.tasks[id]
	if !exists {
		return fmt.Errorf("task not found: %s", id)
	}

	if status == domain.TaskStatusPending && task.RetryCount > q.maxRetries {
		task.Status = domain.TaskStatusFailed
		return fmt.Errorf("task %s exceeded retry limit of %d", id, q.maxRetries)
	}

	task.Status = status
	if assignedAgent != "" {
		task.AssignedAgent = assignedAgent
	}
	if status == domain.TaskStatusFailed {
		task.RetryCount++
		task.Metadata[domain.MetaRetryCount] = task.RetryCount
	}
	if status == domain.TaskStatusPending {
		task.Priority = q.computePriority(task)
		q.seq++
		heap.Push(q.pending, &heapItem{task: task, seq: q.seq})
	}

	return nil
}

// Get returns a task by id
func (q *Queue) Get(id string) (*domain.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, exists := q.tasks[id]
	return task, exists
}

// Pending returns up to limit pending tasks in priority order; limit <= 0
// returns all of them.
func (q *Queue) Pending(limit int) []*domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]*heapItem, 0, q.pending.Len())
	var out []*domain.Task

	for q.pending.Len() > 0 {
		item := heap.Pop(q.pending).(*heapItem)
		items = append(items, item)
		if item.task.Status != domain.TaskStatusPending {
			continue
		}
		if limit > 0 && len(out) >= limit {
			continue
		}
		out = append(out, item.task)
	}
	for _, item := range items {
		heap.Push(q.pending, item)
	}

	return out
}

// Statistics returns counts by status and the observed source types
func (q *Queue) Statistics() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Statistics{
		Total:    len(q.tasks),
		ByStatus: make(map[string]int),
	}
	for _, task := range q.tasks {
		stats.ByStatus[string(task.Status)]++
	}
	for src := range q.seenSources {
		stats.SourceTypes = append(stats.SourceTypes, src)
	}
	return stats
}

// Clear resets the queue to empty, keeping the investigation context
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = &taskHeap{}
	heap.Init(q.pending)
	q.tasks = make(map[string]*domain.Task)
	q.seenSources = make(map[string]bool)
	q.seq = 0
}

// Priority heuristics

func (q *Queue) computePriority(task *domain.Task) float64 {
	p := weightKeywordRelevance*q.keywordRelevance(task) +
		weightRecency*q.recencyScore(task) +
		weightRetryPenalty*q.retryPenalty(task) +
		weightSourceDiversity*q.sourceDiversityBonus(task)
	return clamp01(p)
}

func (q *Queue) keywordRelevance(task *domain.Task) float64 {
	if len(q.keywords) == 0 {
		return 0.5
	}

	haystack := strings.ToLower(task.Objective)
	if kws, ok := stringSliceFromMeta(task.Metadata, domain.MetaKeywords); ok {
		haystack += " " + strings.ToLower(strings.Join(kws, " "))
	}

	matched := 0
	for _, kw := range q.keywords {
		if strings.Contains(haystack, kw) {
			matched++
		}
	}

	score := float64(matched) / float64(len(q.keywords)) * relevanceBoost
	return clamp01(score)
}

func (q *Queue) recencyScore(task *domain.Task) float64 {
	if urgency, ok := stringFromMeta(task.Metadata, domain.MetaUrgency); ok {
		switch strings.ToLower(urgency) {
		case "high":
			return 1.0
		case "low":
			return 0.3
		}
	}

	if ts, ok := timeFromMeta(task.Metadata, domain.MetaTimestamp); ok {
		age := time.Since(ts).Hours()
		if age <= 0 {
			return 1.0
		}
		return clamp01(1.0 - age/q.recencyDecayHours)
	}

	return 0.5
}

func (q *Queue) retryPenalty(task *domain.Task) float64 {
	penalty := 1.0 - q.retryPenaltyStep*float64(task.RetryCount)
	if penalty < 0 {
		return 0
	}
	return penalty
}

func (q *Queue) sourceDiversityBonus(task *domain.Task) float64 {
	src, ok := stringFromMeta(task.Metadata, domain.MetaSourceType)
	if !ok || src == "" {
		return 0.5
	}
	src = strings.ToLower(src)
	if q.prioritySources[src] {
		return 1.0
	}
	if q.seenSources[src] {
		return 0.4
	}
	return 1.0
}

// Heap plumbing. Higher priority first; ties by earlier creation, then
// insertion sequence so ordering is total.

type heapItem struct {
	task *domain.Task
	seq  int64
}

type taskHeap []*heapItem

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	if !h[i].task.CreatedAt.Equal(h[j].task.CreatedAt) {
		return h[i].task.CreatedAt.Before(h[j].task.CreatedAt)
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) {
	*h = append(*h, x.(*heapItem))
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Metadata helpers

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func stringFromMeta(meta map[string]interface{}, key string) (string, bool) {
	if meta == nil {
		return "", false
	}
	if v, ok := meta[key].(string); ok && v != "" {
		return v, true
	}
	return "", false
}

func intFromMeta(meta map[string]interface{}, key string) (int, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

func timeFromMeta(meta map[string]interface{}, key string) (time.Time, bool) {
	if meta == nil {
		return time.Time{}, false
	}
	switch v := meta[key].(type) {
	case time.Time:
		return v, true
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func stringSliceFromMeta(meta map[string]interface{}, key string) ([]string, bool) {
	if meta == nil {
		return nil, false
	}
	switch v := meta[key].(type) {
	case []string:
		return v, len(v) > 0
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}
