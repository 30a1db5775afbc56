package cartsync

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MutationKind 变更类型
type MutationKind int

const (
	// KindAdd 加购
	KindAdd MutationKind = iota + 1
	// KindUpdate 改数量
	KindUpdate
	// KindRemove 删除行
	KindRemove
)

func (k MutationKind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindUpdate:
		return "update"
	case KindRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// MutationState 变更生命周期：Pending → Confirmed | RolledBack
type MutationState int

const (
	// StatePending 已乐观应用，等待服务端
	StatePending MutationState = iota
	// StateConfirmed 服务端已确认
	StateConfirmed
	// StateRolledBack 失败并已回滚
	StateRolledBack
)

func (s MutationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Mutation 单次乐观变更的句柄
type Mutation struct {
	ID        string
	Kind      MutationKind
	ProductID string
	// Quantity 加购数量或数量增量
	Quantity int
	LineID   string

	before View

	mu    sync.Mutex
	state MutationState
	err   error
	done  chan struct{}
}

func newMutation(kind MutationKind, productID string, quantity int) *Mutation {
	return &Mutation{
		ID:        uuid.NewString(),
		Kind:      kind,
		ProductID: productID,
		Quantity:  quantity,
		done:      make(chan struct{}),
	}
}

// State 当前状态
func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err 回滚原因
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done 结算后关闭
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait 等待结算；回滚时返回失败原因
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return m.Err()
	}
}

// settle 只生效一次
func (m *Mutation) settle(state MutationState, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePending {
		return false
	}
	m.state = state
	m.err = err
	close(m.done)
	return true
}
