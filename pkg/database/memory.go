package database

import (
	"sort"
	"strings"
	"sync"

	"hivemind-backend/pkg/models"
)

// MemoryStore 内存实现：map + 读写锁。返回值都是副本，
// 调用方修改后必须重新 Save 才会生效。
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]models.User
	spaces      map[string]models.Space
	inviteCodes map[string]string // invite_code -> space_id
	documents   map[string]models.FilteredDocument
	approvals   map[string]models.PendingApproval
	turns       map[string]models.RawConversationTurn
}

// NewMemoryStore 创建内存存储实例
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]models.User),
		spaces:      make(map[string]models.Space),
		inviteCodes: make(map[string]string),
		documents:   make(map[string]models.FilteredDocument),
		approvals:   make(map[string]models.PendingApproval),
		turns:       make(map[string]models.RawConversationTurn),
	}
}

func (s *MemoryStore) SaveUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *MemoryStore) GetUser(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (s *MemoryStore) GetAllUsers() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SaveSpace(space *models.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.spaces[space.ID]; ok && prev.InviteCode != space.InviteCode {
		delete(s.inviteCodes, prev.InviteCode)
	}
	s.spaces[space.ID] = cloneSpace(*space)
	s.inviteCodes[space.InviteCode] = space.ID
	return nil
}

func (s *MemoryStore) GetSpace(id string) (*models.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneSpace(sp)
	return &out, nil
}

func (s *MemoryStore) GetSpaceByInviteCode(code string) (*models.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.inviteCodes[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	sp, ok := s.spaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneSpace(sp)
	return &out, nil
}

func (s *MemoryStore) DeleteSpace(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.inviteCodes, sp.InviteCode)
	delete(s.spaces, id)
	return nil
}

func (s *MemoryStore) SaveFilteredDocument(doc *models.FilteredDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

func (s *MemoryStore) ListSpaceDocuments(spaceID string, limit int) ([]models.FilteredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.FilteredDocument
	for _, d := range s.documents {
		if d.SpaceID == spaceID {
			out = append(out, d)
		}
	}
	// 最新的排在前面
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SavePendingApproval(approval *models.PendingApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals[approval.ID] = *approval
	return nil
}

func (s *MemoryStore) GetPendingApproval(id string) (*models.PendingApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.approvals[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := a
	return &out, nil
}

func (s *MemoryStore) GetPendingApprovals(userID string) ([]models.PendingApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PendingApproval
	for _, a := range s.approvals {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateApprovalStatus(id string, status models.ApprovalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.approvals[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	s.approvals[id] = a
	return nil
}

func (s *MemoryStore) SaveRawConversation(turn *models.RawConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.ID] = *turn
	return nil
}

func (s *MemoryStore) HealthCheck() error { return nil }

func (s *MemoryStore) Close() error { return nil }

// cloneUser / cloneSpace 深拷贝切片字段，避免调用方改写内部状态

func cloneUser(u models.User) models.User {
	u.Spaces = append([]string(nil), u.Spaces...)
	return u
}

func cloneSpace(sp models.Space) models.Space {
	sp.Members = append([]models.SpaceMember(nil), sp.Members...)
	sp.Policy = clonePolicy(sp.Policy)
	return sp
}

func clonePolicy(p models.Policy) models.Policy {
	p.InclusionCriteria = append([]string(nil), p.InclusionCriteria...)
	p.ExclusionCriteria = append([]string(nil), p.ExclusionCriteria...)
	p.TriggerKeywords = append([]string(nil), p.TriggerKeywords...)
	p.TriggerEntities = append([]string(nil), p.TriggerEntities...)
	p.RequireApprovalIf = append([]models.ApprovalRule(nil), p.RequireApprovalIf...)
	p.HighSensitivityTopics = append([]string(nil), p.HighSensitivityTopics...)
	return p
}
