package portal

import "customer-portal-backend/internal/models"

// ReadApprovalSets holds the public ids a customer has read and approved in
// one project. It is never mutated: the With* methods return a new value so
// holders of an older pointer keep a consistent snapshot.
type ReadApprovalSets struct {
	read     map[string]struct{}
	approved map[string]struct{}
}

func NewReadApprovalSets(read, approved []string) *ReadApprovalSets {
	s := &ReadApprovalSets{
		read:     make(map[string]struct{}, len(read)),
		approved: make(map[string]struct{}, len(approved)),
	}
	for _, id := range read {
		s.read[id] = struct{}{}
	}
	for _, id := range approved {
		s.approved[id] = struct{}{}
	}
	return s
}

func (s *ReadApprovalSets) IsRead(publicID string) bool {
	_, ok := s.read[publicID]
	return ok
}

func (s *ReadApprovalSets) IsApproved(publicID string) bool {
	_, ok := s.approved[publicID]
	return ok
}

func (s *ReadApprovalSets) ReadCount() int     { return len(s.read) }
func (s *ReadApprovalSets) ApprovedCount() int { return len(s.approved) }

func (s *ReadApprovalSets) WithRead(publicID string) *ReadApprovalSets {
	if s.IsRead(publicID) {
		return s
	}
	next := &ReadApprovalSets{read: copySet(s.read, 1), approved: s.approved}
	next.read[publicID] = struct{}{}
	return next
}

func (s *ReadApprovalSets) WithApproved(publicID string) *ReadApprovalSets {
	if s.IsApproved(publicID) {
		return s
	}
	next := &ReadApprovalSets{read: s.read, approved: copySet(s.approved, 1)}
	next.approved[publicID] = struct{}{}
	return next
}

func copySet(src map[string]struct{}, extra int) map[string]struct{} {
	dst := make(map[string]struct{}, len(src)+extra)
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}

// DeriveStatus is the single rule both the preloaded and the per-file path
// use: approved wins, then read (from a mark or the record flag), else unread.
func DeriveStatus(approved, read bool) models.ReportStatus {
	switch {
	case approved:
		return models.ReportApproved
	case read:
		return models.ReportRead
	default:
		return models.ReportUnread
	}
}
