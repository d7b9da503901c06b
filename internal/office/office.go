// Package office holds the tenant registry: each dental office carries its
// configured PMS type and the vendor credentials the adapter factory needs.
package office

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brettulin/okdentalai/internal/pms"
)

var (
	ErrOfficeNotFound = errors.New("office: not found")
	ErrInvalidOffice  = errors.New("office: name and pms type are required")
)

// Office is one tenant of the platform.
type Office struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	PMSType   string      `json:"pms_type"`
	Secrets   pms.Secrets `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CreateOfficeRequest is the payload for registering an office.
type CreateOfficeRequest struct {
	Name    string      `json:"name" validate:"required"`
	PMSType string      `json:"pms_type" validate:"required"`
	Secrets pms.Secrets `json:"secrets"`
}

// Repository defines the interface for office storage.
type Repository interface {
	Create(ctx context.Context, req *CreateOfficeRequest) (*Office, error)
	GetByID(ctx context.Context, id string) (*Office, error)
	List(ctx context.Context) ([]*Office, error)
	SetPMSType(ctx context.Context, id, pmsType string, secrets pms.Secrets) (*Office, error)
}

// InMemoryRepository implements Repository with in-memory storage.
type InMemoryRepository struct {
	mu      sync.RWMutex
	offices map[string]*Office
	now     func() time.Time
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		offices: make(map[string]*Office),
		now:     time.Now,
	}
}

// Create registers a new office.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateOfficeRequest) (*Office, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.PMSType) == "" {
		return nil, ErrInvalidOffice
	}

	now := r.now().UTC()
	o := &Office{
		ID:        uuid.New().String(),
		Name:      req.Name,
		PMSType:   strings.ToLower(strings.TrimSpace(req.PMSType)),
		Secrets:   req.Secrets,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.offices[o.ID] = o
	r.mu.Unlock()

	return o, nil
}

// GetByID retrieves an office by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Office, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.offices[id]
	if !ok {
		return nil, ErrOfficeNotFound
	}
	copied := *o
	return &copied, nil
}

// List returns all registered offices.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Office, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Office, 0, len(r.offices))
	for _, o := range r.offices {
		copied := *o
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetPMSType switches an office to a different PMS vendor, replacing its
// credentials wholesale so stale secrets never leak across vendors.
func (r *InMemoryRepository) SetPMSType(ctx context.Context, id, pmsType string, secrets pms.Secrets) (*Office, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.offices[id]
	if !ok {
		return nil, ErrOfficeNotFound
	}
	o.PMSType = strings.ToLower(strings.TrimSpace(pmsType))
	o.Secrets = secrets
	o.UpdatedAt = r.now().UTC()

	copied := *o
	return &copied, nil
}
