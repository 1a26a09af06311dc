package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradelink/internal/core/domain"
)

// --- In-Memory Link Registry ---

type inMemoryLinkRepo struct {
	mu    sync.RWMutex
	links map[string]*domain.LinkRecord
}

func newInMemoryLinkRepo() *inMemoryLinkRepo {
	return &inMemoryLinkRepo{links: make(map[string]*domain.LinkRecord)}
}

func (r *inMemoryLinkRepo) Upsert(ctx context.Context, userID, secretRef string) (*domain.LinkRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	rec, ok := r.links[userID]
	if !ok {
		rec = &domain.LinkRecord{UserID: userID, CreatedAt: now}
		r.links[userID] = rec
	}
	rec.SecretRef = secretRef
	rec.RevokedAt = nil
	rec.UpdatedAt = now
	cp := *rec
	return &cp, nil
}

func (r *inMemoryLinkRepo) Revoke(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.links[userID]
	if !ok || rec.RevokedAt != nil {
		return nil
	}
	now := time.Now()
	rec.RevokedAt = &now
	rec.UpdatedAt = now
	return nil
}

func (r *inMemoryLinkRepo) Get(ctx context.Context, userID string) (*domain.LinkRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.links[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// --- In-Memory Secret Vault ---

type inMemoryVault struct {
	mu        sync.RWMutex
	namespace string
	env       string
	versions  map[string][]domain.CredentialBundle
}

func newInMemoryVault(namespace, env string) *inMemoryVault {
	return &inMemoryVault{
		namespace: namespace,
		env:       env,
		versions:  make(map[string][]domain.CredentialBundle),
	}
}

func (v *inMemoryVault) ResourceName(userID string) string {
	return fmt.Sprintf("%s/%s/users/%s/exchange-keys", v.namespace, v.env, userID)
}

func (v *inMemoryVault) Ensure(ctx context.Context, userID string) (string, error) {
	name := v.ResourceName(userID)
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.versions[name]; !ok {
		v.versions[name] = nil
	}
	return name, nil
}

func (v *inMemoryVault) AddVersion(ctx context.Context, resourceName string, bundle domain.CredentialBundle) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.versions[resourceName] = append(v.versions[resourceName], bundle)
	return fmt.Sprintf("%s/versions/%d", resourceName, len(v.versions[resourceName])), nil
}

func (v *inMemoryVault) ReadLatest(ctx context.Context, resourceName string) (*domain.CredentialBundle, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	vs := v.versions[resourceName]
	if len(vs) == 0 {
		return nil, nil
	}
	cp := vs[len(vs)-1]
	return &cp, nil
}

func (v *inMemoryVault) versionCount(resourceName string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.versions[resourceName])
}

// --- In-Memory Trade Audit ---

type inMemoryAuditRepo struct {
	mu     sync.RWMutex
	audits []domain.TradeAudit
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, audit *domain.TradeAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, *audit)
	return nil
}

func (r *inMemoryAuditRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.audits)
}

// --- Recording Order Placer ---

type recordingPlacer struct {
	mu     sync.Mutex
	orders []domain.OrderRequest
	err    error
}

func (p *recordingPlacer) Place(ctx context.Context, creds domain.CredentialBundle, req domain.OrderRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.orders = append(p.orders, req)
	return nil
}

func (p *recordingPlacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.orders)
}
