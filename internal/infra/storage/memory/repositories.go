package memory

import (
	"context"
	"sync"

	domainguest "staymarket/internal/domain/guest"
	domainproperty "staymarket/internal/domain/property"
	domainquote "staymarket/internal/domain/quote"
	domainreservation "staymarket/internal/domain/reservation"
	domaintenant "staymarket/internal/domain/tenant"
)

// TenantRepository is an in-memory implementation used by tests and the
// default dev wiring.
type TenantRepository struct {
	mu    sync.RWMutex
	items map[domaintenant.TenantID]*domaintenant.Tenant
}

func NewTenantRepository() *TenantRepository {
	return &TenantRepository{items: make(map[domaintenant.TenantID]*domaintenant.Tenant)}
}

func (r *TenantRepository) ByID(ctx context.Context, id domaintenant.TenantID) (*domaintenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok {
		return nil, domaintenant.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *TenantRepository) ListActive(ctx context.Context) ([]*domaintenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domaintenant.Tenant
	for _, t := range r.items {
		if t.IsActive() {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *TenantRepository) Save(ctx context.Context, t *domaintenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *t
	r.items[t.ID] = &copied
	return nil
}

// PropertyRepository keeps properties keyed by id with a tenant index.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[domainproperty.PropertyID]*domainproperty.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[domainproperty.PropertyID]*domainproperty.Property)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainproperty.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *PropertyRepository) ActiveByTenant(ctx context.Context, tenantID domaintenant.TenantID) ([]*domainproperty.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainproperty.Property
	for _, p := range r.items {
		if p.TenantID == tenantID && p.IsActive() {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *p
	copied.ClearEvents()
	copied.Version++
	r.items[p.ID] = &copied
	p.Version = copied.Version
	return nil
}

// QuoteRepository stores quotes by id.
type QuoteRepository struct {
	mu    sync.RWMutex
	items map[domainquote.QuoteID]*domainquote.Quote
}

func NewQuoteRepository() *QuoteRepository {
	return &QuoteRepository{items: make(map[domainquote.QuoteID]*domainquote.Quote)}
}

func (r *QuoteRepository) ByID(ctx context.Context, id domainquote.QuoteID) (*domainquote.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.items[id]
	if !ok {
		return nil, domainquote.ErrNotFound
	}
	copied := *q
	return &copied, nil
}

func (r *QuoteRepository) Save(ctx context.Context, q *domainquote.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *q
	copied.ClearEvents()
	r.items[q.ID] = &copied
	return nil
}

// ReservationRepository enforces the confirmation-code unique constraint the
// way the Mongo index does.
type ReservationRepository struct {
	mu     sync.RWMutex
	items  map[domainreservation.ReservationID]*domainreservation.Reservation
	byCode map[string]domainreservation.ReservationID
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{
		items:  make(map[domainreservation.ReservationID]*domainreservation.Reservation),
		byCode: make(map[string]domainreservation.ReservationID),
	}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[id]
	if !ok {
		return nil, domainreservation.ErrNotFound
	}
	copied := *res
	return &copied, nil
}

func (r *ReservationRepository) ByCode(ctx context.Context, code string) (*domainreservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[code]
	if !ok {
		return nil, domainreservation.ErrNotFound
	}
	copied := *r.items[id]
	return &copied, nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.byCode[res.ConfirmationCode]; taken && owner != res.ID {
		return domainreservation.ErrDuplicateCode
	}
	if prev, ok := r.items[res.ID]; ok && prev.ConfirmationCode != res.ConfirmationCode {
		delete(r.byCode, prev.ConfirmationCode)
	}
	copied := *res
	copied.ClearEvents()
	copied.Version++
	r.items[res.ID] = &copied
	r.byCode[res.ConfirmationCode] = res.ID
	res.Version = copied.Version
	return nil
}

func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainreservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainreservation.Reservation
	for _, res := range r.items {
		if res.GuestID == guestID {
			copied := *res
			out = append(out, &copied)
		}
	}
	return out, nil
}

// GuestRepository indexes guests by id and by (tenant, email).
type GuestRepository struct {
	mu      sync.RWMutex
	items   map[domainguest.GuestID]*domainguest.Guest
	byEmail map[string]domainguest.GuestID
}

func NewGuestRepository() *GuestRepository {
	return &GuestRepository{
		items:   make(map[domainguest.GuestID]*domainguest.Guest),
		byEmail: make(map[string]domainguest.GuestID),
	}
}

func (r *GuestRepository) ByID(ctx context.Context, id domainguest.GuestID) (*domainguest.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.items[id]
	if !ok {
		return nil, domainguest.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *GuestRepository) ByEmail(ctx context.Context, tenantID domaintenant.TenantID, email string) (*domainguest.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[emailKey(tenantID, email)]
	if !ok {
		return nil, domainguest.ErrNotFound
	}
	copied := *r.items[id]
	return &copied, nil
}

func (r *GuestRepository) Save(ctx context.Context, g *domainguest.Guest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *g
	r.items[g.ID] = &copied
	r.byEmail[emailKey(g.TenantID, g.Email)] = g.ID
	return nil
}

func emailKey(tenantID domaintenant.TenantID, email string) string {
	return string(tenantID) + "/" + domainguest.NormalizeEmail(email)
}
