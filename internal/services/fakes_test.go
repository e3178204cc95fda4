package services

import (
	"context"
	"sort"
	"time"

	"smartdalali_backend/internal/gateway"
	"smartdalali_backend/internal/models"
	"smartdalali_backend/internal/repositories"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// In-memory repository fakes used across the service tests.

type fakePaymentRepo struct {
	byID      map[string]*models.Payment
	createErr error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: make(map[string]*models.Payment)}
}

func (f *fakePaymentRepo) add(p *models.Payment) *models.Payment {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	f.byID[p.ID] = p
	return p
}

func (f *fakePaymentRepo) Create(payment *models.Payment) error {
	if f.createErr != nil {
		return f.createErr
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	f.add(payment)
	return nil
}

func (f *fakePaymentRepo) FindByID(id string) (*models.Payment, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePaymentRepo) FindByTransactionID(transactionID string) (*models.Payment, error) {
	for _, p := range f.byID {
		if p.TransactionID == transactionID {
			return p, nil
		}
	}
	return nil, repositories.ErrPaymentNotFound
}

func (f *fakePaymentRepo) all() []models.Payment {
	out := make([]models.Payment, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakePaymentRepo) FindAll() ([]models.Payment, error) {
	return f.all(), nil
}

func (f *fakePaymentRepo) FindByUser(userID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.all() {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) FindByUserOrPropertyOwner(userID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.all() {
		if p.UserID == userID || (p.Property != nil && p.Property.OwnerID == userID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) Reconcile(id string, status models.PaymentStatus, callbackPayload datatypes.JSON) (bool, error) {
	p, ok := f.byID[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.CallbackPayload = callbackPayload
	return true, nil
}

func (f *fakePaymentRepo) TransitionStatus(id string, from, to models.PaymentStatus) (bool, error) {
	p, ok := f.byID[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (f *fakePaymentRepo) SetStatus(id string, status models.PaymentStatus) error {
	p, ok := f.byID[id]
	if !ok {
		return repositories.ErrPaymentNotFound
	}
	p.Status = status
	return nil
}

func (f *fakePaymentRepo) FailStalePending(cutoff time.Time) (int64, error) {
	var n int64
	for _, p := range f.byID {
		if p.Status == models.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			p.Status = models.PaymentStatusFailed
			n++
		}
	}
	return n, nil
}

type fakePropertyRepo struct {
	byID map[string]*models.Property
}

func newFakePropertyRepo() *fakePropertyRepo {
	return &fakePropertyRepo{byID: make(map[string]*models.Property)}
}

func (f *fakePropertyRepo) add(p *models.Property) *models.Property {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	f.byID[p.ID] = p
	return p
}

func (f *fakePropertyRepo) FindByID(id string) (*models.Property, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrPropertyNotFound
	}
	return p, nil
}

type fakeAgentProfileRepo struct {
	byUserID    map[string]*models.AgentProfile
	updateCalls int
}

func newFakeAgentProfileRepo() *fakeAgentProfileRepo {
	return &fakeAgentProfileRepo{byUserID: make(map[string]*models.AgentProfile)}
}

func (f *fakeAgentProfileRepo) add(p *models.AgentProfile) *models.AgentProfile {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	f.byUserID[p.UserID] = p
	return p
}

func (f *fakeAgentProfileRepo) FindByUserID(userID string) (*models.AgentProfile, error) {
	p, ok := f.byUserID[userID]
	if !ok {
		return nil, repositories.ErrAgentProfileNotFound
	}
	return p, nil
}

func (f *fakeAgentProfileRepo) UpdateSubscription(profileID string, active bool, expires time.Time) error {
	for _, p := range f.byUserID {
		if p.ID == profileID {
			p.SubscriptionActive = active
			exp := expires
			p.SubscriptionExpires = &exp
			f.updateCalls++
			return nil
		}
	}
	return repositories.ErrAgentProfileNotFound
}

func (f *fakeAgentProfileRepo) DeactivateExpired(now time.Time) (int64, error) {
	var n int64
	for _, p := range f.byUserID {
		if p.SubscriptionActive && p.SubscriptionExpires != nil && p.SubscriptionExpires.Before(now) {
			p.SubscriptionActive = false
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	byID map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*models.User)}
}

func (f *fakeUserRepo) add(u *models.User) *models.User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUserRepo) FindByID(id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) Create(user *models.User) error {
	f.add(user)
	return nil
}

type fakeMailer struct {
	sent     []string
	extended []string
}

func (f *fakeMailer) SendPaymentCompleted(to, name, amount, transactionID, propertyTitle string) error {
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeMailer) SendSubscriptionExtended(to, name string, expires time.Time) error {
	f.extended = append(f.extended, to)
	return nil
}

type fakeGateway struct {
	resp       *gateway.STKPushResponse
	err        error
	lastParams *gateway.STKPushParams
}

func (f *fakeGateway) STKPush(ctx context.Context, params *gateway.STKPushParams) (*gateway.STKPushResponse, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}
