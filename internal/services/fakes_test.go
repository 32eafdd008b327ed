package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fastship/backend/internal/store"
	"github.com/fastship/backend/types"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]types.User{}}
}

func (f *fakeUserRepo) add(user types.User) types.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return f.find(func(u types.User) bool { return u.Username == username })
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return f.find(func(u types.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) GetByLogin(ctx context.Context, login string) (types.User, error) {
	return f.find(func(u types.User) bool { return u.Username == login || u.Email == login })
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	return f.add(user), nil
}

func (f *fakeUserRepo) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.EmailVerified = true
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) SetPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) find(match func(types.User) bool) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if match(user) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

// fakeShipmentRepo is an in-memory ShipmentRepository.
type fakeShipmentRepo struct {
	mu        sync.Mutex
	shipments map[uuid.UUID]types.Shipment
}

func newFakeShipmentRepo() *fakeShipmentRepo {
	return &fakeShipmentRepo{shipments: map[uuid.UUID]types.Shipment{}}
}

func (f *fakeShipmentRepo) GetByID(ctx context.Context, id uuid.UUID) (types.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	shipment, ok := f.shipments[id]
	if !ok {
		return types.Shipment{}, store.ErrNotFound
	}
	return shipment, nil
}

func (f *fakeShipmentRepo) ListAll(ctx context.Context) ([]types.Shipment, error) {
	return f.list(func(types.Shipment) bool { return true })
}

func (f *fakeShipmentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Shipment, error) {
	return f.list(func(s types.Shipment) bool { return s.BuyerID == userID || s.SellerID == userID })
}

func (f *fakeShipmentRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]types.Shipment, error) {
	return f.list(func(s types.Shipment) bool { return s.BuyerID == buyerID })
}

func (f *fakeShipmentRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]types.Shipment, error) {
	return f.list(func(s types.Shipment) bool { return s.SellerID == sellerID })
}

func (f *fakeShipmentRepo) Create(ctx context.Context, shipment types.Shipment) (types.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	f.shipments[shipment.ID] = shipment
	return shipment, nil
}

func (f *fakeShipmentRepo) SetApprovalStatus(ctx context.Context, id uuid.UUID, status types.ApprovalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	shipment, ok := f.shipments[id]
	if !ok {
		return store.ErrNotFound
	}
	shipment.ApprovalStatus = status
	f.shipments[id] = shipment
	return nil
}

func (f *fakeShipmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shipments[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.shipments, id)
	return nil
}

func (f *fakeShipmentRepo) list(match func(types.Shipment) bool) ([]types.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []types.Shipment
	for _, shipment := range f.shipments {
		if match(shipment) {
			result = append(result, shipment)
		}
	}
	return result, nil
}

// fakeNotifier records dispatched notifications.
type fakeNotifier struct {
	mu                 sync.Mutex
	verificationTokens map[string]string // email -> token
	resetTokens        map[string]string // email -> token
	created            []types.Shipment
	modified           []types.Shipment
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		verificationTokens: map[string]string{},
		resetTokens:        map[string]string{},
	}
}

func (f *fakeNotifier) VerificationEmail(user types.User, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verificationTokens[user.Email] = token
}

func (f *fakeNotifier) PasswordResetEmail(user types.User, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetTokens[user.Email] = token
}

func (f *fakeNotifier) ShipmentCreated(shipment types.Shipment, seller, buyer types.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, shipment)
}

func (f *fakeNotifier) ApprovalModified(shipment types.Shipment, seller, buyer types.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modified = append(f.modified, shipment)
}

func (f *fakeNotifier) verificationTokenFor(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verificationTokens[email]
}

func (f *fakeNotifier) resetTokenFor(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resetTokens[email]
}
