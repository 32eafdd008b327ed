package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fastship/backend/internal/notify"
	"github.com/fastship/backend/internal/revocation"
	"github.com/fastship/backend/internal/services"
	"github.com/fastship/backend/internal/store"
	"github.com/fastship/backend/internal/token"
	"github.com/fastship/backend/types"
)

const testSecret = "handlers-test-secret"

// memUserRepo is an in-memory services.UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[uuid.UUID]types.User{}}
}

func (m *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return m.find(func(u types.User) bool { return u.Username == username })
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return m.find(func(u types.User) bool { return u.Email == email })
}

func (m *memUserRepo) GetByLogin(ctx context.Context, login string) (types.User, error) {
	return m.find(func(u types.User) bool { return u.Username == login || u.Email == login })
}

func (m *memUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uuid.New()
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserRepo) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.EmailVerified = true
	m.users[id] = user
	return nil
}

func (m *memUserRepo) SetPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	m.users[id] = user
	return nil
}

func (m *memUserRepo) find(match func(types.User) bool) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if match(user) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

// memShipmentRepo is an in-memory services.ShipmentRepository.
type memShipmentRepo struct {
	mu        sync.Mutex
	shipments map[uuid.UUID]types.Shipment
}

func newMemShipmentRepo() *memShipmentRepo {
	return &memShipmentRepo{shipments: map[uuid.UUID]types.Shipment{}}
}

func (m *memShipmentRepo) GetByID(ctx context.Context, id uuid.UUID) (types.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	shipment, ok := m.shipments[id]
	if !ok {
		return types.Shipment{}, store.ErrNotFound
	}
	return shipment, nil
}

func (m *memShipmentRepo) ListAll(ctx context.Context) ([]types.Shipment, error) {
	return m.list(func(types.Shipment) bool { return true })
}

func (m *memShipmentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Shipment, error) {
	return m.list(func(s types.Shipment) bool { return s.BuyerID == userID || s.SellerID == userID })
}

func (m *memShipmentRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]types.Shipment, error) {
	return m.list(func(s types.Shipment) bool { return s.BuyerID == buyerID })
}

func (m *memShipmentRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]types.Shipment, error) {
	return m.list(func(s types.Shipment) bool { return s.SellerID == sellerID })
}

func (m *memShipmentRepo) Create(ctx context.Context, shipment types.Shipment) (types.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	shipment.ID = uuid.New()
	m.shipments[shipment.ID] = shipment
	return shipment, nil
}

func (m *memShipmentRepo) SetApprovalStatus(ctx context.Context, id uuid.UUID, status types.ApprovalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	shipment, ok := m.shipments[id]
	if !ok {
		return store.ErrNotFound
	}
	shipment.ApprovalStatus = status
	m.shipments[id] = shipment
	return nil
}

func (m *memShipmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shipments[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.shipments, id)
	return nil
}

func (m *memShipmentRepo) list(match func(types.Shipment) bool) ([]types.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []types.Shipment
	for _, shipment := range m.shipments {
		if match(shipment) {
			result = append(result, shipment)
		}
	}
	return result, nil
}

// recordingNotifier satisfies both notifier contracts and captures
// the tokens and events instead of queueing email.
type recordingNotifier struct {
	mu                 sync.Mutex
	verificationTokens map[string]string
	resetTokens        map[string]string
	created            []types.Shipment
	modified           []types.Shipment
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		verificationTokens: map[string]string{},
		resetTokens:        map[string]string{},
	}
}

func (n *recordingNotifier) VerificationEmail(user types.User, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verificationTokens[user.Email] = token
}

func (n *recordingNotifier) PasswordResetEmail(user types.User, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetTokens[user.Email] = token
}

func (n *recordingNotifier) ShipmentCreated(shipment types.Shipment, seller, buyer types.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, shipment)
}

func (n *recordingNotifier) ApprovalModified(shipment types.Shipment, seller, buyer types.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.modified = append(n.modified, shipment)
}

func (n *recordingNotifier) verificationTokenFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verificationTokens[email]
}

// memKV is an in-memory revocation.KV with expiry.
type memKV struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newMemKV() *memKV {
	return &memKV{entries: map[string]time.Time{}}
}

func (m *memKV) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = time.Now().Add(ttl)
	return nil
}

func (m *memKV) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deadline, ok := m.entries[key]
	return ok && time.Now().Before(deadline), nil
}

// harness wires real services over in-memory backends behind the same
// routing the server installs.
type harness struct {
	router   chi.Router
	notifier *recordingNotifier
	tokens   *token.Service
	hub      *notify.Hub
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	userRepo := newMemUserRepo()
	shipmentRepo := newMemShipmentRepo()
	notifier := newRecordingNotifier()

	tokens := token.NewService(testSecret)
	signer := token.NewSigner(testSecret)
	revoked := revocation.NewStore(newMemKV())

	userService := services.NewUserService(userRepo, tokens, signer, notifier)
	shipmentService := services.NewShipmentService(shipmentRepo, userRepo, notifier)

	guard := NewGuard(tokens, revoked)
	userHandler := NewUserHandler(userService, shipmentService, revoked, guard)
	shipmentHandler := NewShipmentHandler(shipmentService, userService)

	hub := notify.NewHub()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wsHandler := NewWSHandler(guard, hub, logger)

	router := chi.NewRouter()
	router.Get("/ws", wsHandler.Serve)
	router.Group(func(r chi.Router) {
		UserRouter(r, userHandler)
	})
	router.Route("/shipments", func(r chi.Router) {
		ShipmentRouter(r, shipmentHandler, guard)
	})

	return &harness{router: router, notifier: notifier, tokens: tokens, hub: hub}
}

// do performs a request against the in-process router.
func (h *harness) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&value))
	return value
}

// errorCode extracts the code from an error envelope.
func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	envelope := decodeBody[ErrorResponse](t, recorder)
	require.NotNil(t, envelope.Error)
	return string(envelope.Error.Code)
}

// signupAndLogin registers a user, verifies the email, and returns a
// fresh access token.
func (h *harness) signupAndLogin(t *testing.T, username, email, password string) string {
	t.Helper()

	resp := h.do(t, http.MethodPost, "/signup", "", SignupRequest{
		Username: username,
		FullName: "Test " + username,
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	verificationToken := h.notifier.verificationTokenFor(email)
	require.NotEmpty(t, verificationToken)
	resp = h.do(t, http.MethodPost, "/verify-email", "", VerifyEmailRequest{Token: verificationToken})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = h.do(t, http.MethodPost, "/token", "", LoginRequest{Login: username, Password: password})
	require.Equal(t, http.StatusOK, resp.Code)
	return decodeBody[TokenResponse](t, resp).AccessToken
}
