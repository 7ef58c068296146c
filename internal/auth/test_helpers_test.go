package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
)

type fakeActivation struct {
	userID    pgtype.UUID
	expiresAt time.Time
	used      bool
}

// fakeQueries is an in-memory stand-in for the auth Querier.
type fakeQueries struct {
	mu             sync.Mutex
	now            func() time.Time
	usersByEmail   map[string]db.User
	usersByID      map[pgtype.UUID]db.User
	activations    map[string]*fakeActivation
	sessionsByHash map[string]db.RefreshSession
}

func newFakeQueries(now func() time.Time) *fakeQueries {
	if now == nil {
		now = time.Now
	}
	return &fakeQueries{
		now:            now,
		usersByEmail:   make(map[string]db.User),
		usersByID:      make(map[pgtype.UUID]db.User),
		activations:    make(map[string]*fakeActivation),
		sessionsByHash: make(map[string]db.RefreshSession),
	}
}

func newPgUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func (f *fakeQueries) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.usersByEmail[arg.Email]; exists {
		return db.User{}, &pgconn.PgError{Code: "23505"}
	}
	u := db.User{
		ID:           newPgUUID(),
		Name:         arg.Name,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Role:         arg.Role,
		IsActive:     false,
		CreatedAt:    pgtype.Timestamptz{Time: f.now(), Valid: true},
		UpdatedAt:    pgtype.Timestamptz{Time: f.now(), Valid: true},
	}
	f.usersByEmail[u.Email] = u
	f.usersByID[u.ID] = u
	return u, nil
}

func (f *fakeQueries) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByEmail[email]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeQueries) GetUserByID(_ context.Context, id pgtype.UUID) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByID[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeQueries) ActivateUser(_ context.Context, id pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.IsActive = true
	f.usersByID[id] = u
	f.usersByEmail[u.Email] = u
	return nil
}

func (f *fakeQueries) CreateActivationToken(_ context.Context, arg db.CreateActivationTokenParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activations[arg.TokenHash] = &fakeActivation{
		userID:    arg.UserID,
		expiresAt: arg.ExpiresAt.Time,
	}
	return nil
}

func (f *fakeQueries) ConsumeActivationToken(_ context.Context, tokenHash string) (pgtype.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activations[tokenHash]
	if !ok || a.used || f.now().After(a.expiresAt) {
		return pgtype.UUID{}, pgx.ErrNoRows
	}
	a.used = true
	return a.userID, nil
}

func (f *fakeQueries) CreateRefreshSession(_ context.Context, arg db.CreateRefreshSessionParams) (db.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := db.RefreshSession{
		ID:        newPgUUID(),
		UserID:    arg.UserID,
		TokenHash: arg.TokenHash,
		UserAgent: arg.UserAgent,
		IP:        arg.IP,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: pgtype.Timestamptz{Time: f.now(), Valid: true},
	}
	f.sessionsByHash[s.TokenHash] = s
	return s, nil
}

func (f *fakeQueries) GetRefreshSessionByHash(_ context.Context, tokenHash string) (db.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessionsByHash[tokenHash]
	if !ok || s.RevokedAt.Valid || f.now().After(s.ExpiresAt.Time) {
		return db.RefreshSession{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeQueries) RevokeRefreshSession(_ context.Context, id pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, s := range f.sessionsByHash {
		if s.ID == id {
			s.RevokedAt = pgtype.Timestamptz{Time: f.now(), Valid: true}
			f.sessionsByHash[hash] = s
		}
	}
	return nil
}

func (f *fakeQueries) RevokeUserRefreshSessions(_ context.Context, userID pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, s := range f.sessionsByHash {
		if s.UserID == userID && !s.RevokedAt.Valid {
			s.RevokedAt = pgtype.Timestamptz{Time: f.now(), Valid: true}
			f.sessionsByHash[hash] = s
		}
	}
	return nil
}

func (f *fakeQueries) liveSessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessionsByHash {
		if !s.RevokedAt.Valid {
			n++
		}
	}
	return n
}

// captureMailer records activation tokens instead of sending email.
type captureMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{tokens: make(map[string]string)}
}

func (m *captureMailer) SendActivation(_ context.Context, email, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[email] = token
	return nil
}

func (m *captureMailer) tokenFor(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

func newTestService(t interface{ Fatalf(string, ...any) }, now func() time.Time) (*Service, *fakeQueries, *captureMailer) {
	queries := newFakeQueries(now)
	mailer := newCaptureMailer()
	svc, err := NewService(Config{
		Queries:         queries,
		Mailer:          mailer,
		Secret:          "super-secret-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "pricing-api",
		Audience:        "storefront",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if now != nil {
		svc.WithNow(now)
	}
	return svc, queries, mailer
}
