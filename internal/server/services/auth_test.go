package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizzyapp/quizzy-backend/internal/apperror"
	"github.com/quizzyapp/quizzy-backend/internal/common"
	"github.com/quizzyapp/quizzy-backend/internal/dbx"
	"github.com/quizzyapp/quizzy-backend/internal/logging"
	"github.com/quizzyapp/quizzy-backend/internal/server/auth"
	"github.com/quizzyapp/quizzy-backend/internal/server/config"
	"github.com/quizzyapp/quizzy-backend/internal/server/mail"
	"github.com/quizzyapp/quizzy-backend/internal/server/models"
	"github.com/quizzyapp/quizzy-backend/internal/server/repositories/repomanager"
	"github.com/quizzyapp/quizzy-backend/internal/server/repositories/sessions"
	"github.com/quizzyapp/quizzy-backend/internal/server/repositories/users"
	"github.com/quizzyapp/quizzy-backend/internal/server/repositories/verificationcodes"
)

// fakeStore is a single in-memory backing store shared by the fake
// repositories, so transactional and non-transactional calls observe the
// same data.
type fakeStore struct {
	users    map[string]*models.User
	sessions map[string]*models.Session
	codes    map[string]*models.VerificationCode
	nextID   int

	createUserErr    error
	setVerifiedErr   error
	deleteSessionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*models.User{},
		sessions: map[string]*models.Session{},
		codes:    map[string]*models.VerificationCode{},
	}
}

func (s *fakeStore) id() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

type fakeUsers struct{ s *fakeStore }

func (r *fakeUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if r.s.createUserErr != nil {
		return nil, r.s.createUserErr
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	now := time.Now()
	created := &models.User{
		ID: r.s.id(), Email: user.Email, PasswordHash: user.PasswordHash,
		CreatedAt: now, UpdatedAt: now,
	}
	r.s.users[created.ID] = created
	return created, nil
}

func (r *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.s.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *fakeUsers) SetVerified(ctx context.Context, id string) (*models.User, error) {
	if r.s.setVerifiedErr != nil {
		return nil, r.s.setVerifiedErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Verified = true
	u.UpdatedAt = time.Now()
	return u, nil
}

type fakeSessions struct{ s *fakeStore }

func (r *fakeSessions) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	created := &models.Session{
		ID: r.s.id(), UserID: session.UserID, UserAgent: session.UserAgent,
		CreatedAt: time.Now(), ExpiresAt: session.ExpiresAt,
	}
	r.s.sessions[created.ID] = created
	return created, nil
}

func (r *fakeSessions) Get(ctx context.Context, id string) (*models.Session, error) {
	if s, ok := r.s.sessions[id]; ok {
		return s, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeSessions) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) (*models.Session, error) {
	s, ok := r.s.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	s.ExpiresAt = expiresAt
	return s, nil
}

func (r *fakeSessions) Delete(ctx context.Context, id string) error {
	if r.s.deleteSessionErr != nil {
		return r.s.deleteSessionErr
	}
	delete(r.s.sessions, id)
	return nil
}

type fakeCodes struct{ s *fakeStore }

func (r *fakeCodes) Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error) {
	created := &models.VerificationCode{
		ID: r.s.id(), UserID: code.UserID, Type: code.Type,
		CreatedAt: time.Now(), ExpiresAt: code.ExpiresAt,
	}
	r.s.codes[created.ID] = created
	return created, nil
}

func (r *fakeCodes) FindValid(ctx context.Context, id string, codeType models.VerificationCodeType, now time.Time) (*models.VerificationCode, error) {
	c, ok := r.s.codes[id]
	if !ok || c.Type != codeType || !c.ExpiresAt.After(now) {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (r *fakeCodes) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.codes[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.codes, id)
	return nil
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return &fakeUsers{s: m.s} }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessions.Repository {
	return &fakeSessions{s: m.s}
}
func (m *fakeRepoManager) VerificationCodes(db dbx.DBTX) verificationcodes.Repository {
	return &fakeCodes{s: m.s}
}

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

type sentMail struct {
	to  string
	msg mail.Message
}

type recordMailer struct {
	sent    []sentMail
	sendErr error
}

func (m *recordMailer) Send(ctx context.Context, to string, msg mail.Message) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{to: to, msg: msg})
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppOrigin:                    "https://quizzy.test",
		JWTSecret:                    "test-access-secret",
		JWTRefreshSecret:             "test-refresh-secret",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 30 * 24 * time.Hour,
	}
}

func newTestService(t *testing.T) (*AuthService, *fakeStore, *recordMailer, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := newFakeStore()
	mailer := &recordMailer{}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	svc := NewAuthService(db, &fakeRepoManager{s: store}, mailer, logger, testConfig())
	return svc, store, mailer, mock
}

func expectTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, message, appErr.Message)
}

func TestRegister(t *testing.T) {
	svc, store, mailer, mock := newTestService(t)
	expectTx(mock)

	result, err := svc.Register(context.Background(), "alice@example.com", "secret1", "curl/8.0")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.False(t, result.User.Verified)
	assert.Empty(t, result.User.PasswordHash)

	accessClaims, err := auth.ParseAccessToken(result.AccessToken, []byte("test-access-secret"))
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, accessClaims.UserID)

	refreshClaims, err := auth.ParseRefreshToken(result.RefreshToken, []byte("test-refresh-secret"))
	require.NoError(t, err)
	assert.Equal(t, accessClaims.SessionID, refreshClaims.SessionID)

	session, ok := store.sessions[accessClaims.SessionID]
	require.True(t, ok, "session must be persisted")
	assert.Equal(t, result.User.ID, session.UserID)
	assert.Equal(t, "curl/8.0", session.UserAgent)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), session.ExpiresAt, time.Minute)

	require.Len(t, store.codes, 1)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@example.com", mailer.sent[0].to)
	for _, code := range store.codes {
		assert.Equal(t, models.VerificationEmail, code.Type)
		assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), code.ExpiresAt, time.Minute)
		assert.Contains(t, mailer.sent[0].msg.Text, "https://quizzy.test/email/verify/"+code.ID)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	store.users["user-1"] = &models.User{ID: "user-1", Email: "alice@example.com"}

	_, err := svc.Register(context.Background(), "alice@example.com", "secret1", "")
	requireAppError(t, err, http.StatusConflict, "Email already in use")
}

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	// The existence precheck passes but the insert loses the race.
	svc, store, _, mock := newTestService(t)
	store.createUserErr = common.ErrorAlreadyExists
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Register(context.Background(), "alice@example.com", "secret1", "")
	requireAppError(t, err, http.StatusConflict, "Email already in use")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_MailFailureIsNotFatal(t *testing.T) {
	svc, _, mailer, mock := newTestService(t)
	mailer.sendErr = fmt.Errorf("smtp down")
	expectTx(mock)

	result, err := svc.Register(context.Background(), "alice@example.com", "secret1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}

func seedUser(t *testing.T, store *fakeStore, email, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{ID: store.id(), Email: email, PasswordHash: hash}
	store.users[user.ID] = user
	return user
}

func TestLogin(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	user := seedUser(t, store, "alice@example.com", "secret1")

	result, err := svc.Login(context.Background(), "alice@example.com", "secret1", "curl/8.0")
	require.NoError(t, err)

	assert.Equal(t, user.ID, result.User.ID)
	assert.Empty(t, result.User.PasswordHash)

	claims, err := auth.ParseAccessToken(result.AccessToken, []byte("test-access-secret"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Contains(t, store.sessions, claims.SessionID)
}

func TestLogin_EachLoginGetsItsOwnSession(t *testing.T) {
	svc, _, _, mock := newTestService(t)
	expectTx(mock)

	registered, err := svc.Register(context.Background(), "alice@example.com", "secret1", "")
	require.NoError(t, err)

	logged, err := svc.Login(context.Background(), "alice@example.com", "secret1", "")
	require.NoError(t, err)

	c1, err := auth.ParseAccessToken(registered.AccessToken, []byte("test-access-secret"))
	require.NoError(t, err)
	c2, err := auth.ParseAccessToken(logged.AccessToken, []byte("test-access-secret"))
	require.NoError(t, err)
	assert.NotEqual(t, c1.SessionID, c2.SessionID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	seedUser(t, store, "alice@example.com", "secret1")

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong", "")
	requireAppError(t, err, http.StatusUnauthorized, "Invalid email or password")
}

func TestLogin_UnknownEmailSharesMessageWithWrongPassword(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	seedUser(t, store, "alice@example.com", "secret1")

	_, unknownErr := svc.Login(context.Background(), "nobody@example.com", "secret1", "")
	_, wrongErr := svc.Login(context.Background(), "alice@example.com", "wrong", "")

	requireAppError(t, unknownErr, http.StatusUnauthorized, "Invalid email or password")
	assert.Equal(t, wrongErr.Error(), unknownErr.Error())
}

func TestLogout(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	store.sessions["session-1"] = &models.Session{ID: "session-1", UserID: "user-1"}

	token, err := auth.SignAccessToken("user-1", "session-1", auth.SignOptions{
		Secret: []byte("test-access-secret"), TTL: time.Minute,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))
	assert.NotContains(t, store.sessions, "session-1")
}

func TestLogout_BadTokenSucceeds(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	store.sessions["session-1"] = &models.Session{ID: "session-1"}

	require.NoError(t, svc.Logout(context.Background(), "garbage"))
	assert.Contains(t, store.sessions, "session-1", "a bad token must not touch any session")
}

func TestLogout_StorageFailureSucceeds(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	store.deleteSessionErr = fmt.Errorf("db down")

	token, err := auth.SignAccessToken("user-1", "session-1", auth.SignOptions{
		Secret: []byte("test-access-secret"), TTL: time.Minute,
	})
	require.NoError(t, err)

	assert.NoError(t, svc.Logout(context.Background(), token))
}

func seedSession(store *fakeStore, userID string, expiresAt time.Time) *models.Session {
	session := &models.Session{ID: store.id(), UserID: userID, ExpiresAt: expiresAt}
	store.sessions[session.ID] = session
	return session
}

func signRefresh(t *testing.T, sessionID string) string {
	t.Helper()
	token, err := auth.SignRefreshToken(sessionID, auth.SignOptions{
		Secret: []byte("test-refresh-secret"), TTL: time.Hour,
	})
	require.NoError(t, err)
	return token
}

func TestRefreshAccessToken_FarFromExpiry(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	session := seedSession(store, "user-1", time.Now().Add(10*24*time.Hour))

	result, err := svc.RefreshAccessToken(context.Background(), signRefresh(t, session.ID))
	require.NoError(t, err)

	assert.Empty(t, result.RefreshToken, "no rotation while the session has plenty of life left")

	claims, err := auth.ParseAccessToken(result.AccessToken, []byte("test-access-secret"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, session.ID, claims.SessionID)
}

func TestRefreshAccessToken_NearExpiryRotates(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	session := seedSession(store, "user-1", time.Now().Add(time.Hour))

	result, err := svc.RefreshAccessToken(context.Background(), signRefresh(t, session.ID))
	require.NoError(t, err)

	require.NotEmpty(t, result.RefreshToken)
	claims, err := auth.ParseRefreshToken(result.RefreshToken, []byte("test-refresh-secret"))
	require.NoError(t, err)
	assert.Equal(t, session.ID, claims.SessionID, "rotation keeps the session id")

	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), store.sessions[session.ID].ExpiresAt, time.Minute)
}

func TestRefreshAccessToken_ExpiredSession(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	session := seedSession(store, "user-1", time.Now().Add(-time.Minute))

	_, err := svc.RefreshAccessToken(context.Background(), signRefresh(t, session.ID))
	requireAppError(t, err, http.StatusUnauthorized, "Session expired")
}

func TestRefreshAccessToken_RevokedSession(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.RefreshAccessToken(context.Background(), signRefresh(t, "gone"))
	requireAppError(t, err, http.StatusUnauthorized, "Session expired")
}

func TestRefreshAccessToken_InvalidToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.RefreshAccessToken(context.Background(), "garbage")
	requireAppError(t, err, http.StatusUnauthorized, "Invalid refresh token")
}

func TestRefreshAccessToken_RejectsAccessSecretToken(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	session := seedSession(store, "user-1", time.Now().Add(10*24*time.Hour))

	token, err := auth.SignRefreshToken(session.ID, auth.SignOptions{
		Secret: []byte("test-access-secret"), TTL: time.Hour,
	})
	require.NoError(t, err)

	_, err = svc.RefreshAccessToken(context.Background(), token)
	requireAppError(t, err, http.StatusUnauthorized, "Invalid refresh token")
}

func seedCode(store *fakeStore, userID string, codeType models.VerificationCodeType, expiresAt time.Time) *models.VerificationCode {
	code := &models.VerificationCode{ID: store.id(), UserID: userID, Type: codeType, ExpiresAt: expiresAt}
	store.codes[code.ID] = code
	return code
}

func TestVerifyEmail(t *testing.T) {
	svc, store, _, mock := newTestService(t)
	user := seedUser(t, store, "alice@example.com", "secret1")
	code := seedCode(store, user.ID, models.VerificationEmail, time.Now().Add(time.Hour))
	expectTx(mock)

	verified, err := svc.VerifyEmail(context.Background(), code.ID)
	require.NoError(t, err)

	assert.True(t, verified.Verified)
	assert.Empty(t, verified.PasswordHash)
	assert.NotContains(t, store.codes, code.ID, "code must be consumed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyEmail_CodeIsSingleUse(t *testing.T) {
	svc, store, _, mock := newTestService(t)
	user := seedUser(t, store, "alice@example.com", "secret1")
	code := seedCode(store, user.ID, models.VerificationEmail, time.Now().Add(time.Hour))
	expectTx(mock)

	_, err := svc.VerifyEmail(context.Background(), code.ID)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(context.Background(), code.ID)
	requireAppError(t, err, http.StatusNotFound, "Invalid or expired verification code")
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	user := seedUser(t, store, "alice@example.com", "secret1")
	code := seedCode(store, user.ID, models.VerificationEmail, time.Now().Add(-time.Minute))

	_, err := svc.VerifyEmail(context.Background(), code.ID)
	requireAppError(t, err, http.StatusNotFound, "Invalid or expired verification code")
}

func TestVerifyEmail_WrongTypeCode(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	user := seedUser(t, store, "alice@example.com", "secret1")
	code := seedCode(store, user.ID, models.VerificationPasswordReset, time.Now().Add(time.Hour))

	_, err := svc.VerifyEmail(context.Background(), code.ID)
	requireAppError(t, err, http.StatusNotFound, "Invalid or expired verification code")
}

func TestVerifyEmail_StorageFailure(t *testing.T) {
	svc, store, _, mock := newTestService(t)
	user := seedUser(t, store, "alice@example.com", "secret1")
	code := seedCode(store, user.ID, models.VerificationEmail, time.Now().Add(time.Hour))
	store.setVerifiedErr = fmt.Errorf("db down")
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.VerifyEmail(context.Background(), code.ID)
	requireAppError(t, err, http.StatusInternalServerError, "Failed to verify email")
}

func TestAuthFlow_EndToEnd(t *testing.T) {
	svc, store, mailer, mock := newTestService(t)
	expectTx(mock)

	registered, err := svc.Register(context.Background(), "a@b.co", "secret1", "")
	require.NoError(t, err)

	logged, err := svc.Login(context.Background(), "a@b.co", "secret1", "")
	require.NoError(t, err)

	regClaims, err := auth.ParseAccessToken(registered.AccessToken, []byte("test-access-secret"))
	require.NoError(t, err)
	loginClaims, err := auth.ParseAccessToken(logged.AccessToken, []byte("test-access-secret"))
	require.NoError(t, err)
	require.NotEqual(t, regClaims.SessionID, loginClaims.SessionID)

	// Push the login session into the rotation window, then refresh.
	store.sessions[loginClaims.SessionID].ExpiresAt = time.Now().Add(time.Hour)
	refreshed, err := svc.RefreshAccessToken(context.Background(), logged.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.RefreshToken)

	require.Len(t, mailer.sent, 1)
	var codeID string
	for id := range store.codes {
		codeID = id
	}
	expectTx(mock)
	verified, err := svc.VerifyEmail(context.Background(), codeID)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
}
