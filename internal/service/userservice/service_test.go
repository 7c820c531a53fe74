package userservice_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gowatch/internal/domain"
	apperror "gowatch/internal/errors"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/password"
	"gowatch/internal/pkg/token"
	"gowatch/internal/service/userservice"
)

// MockUserRepository é uma implementação mock da interface domain.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, email string, role domain.UserRole) error {
	return m.Called(ctx, email, role).Error(0)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockItemCounter struct {
	mock.Mock
}

func (m *MockItemCounter) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingAudit) Record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, msg)
}

func newHasher() *password.Hasher {
	return password.NewHasher(password.NewBcrypt(bcrypt.MinCost), password.NewPBKDF2SHA256(1000))
}

func newService(t *testing.T, repo *MockUserRepository, items *MockItemCounter, auditor *recordingAudit) (*userservice.UserService, *token.Service) {
	t.Helper()
	tokens, err := token.NewService("segredo", "HS256", 30*time.Minute, nil)
	require.NoError(t, err)
	return userservice.NewService(repo, items, tokens, newHasher(), logger.NewLogger("debug"), auditor), tokens
}

func TestRegister_NormalizesEmailAndHashes(t *testing.T) {
	mockRepo := new(MockUserRepository)
	auditor := &recordingAudit{}
	svc, _ := newService(t, mockRepo, nil, auditor)

	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == "u@test.com" && u.Role == domain.RoleUser && strings.HasPrefix(u.PasswordHash, "$2a$")
	})).Return(domain.User{ID: "id-1", Email: "u@test.com", Role: domain.RoleUser}, nil)

	user, err := svc.Register(context.Background(), domain.UserRegistration{Email: "  U@Test.COM ", Password: "password123"})

	assert.NoError(t, err)
	assert.Equal(t, "u@test.com", user.Email)
	assert.Equal(t, []string{"user=u@test.com action=register"}, auditor.events)
	mockRepo.AssertExpectations(t)
}

func TestRegister_ValidationErrors(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc, _ := newService(t, mockRepo, nil, &recordingAudit{})

	for _, reg := range []domain.UserRegistration{
		{Email: "", Password: "password123"},
		{Email: "nao-e-email", Password: "password123"},
		{Email: "u@test.com", Password: "curta"},
		{Email: "u@test.com", Password: strings.Repeat("é", 37)}, // 74 bytes
	} {
		_, err := svc.Register(context.Background(), reg)
		var ve *apperror.ValidationError
		assert.True(t, errors.As(err, &ve), "%+v => %v", reg, err)
	}
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc, _ := newService(t, mockRepo, nil, &recordingAudit{})
	mockRepo.On("Save", mock.Anything, mock.Anything).Return(domain.User{}, apperror.NewConflictError("Email já cadastrado."))

	_, err := svc.Register(context.Background(), domain.UserRegistration{Email: "u@test.com", Password: "password123"})

	var conflict *apperror.ConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestLogin_IssuesTokenForNormalizedEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc, tokens := newService(t, mockRepo, nil, &recordingAudit{})
	hash, err := newHasher().Hash("password123")
	require.NoError(t, err)

	mockRepo.On("FindByEmail", mock.Anything, "u@test.com").
		Return(domain.User{ID: "id-1", Email: "u@test.com", PasswordHash: hash, Role: domain.RoleUser}, nil)

	res, err := svc.Login(context.Background(), "U@test.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, res.ExpiresIn)

	sub, err := tokens.Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u@test.com", sub)
	mockRepo.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_WrongPasswordUnknownUserAndCorruptHashLookAlike(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc, _ := newService(t, mockRepo, nil, &recordingAudit{})
	hash, _ := newHasher().Hash("password123")

	mockRepo.On("FindByEmail", mock.Anything, "u@test.com").
		Return(domain.User{ID: "1", Email: "u@test.com", PasswordHash: hash}, nil)
	mockRepo.On("FindByEmail", mock.Anything, "corrupt@test.com").
		Return(domain.User{ID: "2", Email: "corrupt@test.com", PasswordHash: "???"}, nil)
	mockRepo.On("FindByEmail", mock.Anything, "ghost@test.com").
		Return(domain.User{}, apperror.NewNotFoundError("não encontrado"))

	var messages []string
	for _, tc := range []struct{ email, pw string }{
		{"u@test.com", "errada123"},
		{"corrupt@test.com", "password123"},
		{"ghost@test.com", "password123"},
	} {
		_, err := svc.Login(context.Background(), tc.email, tc.pw)
		var unauthorized *apperror.UnauthorizedError
		require.True(t, errors.As(err, &unauthorized), tc.email)
		messages = append(messages, unauthorized.Message())
	}
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])
}

func TestLogin_StoreFailurePropagates(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc, _ := newService(t, mockRepo, nil, &recordingAudit{})
	mockRepo.On("FindByEmail", mock.Anything, "u@test.com").
		Return(domain.User{}, apperror.NewDBError("find", errors.New("timeout")))

	_, err := svc.Login(context.Background(), "u@test.com", "password123")
	var internal *apperror.InternalError
	assert.True(t, errors.As(err, &internal))
}

func TestLogin_RehashesLegacyHash(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc, _ := newService(t, mockRepo, nil, &recordingAudit{})
	legacy, err := password.NewPBKDF2SHA256(1000).Hash("password123")
	require.NoError(t, err)

	mockRepo.On("FindByEmail", mock.Anything, "old@test.com").
		Return(domain.User{ID: "old-1", Email: "old@test.com", PasswordHash: legacy}, nil)
	mockRepo.On("UpdatePasswordHash", mock.Anything, "old-1", mock.MatchedBy(func(h string) bool {
		return strings.HasPrefix(h, "$2a$")
	})).Return(nil)

	_, err = svc.Login(context.Background(), "old@test.com", "password123")
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestLogin_RehashFailureDoesNotBlockLogin(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc, _ := newService(t, mockRepo, nil, &recordingAudit{})
	legacy, _ := password.NewPBKDF2SHA256(1000).Hash("password123")

	mockRepo.On("FindByEmail", mock.Anything, "old@test.com").
		Return(domain.User{ID: "old-1", Email: "old@test.com", PasswordHash: legacy}, nil)
	mockRepo.On("UpdatePasswordHash", mock.Anything, "old-1", mock.Anything).
		Return(apperror.NewDBError("update", errors.New("read-only")))

	res, err := svc.Login(context.Background(), "old@test.com", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
}

func TestSetRole(t *testing.T) {
	mockRepo := new(MockUserRepository)
	auditor := &recordingAudit{}
	svc, _ := newService(t, mockRepo, nil, auditor)
	mockRepo.On("UpdateRole", mock.Anything, "a@test.com", domain.RoleAdmin).Return(nil)

	assert.NoError(t, svc.SetRole(context.Background(), "A@test.com", domain.RoleAdmin))
	assert.Equal(t, []string{"user=a@test.com action=set_role role=admin"}, auditor.events)

	err := svc.SetRole(context.Background(), "a@test.com", domain.UserRole("superuser"))
	var ve *apperror.ValidationError
	assert.True(t, errors.As(err, &ve))
	mockRepo.AssertExpectations(t)
}

func TestStats(t *testing.T) {
	mockRepo := new(MockUserRepository)
	items := new(MockItemCounter)
	svc, _ := newService(t, mockRepo, items, &recordingAudit{})
	mockRepo.On("Count", mock.Anything).Return(int64(3), nil)
	items.On("Count", mock.Anything).Return(int64(7), nil)

	stats, err := svc.Stats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, domain.Stats{Users: 3, Items: 7}, stats)
}
