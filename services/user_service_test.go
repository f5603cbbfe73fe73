package services

import (
	"context"
	"testing"
	"time"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeUserRepo моделирует хранилище с настраиваемой задержкой полного чтения,
// чтобы проверять деградированный путь GetProfile.
type fakeUserRepo struct {
	users      map[int]*models.User
	fullDelay  time.Duration
	basicCalls int
	getErr     error
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = len(r.users) + 1
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.fullDelay > 0 {
		select {
		case <-time.After(r.fullDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetBasicByID(ctx context.Context, id int) (*models.User, error) {
	r.basicCalls++
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &models.User{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
	}, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByPasswordResetToken(ctx context.Context, token string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) ConfirmEmail(ctx context.Context, id int) error { return nil }

func (r *fakeUserRepo) SetPasswordResetToken(ctx context.Context, id int, token string, expiresAt time.Time) error {
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, exec repositories.SQLExecutor, user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, exec repositories.SQLExecutor, id int, role models.UserRole) error {
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.Role = role
	return nil
}

func (r *fakeUserRepo) SetActive(ctx context.Context, exec repositories.SQLExecutor, id int, active bool) error {
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.IsActive = active
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id int) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (r *fakeUserRepo) Count(ctx context.Context, filter models.UserFilter) (int, error) {
	return len(r.users), nil
}

func testVolunteer(id int) *models.User {
	return &models.User{
		ID:        id,
		FirstName: "Айгерим",
		Email:     "aigerim@example.com",
		Role:      models.RoleVolunteer,
		IsActive:  true,
	}
}

func TestGetProfileFullRead(t *testing.T) {
	repo := newFakeUserRepo(testVolunteer(1))
	svc := NewUserService(repo, nil, testLogger())

	user, degraded, err := svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, 0, repo.basicCalls)
}

func TestGetProfileNotFound(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, nil, testLogger())

	_, _, err := svc.GetProfile(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetProfileDegradedOnDeadline(t *testing.T) {
	repo := newFakeUserRepo(testVolunteer(1))
	// Полное чтение никогда не укладывается в дедлайн.
	repo.getErr = context.DeadlineExceeded
	svc := NewUserService(repo, nil, testLogger())

	user, degraded, err := svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, 1, repo.basicCalls)
}

func TestGetProfileDoesNotDegradeOnOtherErrors(t *testing.T) {
	repo := newFakeUserRepo(testVolunteer(1))
	repo.getErr = assertableError("connection refused")
	svc := NewUserService(repo, nil, testLogger())

	_, _, err := svc.GetProfile(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 0, repo.basicCalls)
}

type assertableError string

func (e assertableError) Error() string { return string(e) }

func TestListClampsPagination(t *testing.T) {
	repo := newFakeUserRepo(testVolunteer(1))
	svc := NewUserService(repo, nil, testLogger())

	result, err := svc.List(context.Background(), models.UserFilter{Page: -3, Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.Limit)
}

func TestChangePasswordClearsFirstLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("temporary-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	user := testVolunteer(1)
	user.IsFirstLogin = true
	user.PasswordHash = string(hash)
	repo := newFakeUserRepo(user)
	svc := NewUserService(repo, nil, testLogger())

	// Пользователь меняет временный пароль через профиль, не через форму
	// первого входа — флаг всё равно снимается.
	require.NoError(t, svc.ChangePassword(context.Background(), 1, "temporary-pass", "brand-new-password"))

	updated := repo.users[1]
	assert.False(t, updated.IsFirstLogin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("brand-new-password")))
}

func TestCompleteFirstLoginIdempotent(t *testing.T) {
	user := testVolunteer(1)
	user.IsFirstLogin = true
	repo := newFakeUserRepo(user)
	svc := NewUserService(repo, nil, testLogger())

	require.NoError(t, svc.CompleteFirstLogin(context.Background(), 1))
	assert.False(t, repo.users[1].IsFirstLogin)

	require.NoError(t, svc.CompleteFirstLogin(context.Background(), 1))
	assert.False(t, repo.users[1].IsFirstLogin)
}
