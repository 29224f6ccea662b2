package user

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"feedback-service/internal/apperr"
	"feedback-service/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	users map[int]*User
}

func newMemRepo(users ...*User) *memRepo {
	r := &memRepo{users: map[int]*User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memRepo) Create(_ context.Context, u *User) (*User, error) {
	u.ID = len(r.users) + 1
	r.users[u.ID] = u
	return u, nil
}

func (r *memRepo) GetByID(_ context.Context, id int) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("user %d not found", id)
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (r *memRepo) List(_ context.Context, _ ListFilter) ([]User, int, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (r *memRepo) UpdateProfile(_ context.Context, u *User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) SetBlocked(_ context.Context, id int, blocked bool) error {
	r.users[id].IsBlocked = blocked
	return nil
}

func (r *memRepo) TouchLastLogin(_ context.Context, id int, at time.Time) error {
	r.users[id].LastLogin = &at
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int) error {
	delete(r.users, id)
	return nil
}

type fixedCounter map[int]int

func (c fixedCounter) CountByStudent(_ context.Context, id int) (int, error) {
	return c[id], nil
}

type fakeUploader struct {
	uploaded  []string
	deleted   []string
	deleteErr error
}

func (f *fakeUploader) Upload(_ context.Context, r io.Reader, publicID string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://img.example.com/" + publicID + ".png"
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeUploader) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return f.deleteErr
}

type fakeRevoker struct{ revoked []int }

func (f *fakeRevoker) RevokeAll(_ context.Context, id int) error {
	f.revoked = append(f.revoked, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestToggleBlock(t *testing.T) {
	ctx := context.Background()
	admin := &User{ID: 1, Role: identity.RoleAdmin}
	student := &User{ID: 2, Role: identity.RoleStudent}

	t.Run("RoundTrip", func(t *testing.T) {
		repo := newMemRepo(admin, &User{ID: 2, Role: identity.RoleStudent})
		revoker := &fakeRevoker{}
		svc := NewService(repo, fixedCounter{}, nil, revoker, testLogger())

		blocked, err := svc.ToggleBlock(ctx, admin.ID, 2)
		require.NoError(t, err)
		assert.True(t, blocked.IsBlocked)
		assert.Equal(t, []int{2}, revoker.revoked)

		unblocked, err := svc.ToggleBlock(ctx, admin.ID, 2)
		require.NoError(t, err)
		assert.False(t, unblocked.IsBlocked)
		assert.False(t, repo.users[2].IsBlocked)
		assert.Len(t, revoker.revoked, 1)
	})

	t.Run("SelfBlockForbidden", func(t *testing.T) {
		svc := NewService(newMemRepo(admin, student), fixedCounter{}, nil, nil, testLogger())

		_, err := svc.ToggleBlock(ctx, admin.ID, admin.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		svc := NewService(newMemRepo(admin), fixedCounter{}, nil, nil, testLogger())

		_, err := svc.ToggleBlock(ctx, admin.ID, 99)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("GuardedByFeedback", func(t *testing.T) {
		repo := newMemRepo(&User{ID: 1, Role: identity.RoleAdmin}, &User{ID: 2})
		svc := NewService(repo, fixedCounter{2: 4}, nil, nil, testLogger())

		err := svc.Delete(ctx, 1, 2)
		require.ErrorIs(t, err, apperr.ErrConflict)
		count, ok := apperr.DependentCount(err)
		require.True(t, ok)
		assert.Equal(t, 4, count)
		assert.Contains(t, repo.users, 2)
	})

	t.Run("NoFeedback", func(t *testing.T) {
		repo := newMemRepo(&User{ID: 1, Role: identity.RoleAdmin}, &User{ID: 2})
		svc := NewService(repo, fixedCounter{}, nil, nil, testLogger())

		require.NoError(t, svc.Delete(ctx, 1, 2))
		assert.NotContains(t, repo.users, 2)
	})

	t.Run("SelfDeleteForbidden", func(t *testing.T) {
		svc := NewService(newMemRepo(&User{ID: 1}), fixedCounter{}, nil, nil, testLogger())

		assert.ErrorIs(t, svc.Delete(ctx, 1, 1), apperr.ErrForbidden)
	})
}

func TestUpdateProfilePicture(t *testing.T) {
	ctx := context.Background()

	t.Run("ReplacesAndSwallowsDeleteFailure", func(t *testing.T) {
		repo := newMemRepo(&User{ID: 3, ProfilePicture: "https://img.example.com/old.png"})
		uploader := &fakeUploader{deleteErr: errors.New("remote unavailable")}
		svc := NewService(repo, fixedCounter{}, uploader, nil, testLogger())

		u, err := svc.UpdateProfilePicture(ctx, 3, bytes.NewReader([]byte("png-bytes")))
		require.NoError(t, err)
		require.Len(t, uploader.uploaded, 1)
		assert.Equal(t, uploader.uploaded[0], u.ProfilePicture)
		assert.Equal(t, uploader.uploaded[0], repo.users[3].ProfilePicture)
		assert.Equal(t, []string{"https://img.example.com/old.png"}, uploader.deleted)
	})

	t.Run("FirstPicture", func(t *testing.T) {
		repo := newMemRepo(&User{ID: 4})
		uploader := &fakeUploader{}
		svc := NewService(repo, fixedCounter{}, uploader, nil, testLogger())

		_, err := svc.UpdateProfilePicture(ctx, 4, bytes.NewReader([]byte("x")))
		require.NoError(t, err)
		assert.Empty(t, uploader.deleted)
	})

	t.Run("UploadsDisabled", func(t *testing.T) {
		svc := NewService(newMemRepo(&User{ID: 5}), fixedCounter{}, nil, nil, testLogger())

		_, err := svc.UpdateProfilePicture(ctx, 5, bytes.NewReader(nil))
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo(&User{ID: 1, Name: "Old Name", Phone: "+15550001"})
	svc := NewService(repo, fixedCounter{}, nil, nil, testLogger())

	name := "New Name"
	dob := "2001-04-12"
	u, err := svc.UpdateProfile(ctx, 1, UpdateProfileRequest{Name: &name, DateOfBirth: &dob})
	require.NoError(t, err)
	assert.Equal(t, "New Name", u.Name)
	assert.Equal(t, "+15550001", u.Phone)
	require.NotNil(t, u.DateOfBirth)
	assert.Equal(t, 2001, u.DateOfBirth.Year())

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	_, err = svc.UpdateProfile(ctx, 1, UpdateProfileRequest{DateOfBirth: &future})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	malformed := "12/04/2001"
	_, err = svc.UpdateProfile(ctx, 1, UpdateProfileRequest{DateOfBirth: &malformed})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateProfileClearsDateOfBirth(t *testing.T) {
	ctx := context.Background()
	dob := time.Date(2001, 4, 12, 0, 0, 0, 0, time.UTC)
	svc := NewService(newMemRepo(&User{ID: 1, Name: "Ann", DateOfBirth: &dob}), fixedCounter{}, nil, nil, testLogger())

	empty := ""
	req := UpdateProfileRequest{DateOfBirth: &empty}
	require.NoError(t, apperr.NewValidator().Struct(req))

	u, err := svc.UpdateProfile(ctx, 1, req)
	require.NoError(t, err)
	assert.Nil(t, u.DateOfBirth)
	assert.Equal(t, "Ann", u.Name)
}

func TestList(t *testing.T) {
	svc := NewService(newMemRepo(&User{ID: 1}, &User{ID: 2}, &User{ID: 3}), fixedCounter{}, nil, nil, testLogger())

	page, err := svc.List(context.Background(), ListFilter{Page: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	_, err = svc.List(context.Background(), ListFilter{Page: 1, Limit: 101})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.List(context.Background(), ListFilter{Page: 1, Limit: 10, Role: "instructor"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
