package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/arjunpat/user-portal/internal/domain/entity"
	"github.com/arjunpat/user-portal/internal/domain/repository"
	"github.com/arjunpat/user-portal/pkg/helpers"
)

// memRepo is an in-memory record store assigning its own identifiers, the
// way the real store does.
type memRepo struct {
	seq     int
	users   map[string]*entity.User
	byEmail map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]*entity.User{}, byEmail: map[string]string{}}
}

func (m *memRepo) Create(_ context.Context, u *entity.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	m.seq++
	u.ID = fmt.Sprintf("id-%d", m.seq)
	cp := *u
	m.users[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *memRepo) GetAll(_ context.Context) ([]*entity.User, error) {
	out := make([]*entity.User, 0, len(m.users))
	for i := 1; i <= m.seq; i++ {
		if u, ok := m.users[fmt.Sprintf("id-%d", i)]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.GetByID(context.Background(), id)
}

func (m *memRepo) Update(_ context.Context, u *entity.User) error {
	old, ok := m.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if id, taken := m.byEmail[u.Email]; taken && id != u.ID {
		return repository.ErrDuplicateEmail
	}
	delete(m.byEmail, old.Email)
	cp := *u
	m.users[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.byEmail, u.Email)
	delete(m.users, id)
	return nil
}

func (m *memRepo) BulkInsert(ctx context.Context, users []*entity.User) (repository.BulkResult, error) {
	res := repository.BulkResult{}
	var lastErr error
	for _, u := range users {
		if err := m.Create(ctx, u); err != nil {
			res.Failed++
			lastErr = err
			continue
		}
		res.Inserted = append(res.Inserted, u)
	}
	if len(res.Inserted) == 0 && lastErr != nil {
		return res, lastErr
	}
	return res, nil
}

var _ repository.UserRepository = (*memRepo)(nil)

// fakeHash avoids bcrypt cost in tests and lets them count invocations.
func fakeHash(calls *int) func(string) (string, error) {
	return func(plain string) (string, error) {
		*calls++
		return "hashed:" + plain, nil
	}
}

func newTestService(repo repository.UserRepository, hashCalls *int) *Service {
	s := NewService(repo, helpers.NewJWTManager("test-secret", 0), nil, nil, nil, "")
	s.Hash = fakeHash(hashCalls)
	return s
}

func validWrite() WriteInput {
	return WriteInput{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "longenough",
		Dob:      "1990-06-15",
		Gender:   "Female",
		Website:  "https://example.com",
	}
}

func TestCreateThenListAll(t *testing.T) {
	var calls int
	svc := newTestService(newMemRepo(), &calls)
	ctx := context.Background()

	u, err := svc.Create(ctx, validWrite())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("store must assign an identifier")
	}
	if u.Role != entity.RoleUser {
		t.Fatalf("role = %q, want %q", u.Role, entity.RoleUser)
	}
	if u.Gender != "female" {
		t.Fatalf("gender = %q, want normalized lowercase", u.Gender)
	}
	if u.Password != "hashed:longenough" {
		t.Fatal("password must be hashed before persisting")
	}

	users, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 || users[0].ID != u.ID {
		t.Fatalf("list = %+v, want the created record", users)
	}
}

func TestCreateMissingFields(t *testing.T) {
	var calls int
	svc := newTestService(newMemRepo(), &calls)

	_, err := svc.Create(context.Background(), WriteInput{Name: "Ada"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"email", "password", "dob", "gender"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("validation error lacks %q: %v", field, verr.Fields)
		}
	}
	if calls != 0 {
		t.Fatal("invalid input must not be hashed")
	}
}

func TestCreateUnderageRejected(t *testing.T) {
	var calls int
	svc := newTestService(newMemRepo(), &calls)

	in := validWrite()
	in.Dob = "2020-01-01"
	_, err := svc.Create(context.Background(), in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if _, ok := verr.Fields["dob"]; !ok {
		t.Fatalf("expected dob problem, got %v", verr.Fields)
	}
}

func TestCreateDuplicateEmailSkipsHashing(t *testing.T) {
	var calls int
	repo := newMemRepo()
	svc := newTestService(repo, &calls)
	ctx := context.Background()

	seed := &entity.User{Name: "Ada", Email: "ada@example.com", Password: "x", Role: entity.RoleUser}
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.Create(ctx, validWrite())
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
	if calls != 0 {
		t.Fatalf("hash invoked %d times on a conflicting create", calls)
	}
}

func TestSignupConflictSkipsHashing(t *testing.T) {
	var calls int
	repo := newMemRepo()
	svc := newTestService(repo, &calls)
	ctx := context.Background()

	seed := &entity.User{Name: "Ada", Email: "ada@example.com", Password: "x", Role: entity.RoleUser}
	if err := repo.Create(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.Signup(ctx, SignupInput{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "Str0ng?pass",
		Dob:      "1990-06-15",
		Gender:   "female",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
	if calls != 0 {
		t.Fatalf("hash invoked %d times on a conflicting signup", calls)
	}
}

func TestSignupIssuesToken(t *testing.T) {
	var calls int
	svc := newTestService(newMemRepo(), &calls)
	svc.JWT = helpers.NewJWTManager("test-secret", time.Hour)

	res, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "Str0ng?pass",
		Dob:      "1990-06-15",
		Gender:   "Female",
		Website:  "",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.Token == "" {
		t.Fatal("signup must issue a session token")
	}
	claims, err := svc.JWT.ParseSessionToken(res.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Email != "ada@example.com" || claims.Name != "Ada Lovelace" {
		t.Fatalf("claims = %+v", claims)
	}
	if calls != 1 {
		t.Fatalf("hash calls = %d, want 1", calls)
	}
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	var calls int
	svc := newTestService(newMemRepo(), &calls)

	_, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "abcdefgh", // fine for the admin path, not for signup
		Dob:      "1990-06-15",
		Gender:   "female",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if _, ok := verr.Fields["password"]; !ok {
		t.Fatalf("expected password problem, got %v", verr.Fields)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	var calls int
	svc := newTestService(newMemRepo(), &calls)

	_, err := svc.Update(context.Background(), "missing", validWrite())
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateReplacesFields(t *testing.T) {
	var calls int
	repo := newMemRepo()
	svc := newTestService(repo, &calls)
	ctx := context.Background()

	created, err := svc.Create(ctx, validWrite())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := validWrite()
	in.Name = "Grace Hopper"
	in.Email = "grace@example.com"
	updated, err := svc.Update(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Grace Hopper" || updated.Email != "grace@example.com" {
		t.Fatalf("updated = %+v", updated)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "grace@example.com" {
		t.Fatal("store did not persist the update")
	}
}

func TestDeleteUnknownIDLeavesStore(t *testing.T) {
	var calls int
	repo := newMemRepo()
	svc := newTestService(repo, &calls)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validWrite()); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
	users, _ := repo.GetAll(ctx)
	if len(users) != 1 {
		t.Fatalf("store changed by failed delete: %d users", len(users))
	}

	if err := svc.Delete(ctx, users[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	users, _ = repo.GetAll(ctx)
	if len(users) != 0 {
		t.Fatal("record not removed")
	}
}

func TestExportCSVQuotesCommas(t *testing.T) {
	var calls int
	repo := newMemRepo()
	svc := newTestService(repo, &calls)
	ctx := context.Background()

	in := validWrite()
	in.Website = "https://example.com/a,b"
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := svc.ExportCSV(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := `"https://example.com/a,b"`
	if !strings.Contains(out, want) {
		t.Fatalf("export missing quoted value %s:\n%s", want, out)
	}
	if !strings.HasPrefix(out, "id,name,email,password,role,dob,gender,website\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
}
