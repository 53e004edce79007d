package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/arjunpat/user-portal/internal/domain/entity"
	repo "github.com/arjunpat/user-portal/internal/domain/repository"
	"github.com/arjunpat/user-portal/internal/domain/validation"
	"github.com/arjunpat/user-portal/pkg/helpers"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("user is already present")
)

// ValidationError carries per-field problems for a rejected write.
type ValidationError struct {
	Fields validation.Problems
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return "invalid fields: " + strings.Join(keys, ", ")
}

const (
	listCacheKey = "users:all"
	listCacheTTL = 30 * time.Second
)

// Service orchestrates single-record operations against the record store.
// Redis and Elasticsearch are optional; every use is nil-safe and
// best-effort, the way a cache and a search index should be.
type Service struct {
	Repo         repo.UserRepository
	JWT          *helpers.JWTManager
	Redis        *redis.Client
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string

	// Hash turns a plaintext secret into its stored form. Injected so tests
	// can observe that conflict paths never reach it.
	Hash func(string) (string, error)
}

func NewService(repo repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string) *Service {
	return &Service{
		Repo:         repo,
		JWT:          jwt,
		Redis:        rdb,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
		Hash:         helpers.HashPassword,
	}
}

// WriteInput carries one submitted record for the admin create and update
// paths. All values arrive as strings; the policies decide what is valid.
type WriteInput struct {
	Name     string
	Email    string
	Password string
	Dob      string
	Gender   string
	Website  string
}

func (in WriteInput) fields() validation.Fields {
	return validation.Fields{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Dob:      in.Dob,
		Gender:   in.Gender,
		Website:  in.Website,
	}
}

// Create adds a record through the admin path. Age, gender and website are
// validated here as well as on update; relying on the admin form alone left
// the server accepting minors.
func (s *Service) Create(ctx context.Context, in WriteInput) (*entity.User, error) {
	if p := validation.CheckAdminCreate(in.fields(), time.Now()); p != nil {
		return nil, &ValidationError{Fields: p}
	}
	if err := s.checkEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}
	u, err := s.buildUser(in)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		// The unique index is the real safety net under concurrent writes.
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.afterMutation(ctx, u)
	return u, nil
}

// Update replaces every mutable field of an existing record.
func (s *Service) Update(ctx context.Context, id string, in WriteInput) (*entity.User, error) {
	if p := validation.CheckAdminUpdate(in.fields(), time.Now()); p != nil {
		return nil, &ValidationError{Fields: p}
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	dob, _ := validation.ParseDob(in.Dob)
	hash, err := s.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u.Name = in.Name
	u.Email = in.Email
	u.Password = hash
	u.Dob = dob
	u.Gender = validation.NormalizeGender(in.Gender)
	u.Website = strings.TrimSpace(in.Website)

	if err := s.Repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.afterMutation(ctx, u)
	return u, nil
}

// Delete removes a record by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.invalidateListCache(ctx)
	s.removeUserDoc(ctx, id)
	return nil
}

// ListAll returns every record, no pagination. The full list is cached in
// redis for a short TTL and invalidated by every mutation.
func (s *Service) ListAll(ctx context.Context) ([]*entity.User, error) {
	if s.Redis != nil {
		var cached []*entity.User
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, listCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	users, err := s.Repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, listCacheKey, users, listCacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("list cache write failed")
		}
	}
	return users, nil
}

// ExportCSV renders every record as CSV, bypassing the list cache so the
// stored password hashes survive the round trip back through import. Values
// containing a comma are quoted; the import parser does not honor the
// quoting, which matches its documented limitation.
func (s *Service) ExportCSV(ctx context.Context) (string, error) {
	users, err := s.Repo.GetAll(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("id,name,email,password,role,dob,gender,website\n")
	for _, u := range users {
		cols := []string{
			u.ID, u.Name, u.Email, u.Password, u.Role,
			u.Dob.Format("2006-01-02"), u.Gender, u.Website,
		}
		for i, v := range cols {
			if i > 0 {
				b.WriteByte(',')
			}
			if strings.Contains(v, ",") {
				b.WriteString(`"` + v + `"`)
			} else {
				b.WriteString(v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// InvalidateListCache drops the cached user list; bulk imports call it after
// writing outside the single-record paths.
func (s *Service) InvalidateListCache(ctx context.Context) {
	s.invalidateListCache(ctx)
}

// SignupInput is the public registration payload.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Dob      string
	Gender   string
	Website  string
}

// SignupResult is a freshly created account plus its session token.
type SignupResult struct {
	User        *entity.User
	Token       string
	TokenExpiry time.Time
}

// Signup registers a public account. The email existence check runs before
// any hashing: a conflicting signup must not burn a bcrypt round.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	f := validation.Fields{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Dob:      in.Dob,
		Gender:   in.Gender,
		Website:  in.Website,
	}
	if p := validation.CheckSignup(f, time.Now()); p != nil {
		return nil, &ValidationError{Fields: p}
	}
	if err := s.checkEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	dob, _ := validation.ParseDob(in.Dob)
	hash, err := s.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Role:     entity.RoleUser,
		Dob:      dob,
		Gender:   validation.NormalizeGender(in.Gender),
		Website:  strings.TrimSpace(in.Website),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	token, exp, err := s.JWT.GenerateSessionToken(u.Email, u.Name)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate session token failed")
		}
		return nil, err
	}
	s.recordSession(ctx, u)
	s.afterMutation(ctx, u)
	return &SignupResult{User: u, Token: token, TokenExpiry: exp}, nil
}

// checkEmailFree runs before hashing so a conflicting write never burns a
// bcrypt round.
func (s *Service) checkEmailFree(ctx context.Context, email string) error {
	existing, err := s.Repo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return ErrEmailTaken
	}
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}

func sessionKey(userID string) string {
	return "user:session:" + userID
}

func (s *Service) recordSession(ctx context.Context, u *entity.User) {
	if s.Redis == nil {
		return
	}
	key := sessionKey(u.ID)
	pipe := s.Redis.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("redis pipeline failed")
	}
}

func (s *Service) buildUser(in WriteInput) (*entity.User, error) {
	dob, _ := validation.ParseDob(in.Dob)
	hash, err := s.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	return &entity.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Role:     entity.RoleUser,
		Dob:      dob,
		Gender:   validation.NormalizeGender(in.Gender),
		Website:  strings.TrimSpace(in.Website),
	}, nil
}

func (s *Service) afterMutation(ctx context.Context, u *entity.User) {
	s.invalidateListCache(ctx)
	s.indexUser(ctx, u)
}

func (s *Service) invalidateListCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, listCacheKey); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("list cache invalidation failed")
	}
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	doc := map[string]any{
		"id":      u.ID,
		"name":    u.Name,
		"email":   u.Email,
		"role":    u.Role,
		"gender":  u.Gender,
		"website": u.Website,
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

func (s *Service) removeUserDoc(ctx context.Context, id string) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// Search runs a multi_match query over email and name. Returns an empty
// result when no search backend is configured.
func (s *Service) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
