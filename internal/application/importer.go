package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arjunpat/user-portal/internal/domain/entity"
	repo "github.com/arjunpat/user-portal/internal/domain/repository"
	"github.com/arjunpat/user-portal/internal/domain/validation"
)

var (
	// ErrNoData means the CSV had a header but no data rows, or nothing at all.
	ErrNoData = errors.New("csv must have at least one data row")
	// ErrMissingHeaders means a required column name was absent from the header.
	ErrMissingHeaders = errors.New("csv header must contain name, email, password, dob, gender, website")
	// ErrNoValidRows means every candidate failed validation; the store was
	// never touched.
	ErrNoValidRows = errors.New("no valid data found")
)

// ImportHeaders are the columns a bulk-import file must carry, in any order.
// Extra columns are ignored.
var ImportHeaders = []string{"name", "email", "password", "dob", "gender", "website"}

// Candidate is a parsed-but-not-yet-validated record, either split out of a
// CSV row or received pre-parsed as JSON. Any client-supplied identifier is
// discarded before insert; the store assigns ids.
type Candidate struct {
	ID       string `json:"_id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Dob      string `json:"dob"`
	Gender   string `json:"gender"`
	Website  string `json:"website"`
}

func (c Candidate) fields() validation.Fields {
	return validation.Fields{
		Name:     c.Name,
		Email:    c.Email,
		Password: c.Password,
		Dob:      c.Dob,
		Gender:   c.Gender,
		Website:  c.Website,
	}
}

// RowIssue records why one candidate was dropped. Row is 1-based over the
// candidate set, not the CSV line number.
type RowIssue struct {
	Row      int                 `json:"row"`
	Problems validation.Problems `json:"problems"`
}

// ImportResult summarizes a bulk import. Inserted carries the rows the store
// accepted, with their assigned ids. Failed counts rows the store rejected
// after validation had passed them.
type ImportResult struct {
	Submitted int            `json:"submitted"`
	Dropped   int            `json:"dropped"`
	Failed    int            `json:"failed"`
	Inserted  []*entity.User `json:"inserted"`
	Report    []RowIssue     `json:"report,omitempty"`
}

// Importer is the bulk CSV ingestion pipeline: parse, filter through the
// import validation policy, hash, and hand the surviving set to the record
// store in one bulk-insert call.
type Importer struct {
	Repo   repo.UserRepository
	Logger *logrus.Logger
	Hash   func(string) (string, error)
}

func NewImporter(r repo.UserRepository, logger *logrus.Logger, hash func(string) (string, error)) *Importer {
	return &Importer{Repo: r, Logger: logger, Hash: hash}
}

// ParseCSV splits raw CSV text into candidates. The split is naive: no
// quoting or escaping, so a field containing a comma misaligns the rest of
// its row. The first line is the header and must contain every required
// column name; column order is free and extras are ignored.
func ParseCSV(text string) ([]Candidate, error) {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	if len(lines) < 2 {
		return nil, ErrNoData
	}

	headers := strings.Split(lines[0], ",")
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	for _, want := range ImportHeaders {
		if _, ok := idx[want]; !ok {
			return nil, ErrMissingHeaders
		}
	}

	pick := func(values []string, col string) string {
		i := idx[col]
		if i >= len(values) {
			return ""
		}
		return strings.TrimSpace(values[i])
	}

	candidates := make([]Candidate, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := strings.Split(line, ",")
		candidates = append(candidates, Candidate{
			Name:     pick(values, "name"),
			Email:    pick(values, "email"),
			Password: pick(values, "password"),
			Dob:      pick(values, "dob"),
			Gender:   pick(values, "gender"),
			Website:  pick(values, "website"),
		})
	}
	return candidates, nil
}

// ImportCSV runs the whole pipeline over raw CSV text.
func (im *Importer) ImportCSV(ctx context.Context, text string) (*ImportResult, error) {
	candidates, err := ParseCSV(text)
	if err != nil {
		return nil, err
	}
	return im.ImportRecords(ctx, candidates)
}

// ImportRecords validates candidates and bulk-inserts the survivors.
// Invalid rows are dropped, not reported as failures; their reasons are
// collected into the optional report. If nothing survives validation the
// store receives no write and ErrNoValidRows is returned.
func (im *Importer) ImportRecords(ctx context.Context, candidates []Candidate) (*ImportResult, error) {
	now := time.Now()
	res := &ImportResult{Submitted: len(candidates)}

	users := make([]*entity.User, 0, len(candidates))
	for i, c := range candidates {
		if p := validation.CheckImportRow(c.fields(), now); p != nil {
			res.Dropped++
			res.Report = append(res.Report, RowIssue{Row: i + 1, Problems: p})
			continue
		}
		dob, _ := validation.ParseDob(c.Dob)
		hash, err := im.Hash(c.Password)
		if err != nil {
			res.Dropped++
			res.Report = append(res.Report, RowIssue{Row: i + 1, Problems: validation.Problems{"password": "could not be hashed"}})
			continue
		}
		users = append(users, &entity.User{
			Name:     c.Name,
			Email:    c.Email,
			Password: hash,
			Role:     entity.RoleUser,
			Dob:      dob,
			Gender:   validation.NormalizeGender(c.Gender),
			Website:  strings.TrimSpace(c.Website),
		})
	}

	if len(users) == 0 {
		return res, ErrNoValidRows
	}

	bulk, err := im.Repo.BulkInsert(ctx, users)
	res.Inserted = bulk.Inserted
	res.Failed = bulk.Failed
	if err != nil {
		if im.Logger != nil {
			im.Logger.WithError(err).WithField("failed", bulk.Failed).Error("bulk insert failed")
		}
		return res, err
	}
	if res.Failed > 0 && im.Logger != nil {
		im.Logger.WithFields(logrus.Fields{
			"inserted": len(res.Inserted),
			"failed":   res.Failed,
		}).Warn("bulk insert completed with row failures")
	}
	return res, nil
}
