package validation

import (
	"time"
)

// Fields carries the raw string values of one submitted user record before
// any parsing. Every entry point maps its payload into Fields and runs the
// policy for that path.
type Fields struct {
	Name     string
	Email    string
	Password string
	Dob      string
	Gender   string
	Website  string
}

// Problems maps field name to a human-readable message. Empty means valid.
type Problems map[string]string

func (p Problems) add(field, msg string) Problems {
	if p == nil {
		p = Problems{}
	}
	p[field] = msg
	return p
}

// CheckSignup is the public signup policy: strong password, website optional.
func CheckSignup(f Fields, now time.Time) Problems {
	var p Problems
	if f.Name == "" {
		p = p.add("name", "name is required")
	}
	if !IsValidEmail(f.Email) {
		p = p.add("email", "must be a valid email")
	}
	if !IsStrongPassword(f.Password) {
		p = p.add("password", "must be at least 8 characters with uppercase, lowercase, number and special character")
	}
	p = checkDob(p, f.Dob, now)
	if !IsValidGender(f.Gender) {
		p = p.add("gender", "must be one of: male, female, other")
	}
	if !IsValidWebsite(f.Website) {
		p = p.add("website", "must be a valid URL")
	}
	return p
}

// CheckAdminCreate is the admin add-user policy. Website stays optional on
// create; the length-only password rule applies.
func CheckAdminCreate(f Fields, now time.Time) Problems {
	p := missingFields(f, false)
	if p != nil {
		return p
	}
	return checkAdminCommon(f, now)
}

// CheckAdminUpdate is the admin edit policy. Every field, website included,
// must be present.
func CheckAdminUpdate(f Fields, now time.Time) Problems {
	p := missingFields(f, true)
	if p != nil {
		return p
	}
	return checkAdminCommon(f, now)
}

// CheckImportRow is the bulk-import policy: letters-only name, length-only
// password, and the strict website rule with the field required.
func CheckImportRow(f Fields, now time.Time) Problems {
	var p Problems
	if !IsValidName(f.Name) {
		p = p.add("name", "must contain letters and spaces only")
	}
	if !IsValidEmail(f.Email) {
		p = p.add("email", "must be a valid email")
	}
	if !HasMinPasswordLength(f.Password) {
		p = p.add("password", "must be at least 8 characters long")
	}
	p = checkDob(p, f.Dob, now)
	if !IsValidGender(f.Gender) {
		p = p.add("gender", "must be one of: male, female, other")
	}
	if !IsValidImportWebsite(f.Website) {
		p = p.add("website", "must be an http(s) URL")
	}
	return p
}

// missingFields lists absent required fields without judging their content,
// so the caller can report exactly which ones were not sent.
func missingFields(f Fields, websiteRequired bool) Problems {
	var p Problems
	if f.Name == "" {
		p = p.add("name", "is required")
	}
	if f.Email == "" {
		p = p.add("email", "is required")
	}
	if f.Password == "" {
		p = p.add("password", "is required")
	}
	if f.Dob == "" {
		p = p.add("dob", "is required")
	}
	if f.Gender == "" {
		p = p.add("gender", "is required")
	}
	if websiteRequired && f.Website == "" {
		p = p.add("website", "is required")
	}
	return p
}

func checkAdminCommon(f Fields, now time.Time) Problems {
	var p Problems
	if !IsValidEmail(f.Email) {
		p = p.add("email", "must be a valid email")
	}
	if !HasMinPasswordLength(f.Password) {
		p = p.add("password", "must be at least 8 characters long")
	}
	p = checkDob(p, f.Dob, now)
	if !IsValidGender(f.Gender) {
		p = p.add("gender", "must be one of: male, female, other")
	}
	if !IsValidWebsite(f.Website) {
		p = p.add("website", "must be a valid URL")
	}
	return p
}

func checkDob(p Problems, dob string, now time.Time) Problems {
	d, err := ParseDob(dob)
	if err != nil {
		return p.add("dob", "must be a valid date")
	}
	if !IsAdult(d, now) {
		return p.add("dob", "user must be at least 18 years old")
	}
	return p
}
