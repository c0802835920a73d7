package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/imajine/core"
)

// Roles
const (
	RoleStudent     = "STUDENT"
	RoleCoordinator = "COORDINATOR"

	// login user types
	TypeStudent     = "student"
	TypeCoordinator = "coordinator"
)

var AllRoles = []string{RoleStudent, RoleCoordinator}

// RoleForType maps a login user type to the role it authenticates as.
func RoleForType(userType string) string {
	if core.CleanString(userType, true /* lower */) == TypeStudent {
		return RoleStudent
	}
	return RoleCoordinator
}

// TypeForRole is the inverse of RoleForType.
func TypeForRole(role string) string {
	if role == RoleStudent {
		return TypeStudent
	}
	return TypeCoordinator
}

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC

	// students
	CourseCode string `json:"courseCode,omitempty"`
	Year       int    `json:"year,omitempty"`

	// coordinators
	Title         string   `json:"title,omitempty"`
	AccessLevel   string   `json:"accessLevel,omitempty"`
	CourseManaged []string `json:"courseManaged,omitempty"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsStudent() bool     { return u.Role == RoleStudent }
func (u User) IsCoordinator() bool { return u.Role == RoleCoordinator }

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Profile is the projection of a User returned to authenticated callers.
type Profile struct {
	ID            string   `json:"id"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	Email         string   `json:"email"`
	Role          string   `json:"role"`
	CourseCode    string   `json:"courseCode,omitempty"`
	Year          int      `json:"year,omitempty"`
	Title         string   `json:"title,omitempty"`
	AccessLevel   string   `json:"accessLevel,omitempty"`
	CourseManaged []string `json:"courseManaged,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		Role:          u.Role,
		CourseCode:    u.CourseCode,
		Year:          u.Year,
		Title:         u.Title,
		AccessLevel:   u.AccessLevel,
		CourseManaged: u.CourseManaged,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	ID              string   `json:"id"`
	FirstName       string   `json:"firstName" validate:"required"`
	LastName        string   `json:"lastName"`
	Email           string   `json:"email" validate:"required,email"`
	Role            string   `json:"role" validate:"required,oneof=STUDENT COORDINATOR"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"passwordConfirm" validate:"required,eqfield=Password"`
	CourseCode      string   `json:"courseCode" validate:"required_if=Role STUDENT,omitempty,code"`
	Year            int      `json:"year" validate:"omitempty,min=1,max=10"`
	Title           string   `json:"title"`
	AccessLevel     string   `json:"accessLevel"`
	CourseManaged   []string `json:"courseManaged" validate:"omitempty,dive,code"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.ID = core.CleanString(nu.ID)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanCode(nu.Role)
	nu.CourseCode = core.CleanCode(nu.CourseCode)
	nu.Title = core.CleanString(nu.Title)
	for i, code := range nu.CourseManaged {
		nu.CourseManaged[i] = core.CleanCode(code)
	}
	return validate.Struct(nu)
}

// UpdateProfile defines what a User may change about themselves.
// ID, password and role are not editable through it.
type UpdateProfile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"omitempty,email"`
	Title     string `json:"title"`
}

func (up *UpdateProfile) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(up.FirstName); name != "" {
		up.FirstName = name
	} else {
		up.FirstName = origUsr.FirstName
	}

	if name := core.CleanString(up.LastName); name != "" {
		up.LastName = name
	} else {
		up.LastName = origUsr.LastName
	}

	if email := core.CleanString(up.Email, true /* lower */); email != "" {
		up.Email = email
	} else {
		up.Email = origUsr.Email
	}

	if title := core.CleanString(up.Title); title != "" {
		up.Title = title
	} else {
		up.Title = origUsr.Title
	}
	return validate.Struct(up)
}

type GetFilter struct {
	ID    string
	Email string
	Role  string
}

type QueryFilter struct {
	Search     string   `query:"search"`
	Role       string   `query:"role"`
	CourseCode string   `query:"courseCode"`
	IDs        []string `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.CourseCode == "" && qf.IDs == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanCode(qf.Role)
	qf.CourseCode = core.CleanCode(qf.CourseCode)
}
