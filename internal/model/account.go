package model

import "time"

// Role is the enumerated account role stored in accounts.role and carried
// in the session claim.
type Role string

const (
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
	RoleMason      Role = "mason"
	RoleCarpenter  Role = "carpenter"
	RoleBlacksmith Role = "blacksmith"
	RolePainter    Role = "painter"
	RoleRoofer     Role = "roofer"
)

// ProfessionalRoles lists the trades that can lead a work order and be rated.
var ProfessionalRoles = []Role{RoleMason, RoleCarpenter, RoleBlacksmith, RolePainter, RoleRoofer}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin || r.IsProfessional()
}

// IsProfessional reports whether r is one of the trade roles.
func (r Role) IsProfessional() bool {
	for _, p := range ProfessionalRoles {
		if r == p {
			return true
		}
	}
	return false
}

// Account represents a row in the `accounts` table.  The plain password is
// never stored: PasswordHash always holds a bcrypt digest.  ResetToken and
// ResetTokenExpires are either both nil or both set.
//
// Fields:
//  ID                – primary key identifier.
//  Name, Lastname    – display names.
//  Email             – unique email address.
//  PasswordHash      – bcrypt hashed password.
//  Role              – account role (client, admin or a trade).
//  ProfilePicture    – public URL of the profile picture, empty when unset.
//  FrontDNI, BackDNI – public URLs of the identity document photos.
//  CriminalRecord    – public URL of the uploaded criminal record PDF.
//  Rating            – mean of all votes received, 0 when unrated.
//  TotalVotes        – number of votes received.
type Account struct {
	ID                uint64
	Name              string
	Lastname          string
	Email             string
	PasswordHash      string
	Role              Role
	Phone             string
	Description       string
	ProfilePicture    string
	FrontDNI          string
	BackDNI           string
	CriminalRecord    string
	Rating            float64
	TotalVotes        int
	ResetToken        *string
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SetResetToken stores a reset token together with its expiry.
func (a *Account) SetResetToken(token string, expires time.Time) {
	a.ResetToken = &token
	exp := expires.UTC()
	a.ResetTokenExpires = &exp
}

// ClearResetToken drops the token and its expiry together.
func (a *Account) ClearResetToken() {
	a.ResetToken = nil
	a.ResetTokenExpires = nil
}

// ResetTokenActive reports whether a reset token is set and not yet expired at now.
func (a *Account) ResetTokenActive(now time.Time) bool {
	return a.ResetToken != nil && a.ResetTokenExpires != nil && now.Before(*a.ResetTokenExpires)
}

// PublicAccount is the only shape in which an account leaves the API.  It
// never carries the password hash, the reset token or identity documents.
type PublicAccount struct {
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	Lastname       string  `json:"lastname"`
	Email          string  `json:"email"`
	Role           Role    `json:"role"`
	Phone          string  `json:"phone,omitempty"`
	Description    string  `json:"description,omitempty"`
	ProfilePicture string  `json:"profile_picture,omitempty"`
	Rating         float64 `json:"rating"`
	TotalVotes     int     `json:"total_votes"`
}

// Public returns the canonical public projection of a.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:             a.ID,
		Name:           a.Name,
		Lastname:       a.Lastname,
		Email:          a.Email,
		Role:           a.Role,
		Phone:          a.Phone,
		Description:    a.Description,
		ProfilePicture: a.ProfilePicture,
		Rating:         a.Rating,
		TotalVotes:     a.TotalVotes,
	}
}

// PublicAccounts projects a slice of accounts.
func PublicAccounts(accounts []Account) []PublicAccount {
	out := make([]PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Public())
	}
	return out
}

// IdentityDocuments groups the identity document URLs of an account.
type IdentityDocuments struct {
	FrontDNI string `json:"front_dni"`
	BackDNI  string `json:"back_dni"`
}
