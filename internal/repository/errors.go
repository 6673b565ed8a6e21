// Package repository holds the MySQL-backed stores and the sentinel errors
// they share.  These sentinel values allow the service layer to distinguish
// between different failure scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an account with the same email already exists.
var ErrEmailExists = errors.New("email already exists")

// ErrBudgetNumberExists is returned when a receipt budget number is reused.
var ErrBudgetNumberExists = errors.New("budget number already exists")

// ErrDuplicateVote is returned when a voter rates the same account twice.
var ErrDuplicateVote = errors.New("vote already cast")

// ErrPlaintextSecret is returned when an account would be written with a
// password_hash that is not a bcrypt digest.
var ErrPlaintextSecret = errors.New("password must be hashed before persisting")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a filename that is already taken.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// duplicateKeyName returns the index name reported in a duplicate entry error.
func duplicateKeyName(err error) string {
	msg := err.Error()
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return ""
	}
	name := strings.TrimSuffix(msg[i+len("for key '"):], "'")
	// MySQL 8 prefixes the table name: "accounts.uq_accounts_email"
	if j := strings.LastIndex(name, "."); j >= 0 {
		name = name[j+1:]
	}
	return name
}
