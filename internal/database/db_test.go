package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/trades-marketplace/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.Config{DBUser: "app", DBPass: "pw", DBHost: "db", DBPort: "3306", DBName: "marketplace"}
	assert.Equal(t, "app:pw@tcp(db:3306)/marketplace?charset=utf8mb4&parseTime=true&loc=UTC", DSN(cfg))

	cfg.DBPass = ""
	assert.True(t, strings.HasPrefix(DSN(cfg), "app@tcp(db:3306)/"))
}

func TestStatements(t *testing.T) {
	stmts := Statements()

	assert.Len(t, stmts, 5)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
		assert.NotContains(t, s, "--")
	}
	assert.Contains(t, stmts[1], "uq_votes_pair (voter_id, rated_id)")
}
