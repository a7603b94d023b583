package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestExtractRoles(t *testing.T) {
	cases := []struct {
		name   string
		claims jwt.MapClaims
		want   []string
	}{
		{"list", jwt.MapClaims{"roles": []interface{}{"ADMIN", "CHAUFFEUR"}}, []string{"ADMIN", "CHAUFFEUR"}},
		{"alias in list", jwt.MapClaims{"roles": []interface{}{"Admin Codex"}}, []string{"ADMIN"}},
		{"chauffeur alias", jwt.MapClaims{"role": "Chauffeur Codex"}, []string{"CHAUFFEUR"}},
		{"delimited string", jwt.MapClaims{"roles": "ADMIN, GLOBAL_SUPERVISION"}, []string{"ADMIN", "GLOBAL_SUPERVISION"}},
		{"namespaced", jwt.MapClaims{"https://delivops.app/roles": []interface{}{"Admin Codex", 42}}, []string{"ADMIN"}},
		{"merged", jwt.MapClaims{"role": "ADMIN", "roles": []interface{}{"Chauffeur Codex"}}, []string{"ADMIN", "CHAUFFEUR"}},
		{"ignored claims", jwt.MapClaims{"scope": "ADMIN", "permissions": []interface{}{"ADMIN"}}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractRoles(tc.claims).Slice())
		})
	}
}

func TestRoleSetHasAny(t *testing.T) {
	set := NewRoleSet("Admin Codex", " ")
	assert.True(t, set.Has("ADMIN"))
	assert.True(t, set.HasAny("CHAUFFEUR", "ADMIN"))
	assert.False(t, set.HasAny("CHAUFFEUR"))
	assert.Len(t, set, 1)
}

func TestDevIdentity(t *testing.T) {
	id := DevIdentity("", "")
	assert.Equal(t, "dev|tester", id.Sub)
	assert.Empty(t, id.Roles)

	id = DevIdentity("Chauffeur Codex", "driver|7")
	assert.Equal(t, "driver|7", id.Sub)
	assert.True(t, id.Roles.Has("CHAUFFEUR"))
}
