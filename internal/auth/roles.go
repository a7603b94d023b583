// Package auth verifies bearer tokens and normalises the roles they carry.
package auth

import (
	"sort"
	"strings"

	"delivops/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

const defaultDevSub = "dev|tester"

// roleAliases maps identity provider role names to application roles.
var roleAliases = map[string]string{
	"Admin Codex":     model.RoleAdmin,
	"Chauffeur Codex": model.RoleChauffeur,
}

// Identity is the authenticated caller.
type Identity struct {
	Sub   string
	Roles RoleSet
}

// RoleSet is a set of normalised application roles.
type RoleSet map[string]struct{}

func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set.add(r)
	}
	return set
}

func (s RoleSet) add(raw string) {
	r := strings.TrimSpace(raw)
	if r == "" {
		return
	}
	if alias, ok := roleAliases[r]; ok {
		r = alias
	}
	s[r] = struct{}{}
}

func (s RoleSet) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether at least one of roles is present.
func (s RoleSet) HasAny(roles ...string) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Slice returns the roles sorted.
func (s RoleSet) Slice() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// ExtractRoles collects roles from the "roles" and "role" claims and from any
// namespaced claim ending in "/roles". String values may be comma or space separated.
func ExtractRoles(claims jwt.MapClaims) RoleSet {
	set := RoleSet{}
	for key, value := range claims {
		if key == "roles" || key == "role" || strings.HasSuffix(key, "/roles") {
			collectRoles(set, value)
		}
	}
	return set
}

func collectRoles(set RoleSet, value interface{}) {
	switch v := value.(type) {
	case string:
		// Aliases contain spaces, so try the whole value first.
		if _, ok := roleAliases[strings.TrimSpace(v)]; ok {
			set.add(v)
			return
		}
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			set.add(part)
		}
	case []string:
		for _, s := range v {
			set.add(s)
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				set.add(s)
			}
		}
	}
}

// DevIdentity builds the identity used when fake auth is enabled.
func DevIdentity(role, sub string) Identity {
	if strings.TrimSpace(sub) == "" {
		sub = defaultDevSub
	}
	roles := RoleSet{}
	if role != "" {
		collectRoles(roles, role)
	}
	return Identity{Sub: sub, Roles: roles}
}
