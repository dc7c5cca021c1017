package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Role tags a task with the kind of worker allowed to claim it.
type Role string

const (
	RolePicker      Role = "picker"
	RolePacker      Role = "packer"
	RoleReceiver    Role = "receiver"
	RoleCounter     Role = "counter"
	RoleReplenisher Role = "replenisher"
)

var roleTagPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)

var roleRegistry = struct {
	sync.RWMutex
	roles map[Role]struct{}
}{
	roles: map[Role]struct{}{
		RolePicker:      {},
		RolePacker:      {},
		RoleReceiver:    {},
		RoleCounter:     {},
		RoleReplenisher: {},
	},
}

// RegisterRole adds a role tag to the registry so tasks can require it.
// Registration is idempotent.
func RegisterRole(tag string) (Role, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if !roleTagPattern.MatchString(tag) {
		return "", fmt.Errorf("%w: role tag %q must match %s", ErrUnknownRole, tag, roleTagPattern.String())
	}
	role := Role(tag)
	roleRegistry.Lock()
	roleRegistry.roles[role] = struct{}{}
	roleRegistry.Unlock()
	return role, nil
}

// IsRegistered reports whether the role is known to the registry.
func (r Role) IsRegistered() bool {
	roleRegistry.RLock()
	_, ok := roleRegistry.roles[r]
	roleRegistry.RUnlock()
	return ok
}

func (r Role) String() string {
	return string(r)
}

// RegisteredRoles returns the known role tags in sorted order.
func RegisteredRoles() []Role {
	roleRegistry.RLock()
	roles := make([]Role, 0, len(roleRegistry.roles))
	for role := range roleRegistry.roles {
		roles = append(roles, role)
	}
	roleRegistry.RUnlock()
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
