package roles

// Catalog is the static role table. It is populated once by NewCatalog and
// never mutated, so it is safe for concurrent reads.
type Catalog struct {
	order []string
	byKey map[string]Role
}

// NewCatalog builds a catalog. A repeated key keeps its first position and
// takes the later definition.
func NewCatalog(roles ...Role) *Catalog {
	c := &Catalog{byKey: make(map[string]Role, len(roles))}
	for _, role := range roles {
		if role.Key == "" {
			continue
		}
		if _, ok := c.byKey[role.Key]; !ok {
			c.order = append(c.order, role.Key)
		}
		c.byKey[role.Key] = role
	}
	return c
}

// NewDefaultCatalog returns a catalog seeded with DefaultRoles.
func NewDefaultCatalog() *Catalog {
	return NewCatalog(DefaultRoles()...)
}

// Get returns the role registered under key.
func (c *Catalog) Get(key string) (Role, bool) {
	if c == nil {
		return Role{}, false
	}
	role, ok := c.byKey[key]
	return role, ok
}

// List returns the roles in seed order.
func (c *Catalog) List() []Role {
	if c == nil {
		return nil
	}
	out := make([]Role, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.byKey[key])
	}
	return out
}
