package rag

// Permission scopes a retrieval to the set of source entities the caller is
// allowed to read. The zero value is unrestricted, so an absent or empty
// allow-list from the API boundary means "no filter applied" — never
// "deny all". Callers that need to deny everything should not reach the
// retriever at all.
type Permission struct {
	// restricted distinguishes an explicit allow-list from the unrestricted
	// zero value, so an empty-but-present list cannot silently become a
	// deny-all filter.
	restricted bool

	// allowed is the entity allow-list when restricted.
	allowed []int64
}

// Unrestricted returns a Permission that applies no entity filter.
func Unrestricted() Permission {
	return Permission{}
}

// RestrictedTo returns a Permission limiting retrieval to the given entity
// IDs. An empty or nil slice yields an unrestricted Permission, preserving
// the boundary contract that an empty allow-list means "no restriction".
func RestrictedTo(entityIDs []int64) Permission {
	if len(entityIDs) == 0 {
		return Unrestricted()
	}
	ids := make([]int64, len(entityIDs))
	copy(ids, entityIDs)
	return Permission{restricted: true, allowed: ids}
}

// Restricted reports whether an entity filter applies.
func (p Permission) Restricted() bool {
	return p.restricted
}

// AllowedIDs returns the entity allow-list, or nil when unrestricted.
func (p Permission) AllowedIDs() []int64 {
	if !p.restricted {
		return nil
	}
	return p.allowed
}

// Allows reports whether the permission admits the given entity ID.
func (p Permission) Allows(entityID int64) bool {
	if !p.restricted {
		return true
	}
	for _, id := range p.allowed {
		if id == entityID {
			return true
		}
	}
	return false
}
