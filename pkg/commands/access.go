package commands

import "strconv"

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "/"

// Access is a read-only snapshot of the guard inputs.
type Access struct {
	Prefix string
	admins map[int64]struct{}
	vips   map[int64]struct{}
}

// NewAccess builds a snapshot. Ids that are not integers are ignored.
func NewAccess(prefix string, admins, vips []string) *Access {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Access{
		Prefix: prefix,
		admins: idSet(admins),
		vips:   idSet(vips),
	}
}

func idSet(ids []string) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// IsAdmin reports admin membership.
func (a *Access) IsAdmin(userID int64) bool {
	_, ok := a.admins[userID]
	return ok
}

// IsVIP reports VIP membership. Admins are not implied.
func (a *Access) IsVIP(userID int64) bool {
	_, ok := a.vips[userID]
	return ok
}

// Admins returns the admin ids.
func (a *Access) Admins() []int64 {
	out := make([]int64, 0, len(a.admins))
	for id := range a.admins {
		out = append(out, id)
	}
	return out
}
