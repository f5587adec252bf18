package chat

// AccountKind separates recruiting businesses from candidate accounts. The
// contact-permission rules hinge on it: a plain two-party conversation may
// only form across the business/normal boundary.
type AccountKind string

const (
	AccountKindNormal   AccountKind = "normal"
	AccountKindBusiness AccountKind = "business"
)

// Account is an identity owned by the auth subsystem; the chat core only
// reads it.
type Account struct {
	ID       string      `db:"id"`
	FullName string      `db:"full_name"`
	Avatar   *string     `db:"avatar"`
	Role     string      `db:"role"`
	Kind     AccountKind `db:"kind"`
}
