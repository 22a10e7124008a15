package domain

import "strings"

const (
	anonymousPrefix = "anon:"
	customerPrefix  = "customer:"
)

// Owner identifies whoever a cart belongs to: a signed-in customer or an
// anonymous browser session.
type Owner struct {
	CustomerID string
	SessionID  string
}

// AnonymousOwner is the owner for a session that has not logged in.
func AnonymousOwner(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

// CustomerOwner is the owner for a signed-in customer.
func CustomerOwner(customerID, sessionID string) Owner {
	return Owner{CustomerID: customerID, SessionID: sessionID}
}

// IsCustomer reports whether the owner is a signed-in customer.
func (o Owner) IsCustomer() bool {
	return o.CustomerID != ""
}

// Key is the value stored in carts.owner_id and cart_items.owner_id.
func (o Owner) Key() string {
	if o.IsCustomer() {
		return customerPrefix + o.CustomerID
	}
	return anonymousPrefix + o.SessionID
}

// IsAnonymousKey reports whether an owner key belongs to a session.
func IsAnonymousKey(key string) bool {
	return strings.HasPrefix(key, anonymousPrefix)
}
