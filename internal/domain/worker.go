package domain

import "fmt"

// Worker is a warehouse operator identified by a short numeric PIN, as
// spoken to the voice terminal at sign-on.
type Worker struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	PIN       int    `bson:"pin" json:"pin"`
	Name      string `bson:"name" json:"name"`
	Role      Role   `bson:"role" json:"role"`
	Active    bool   `bson:"active" json:"active"`
	Equipment string `bson:"equipment,omitempty" json:"equipment,omitempty"`
}

// CanClaim checks that the worker is allowed to take a task requiring the
// given role.
func (w *Worker) CanClaim(required Role) error {
	if !w.Active {
		return fmt.Errorf("%w: worker %d is deactivated", ErrWorkerInactive, w.PIN)
	}
	if w.Role != required {
		return fmt.Errorf("%w: worker %d has role %s, task requires %s", ErrRoleMismatch, w.PIN, w.Role, required)
	}
	return nil
}
