package service

import (
	"time"

	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// EditWindow is how long after creation a sender may still edit a message.
const EditWindow = 15 * time.Minute

// CanEditOrDelete reports whether a message created at createdAt is still inside the edit
// window at now. Callers pass the server clock.
func CanEditOrDelete(createdAt, now time.Time) bool {
	return now.Sub(createdAt) < EditWindow
}

// authorizeEdit lets only the sender edit, and only inside the window. The two failures are
// distinct kinds so clients can tell "not your message" from "too late to edit".
func authorizeEdit(senderID uint, createdAt time.Time, actor Actor, now time.Time) error {
	if senderID != actor.ID {
		return apperror.Forbidden("only the sender can edit this message")
	}
	if !CanEditOrDelete(createdAt, now) {
		return apperror.New(apperror.ErrWindowExpired, "the edit window for this message has closed")
	}
	return nil
}

// authorizeDelete lets the sender delete at any time and administrators delete anything.
// The returned flag is true when the deletion relies on the administrator override.
func authorizeDelete(senderID uint, actor Actor) (bool, error) {
	if senderID == actor.ID {
		return false, nil
	}
	if actor.IsAdministrator() {
		return true, nil
	}
	return false, apperror.Forbidden("only the sender or an administrator can delete this message")
}

func canEditFor(senderID uint, createdAt time.Time, viewerID uint, now time.Time) bool {
	return senderID == viewerID && CanEditOrDelete(createdAt, now)
}
