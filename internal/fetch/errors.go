package fetch

import "errors"

// ErrAuthentication is returned when a login attempt is rejected or the
// login form cannot be used. Stored credentials should be cleared so a
// bad password is not replayed.
var ErrAuthentication = errors.New("authentication failed")
