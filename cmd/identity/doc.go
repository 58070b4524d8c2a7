// Package identity owns user credentials: the Credential Store (Postgres and
// in-memory) and the Authenticator that checks a username/password pair.
//
// Users are provisioned out of band (the `coldeye user add` command or direct
// SQL); this package only reads them on the login path.
package identity
