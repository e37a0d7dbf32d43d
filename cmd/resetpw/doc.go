// Command resetpw provides a CLI utility for password management in the
// PhotoVault application.
//
// It supports the following operations:
//   - reset: Reset the user's password (requires existing password setup)
//   - status: Check if a password is configured
//
// Usage:
//
//	resetpw <command>
//
// Commands:
//
//	reset   Reset the password for the configured user account.
//	        This requires that a password has already been set up via
//	        the web interface. All existing sessions will be invalidated.
//
//	status  Display whether a password is configured. If no password
//	        exists, initial setup must be done via the web interface.
//
// The database location is taken from the DATABASE_DIR environment
// variable, defaulting to /database.
package main
