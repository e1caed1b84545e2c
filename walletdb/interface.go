// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walletdb provides the versioned key/value store the wallet
// persists accounts, manager settings and participation events in.
// Backends register themselves as drivers, in the same way database/sql
// drivers do, and are selected by name at runtime.
package walletdb

// DB is a flat byte store keyed by strings.
//
// Implementations must be safe for concurrent use.  Values returned by Get
// belong to the caller.
type DB interface {
	// Get returns the value stored under key, or nil with a nil error if
	// the key does not exist.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Remove deletes key.  Removing a key that does not exist is not an
	// error.
	Remove(key string) error

	// Close releases the backend.  Every later call returns
	// ErrDbNotOpen.
	Close() error
}

// Driver defines a structure for backend drivers to use when they registered
// themselves as a backend which implements the DB interface.
type Driver struct {
	// DbType is the identifier used to uniquely identify a specific
	// database driver.  There can be only one driver with the same name.
	DbType string

	// Create is the function that will be invoked with all user-specified
	// arguments to create the database.  This function must return
	// ErrDbExists if the database already exists.
	Create func(args ...interface{}) (DB, error)

	// Open is the function that will be invoked with all user-specified
	// arguments to open the database.  This function must return
	// ErrDbDoesNotExist if the database has not already been created.
	Open func(args ...interface{}) (DB, error)
}

// drivers holds all of the registered database backends.
var drivers = make(map[string]*Driver)

// RegisterDriver adds a backend database driver to available interfaces.
// ErrDbTypeRegistered will be returned if the database type for the driver
// has already been registered.
func RegisterDriver(driver Driver) error {
	if _, exists := drivers[driver.DbType]; exists {
		return ErrDbTypeRegistered
	}

	drivers[driver.DbType] = &driver
	return nil
}

// SupportedDrivers returns a slice of strings that represent the database
// drivers that have been registered and are therefore supported.
func SupportedDrivers() []string {
	supportedDBs := make([]string, 0, len(drivers))
	for _, drv := range drivers {
		supportedDBs = append(supportedDBs, drv.DbType)
	}
	return supportedDBs
}

// Create initializes and opens a database for the specified type.  The
// arguments are specific to the database type driver.
//
// ErrDbUnknownType will be returned if the database type is not registered.
func Create(dbType string, args ...interface{}) (DB, error) {
	drv, exists := drivers[dbType]
	if !exists {
		return nil, ErrDbUnknownType
	}

	log.Debugf("Creating %s database", dbType)
	return drv.Create(args...)
}

// Open opens an existing database for the specified type.  The arguments
// are specific to the database type driver.
//
// ErrDbUnknownType will be returned if the database type is not registered.
func Open(dbType string, args ...interface{}) (DB, error) {
	drv, exists := drivers[dbType]
	if !exists {
		return nil, ErrDbUnknownType
	}

	log.Debugf("Opening %s database", dbType)
	return drv.Open(args...)
}
