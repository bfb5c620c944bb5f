package storage

import "fmt"

// Drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the Store for driver rooted at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverFile, "":
		f, err := NewFile(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case DriverSQLite:
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
