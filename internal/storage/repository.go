package storage

import (
	"fmt"

	"pdfviewer/internal/config"
	"pdfviewer/internal/domain"
)

// OpenRepository opens the repository selected by cfg.Database.
func OpenRepository(cfg *config.Config) (domain.RectangleRepository, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		return OpenMongo(cfg.Database.DSN, cfg.Database.Name)
	case config.DriverSQLite, "":
		dsn := cfg.Database.DSN
		if dsn == "" {
			dsn = cfg.SQLitePath()
		}
		db, err := Open(DriverSQLite, dsn)
		if err != nil {
			return nil, err
		}
		return NewRectangleStore(db), nil
	case config.DriverPostgres, config.DriverMySQL:
		db, err := Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		return NewRectangleStore(db), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}
