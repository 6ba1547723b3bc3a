package keystore

import (
	"fmt"
	"strings"
)

// Open returns the store described by dsn:
//
//	memory           in-process store
//	leveldb:<dir>    LevelDBStore in dir
//	sqlite:<file>    SQLiteStore in file
//
// An empty dsn selects memory.
func Open(dsn string) (Store, error) {
	kind, location, _ := strings.Cut(strings.TrimSpace(dsn), ":")
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "leveldb":
		if location == "" {
			return nil, fmt.Errorf("keystore %q: missing directory", dsn)
		}
		s, err := OpenLevelDB(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		if location == "" {
			return nil, fmt.Errorf("keystore %q: missing file", dsn)
		}
		s, err := OpenSQLite(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("keystore %q: unsupported backend %q", dsn, kind)
}
