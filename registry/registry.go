package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rediwo/redi-ado/connstr"
)

// Engine describes a database/sql driver able to host a session
type Engine struct {
	// Name is the value of the Engine connection string key
	Name string

	// DriverName is the name the driver registered with database/sql
	DriverName string

	// DSN builds the driver's data source name. Settings the driver applies
	// on every new database handle (busy timeout, foreign keys) belong here
	// rather than in session pragmas.
	DSN func(opts connstr.Options) string

	// IntegerTimestamps is true when the driver itself turns INTEGER values in
	// DATE/DATETIME/TIMESTAMP columns into time.Time before they reach us
	IntegerTimestamps bool

	// FoldsDeclTypes is true when the driver reports declared column types
	// upper-cased rather than as written in the schema
	FoldsDeclTypes bool
}

var (
	engines = make(map[string]Engine)
	mu      sync.RWMutex
)

// Register adds an engine. Registering the same name twice panics.
func Register(engine Engine) {
	mu.Lock()
	defer mu.Unlock()

	key := strings.ToLower(engine.Name)
	if key == "" || engine.DriverName == "" {
		panic("registry: engine needs a name and a driver name")
	}
	if _, exists := engines[key]; exists {
		panic(fmt.Sprintf("registry: engine %s already registered", engine.Name))
	}
	if engine.DSN == nil {
		engine.DSN = func(opts connstr.Options) string { return opts.DataSource }
	}

	engines[key] = engine
}

// Get looks an engine up by name, case-insensitively
func Get(name string) (Engine, error) {
	mu.RLock()
	defer mu.RUnlock()

	engine, exists := engines[strings.ToLower(name)]
	if !exists {
		return Engine{}, fmt.Errorf("engine %s not registered", name)
	}
	return engine, nil
}

// Names returns the registered engine names, sorted
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}
